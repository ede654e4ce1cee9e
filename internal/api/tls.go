package api

import (
	"crypto/tls"
	"fmt"
)

// TLSFiles names the PEM certificate and key the API serves with. The zero
// value serves plain HTTP.
type TLSFiles struct {
	CertFile string
	KeyFile  string
}

// Enabled reports whether either file is named.
func (f TLSFiles) Enabled() bool {
	return f.CertFile != "" || f.KeyFile != ""
}

// Load reads the key pair. It returns nil, nil when TLS is not enabled and
// an error when only one of the two files is named.
func (f TLSFiles) Load() (*tls.Config, error) {
	if !f.Enabled() {
		return nil, nil
	}
	if f.CertFile == "" || f.KeyFile == "" {
		return nil, fmt.Errorf("tls: certificate and key must be set together")
	}

	cert, err := tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
