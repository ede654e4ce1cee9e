package catalog

// Inputs holds the resolved source expression for each input port that
// had a value.
type Inputs map[string]string

// Get returns the expression for port, or fallback when it did not resolve.
func (in Inputs) Get(port, fallback string) string {
	if v, ok := in[port]; ok && v != "" {
		return v
	}
	return fallback
}

// Has reports whether port resolved.
func (in Inputs) Has(port string) bool {
	_, ok := in[port]
	return ok
}
