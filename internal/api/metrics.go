package api

import (
	"net/http"

	"github.com/AaronLay10/ScriptGraph/internal/metrics"
)

var promHandler = metrics.Handler()

// metricsHandler serves the Prometheus registry. Only GET is allowed.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	promHandler.ServeHTTP(w, r)
}
