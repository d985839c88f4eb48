// SPDX-License-Identifier: MIT

package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mhoffm/chatd/internal/store"
)

// AdminRouter builds the admin endpoint surface: liveness, a small status
// snapshot, and Prometheus metrics. It is never exposed publicly.
func AdminRouter(st store.Store, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/statusz", func(w http.ResponseWriter, req *http.Request) {
		status := struct {
			LabelsReady bool `json:"labelsReady"`
			Labels      int  `json:"labels"`
		}{}

		select {
		case <-st.LabelsReady():
			status.LabelsReady = true
			if labels, err := st.Labels(req.Context()); err == nil {
				status.Labels = len(labels)
			}
		default:
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logger.Warn().Err(err).Msg("statusz encode failed")
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
