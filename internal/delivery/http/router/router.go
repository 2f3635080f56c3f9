package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/scrape-coordinator/internal/delivery/http/handler"
	"github.com/user/scrape-coordinator/internal/delivery/http/middleware"
)

// New wires the coordinator's routes. Runner endpoints authenticate inside
// their handlers (HMAC needs the raw body); admin endpoints sit behind the
// shared admin token middleware.
func New(h *handler.Handler, adminToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/runner", func(r chi.Router) {
		r.Post("/poll", h.HandleRunnerPoll)
		r.Post("/claim-chunk", h.HandleClaimChunk)
		r.Get("/job", h.HandleGetJob)
		r.Post("/chunk-callback", h.HandleChunkCallback)
		r.Post("/job-callback", h.HandleJobCallback)
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.AdminAuth(adminToken))
		r.Post("/jobs", h.HandleCreateJob)
		r.Get("/jobs", h.HandleListJobs)
		r.Get("/jobs/{jobID}/results", h.HandleJobResults)
		r.Post("/runner-keys", h.HandleMintRunnerKey)
		r.Get("/runners", h.HandleListRunners)

		r.Route("/products/{sku}", func(r chi.Router) {
			r.Get("/", h.HandleGetProduct)
			r.Post("/consolidate", h.HandleConsolidate)
			r.Post("/approve", h.HandleApprove)
			r.Post("/publish", h.HandlePublish)
			r.Post("/reject", h.HandleReject)
		})
	})

	return r
}
