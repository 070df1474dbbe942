// Package httpapi exposes the marketplace over HTTP/JSON.
//
// Callers are identified by a Bearer JWT when a verifier is configured,
// otherwise by the x-user-id / x-user-role headers forwarded by the Gateway.
//
// Routes:
//
//	GET    /health                      → liveness
//	GET    /kinks                       → kink catalogue
//	GET    /jobs                        → open jobs, annotated with hasApplied
//	POST   /jobs                        → create job
//	GET    /jobs/mine                   → caller's jobs
//	GET    /jobs/{id}                   → job detail
//	PUT    /jobs/{id}                   → edit job (full replacement)
//	DELETE /jobs/{id}                   → delete job
//	POST   /jobs/{id}/applications      → apply
//	DELETE /jobs/{id}/applications      → retract caller's application
//	GET    /jobs/{id}/applications      → applications (poster only)
//	GET    /applications                → caller's applications
//	POST   /jobs/{id}/select            → select applicant
//	POST   /jobs/{id}/status            → update status
//	POST   /jobs/{id}/feedback          → submit feedback
//	GET    /jobs/{id}/feedback          → feedback for job
//	POST   /feedback/{id}/flag          → flag feedback addressed to caller
//	GET    /users/{id}/feedback         → feedback received by user
//	GET    /users/{id}/reputation       → reputation fields
//	GET    /users/{id}/ratings          → rating breakdown
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"findsub/marketplace-service/internal/application"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/kink"
	"findsub/marketplace-service/internal/reputation"
)

// Config defines the services a Handler dispatches to.
type Config struct {
	Jobs       *job.Service
	Ledger     *application.Ledger
	Feedback   *feedback.Collector
	Reputation *reputation.Aggregator
	Kinks      *kink.Registry
	// Verifier may be nil; gateway headers are then trusted.
	Verifier *identity.Verifier
}

// Handler holds shared dependencies.
type Handler struct {
	jobs       *job.Service
	ledger     *application.Ledger
	feedback   *feedback.Collector
	reputation *reputation.Aggregator
	kinks      *kink.Registry
	verifier   *identity.Verifier
}

// NewHandler returns a configured Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		jobs:       cfg.Jobs,
		ledger:     cfg.Ledger,
		feedback:   cfg.Feedback,
		reputation: cfg.Reputation,
		kinks:      cfg.Kinks,
		verifier:   cfg.Verifier,
	}
}

// Router builds the chi router with middleware and every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/kinks", h.listKinks)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.listOpenJobs)
			r.Post("/", h.createJob)
			r.Get("/mine", h.listMyJobs)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getJob)
				r.Put("/", h.editJob)
				r.Delete("/", h.deleteJob)
				r.Post("/applications", h.apply)
				r.Delete("/applications", h.retract)
				r.Get("/applications", h.listJobApplications)
				r.Post("/select", h.selectApplicant)
				r.Post("/status", h.updateStatus)
				r.Post("/feedback", h.submitFeedback)
				r.Get("/feedback", h.listJobFeedback)
			})
		})
		r.Get("/applications", h.listMyApplications)
		r.Post("/feedback/{id}/flag", h.flagFeedback)
		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/feedback", h.listUserFeedback)
			r.Get("/reputation", h.getReputation)
			r.Get("/ratings", h.getRatings)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listKinks(w http.ResponseWriter, r *http.Request) {
	kinks, err := h.kinks.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, kinks)
}
