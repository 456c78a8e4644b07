package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-pipeline/internal/infra/sched"
	"content-pipeline/internal/usecase"
)

// JobsSnapshotter exposes the scheduler's job table to the API.
type JobsSnapshotter interface {
	Snapshot() []sched.JobStatus
}

// Server is the moderation API: login, the pending queue, approve/reject/edit,
// operator actions, and the pipeline dashboard. Images attached to items are
// served under /media so platform fetchers can pull them.
type Server struct {
	approvalUC usecase.ApprovalUseCase
	statsUC    usecase.StatsUseCase
	jobs       JobsSnapshotter
	auth       *AuthManager
	log        *zerolog.Logger
}

func NewServer(
	approvalUC usecase.ApprovalUseCase,
	statsUC usecase.StatsUseCase,
	jobs JobsSnapshotter,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		approvalUC: approvalUC,
		statsUC:    statsUC,
		jobs:       jobs,
		auth:       auth,
		log:        logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(traceID(), recoverer(s.log), requestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Platforms fetch attached images without a session.
	r.Get("/media/{id}", s.handleMedia)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/stats", s.handleStats)
			r.Get("/jobs", s.handleJobs)

			r.Route("/content", func(r chi.Router) {
				r.Get("/pending", s.handleListPending)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetContent)
					r.Get("/log", s.handleAuditTrail)
					r.Post("/approve", s.handleApprove)
					r.Post("/reject", s.handleReject)
					r.Post("/edit", s.handleEdit)
					r.Post("/reset-retries", s.handleResetRetries)
				})
			})
		})
	})
	return r
}

// requireSession rejects requests without a valid moderator token and stores
// the moderator name on the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withModerator(r.Context(), claims.Name)))
	})
}
