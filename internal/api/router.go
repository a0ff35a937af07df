package api

import (
	"net/http"
	"time"

	"cohortly/internal/api/handler"
	"cohortly/internal/api/middleware"
	"cohortly/internal/app/service"
	"cohortly/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	contentService *service.ContentService,
	progressService *service.ProgressService,
	leaderboardService *service.LeaderboardService,
	maintenanceService *service.MaintenanceService,
	submissionService *service.SubmissionService,
	runService *service.RunService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies the Authorization bearer token and puts claims in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		cohortHandler := handler.NewCohortHandler(contentService, progressService, leaderboardService, maintenanceService)
		submissionHandler := handler.NewSubmissionHandler(submissionService, runService)

		v1.Route("/cohorts", func(c chi.Router) {
			c.Use(middleware.Authenticator)
			cohortHandler.RegisterRoutes(c)
			submissionHandler.RegisterCohortRoutes(c)
		})
		v1.Group(submissionHandler.RegisterLookupRoutes)
	})

	return r
}
