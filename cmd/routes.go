package main

import (
	"net/http"

	"ultradianService/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (app *Config) routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	mux.Use(middleware.Heartbeat("/ping"))

	sessionHandler := NewSessionHandler(app.Runner, app.Records)
	statsHandler := NewStatsHandler(app.Records)
	recordsHandler := NewRecordsHandler(app.Records)

	// Session control. A single user drives a single live session, so
	// these are guarded only when a user database is configured.
	mux.Route("/session", func(r chi.Router) {
		r.Use(app.protected())
		r.Get("/state", sessionHandler.GetState)
		r.Get("/templates", sessionHandler.ListTemplates)
		r.Post("/start", sessionHandler.StartSession)
		r.Post("/pause", sessionHandler.PauseSession)
		r.Post("/resume", sessionHandler.ResumeSession)
		r.Post("/skip", sessionHandler.SkipStage)
		r.Post("/distraction", sessionHandler.LogDistraction)
		r.Post("/note", sessionHandler.SetStageNote)
		r.Post("/momentum/check", sessionHandler.CheckMomentum)
		r.Post("/momentum/accept", sessionHandler.AcceptMomentum)
		r.Post("/momentum/decline", sessionHandler.DeclineMomentum)
		r.Post("/recovery-activities", sessionHandler.SetRecoveryActivities)
		r.Post("/end", sessionHandler.EndSession)
	})

	mux.Route("/stats", func(r chi.Router) {
		r.Use(app.protected())
		r.Get("/overview", statsHandler.GetOverview)
		r.Get("/daily", statsHandler.GetDaily)
		r.Get("/heatmap", statsHandler.GetHeatmap)
		r.Get("/task-types", statsHandler.GetTaskTypes)
		r.Get("/recovery", statsHandler.GetRecovery)
		r.Get("/patterns", statsHandler.GetPatterns)
		r.Get("/suggestion", statsHandler.GetSuggestion)
	})

	mux.Route("/records", func(r chi.Router) {
		r.Use(app.protected())
		r.Get("/", recordsHandler.ListRecords)
		r.Get("/export", recordsHandler.ExportRecords)
		r.Get("/topics", recordsHandler.ListTopics)
		r.Get("/{id}", recordsHandler.GetRecord)
		r.Post("/{id}/self-report", recordsHandler.AttachSelfReport)
		r.Delete("/{id}", recordsHandler.DeleteRecord)
		r.Post("/delete", recordsHandler.DeleteRecords)
	})

	if app.AuthRepo != nil {
		authHandler := NewAuthHandler(app.AuthRepo)

		mux.Post("/auth/register", authHandler.RegisterUser)
		mux.Post("/auth/login", authHandler.LoginUser)

		// Admin registration (development/testing only)
		mux.Post("/auth/register-admin", authHandler.RegisterAdminUser)

		mux.With(auth.RequireAnyUserRole(app.AuthRepo)).Get("/auth/profile", authHandler.GetProfile)
	}

	return mux
}

// protected returns the JWT middleware when auth is configured, and a
// pass-through otherwise (local single-user deployments run without a
// user database).
func (app *Config) protected() func(http.Handler) http.Handler {
	if app.AuthRepo == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return auth.RequireAnyUserRole(app.AuthRepo)
}
