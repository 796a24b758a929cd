package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/modelmagic/portal/internal/api/handlers"
	mw "github.com/modelmagic/portal/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret           []byte
	AllowedOrigin        string
	Health               *handlers.HealthHandler
	AuthHandler          *handlers.AuthHandler
	IntakeHandler        *handlers.IntakeHandler
	ProjectsHandler      *handlers.ProjectsHandler
	AssetsHandler        *handlers.AssetsHandler
	NotificationsHandler *handlers.NotificationsHandler
	AdminHandler         *handlers.AdminHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.AllowedOrigin))
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/statuses", handlers.Statuses)

		// Public entry points that send email or guess tokens get a tighter limit.
		api.Group(func(pub chi.Router) {
			pub.Use(mw.RateLimit(0.2, 5))
			pub.Post("/intake", dep.IntakeHandler.Submit)
			pub.Route("/auth", func(ar chi.Router) {
				ar.Post("/login", dep.AuthHandler.Login)
				ar.Post("/magic-link", dep.AuthHandler.RequestMagicLink)
				ar.Post("/magic-link/verify", dep.AuthHandler.VerifyMagicLink)
				ar.Get("/oidc/login", dep.AuthHandler.OIDCLogin)
				ar.Get("/oidc/callback", dep.AuthHandler.OIDCCallback)
			})
		})

		api.With(mw.OptionalAuth(dep.HMACSecret)).Post("/assets/upload-url", dep.AssetsHandler.UploadURL)

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Route("/projects", func(pr chi.Router) {
				pr.Get("/", dep.ProjectsHandler.List)
				pr.Get("/stats", dep.ProjectsHandler.Stats)
				pr.Get("/{id}", dep.ProjectsHandler.Get)
				pr.Patch("/{id}", dep.ProjectsHandler.UpdateBrief)
				pr.Get("/{id}/assets", dep.ProjectsHandler.Assets)
			})

			protected.Route("/assets/{id}", func(ar chi.Router) {
				ar.Get("/download", dep.AssetsHandler.Download)
				ar.Post("/approve", dep.AssetsHandler.Approve)
				ar.Post("/revision", dep.AssetsHandler.RequestRevision)
			})

			protected.Route("/notifications", func(nr chi.Router) {
				nr.Get("/", dep.NotificationsHandler.List)
				nr.Post("/read-all", dep.NotificationsHandler.MarkAllRead)
				nr.Post("/{id}/read", dep.NotificationsHandler.MarkRead)
			})

			protected.Route("/admin", func(ad chi.Router) {
				ad.Use(mw.RequireAdmin)
				ad.Get("/stats", dep.ProjectsHandler.Stats)
				ad.Get("/projects", dep.AdminHandler.ListProjects)
				ad.Route("/projects/{id}", func(pr chi.Router) {
					pr.Get("/", dep.ProjectsHandler.Get)
					pr.Post("/assign-package", dep.AdminHandler.AssignPackage)
					pr.Post("/mark-paid", dep.AdminHandler.MarkPaid)
					pr.Patch("/status", dep.AdminHandler.UpdateStatus)
					pr.Get("/history", dep.AdminHandler.History)
					pr.Get("/next-statuses", dep.AdminHandler.NextStatuses)
					pr.Post("/assets", dep.AdminHandler.AddAssets)
				})
				ad.Delete("/assets/{id}", dep.AdminHandler.DeleteAsset)
			})
		})
	})

	return r
}
