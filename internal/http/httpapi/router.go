package httpapi

import (
	stdhttp "net/http"
	"time"

	"campaignforge/internal/http/handlers"
	"campaignforge/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)
	r.Use(middleware.Logger(app.Logger))
	r.Use(middleware.CORS(app.Config.CORSOrigins))
	r.Use(middleware.I18N(app.Config.DefaultLocale))
	r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/generation", func(r chi.Router) {
		r.Post("/batches", app.StartBatch)
		r.Get("/batches/{batch_id}", app.BatchStatus)
		r.Post("/refresh", app.Refresh)
	})

	r.Route("/v1/posts/{post_id}", func(r chi.Router) {
		r.Get("/generation", app.GetState)
		r.Post("/generation/regenerate", app.Regenerate)
		r.Post("/generation/cancel", app.Cancel)
		r.Post("/video", app.GenerateVideo)
		r.Get("/artifacts.zip", app.ArtifactsZip)
	})

	return r
}
