package http

import (
	"net/http"

	"readlog/internal/auth"
	"readlog/internal/config"
	"readlog/internal/http/handler"
	mw "readlog/internal/http/middleware"
	"readlog/internal/jobs"
	"readlog/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	me := &handler.MeHandler{DB: db}
	r.With(auth.RequireAuth(jwtSvc)).Get("/me", me.Me)

	entryRepo := &store.EntryRepo{DB: db}
	topicRepo := &store.TopicRepo{DB: db}
	statsRepo := &store.StatsRepo{DB: db}
	jobsRepo := &jobs.Repo{DB: db}

	eh := &handler.EntryHandler{Repo: entryRepo, Jobs: jobsRepo, Log: log}
	r.Route("/entries", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", eh.List)
		r.Post("/", eh.Upsert)
		r.Post("/bulk", eh.BulkUpsert)
		r.Delete("/{dayKey}/{category}", eh.Delete)
	})

	th := &handler.TopicHandler{Repo: topicRepo}
	r.Route("/topics", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", th.List)
		r.Post("/", th.Create)
		r.Delete("/{topicID}", th.DeleteTopic)

		r.Post("/{topicID}/items", th.AddItem)
		r.Post("/{topicID}/items/{itemID}/toggle", th.ToggleItem)
		r.Delete("/{topicID}/items/{itemID}", th.DeleteItem)
	})

	sh := &handler.StatsHandler{DB: db, Entries: entryRepo, Stats: statsRepo, Timezone: cfg.Timezone}
	r.Route("/stats", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", sh.Get)
		r.Get("/cached", sh.GetCached)
		r.Get("/day", sh.Day)
	})

	return r
}
