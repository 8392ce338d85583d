package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"sitewatch/internal/httpapi/middleware"
	"sitewatch/internal/repo"
	"sitewatch/internal/scheduler"
)

// WSHandler is what the live-update channel exposes to the router.
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

type Server struct {
	Logger  *zap.Logger
	Targets repo.TargetStore
	History repo.HistoryStore
	Monitor *scheduler.Monitor
	Live    WSHandler

	Keys      middleware.Keys
	PublicRPM int
	Burst     int
}

func NewServer(
	logger *zap.Logger,
	targets repo.TargetStore,
	history repo.HistoryStore,
	monitor *scheduler.Monitor,
	live WSHandler,
) *Server {
	return &Server{
		Logger:  logger,
		Targets: targets,
		History: history,
		Monitor: monitor,
		Live:    live,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.PublicRPM, s.Burst))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if s.Live != nil {
		r.Get("/ws", s.Live.HandleWS)
	}

	r.Route("/api/sites", func(r chi.Router) {
		r.Use(middleware.RequireAny(s.Keys))

		r.Get("/", s.handleListSites)
		r.Post("/", s.handleAddSite)
		r.Get("/{id}", s.handleGetSite)
		r.Get("/{id}/metrics", s.handleMetrics)
		r.Post("/{id}/check", s.handleCheckNow)
		r.Post("/{id}/ports", s.handleScanPorts)

		// Mutations need an admin key once one is configured.
		admin := r.With(middleware.RequireAdmin(s.Keys))
		admin.Put("/{id}", s.handleUpdateSite)
		admin.Delete("/{id}", s.handleDeleteSite)
	})

	return r
}
