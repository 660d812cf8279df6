// Package server assembles the LabHub gateway: middleware, route mounts,
// and the health endpoints.
package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/cvelabhub/labhub/internal/common/httpx"
	commonmiddleware "github.com/cvelabhub/labhub/internal/common/middleware"
	"github.com/cvelabhub/labhub/internal/labhub/adminview"
	"github.com/cvelabhub/labhub/internal/labhub/auth"
	"github.com/cvelabhub/labhub/internal/labhub/backend"
	"github.com/cvelabhub/labhub/internal/labhub/clientstate"
	"github.com/cvelabhub/labhub/internal/labhub/config"
	"github.com/cvelabhub/labhub/internal/labhub/gateway"
	"github.com/cvelabhub/labhub/internal/labhub/reports"
	"github.com/cvelabhub/labhub/internal/labhub/session"
	"github.com/cvelabhub/labhub/internal/labhub/telemetry"
)

// LabHubServer is the assembled gateway.
type LabHubServer struct {
	Router *chi.Mux

	backendClient  *backend.Client
	analysisClient *backend.Client
	validator      *auth.Validator
	manager        *session.Manager
	state          clientstate.Store
	metrics        *telemetry.Metrics
}

// CreateNewServer builds the gateway from the loaded configuration. The
// analysis client stays nil when no analysis URL is configured; the gateway
// routes then fail with a configuration error instead of a dial error.
func CreateNewServer() (*LabHubServer, error) {
	cfg := config.Config()

	var state clientstate.Store
	if cfg.State.Path != "" {
		fileStore, err := clientstate.NewFileStore(cfg.State.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to open client state store: %w", err)
		}
		state = fileStore
	} else {
		state = clientstate.NewMemoryStore()
	}

	metrics := telemetry.New()

	backendClient := backend.NewClient(cfg.Backend.BaseURL,
		cfg.Backend.GetRequestTimeout(), cfg.Backend.RetryAttempts,
		backend.WithLatencyObserver(metrics.ObserveUpstream))

	var analysisClient *backend.Client
	if cfg.Analysis.URL != "" {
		analysisClient = backend.NewClient(cfg.Analysis.URL,
			cfg.Backend.GetRequestTimeout(), cfg.Backend.RetryAttempts,
			backend.WithLatencyObserver(metrics.ObserveUpstream))
	}
	manager := session.NewManager(session.Params{
		InitialTTL:      cfg.Session.GetInitialTTL(),
		ExtendIncrement: cfg.Session.GetExtendIncrement(),
		MaxLifetime:     cfg.Session.GetMaxLifetime(),
	},
		session.NewMemoryStore(),
		backend.NewProvisioner(backendClient, auth.TokenFromContext),
		state,
		session.WithRecorder(metrics),
		session.WithTickInterval(cfg.Session.GetSweepInterval()),
	)

	s := &LabHubServer{
		Router:         chi.NewRouter(),
		backendClient:  backendClient,
		analysisClient: analysisClient,
		validator:      auth.NewValidator(cfg.Auth.TokenSecret, cfg.Auth.GetClockSkew()),
		manager:        manager,
		state:          state,
		metrics:        metrics,
	}
	return s, nil
}

// MountHandlers attaches middleware and the route tree.
func (s *LabHubServer) MountHandlers() {
	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	s.Router.Use(commonmiddleware.SetTimeout(config.Config().GetRequestTimeout()))
	if maxBody := config.Config().MaxRequestBodySize; maxBody > 0 {
		s.Router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.Body = http.MaxBytesReader(w, r.Body, maxBody)
				next.ServeHTTP(w, r)
			})
		})
	}
	s.Router.Use(s.metrics.Middleware)
	if config.Config().HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	s.mountResourceHandlers(s.Router)

	if os.Getenv("LABHUB_PRINT_ROUTES") != "" {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("route walk err: %s\n", err.Error())
		}
	}
}

func (s *LabHubServer) mountResourceHandlers(r chi.Router) {
	r.Mount("/api/v1/auth", auth.Router(s.backendClient, s.state))
	r.Mount("/api/ai", gateway.Router(s.analysisClient))

	// Everything below requires a verified bearer token.
	r.Group(func(pr chi.Router) {
		pr.Use(s.validator.Middleware)
		pr.Mount("/api/v1/labs", session.Router(s.manager))
		pr.Mount("/api/v1/users/{userID}/reports", reports.Router(s.backendClient, s.state))
		pr.Group(func(ar chi.Router) {
			ar.Use(auth.RequireAdmin)
			ar.Mount("/api/v1/admin", adminview.Router(s.backendClient))
		})
	})

	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
}

// Close releases the session manager's countdowns.
func (s *LabHubServer) Close() {
	s.manager.Close()
}

type getVersionRsp struct {
	ServerVersion string `json:"serverVersion"`
	APIVersion    string `json:"apiVersion"`
}

func (s *LabHubServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := &getVersionRsp{
		ServerVersion: "LabHub Gateway: " + config.Version,
		APIVersion:    config.APIVersion,
	}
	httpx.SendJSONRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *LabHubServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")

	if config.Config().Backend.BaseURL == "" {
		httpx.SendJSONRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "backend base URL not configured",
		})
		return
	}
	httpx.SendJSONRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
