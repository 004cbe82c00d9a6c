// Package httpx provides the HTTP API for the InsecMed diagnosis service.
package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/UPI05/InsecMed/internal/domain/auth"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// maxJSONBodyBytes bounds JSON request bodies.
const maxJSONBodyBytes = 1 << 20

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Dispatch Dispatcher
	Records  RecordReader
	Sharing  Sharer
	Patients PatientRegistry
	Auth     AuthServiceInterface

	Health map[string]Pinger

	CookieDomain   string
	SessionCookie  string
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	mux := http.NewServeMux()
	auth := SessionAuth{Svc: services.Auth, CookieName: services.SessionCookie}

	health := &HealthHandler{Checks: services.Health}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)

	registerAuthRoutes(mux, &AuthHandlers{
		Svc:          services.Auth,
		CookieDomain: services.CookieDomain,
		CookieName:   services.SessionCookie,
		Logger:       logger,
	}, auth)
	registerSubmitRoutes(mux, &SubmitHandlers{Svc: services.Dispatch}, routeConfig{
		auth:      auth,
		bodyLimit: services.MaxUploadBytes,
	})
	registerRecordRoutes(mux, &RecordHandlers{Svc: services.Records}, &ShareHandlers{Svc: services.Sharing}, auth)
	patients := &PatientHandlers{Svc: services.Patients}
	registerCRUD(mux, crudRoutes{
		Base:       "/api/patients",
		Create:     patients.Create,
		List:       patients.List,
		GetByID:    patients.Get,
		Update:     patients.Update,
		Delete:     patients.Delete,
		Middleware: chain(auth.RequireRole(domainauth.RoleUser), LimitBody(maxJSONBodyBytes)),
	})

	mux.HandleFunc("/", notFound)

	return Recover(logger)(Logging(logger)(mux))
}

type routeConfig struct {
	auth      SessionAuth
	bodyLimit int64
}

func registerSubmitRoutes(mux *http.ServeMux, h *SubmitHandlers, cfg routeConfig) {
	upload := chain(cfg.auth.RequireAuth, LimitBody(cfg.bodyLimit))
	mux.Handle("POST /api/diagnoses", upload(http.HandlerFunc(h.SubmitDiagnosis)))
	mux.Handle("POST /api/qa", upload(http.HandlerFunc(h.SubmitQA)))
	mux.Handle("GET /api/jobs/{handle}/status", cfg.auth.RequireAuth(http.HandlerFunc(h.Status)))
}

func registerRecordRoutes(mux *http.ServeMux, rh *RecordHandlers, sh *ShareHandlers, auth SessionAuth) {
	authed := auth.RequireAuth
	withBody := chain(auth.RequireAuth, LimitBody(maxJSONBodyBytes))

	mux.Handle("GET /api/records/{kind}", authed(http.HandlerFunc(rh.List)))
	mux.Handle("GET /api/records/{kind}/{id}", authed(http.HandlerFunc(rh.Get)))
	mux.Handle("PATCH /api/records/{kind}/{id}/subject", withBody(http.HandlerFunc(rh.UpdateSubject)))
	mux.Handle("GET /api/artifacts/{name}", authed(http.HandlerFunc(rh.Artifact)))

	mux.Handle("POST /api/records/{kind}/{id}/share", withBody(http.HandlerFunc(sh.Initiate)))
	mux.Handle("POST /api/records/{kind}/{id}/share/respond", withBody(http.HandlerFunc(sh.Respond)))
	mux.Handle("GET /api/shared", authed(http.HandlerFunc(sh.Shared)))
	mux.Handle("GET /api/notifications", authed(http.HandlerFunc(sh.Notifications)))
}

// crudRoutes describes the standard CRUD routes for a resource base path.
type crudRoutes struct {
	Base       string
	Create     http.HandlerFunc
	List       http.HandlerFunc
	GetByID    http.HandlerFunc
	Update     http.HandlerFunc
	Delete     http.HandlerFunc
	Middleware func(http.Handler) http.Handler
}

// registerCRUD registers standard CRUD routes for a resource base path, applying mw if non-nil.
func registerCRUD(mux *http.ServeMux, cfg crudRoutes) {
	if cfg.Base == "" {
		panic("registerCRUD: Base must not be empty") //nolint:forbidigo // Fail fast during server setup.
	}
	if cfg.Create == nil ||
		cfg.List == nil ||
		cfg.GetByID == nil ||
		cfg.Update == nil ||
		cfg.Delete == nil {
		panic("registerCRUD: nil handler for base " + cfg.Base) //nolint:forbidigo // Fail fast during server setup.
	}

	wrap := func(h http.HandlerFunc) http.Handler {
		if cfg.Middleware != nil {
			return cfg.Middleware(h)
		}
		return h
	}
	mux.Handle("POST "+cfg.Base, wrap(cfg.Create))
	mux.Handle("GET "+cfg.Base, wrap(cfg.List))
	mux.Handle("GET "+cfg.Base+"/{id}", wrap(cfg.GetByID))
	mux.Handle("PUT "+cfg.Base+"/{id}", wrap(cfg.Update))
	mux.Handle("DELETE "+cfg.Base+"/{id}", wrap(cfg.Delete))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, auth SessionAuth) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", auth.RequireAuth(http.HandlerFunc(h.Me)))
}

// chain applies middleware so the first argument is outermost.
func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		return h
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, apperrors.NotFound("no such route"))
}
