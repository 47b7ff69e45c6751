package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/blinkynode/internal/api/models"
	"github.com/smazurov/blinkynode/internal/events"
	"github.com/smazurov/blinkynode/internal/led"
	"github.com/smazurov/blinkynode/internal/logging"
	"github.com/smazurov/blinkynode/internal/loop"
	"github.com/smazurov/blinkynode/internal/settings"
	"github.com/smazurov/blinkynode/internal/version"
)

// StatusProvider reports the control loop snapshot.
type StatusProvider interface {
	Status() loop.Status
}

// SettingsApplier validates and applies one setting.
type SettingsApplier interface {
	ApplyFrom(source, key string, value settings.Value) settings.Status
}

// ConnectionChecker reports whether the cloud link is currently up.
type ConnectionChecker interface {
	IsConnected() bool
}

// IndicatorState reports the indicator output.
type IndicatorState interface {
	State() (ledOn bool, color led.RGB, hasStrip bool)
}

// ServiceManager controls the agent's systemd unit.
type ServiceManager interface {
	Service() string
	Status(ctx context.Context) (string, error)
	Restart(ctx context.Context) error
}

// Options wires the API to the running agent. Everything except Loop and
// Settings is optional; routes for missing parts are not registered.
type Options struct {
	AuthUsername string
	AuthPassword string

	DeviceID  string
	Board     string
	Loop      StatusProvider
	Settings  SettingsApplier
	Cloud     ConnectionChecker
	Indicator IndicatorState

	LEDController led.Controller
	StatusLED     string
	Service       ServiceManager
	EventBus      *events.Bus

	PrometheusHandler http.Handler
}

// Server is the local HTTP API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	eventBus   *events.Bus
	logger     *slog.Logger
}

// basicAuthMiddleware enforces basic auth on operations that declare a
// security requirement. SSE clients may pass base64 credentials as ?auth=.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	unauthorized := func(ctx huma.Context, msg string, errs ...error) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="blinkynode"`)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var encoded string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = authHeader[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}

		if encoded == "" {
			unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			unauthorized(ctx, "Invalid credentials format", err)
			return
		}

		user, pass, ok := strings.Cut(string(decoded), ":")
		if !ok {
			unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

// NewServer creates the API server on Go's native mux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("OPTIONS /", handlePreflight)

	config := huma.DefaultConfig("blinkynode API", version.String())
	config.Info.Description = "Local status and settings API of the blinkynode device agent"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:      api,
		mux:      mux,
		options:  opts,
		eventBus: opts.EventBus,
		logger:   logging.GetLogger("api"),
	}

	api.UseMiddleware(corsMiddleware)
	api.UseMiddleware(requestLogger(server.logger))

	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on addr until Stop.
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the listener and all connections.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerStatusRoutes()
	s.registerSettingsRoutes()
	s.registerLEDRoutes()
	s.registerEventRoutes()
	s.registerServiceRoutes()
}

// withAuth returns security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
