package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/mlnotify/internal/api"
	"github.com/charlesng35/mlnotify/internal/app"
	iauth "github.com/charlesng35/mlnotify/internal/auth"
	sharedtestutil "github.com/charlesng35/mlnotify/internal/database/testutil"
	"github.com/charlesng35/mlnotify/internal/permissions"
	"github.com/charlesng35/mlnotify/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Config   *app.Config
	Services *api.Services
}

// EnvOption adjusts the configuration before the router is built.
type EnvOption func(*app.Config)

// NewEnv provisions a fresh handler test environment with migrations applied.
// Rate limiting is disabled and the generator is seeded for reproducible runs.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Notifications: app.NotificationConfig{
			DefaultExpiryDays:    7,
			PageSize:             20,
			RecentLimit:          10,
			DefaultGenerateCount: 2,
			MaxGenerateCount:     10,
			GeneratorSeed:        7,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	router, err := api.NewRouter(db, jwtSvc, cfg, nil)
	require.NoError(t, err)

	svcs, err := api.NewServices(db, cfg)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Config:   cfg,
		Services: svcs,
	}
}

// Token issues an access token for userID carrying the given roles.
func (e *Env) Token(userID string, roles ...string) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.AccessTokenInput{UserID: userID, Roles: roles})
	require.NoError(e.T, err)
	return token
}

// UserToken issues an access token with the standard user role.
func (e *Env) UserToken(userID string) string {
	return e.Token(userID, permissions.RoleUser)
}

// AdminToken issues an access token with the admin role.
func (e *Env) AdminToken(userID string) string {
	return e.Token(userID, permissions.RoleAdmin)
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		reader = bytes.NewReader(data)
	}
	return e.do(method, path, reader, body != nil, token)
}

// RequestRaw sends body verbatim as a JSON request, useful for malformed or empty payloads.
func (e *Env) RequestRaw(method, path, body, token string) *httptest.ResponseRecorder {
	e.T.Helper()
	return e.do(method, path, strings.NewReader(body), true, token)
}

func (e *Env) do(method, path string, body io.Reader, isJSON bool, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	req, err := http.NewRequest(method, path, body)
	require.NoError(e.T, err)

	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
