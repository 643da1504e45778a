package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crm-admin-api/internal/handler"
	"github.com/noah-isme/crm-admin-api/internal/models"
	"github.com/noah-isme/crm-admin-api/internal/service"
	"github.com/noah-isme/crm-admin-api/internal/testutil"
)

const testPassword = "secret1"

type testServer struct {
	engine *gin.Engine
	store  *testutil.UserStore
	auth   *service.AuthService
}

func buildRouter(t *testing.T, authRequired bool) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	store := testutil.NewUserStore(
		models.User{ID: 1, Name: "Ada Admin", Email: "ada@example.com", Password: string(hash), Role: models.RoleAdministrator, Status: models.StatusActive},
		models.User{ID: 2, Name: "Gus Guest", Email: "gus@example.com", Password: string(hash), Role: models.RoleGuest, Status: models.StatusActive},
	)

	metrics := service.NewMetricsService()
	auth := service.NewAuthService(store, nil, nil, nil, service.AuthConfig{AccessTokenSecret: "router-test", Issuer: "crm-admin-api"})
	users := service.NewUserService(service.UserServiceParams{Repo: store, Metrics: metrics, BcryptCost: bcrypt.MinCost})
	stats := service.NewStatsService(service.StatsServiceParams{Stats: emptyStats{}, Users: store})

	engine := New(Deps{
		APIPrefix:    "/api",
		AuthRequired: authRequired,
		Tokens:       auth,
		Observer:     metrics,
		Users:        handler.NewUserHandler(users),
		Stats:        handler.NewStatsHandler(stats),
		Auth:         handler.NewAuthHandler(auth),
		Metrics:      handler.NewMetricsHandler(metrics, nil),
	})
	return testServer{engine: engine, store: store, auth: auth}
}

type emptyStats struct{}

func (emptyStats) List(context.Context) ([]models.Stat, error) { return []models.Stat{}, nil }

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body, token string) *http.Request {
	req, _ := http.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func login(t *testing.T, s testServer, email string) string {
	t.Helper()
	res, err := s.auth.Login(context.Background(), models.LoginRequest{Email: email, Password: testPassword})
	require.NoError(t, err)
	return res.AccessToken
}

func TestRouterPublicRoutes(t *testing.T) {
	s := buildRouter(t, false)

	t.Run("health", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/health", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("list", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/api/users", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"ada@example.com"`)
		require.NotContains(t, resp.Body.String(), "password")
	})

	t.Run("view is not captured by the id route", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/api/users/view?role=Guest", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"total_count":1`)
	})

	t.Run("get bad id", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/api/users/abc", "", ""))
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("distribution", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/api/stats/user-distribution", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"Manager"`)
	})

	t.Run("login", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"gus@example.com","password":"secret1"}`, ""))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"access_token"`)
	})

	t.Run("metrics exposes route templates", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/metrics", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `path="/api/users/:id"`)
	})
}

func TestRouterUserLifecycleWithoutAuth(t *testing.T) {
	s := buildRouter(t, false)

	resp := performRequest(s.engine, jsonRequest(http.MethodPost, "/api/users", `{"name":"Cy","email":"cy@example.com","password":"secret1"}`, ""))
	require.Equal(t, http.StatusCreated, resp.Code)
	var created struct {
		Data models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Equal(t, int64(3), created.Data.ID)
	require.Equal(t, models.RoleGuest, created.Data.Role)
	require.Equal(t, models.StatusActive, created.Data.Status)

	resp = performRequest(s.engine, jsonRequest(http.MethodPost, "/api/users", `{"name":"Dup","email":"cy@example.com","password":"secret1"}`, ""))
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = performRequest(s.engine, jsonRequest(http.MethodPatch, "/api/users/3", `{"role":"Manager"}`, ""))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"role":"Manager"`)

	resp = performRequest(s.engine, jsonRequest(http.MethodPut, "/api/users/3", `{"role":"Owner"}`, ""))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = performRequest(s.engine, jsonRequest(http.MethodDelete, "/api/users/3", "", ""))
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, 2, s.store.Len())

	resp = performRequest(s.engine, jsonRequest(http.MethodDelete, "/api/users/3", "", ""))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRouterMutationsRequireAdministrator(t *testing.T) {
	s := buildRouter(t, true)
	body := `{"name":"Cy","email":"cy@example.com","password":"secret1"}`

	t.Run("reads stay public", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodGet, "/api/users", "", ""))
		require.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodPost, "/api/users", body, ""))
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("guest forbidden", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodPost, "/api/users", body, login(t, s, "gus@example.com")))
		require.Equal(t, http.StatusForbidden, resp.Code)
		require.Equal(t, 2, s.store.Len())
	})

	t.Run("administrator allowed", func(t *testing.T) {
		resp := performRequest(s.engine, jsonRequest(http.MethodPost, "/api/users", body, login(t, s, "ada@example.com")))
		require.Equal(t, http.StatusCreated, resp.Code)
		require.Equal(t, 3, s.store.Len())
	})
}
