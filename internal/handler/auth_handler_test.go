package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crm-admin-api/internal/models"
	appErrors "github.com/noah-isme/crm-admin-api/pkg/errors"
)

type fakeAuthSrv struct {
	resp *models.LoginResponse
	err  error
	req  models.LoginRequest
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.req = req
	return f.resp, f.err
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthSrv{})
		c, rec := newContext(http.MethodPost, "/api/auth/login", []byte(`not json`))

		h.Login(c)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inactive account", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuthSrv{err: appErrors.Clone(appErrors.ErrInactiveAccount, "account is pending")})
		c, rec := newContext(http.MethodPost, "/api/auth/login", []byte(`{"email":"a@example.com","password":"secret1"}`))

		h.Login(c)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		srv := &fakeAuthSrv{resp: &models.LoginResponse{AccessToken: "tok", ExpiresIn: 60, User: models.UserInfo{ID: 4}}}
		h := NewAuthHandler(srv)
		c, rec := newContext(http.MethodPost, "/api/auth/login", []byte(`{"email":"a@example.com","password":"secret1"}`))
		c.Request.Header.Set("User-Agent", "login-test")

		h.Login(c)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a@example.com", srv.req.Email)
		assert.Equal(t, "login-test", srv.req.UserAgent)
		assert.NotEmpty(t, srv.req.IP)

		var body models.LoginResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &body))
		assert.Equal(t, "tok", body.AccessToken)
	})
}
