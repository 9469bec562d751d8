package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/mkarev/tokenvault/internal/api/http"
	"github.com/mkarev/tokenvault/internal/repository/memory"
	"github.com/mkarev/tokenvault/internal/service"
	"github.com/mkarev/tokenvault/internal/testutil"
)

const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	log := testutil.MakeNoopLogger()
	tokens := service.NewTokenService(store.Stores(), store, nil, time.Hour, 14*24*time.Hour, log)
	auth := service.NewAuth(store.Stores(), tokens, log)
	devices := service.NewDevices(store.Stores(), log)

	srv := httptest.NewServer(api.NewRouter(auth, tokens, devices, store.Stores().Users, log))
	t.Cleanup(srv.Close)
	return srv
}

type tokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func doJSON(t *testing.T, method, url, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", desktopUA)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func register(t *testing.T, srv *httptest.Server, email string) tokenPair {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", map[string]string{
		"name":     "Jordan Doe",
		"email":    email,
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Tokens tokenPair `json:"tokens"`
	}
	decodeBody(t, resp, &body)
	return body.Tokens
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	pair := register(t, srv, "jordan@example.com")
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/register", "", map[string]string{
		"name":     "Someone Else",
		"email":    "jordan@example.com",
		"password": "other",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"email":    "jordan@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Tokens     tokenPair `json:"tokens"`
		Suspicious bool      `json:"is_suspicious_login"`
	}
	decodeBody(t, resp, &login)
	assert.NotEmpty(t, login.Tokens.AccessToken)
	assert.False(t, login.Suspicious)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"email":    "jordan@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Profile(t *testing.T) {
	srv := newTestServer(t)
	pair := register(t, srv, "jordan@example.com")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "jordan@example.com", body.User.Email)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", "garbage-token", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Refresh(t *testing.T) {
	srv := newTestServer(t)
	pair := register(t, srv, "jordan@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tokens tokenPair `json:"tokens"`
	}
	decodeBody(t, resp, &body)
	assert.NotEqual(t, pair.RefreshToken, body.Tokens.RefreshToken)

	// The consumed secret cannot rotate twice.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rotated-out access token no longer authenticates.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", body.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Revoke(t *testing.T) {
	srv := newTestServer(t)
	pair := register(t, srv, "jordan@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/revoke", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Revoked bool `json:"revoked"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Revoked)

	// Idempotent: a second revoke reports false without failing.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/revoke", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)
	assert.False(t, body.Revoked)

	// The sibling access token died with the refresh token.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Logout(t *testing.T) {
	srv := newTestServer(t)
	pair := register(t, srv, "jordan@example.com")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The paired refresh token died with the session.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Devices(t *testing.T) {
	srv := newTestServer(t)
	first := register(t, srv, "jordan@example.com")

	login := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"email":    "jordan@example.com",
		"password": "s3cret-pass",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	var second struct {
		Tokens tokenPair `json:"tokens"`
	}
	decodeBody(t, login, &second)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/devices", second.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Devices []struct {
			ID      string `json:"id"`
			Browser string `json:"browser"`
			Device  string `json:"device"`
			Current bool   `json:"is_current_device"`
		} `json:"devices"`
		CurrentDeviceID string `json:"current_device_id"`
	}
	decodeBody(t, resp, &list)
	require.Len(t, list.Devices, 2)
	assert.NotEmpty(t, list.CurrentDeviceID)

	var currentID, otherID string
	for _, d := range list.Devices {
		assert.Equal(t, "Chrome", d.Browser)
		assert.Equal(t, "Desktop", d.Device)
		if d.Current {
			currentID = d.ID
		} else {
			otherID = d.ID
		}
	}
	require.Equal(t, list.CurrentDeviceID, currentID)
	require.NotEmpty(t, otherID)

	// The current session cannot revoke itself through the device registry.
	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/devices/%s", srv.URL, currentID), second.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/devices/%s", srv.URL, otherID), second.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The revoked device's credentials are dead.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", first.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/devices/%s", srv.URL, otherID), second.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ChangePassword(t *testing.T) {
	srv := newTestServer(t)
	pair := register(t, srv, "jordan@example.com")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/password", pair.AccessToken, map[string]string{
		"current_password": "wrong",
		"new_password":     "new-pass",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/password", pair.AccessToken, map[string]string{
		"current_password": "s3cret-pass",
		"new_password":     "new-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The cascade revoked every credential, including the caller's own.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/profile", pair.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"email":    "jordan@example.com",
		"password": "new-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
