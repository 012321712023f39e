package client_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yebrai/skillswap/internal/client"
	"github.com/yebrai/skillswap/internal/logger"
)

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := client.NewClient(client.ClientConfig{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestClient_ErrorKinds(t *testing.T) {
	f := newFakeServer(t)
	statuses := map[string]int{
		"/bad":       http.StatusBadRequest,
		"/unproc":    http.StatusUnprocessableEntity,
		"/unauth":    http.StatusUnauthorized,
		"/missing":   http.StatusNotFound,
		"/conflict":  http.StatusConflict,
		"/precond":   http.StatusPreconditionFailed,
		"/forbidden": http.StatusForbidden,
	}
	for path, status := range statuses {
		status := status
		f.handle(http.MethodGet, path, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, status, "SOME_CODE", "server says no")
		})
	}
	api := newAPI(t, f)

	cases := []struct {
		path string
		kind error
	}{
		{"/bad", client.ErrValidation},
		{"/unproc", client.ErrValidation},
		{"/unauth", client.ErrUnauthorized},
		{"/missing", client.ErrNotFound},
		{"/conflict", client.ErrBusinessRule},
		{"/precond", client.ErrBusinessRule},
		{"/forbidden", client.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			err := api.Do(context.Background(), http.MethodGet, tc.path, "", nil, nil, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.NotErrorIs(t, err, client.ErrNetwork)

			var apiErr *client.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, statuses[tc.path], apiErr.StatusCode)
			assert.Equal(t, "SOME_CODE", apiErr.Code)
			assert.Equal(t, "server says no", apiErr.Message)
		})
	}
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	f := newFakeServer(t)
	f.handle(http.MethodGet, "/plain", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Auth token required", http.StatusUnauthorized)
	})
	err := newAPI(t, f).Do(context.Background(), http.MethodGet, "/plain", "", nil, nil, nil)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Auth token required", apiErr.Message)
}

func TestClient_NetworkErrors(t *testing.T) {
	f := newFakeServer(t)
	f.handle(http.MethodGet, "/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	api, err := client.NewClient(client.ClientConfig{BaseURL: f.URL, Timeout: 50 * time.Millisecond, Logger: logger.Discard()})
	require.NoError(t, err)

	err = api.Do(context.Background(), http.MethodGet, "/slow", "", nil, nil, nil)
	assert.ErrorIs(t, err, client.ErrNetwork)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	dead, err := client.NewClient(client.ClientConfig{BaseURL: "http://127.0.0.1:1", Logger: logger.Discard()})
	require.NoError(t, err)
	err = dead.Do(context.Background(), http.MethodGet, "/anything", "", nil, nil, nil)
	assert.ErrorIs(t, err, client.ErrNetwork)
}

func TestClient_BearerAndDecode(t *testing.T) {
	f := newFakeServer(t)
	f.handle(http.MethodPost, "/echo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]string{
			"auth":        r.Header.Get("Authorization"),
			"contentType": r.Header.Get("Content-Type"),
			"q":           r.URL.Query().Get("q"),
		})
	})

	var out map[string]string
	err := newAPI(t, f).Do(context.Background(), http.MethodPost, "/echo", "tok", map[string]int{"n": 1}, &out, map[string][]string{"q": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", out["auth"])
	assert.Equal(t, "application/json", out["contentType"])
	assert.Equal(t, "x", out["q"])
}

func TestClient_RealtimeURL(t *testing.T) {
	api, err := client.NewClient(client.ClientConfig{BaseURL: "https://skillswap.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "wss://skillswap.example.com/ws?token=a+b", api.RealtimeURL("a b"))
}
