package workzone

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/pipectl/internal/domain/model"
)

func TestDeriveTokenURL(t *testing.T) {
	tests := []struct {
		name string
		auth string
		want string
	}{
		{
			name: "authorize suffix replaced",
			auth: "https://tenant.authentication.example.com/oauth/authorize",
			want: "https://tenant.authentication.example.com/oauth/token",
		},
		{
			name: "trailing slash tolerated",
			auth: "https://tenant.authentication.example.com/oauth/authorize/",
			want: "https://tenant.authentication.example.com/oauth/token",
		},
		{
			name: "bare host gets token path",
			auth: "https://tenant.authentication.example.com",
			want: "https://tenant.authentication.example.com/oauth/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTokenURL(tt.auth))
		})
	}
}

func TestAcquire(t *testing.T) {
	var gotBody string
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"bearer"}`))
	}))
	defer srv.Close()

	src := NewTokenSourceWithHTTPClient(srv.Client(), srv.URL, "sb-client-1")

	token, err := src.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token.Value)
	assert.False(t, token.IssuedAt.IsZero())

	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "client_id=sb-client-1&grant_type=client_credentials", gotBody)
}

func TestAcquireMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	src := NewTokenSourceWithHTTPClient(srv.Client(), srv.URL, "sb-client-1")

	_, err := src.Acquire(context.Background())
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestAcquireUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	src := NewTokenSourceWithHTTPClient(srv.Client(), srv.URL, "sb-client-1")

	_, err := src.Acquire(context.Background())
	assert.ErrorIs(t, err, model.ErrAuth)
}

func TestAcquireTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	client := srv.Client()
	srv.Close() // connection refused from here on

	src := NewTokenSourceWithHTTPClient(client, srv.URL, "sb-client-1")

	_, err := src.Acquire(context.Background())
	assert.ErrorIs(t, err, model.ErrNetwork)
}
