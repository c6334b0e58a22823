package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{Provider: "test", BaseURL: srv.URL + "/v1", Token: "tok"})
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient(Options{Provider: "test", BaseURL: "http://example.com"})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestClient_GetJSON(t *testing.T) {
	t.Run("resolves relative path and query", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/things/1", r.URL.Path)
			assert.Equal(t, "b", r.URL.Query().Get("a"))
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"name":"one"}`)
		})

		var out struct{ Name string }
		require.NoError(t, c.GetJSON(context.Background(), "/things/1", url.Values{"a": {"b"}}, &out))
		assert.Equal(t, "one", out.Name)
	})

	t.Run("follows absolute url", func(t *testing.T) {
		c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/other", r.URL.Path)
			assert.Equal(t, "x", r.URL.Query().Get("$skiptoken"))
			_, _ = io.WriteString(w, `{}`)
		})

		var out map[string]any
		require.NoError(t, c.GetJSON(context.Background(), srv.URL+"/other?$skiptoken=x", nil, &out))
	})

	t.Run("maps status codes", func(t *testing.T) {
		cases := []struct {
			status int
			want   error
		}{
			{http.StatusUnauthorized, domain.ErrConnectionNotFound},
			{http.StatusForbidden, domain.ErrAuthInvalid},
			{http.StatusNotFound, domain.ErrNotFound},
			{http.StatusBadRequest, domain.ErrInvalidInput},
		}
		for _, tc := range cases {
			c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, `{"error":{"message":"nope"}}`)
			})

			err := c.GetJSON(context.Background(), "x", nil, &struct{}{})
			assert.ErrorIs(t, err, tc.want, "status %d", tc.status)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "nope", apiErr.Message)
		}
	})

	t.Run("server error is not mapped", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		err := c.GetJSON(context.Background(), "x", nil, &struct{}{})
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, IsNotFound(err))
	})
}

func TestClient_Stream(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "hello")
	})

	resp, err := c.Stream(context.Background(), "blob")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "top", errorMessage([]byte(`{"message":"top"}`), "fb"))
	assert.Equal(t, "nested", errorMessage([]byte(`{"error":{"message":"nested"}}`), "fb"))
	assert.Equal(t, "plain", errorMessage([]byte("plain"), "fb"))
	assert.Equal(t, "fb", errorMessage(nil, "fb"))
}
