package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMulticast(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/multicast", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(Response{Results: []TokenResult{
			{Token: "a", Success: true},
			{Token: "b", Success: false, Error: "not registered", Unregistered: true},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	resp, err := c.SendMulticast(context.Background(), Message{
		Tokens:   []string{"a", "b"},
		Title:    "New Bid on Your Job!",
		Body:     "body",
		DeepLink: "/dashboard/jobs/1",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tokens)
	assert.Equal(t, "/dashboard/jobs/1", got.DeepLink)
	assert.Len(t, resp.Failed(), 1)
	assert.Equal(t, []string{"b"}, resp.Unregistered())
}

func TestClient_SendMulticast_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).SendMulticast(context.Background(), Message{Tokens: []string{"a"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_SendMulticast_NoURL(t *testing.T) {
	_, err := NewClient("", "", time.Second).SendMulticast(context.Background(), Message{})
	assert.Error(t, err)
}
