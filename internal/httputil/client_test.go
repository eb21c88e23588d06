package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			WriteJSONOK(w, map[string]int{"count": 3})
		case "/missing":
			NotFound(w, "no such device")
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	var got map[string]int
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL+"/ok", &got))
	assert.Equal(t, 3, got["count"])

	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/missing", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such device")

	err = GetJSON(context.Background(), nil, srv.URL+"/other", &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "418")
}

type failingClient struct{}

func (failingClient) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestGetJSON_TransportError(t *testing.T) {
	var v struct{}
	err := GetJSON(context.Background(), failingClient{}, "http://sensor.invalid/api/status", &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
