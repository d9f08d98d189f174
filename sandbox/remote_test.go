package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "print(1)", req.Code)
		json.NewEncoder(w).Encode(remoteResponse{Status: "completed", Stdout: "1\n", Value: 1.0})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "secret")
	exec, err := r.Run(context.Background(), "print(1)", Limits{})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, exec.Status)
	assert.Equal(t, "1\n", exec.Stdout)
	assert.Equal(t, 1.0, exec.Value)
}

func TestRemoteForwardsResourceCeilings(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(remoteResponse{Status: "completed"})
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "").Run(context.Background(), "1", Limits{MaxMemoryMB: 256})
	require.NoError(t, err)
	assert.Equal(t, 256*1024*1024, got.MaxMemoryBytes)

	// unset ceilings forward the defaults, never zero
	_, err = NewRemote(srv.URL, "").Run(context.Background(), "1", Limits{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimits().MaxMemoryMB*1024*1024, got.MaxMemoryBytes)
	assert.Equal(t, DefaultLimits().MaxOutputBytes, got.MaxOutputBytes)
}

func TestRemoteReportsExpectedFailuresInExecution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remoteResponse{Status: "timed_out", Error: "deadline exceeded"})
	}))
	defer srv.Close()

	exec, err := NewRemote(srv.URL, "").Run(context.Background(), "loop()", Limits{})
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, exec.Status)
	assert.Equal(t, "deadline exceeded", exec.Err)
}

func TestRemoteTransportFailureIsSetupError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, "").Run(context.Background(), "1", Limits{})
	assert.Error(t, err)

	_, err = NewRemote("", "").Run(context.Background(), "1", Limits{})
	assert.Error(t, err)
}
