package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestForwardsAuthAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "ready", r.URL.Query().Get("status"))
		assert.Equal(t, "/api/v1/admin/labs", r.URL.Path)
		w.Write([]byte(`{"labs":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 1)
	body, err := c.Get(context.Background(), "/api/v1/admin/labs",
		map[string]string{"status": "ready"}, "tok-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"labs":[]}`, string(body))
}

func TestUpstreamErrorCarriesStatusAndMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"lab already running"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 1)
	_, err := c.Post(context.Background(), "/api/v1/labs", []byte(`{}`), "tok-1")
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusConflict, ue.StatusCode)
	assert.Equal(t, "lab already running", ue.Message)
}

func TestGetRetriesTransportFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 3)
	body, err := c.Get(context.Background(), "/health", nil, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, 3)
	_, err := c.Post(context.Background(), "/api/v1/labs", []byte(`{}`), "")
	require.Error(t, err)

	var te *TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, int32(1), calls.Load())
}

func TestProvisionerParsesInstanceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/labs", r.URL.Path)
		assert.Equal(t, "Bearer ctx-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"uuid":"vm-abc123"}`))
	}))
	defer srv.Close()

	p := NewProvisioner(NewClient(srv.URL, 5*time.Second, 1), func(context.Context) string {
		return "ctx-token"
	})
	id, err := p.Provision(context.Background(), "user-1", "CVE-2021-44228")
	require.NoError(t, err)
	assert.Equal(t, "vm-abc123", id)
}

func TestHTTPErrorMapping(t *testing.T) {
	ue := HTTPError(&UpstreamError{StatusCode: http.StatusNotFound, Body: `{"message":"gone"}`})
	require.Error(t, ue)

	te := HTTPError(&TransportError{Err: errors.New("connection refused")})
	require.Error(t, te)

	assert.Nil(t, HTTPError(nil))
}
