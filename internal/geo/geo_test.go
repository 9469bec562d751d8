package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_LoopbackSentinel(t *testing.T) {
	tests := []struct {
		name string
		ip   string
	}{
		{name: "ipv4 loopback", ip: "127.0.0.1"},
		{name: "ipv6 loopback", ip: "::1"},
		{name: "localhost", ip: "localhost"},
		{name: "private range", ip: "192.168.1.20"},
	}

	r := NewLocal(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := r.Resolve(context.Background(), tt.ip)
			require.NoError(t, err)
			assert.Equal(t, LocalCountryCode, loc.CountryCode)
			assert.Equal(t, LocalName, loc.Name)
		})
	}
}

func TestLocal_NoUpstream(t *testing.T) {
	r := NewLocal(nil)

	loc, err := r.Resolve(context.Background(), "203.0.113.5")
	require.Error(t, err)
	assert.False(t, loc.Known())
}

func TestLocal_DelegatesPublicAddresses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/203.0.113.5", r.URL.Path)
		w.Write([]byte(`{"status":"success","countryCode":"US","city":"Portland","regionName":"Oregon"}`))
	}))
	defer srv.Close()

	r := NewLocal(NewHTTPResolver(srv.URL, time.Second))

	loc, err := r.Resolve(context.Background(), "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, "US", loc.CountryCode)
	assert.Equal(t, "Portland, Oregon", loc.Name)
}

func TestHTTPResolver_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)

	loc, err := r.Resolve(context.Background(), "198.51.100.7")
	require.Error(t, err)
	assert.False(t, loc.Known())
}

func TestHTTPResolver_BadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL, time.Second)

	_, err := r.Resolve(context.Background(), "198.51.100.7")
	require.Error(t, err)
}
