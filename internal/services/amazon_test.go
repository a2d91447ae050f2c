package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAmazonHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"amzn.to", true},
		{"AMZN.EU", true},
		{"a.co", true},
		{"amazon.com", true},
		{"www.amazon.de", true},
		{"www.amazon.co.uk", true},
		{"smile.amazon.com", true},
		{"amazon.com.evil.io", false},
		{"amazon.evl.co", false},
		{"internal.amazon.xyz.me", false},
		{"amazon.github.io", false},
		{"amazon.co.evil", false},
		{"amazon", false},
		{"notamazon.com", false},
		{"example.com", false},
		{"b.co", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAmazonHost(tt.host))
		})
	}
}

func newTestResolver() *URLResolver {
	r := NewURLResolver()
	r.allow = func(host string) bool { return host == "127.0.0.1" }
	return r
}

func TestResolveFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dp/B000123?tag=grow-20", http.StatusFound)
	})
	mux.HandleFunc("/dp/B000123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("product"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	final, err := newTestResolver().Resolve(context.Background(), srv.URL+"/short")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/dp/B000123?tag=grow-20", final)
}

func TestResolveStopsAfterMaxHops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestResolver().Resolve(context.Background(), srv.URL+"/loop")
	assert.ErrorIs(t, err, ErrTooManyRedirects)
}

func TestResolveRejectsForeignHops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://evil.example.com/", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestResolver().Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewURLResolver().Resolve(context.Background(), "https://example.com/x")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewURLResolver().Resolve(context.Background(), "ftp://amzn.to/x")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewURLResolver().Resolve(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
