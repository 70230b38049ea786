package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:           srv.URL,
		UserAgent:         "wateralert_test",
		RequestsPerSecond: 1000,
	}, zaptest.NewLogger(t))
}

func TestReverse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reverse" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "48.8566" || q.Get("lon") != "2.3522" || q.Get("format") != "jsonv2" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "wateralert_test" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name": "Hôtel de Ville, Paris, France"}`))
	})

	addr, err := c.Reverse(context.Background(), 48.8566, 2.3522)
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if addr != "Hôtel de Ville, Paris, France" {
		t.Errorf("address = %q", addr)
	}
}

func TestReverseNoResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	if _, err := c.Reverse(context.Background(), 0, 0); !errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want ErrNoResult", err)
	}
}

func TestReverseServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Reverse(context.Background(), 1, 1)
	if err == nil || errors.Is(err, ErrNoResult) {
		t.Fatalf("err = %v, want a transport error", err)
	}
}
