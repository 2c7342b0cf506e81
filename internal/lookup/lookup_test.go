package lookup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestFormatCountry(t *testing.T) {
	name, iso, ok := FormatCountry("Germany", "DE")
	if !ok || name != "Germany (DE)" || iso != "de" {
		t.Errorf("got %q %q %v", name, iso, ok)
	}
	if _, _, ok := FormatCountry("", ""); ok {
		t.Error("empty iso should not resolve")
	}
}

func TestOpenGeoIPMissingFile(t *testing.T) {
	if _, err := OpenGeoIP(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestIPHubBlocksAndCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("X-Key") != "k" {
			t.Errorf("key header = %q", r.Header.Get("X-Key"))
		}
		if r.URL.Path == "/ip/6.6.6.6" {
			io.WriteString(w, `{"ip":"6.6.6.6","countryCode":"NL","block":1}`)
			return
		}
		io.WriteString(w, `{"ip":"1.2.3.4","countryCode":"DE","block":0}`)
	}))
	defer srv.Close()

	h := NewIPHub("k", discard())
	h.baseURL = srv.URL + "/ip/"
	ctx := context.Background()

	if !h.Suspicious(ctx, "6.6.6.6") {
		t.Error("6.6.6.6 should be flagged")
	}
	if h.Suspicious(ctx, "1.2.3.4") {
		t.Error("1.2.3.4 should be clean")
	}
	h.Suspicious(ctx, "6.6.6.6")
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2 (cached)", n)
	}
	if h.Suspicious(ctx, "127.0.0.1") || calls.Load() != 2 {
		t.Error("loopback should never be queried")
	}
}

func TestIPHubFailureIsClean(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	h := NewIPHub("k", discard())
	h.baseURL = srv.URL + "/ip/"
	if h.Suspicious(context.Background(), "6.6.6.6") {
		t.Error("failed lookup must not flag")
	}
}

func TestAuthCheckerCachesResult(t *testing.T) {
	var calls atomic.Int32
	active := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if active.Load() {
			io.WriteString(w, `{"authserver.urbanterror.info":{"active":true}}`)
			return
		}
		io.WriteString(w, `{"authserver.urbanterror.info":{"active":false}}`)
	}))
	defer srv.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := NewAuthChecker(srv.URL, discard())
	a.now = func() time.Time { return now }
	ctx := context.Background()

	if a.Active(ctx) {
		t.Error("expected inactive")
	}
	active.Store(true)
	now = now.Add(time.Minute)
	if a.Active(ctx) {
		t.Error("cached verdict should still be inactive")
	}
	now = now.Add(authRecheck)
	if !a.Active(ctx) {
		t.Error("expected active after recheck")
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestAuthCheckerKeepsVerdictOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	a := NewAuthChecker(srv.URL, discard())
	if !a.Active(context.Background()) {
		t.Error("error should keep the default active verdict")
	}
}
