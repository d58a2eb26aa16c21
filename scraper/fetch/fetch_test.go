package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Options{Timeout: time.Second})
	body, err := f.FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if body != "ok" {
		t.Errorf("body = %q; want ok", body)
	}

	for k, want := range map[string]string{
		"User-Agent":      UserAgent,
		"Accept":          AcceptHeader,
		"Accept-Language": AcceptLanguage,
	} {
		if got.Get(k) != want {
			t.Errorf("header %s = %q; want %q", k, got.Get(k), want)
		}
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b, err := New(Options{}).Fetch(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(b) != 4 || b[0] != 0x89 {
		t.Errorf("Fetch returned %v; want PNG magic", b)
	}
}

func TestFetchNonSuccessIsNetworkError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(Options{}).Fetch(context.Background(), srv.URL)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v; want *NetworkError", err)
	}
	if ne.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d; want 503", ne.StatusCode)
	}
	if calls != 1 {
		t.Errorf("server hit %d times; want 1 (no built-in retry)", calls)
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Options{Timeout: time.Second}).Fetch(context.Background(), url)
	var ne *NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != 0 {
		t.Errorf("error = %v; want transport NetworkError", err)
	}
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	_, err := New(Options{MaxBodyBytes: 16}).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Errorf("error = %v; want ErrBodyTooLarge", err)
	}
}

func TestFetchRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	f := New(Options{RPS: 0.001, Burst: 1})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Error("second Fetch should fail once the limiter blocks past the deadline")
	}
}
