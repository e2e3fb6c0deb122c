package password

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func sha1Parts(password string) (prefix, suffix string) {
	sum := sha1.Sum([]byte(password))
	digest := strings.ToUpper(fmt.Sprintf("%x", sum))
	return digest[:5], digest[5:]
}

func TestHIBPClient_IsBreached_Found(t *testing.T) {
	const password = "Password123!"
	prefix, suffix := sha1Parts(password)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := strings.TrimPrefix(r.URL.Path, "/"); got != prefix {
			t.Errorf("request path = %q, want prefix %q", got, prefix)
		}
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n%s:42\r\nFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF:1\r\n", suffix)
	}))
	defer srv.Close()

	c := NewHIBPClient(srv.URL, "", time.Second, 0)
	breached, err := c.IsBreached(context.Background(), password)
	if err != nil {
		t.Fatalf("IsBreached: %v", err)
	}
	if !breached {
		t.Fatal("password present in response should be reported breached")
	}
}

func TestHIBPClient_IsBreached_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0018A45C4D1DEF81644B54AB7F969B88D65:3\r\n")
	}))
	defer srv.Close()

	c := NewHIBPClient(srv.URL, "", time.Second, 0)
	breached, err := c.IsBreached(context.Background(), "Password123!")
	if err != nil {
		t.Fatalf("IsBreached: %v", err)
	}
	if breached {
		t.Fatal("absent suffix should not be reported breached")
	}
}

func TestHIBPClient_IsBreached_SendsAPIKey(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("hibp-api-key")
	}))
	defer srv.Close()

	c := NewHIBPClient(srv.URL, "test-key", time.Second, 0)
	if _, err := c.IsBreached(context.Background(), "Password123!"); err != nil {
		t.Fatalf("IsBreached: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("hibp-api-key header = %q, want %q", gotKey, "test-key")
	}
}

func TestHIBPClient_IsBreached_ServerErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHIBPClient(srv.URL, "", time.Second, 2)
	_, err := c.IsBreached(context.Background(), "Password123!")
	if err == nil {
		t.Fatal("persistent server errors should surface as unavailable")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", got)
	}
}

func TestHIBPClient_IsBreached_RetryThenSuccess(t *testing.T) {
	const password = "Password123!"
	_, suffix := sha1Parts(password)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "%s:7\r\n", suffix)
	}))
	defer srv.Close()

	c := NewHIBPClient(srv.URL, "", time.Second, 3)
	breached, err := c.IsBreached(context.Background(), password)
	if err != nil {
		t.Fatalf("IsBreached: %v", err)
	}
	if !breached {
		t.Fatal("breached after retry should be reported")
	}
}

func TestHIBPClient_IsBreached_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewHIBPClient(srv.URL, "", time.Second, 10)
	if _, err := c.IsBreached(ctx, "Password123!"); err == nil {
		t.Fatal("cancelled context should abort the lookup")
	}
}
