package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNotify_DeliversPayload(t *testing.T) {
	var got Notification
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content-type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL)

	n := Notification{ID: "n-1", UserID: "100", Reward: 50, NewBalance: 120}
	if err := wh.Notify(context.Background(), n); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if got != n {
		t.Fatalf("delivered = %+v, want %+v", got, n)
	}
}

func TestNotify_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := wh.Notify(ctx, Notification{ID: "n-1", UserID: "100"}); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestNotify_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL)

	if err := wh.Notify(context.Background(), Notification{ID: "n-1"}); err == nil {
		t.Fatalf("expected error for 400 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (client errors are permanent)", calls.Load())
	}
}
