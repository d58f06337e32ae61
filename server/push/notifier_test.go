// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package push

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-engine"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type received struct {
	auth      string
	signature string
	body      []byte
}

func webhook(t *testing.T, status int) (*httptest.Server, <-chan received) {
	t.Helper()
	ch := make(chan received, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- received{
			auth:      r.Header.Get("Authorization"),
			signature: r.Header.Get(SignatureHeader),
			body:      body,
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func workingTask() *a2a.Task {
	task := a2a.NewTask("t-1", "c-1", nil)
	task.Status.State = a2a.TaskStateWorking
	return task
}

func TestHTTPNotifierDelivers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv, got := webhook(t, http.StatusOK)

	signer, err := NewJWTSigner("currency-agent")
	if err != nil {
		t.Fatalf("NewJWTSigner() error = %v", err)
	}
	configs := NewInMemoryConfigStore()
	if _, err := configs.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: srv.URL, Token: "secret"}); err != nil {
		t.Fatal(err)
	}

	n := NewHTTPNotifier(configs, WithSigner(signer), WithLogger(quiet))
	defer n.Close(ctx)

	n.Notify(ctx, workingTask())

	select {
	case r := <-got:
		if r.auth != "Bearer secret" {
			t.Errorf("Authorization = %q, want Bearer secret", r.auth)
		}
		if err := VerifyNotification(r.signature, r.body, signer.PublicKey()); err != nil {
			t.Errorf("VerifyNotification() error = %v", err)
		}
		var ev a2a.TaskStatusUpdateEvent
		if err := json.Unmarshal(r.body, &ev); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		want := struct {
			TaskID, ContextID string
			State             a2a.TaskState
		}{"t-1", "c-1", a2a.TaskStateWorking}
		gotFields := struct {
			TaskID, ContextID string
			State             a2a.TaskState
		}{ev.TaskID, ev.ContextID, ev.Status.State}
		if diff := cmp.Diff(want, gotFields); diff != "" {
			t.Errorf("payload mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestHTTPNotifierRetriesServerErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	configs := NewInMemoryConfigStore()
	if _, err := configs.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	n := NewHTTPNotifier(configs, WithLogger(quiet), WithRetry(3, time.Millisecond))
	n.Notify(ctx, workingTask())
	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 3 {
		t.Errorf("webhook calls = %d, want 3", got)
	}
}

func TestHTTPNotifierDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	configs := NewInMemoryConfigStore()
	if _, err := configs.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	n := NewHTTPNotifier(configs, WithLogger(quiet), WithRetry(5, time.Millisecond))
	n.Notify(ctx, workingTask())
	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("webhook calls = %d, want 1", got)
	}
}

func TestHTTPNotifierUnreachableWebhook(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	configs := NewInMemoryConfigStore()
	if _, err := configs.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: url}); err != nil {
		t.Fatal(err)
	}
	n := NewHTTPNotifier(configs, WithLogger(quiet), WithRetry(1, time.Millisecond))

	done := make(chan struct{})
	go func() {
		n.Notify(ctx, workingTask())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on an unreachable webhook")
	}
	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestHTTPNotifierWithoutConfigs(t *testing.T) {
	t.Parallel()

	n := NewHTTPNotifier(NewInMemoryConfigStore(), WithLogger(quiet))
	n.Notify(context.Background(), workingTask())
	if err := n.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	// after Close, Notify is a no-op
	n.Notify(context.Background(), workingTask())
}

func TestVerifyNotificationRejectsTamperedBody(t *testing.T) {
	t.Parallel()

	signer, err := NewJWTSigner("agent")
	if err != nil {
		t.Fatal(err)
	}
	token, err := signer.Sign([]byte(`{"taskId":"t-1"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyNotification(token, []byte(`{"taskId":"t-2"}`), signer.PublicKey()); err == nil {
		t.Error("VerifyNotification() accepted a tampered body")
	}

	other, err := NewJWTSigner("agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyNotification(token, []byte(`{"taskId":"t-1"}`), other.PublicKey()); err == nil {
		t.Error("VerifyNotification() accepted a foreign key")
	}

	set, err := signer.JWKS()
	if err != nil {
		t.Fatal(err)
	}
	if set.Len() != 1 {
		t.Errorf("JWKS() has %d keys, want 1", set.Len())
	}
}

func TestHTTPNotifierKeepsTaskOrderAcrossRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var (
		mu       sync.Mutex
		states   []a2a.TaskState
		rejected bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev a2a.TaskStatusUpdateEvent
		if err := json.UnmarshalRead(r.Body, &ev); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		states = append(states, ev.Status.State)
		if ev.Status.State == a2a.TaskStateWorking && !rejected {
			rejected = true
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	configs := NewInMemoryConfigStore()
	if _, err := configs.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
	n := NewHTTPNotifier(configs, WithLogger(quiet), WithRetry(2, 50*time.Millisecond))

	n.Notify(ctx, workingTask())
	completed := workingTask()
	completed.Status.State = a2a.TaskStateCompleted
	n.Notify(ctx, completed)

	if err := n.Close(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []a2a.TaskState{a2a.TaskStateWorking, a2a.TaskStateWorking, a2a.TaskStateCompleted}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("webhook states mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPNotifierCloseWithRepeatedWorkerOption(t *testing.T) {
	t.Parallel()

	n := NewHTTPNotifier(NewInMemoryConfigStore(), WithLogger(quiet),
		WithWorkers(2, 8), WithWorkers(3, 9))
	if got := len(n.shards); got != 3 {
		t.Errorf("workers = %d, want 3", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
