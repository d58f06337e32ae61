// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package push

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/a2a-engine"
)

func TestInMemoryConfigStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryConfigStore()

	first, err := s.Set(ctx, "t-1", a2a.PushNotificationConfig{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("Set() did not assign an id")
	}
	second, err := s.Set(ctx, "t-1", a2a.PushNotificationConfig{ID: "b", URL: "https://example.com/b"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Set(ctx, "t-1", a2a.PushNotificationConfig{ID: "b", URL: "https://example.com/b2"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "t-1")
	if err != nil {
		t.Fatal(err)
	}
	second.URL = "https://example.com/b2"
	if diff := cmp.Diff([]a2a.PushNotificationConfig{first, second}, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete(ctx, "t-1", first.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, "t-1")
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("after Delete(one) Get() = %+v", got)
	}
	if err := s.Delete(ctx, "t-1", ""); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get(ctx, "t-1"); len(got) != 0 {
		t.Errorf("after Delete(all) Get() = %+v", got)
	}
}

func TestInMemoryConfigStoreRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewInMemoryConfigStore().Set(context.Background(), "t-1", a2a.PushNotificationConfig{URL: "not a url"})
	if !errors.Is(err, a2a.ErrInvalidParams) {
		t.Errorf("Set() error = %v, want ErrInvalidParams", err)
	}
}
