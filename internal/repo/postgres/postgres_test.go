package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/endpointresolver/internal/repo"
)

func TestPostgresStore_SetGet(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	// Use a unique key per run to avoid collisions with previous runs.
	key := fmt.Sprintf("test-%d", time.Now().UTC().UnixNano())

	if _, err := store.Get(ctx, key); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, key, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, key, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("unexpected value %s", got)
	}
}
