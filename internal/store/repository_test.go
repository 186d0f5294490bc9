package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

func newTestCigarro(name string) *model.Cigarro {
	return &model.Cigarro{
		Name:     name,
		Brand:    "Ambev",
		Max:      50,
		Quantity: 10,
		Type:     model.TypeLager,
	}
}

// runRepositoryContract exercises the behavior every Repository must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	t.Helper()

	t.Run("Create assigns id and keeps fields", func(t *testing.T) {
		// Arrange
		repo := newRepo(t)
		ctx := context.Background()
		input := newTestCigarro("Brahma")

		// Act
		created, err := repo.Create(ctx, input)

		// Assert
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID <= 0 {
			t.Errorf("Create() ID = %d, want positive", created.ID)
		}
		input.ID = created.ID
		if *created != *input {
			t.Errorf("Create() = %+v, want %+v", *created, *input)
		}
	})

	t.Run("Create duplicate name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if _, err := repo.Create(ctx, newTestCigarro("Skol")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		_, err := repo.Create(ctx, newTestCigarro("Skol"))
		if !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("Create() duplicate error = %v, want ErrAlreadyExists", err)
		}

		items, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(items) != 1 {
			t.Errorf("FindAll() returned %d items, want 1", len(items))
		}
	})

	t.Run("Create nil", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Create(context.Background(), nil); !errors.Is(err, ErrNilCigarro) {
			t.Errorf("Create(nil) error = %v, want ErrNilCigarro", err)
		}
	})

	t.Run("FindByID and FindByName round trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newTestCigarro("Bohemia"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		byID, err := repo.FindByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if *byID != *created {
			t.Errorf("FindByID() = %+v, want %+v", *byID, *created)
		}

		byName, err := repo.FindByName(ctx, "Bohemia")
		if err != nil {
			t.Fatalf("FindByName() error = %v", err)
		}
		if *byName != *created {
			t.Errorf("FindByName() = %+v, want %+v", *byName, *created)
		}
	})

	t.Run("Find missing", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		if _, err := repo.FindByID(ctx, 999); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByID() error = %v, want ErrNotFound", err)
		}
		if _, err := repo.FindByName(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByName() error = %v, want ErrNotFound", err)
		}
		if _, err := repo.FindByID(ctx, 0); !errors.Is(err, ErrInvalidID) {
			t.Errorf("FindByID(0) error = %v, want ErrInvalidID", err)
		}
	})

	t.Run("FindAll empty then ordered", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		items, err := repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if items == nil || len(items) != 0 {
			t.Fatalf("FindAll() = %v, want empty non-nil slice", items)
		}

		names := []string{"C", "A", "B"}
		for _, n := range names {
			if _, err := repo.Create(ctx, newTestCigarro(n)); err != nil {
				t.Fatalf("Create(%s) error = %v", n, err)
			}
		}

		items, err = repo.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll() error = %v", err)
		}
		if len(items) != len(names) {
			t.Fatalf("FindAll() returned %d items, want %d", len(items), len(names))
		}
		for i, n := range names {
			if items[i].Name != n {
				t.Errorf("FindAll()[%d].Name = %s, want %s", i, items[i].Name, n)
			}
		}
	})

	t.Run("DeleteByID", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newTestCigarro("Antarctica"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.DeleteByID(ctx, created.ID); err != nil {
			t.Fatalf("DeleteByID() error = %v", err)
		}
		if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindByID() after delete error = %v, want ErrNotFound", err)
		}
		if err := repo.DeleteByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteByID() twice error = %v, want ErrNotFound", err)
		}

		// The name is free again.
		if _, err := repo.Create(ctx, newTestCigarro("Antarctica")); err != nil {
			t.Errorf("Create() after delete error = %v", err)
		}
	})

	t.Run("UpdateQuantity compare and swap", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, newTestCigarro("Heineken"))
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		updated, err := repo.UpdateQuantity(ctx, created.ID, 10, 25)
		if err != nil {
			t.Fatalf("UpdateQuantity() error = %v", err)
		}
		if updated.Quantity != 25 {
			t.Errorf("UpdateQuantity() quantity = %d, want 25", updated.Quantity)
		}

		if _, err := repo.UpdateQuantity(ctx, created.ID, 10, 30); !errors.Is(err, ErrConflict) {
			t.Errorf("UpdateQuantity() stale error = %v, want ErrConflict", err)
		}

		stored, err := repo.FindByID(ctx, created.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if stored.Quantity != 25 {
			t.Errorf("stored quantity = %d, want 25", stored.Quantity)
		}

		if _, err := repo.UpdateQuantity(ctx, 12345, 0, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("UpdateQuantity() missing error = %v, want ErrNotFound", err)
		}
	})

	t.Run("concurrent creates of one name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var (
			wg        sync.WaitGroup
			successes atomic.Int32
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Create(ctx, newTestCigarro("Contested")); err == nil {
					successes.Add(1)
				}
			}()
		}
		wg.Wait()

		if got := successes.Load(); got != 1 {
			t.Errorf("successful creates = %d, want 1", got)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		repo := newRepo(t)
		if err := repo.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
