package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// MemoryStore implements Repository with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]model.Cigarro
	names  map[string]int64
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[int64]model.Cigarro),
		names: make(map[string]int64),
	}
}

// Create adds a new cigarro and assigns the next sequential ID.
func (s *MemoryStore) Create(ctx context.Context, c *model.Cigarro) (*model.Cigarro, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("create cigarro: %w", ctx.Err())
	default:
	}

	if c == nil {
		return nil, fmt.Errorf("create cigarro: %w", ErrNilCigarro)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.names[c.Name]; exists {
		return nil, ErrAlreadyExists
	}

	s.nextID++
	stored := *c
	stored.ID = s.nextID

	s.items[stored.ID] = stored
	s.names[stored.Name] = stored.ID

	return &stored, nil
}

// FindByID retrieves a cigarro by its ID.
func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*model.Cigarro, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find cigarro by id: %w", ctx.Err())
	default:
	}

	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	return &c, nil
}

// FindByName retrieves a cigarro by its exact name.
func (s *MemoryStore) FindByName(ctx context.Context, name string) (*model.Cigarro, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("find cigarro by name: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.names[name]
	if !exists {
		return nil, ErrNotFound
	}

	c := s.items[id]
	return &c, nil
}

// FindAll returns all cigarros in insertion order.
func (s *MemoryStore) FindAll(ctx context.Context) ([]model.Cigarro, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list cigarros: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Cigarro, 0, len(s.items))
	for _, c := range s.items {
		items = append(items, c)
	}

	// IDs are assigned sequentially, so ID order is insertion order.
	sort.Slice(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})

	return items, nil
}

// DeleteByID removes a cigarro by its ID.
func (s *MemoryStore) DeleteByID(ctx context.Context, id int64) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete cigarro: %w", ctx.Err())
	default:
	}

	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.items[id]
	if !exists {
		return ErrNotFound
	}

	delete(s.items, id)
	delete(s.names, c.Name)

	return nil
}

// UpdateQuantity sets the quantity if the stored quantity equals expected.
func (s *MemoryStore) UpdateQuantity(
	ctx context.Context,
	id int64,
	expected, quantity int,
) (*model.Cigarro, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("update cigarro quantity: %w", ctx.Err())
	default:
	}

	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.items[id]
	if !exists {
		return nil, ErrNotFound
	}

	if c.Quantity != expected {
		return nil, ErrConflict
	}

	c.Quantity = quantity
	s.items[id] = c

	return &c, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
