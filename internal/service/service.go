// Package service implements the cigarro catalog business rules: unique
// names and quantities bounded by max.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
	"github.com/vyrodovalexey/cigarro-stock/internal/store"
)

// maxIncrementAttempts bounds the re-read/re-check loop when the stored
// quantity moves between the read and the conditional write.
const maxIncrementAttempts = 3

// Publisher receives an event after every successful mutation.
type Publisher interface {
	Publish(event model.StockEvent)
}

// Service enforces catalog invariants on top of a store.Repository.
//
// Check-then-act sequences are serialized per key inside the process; the
// repository's unique name constraint and compare-and-swap quantity update
// keep the invariants when several processes share one database.
type Service struct {
	repo      store.Repository
	publisher Publisher
	logger    *zap.Logger
	locks     *keyLock
}

// New creates a Service. publisher may be nil.
func New(repo store.Repository, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		locks:     newKeyLock(),
	}
}

// Create registers a new cigarro. It fails with ErrAlreadyRegistered when
// the name is taken.
func (s *Service) Create(ctx context.Context, c model.Cigarro) (*model.Cigarro, error) {
	unlock := s.locks.Lock("name:" + c.Name)
	defer unlock()

	_, err := s.repo.FindByName(ctx, c.Name)
	switch {
	case err == nil:
		observe("create", outcomeRejected)
		s.logger.Warn("cigarro already registered", zap.String("name", c.Name))
		return nil, fmt.Errorf("%w: name %q", ErrAlreadyRegistered, c.Name)
	case !errors.Is(err, store.ErrNotFound):
		observe("create", outcomeError)
		return nil, fmt.Errorf("checking cigarro name: %w", err)
	}

	c.ID = 0
	created, err := s.repo.Create(ctx, &c)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			observe("create", outcomeRejected)
			return nil, fmt.Errorf("%w: name %q", ErrAlreadyRegistered, c.Name)
		}
		observe("create", outcomeError)
		return nil, fmt.Errorf("creating cigarro: %w", err)
	}

	observe("create", outcomeSuccess)
	s.logger.Debug("cigarro created",
		zap.Int64("id", created.ID),
		zap.String("name", created.Name),
	)
	s.publish(model.EventCreated, *created, 0)

	return created, nil
}

// FindByName returns the cigarro with exactly this name.
func (s *Service) FindByName(ctx context.Context, name string) (*model.Cigarro, error) {
	c, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: name %q", ErrNotFound, name)
		}
		return nil, fmt.Errorf("finding cigarro by name: %w", err)
	}
	return c, nil
}

// FindByID returns the cigarro with this identifier.
func (s *Service) FindByID(ctx context.Context, id int64) (*model.Cigarro, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapIDError(err, id, "finding cigarro by id")
	}
	return c, nil
}

// ListAll returns every cigarro in insertion order. The slice is never nil.
func (s *Service) ListAll(ctx context.Context) ([]model.Cigarro, error) {
	items, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing cigarros: %w", err)
	}
	if items == nil {
		items = []model.Cigarro{}
	}
	return items, nil
}

// DeleteByID removes a cigarro. It fails with ErrNotFound if the id is unknown.
func (s *Service) DeleteByID(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(idKey(id))
	defer unlock()

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		observe("delete", outcomeFor(err))
		return s.mapIDError(err, id, "finding cigarro to delete")
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		observe("delete", outcomeFor(err))
		return s.mapIDError(err, id, "deleting cigarro")
	}

	observe("delete", outcomeSuccess)
	s.logger.Debug("cigarro deleted", zap.Int64("id", id))
	s.publish(model.EventDeleted, *existing, 0)

	return nil
}

// Increment adds amount to the quantity of the cigarro. The result must stay
// within [0, max]: above max fails with ErrStockExceeded, below zero with
// ErrInsufficientStock, and neither mutates the stored quantity.
func (s *Service) Increment(ctx context.Context, id int64, amount int) (*model.Cigarro, error) {
	unlock := s.locks.Lock(idKey(id))
	defer unlock()

	for attempt := 1; attempt <= maxIncrementAttempts; attempt++ {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			observe("increment", outcomeFor(err))
			return nil, s.mapIDError(err, id, "finding cigarro to increment")
		}

		next, ok := current.CanIncrement(amount)
		if !ok {
			observe("increment", outcomeRejected)
			s.logger.Warn("stock increment rejected",
				zap.Int64("id", id),
				zap.Int("quantity", current.Quantity),
				zap.Int("max", current.Max),
				zap.Int("amount", amount),
			)
			if next > current.Max {
				return nil, fmt.Errorf("%w: id %d, amount %d", ErrStockExceeded, id, amount)
			}
			return nil, fmt.Errorf("%w: id %d, amount %d", ErrInsufficientStock, id, amount)
		}

		updated, err := s.repo.UpdateQuantity(ctx, id, current.Quantity, next)
		if errors.Is(err, store.ErrConflict) {
			s.logger.Debug("stock changed during increment, retrying",
				zap.Int64("id", id),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			observe("increment", outcomeFor(err))
			return nil, s.mapIDError(err, id, "updating cigarro quantity")
		}

		observe("increment", outcomeSuccess)
		s.logger.Debug("cigarro stock incremented",
			zap.Int64("id", id),
			zap.Int("amount", amount),
			zap.Int("quantity", updated.Quantity),
		)
		s.publish(model.EventIncremented, *updated, amount)

		return updated, nil
	}

	observe("increment", outcomeError)
	return nil, fmt.Errorf("%w: id %d", ErrConcurrentUpdate, id)
}

// Ready reports whether the repository is reachable.
func (s *Service) Ready(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}
	return nil
}

func (s *Service) publish(eventType string, c model.Cigarro, amount int) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(model.NewStockEvent(eventType, c, amount))
}

// mapIDError translates store lookup errors for an id into domain errors.
func (s *Service) mapIDError(err error, id int64, op string) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.logger.Error("store operation failed",
		zap.String("operation", op),
		zap.Int64("id", id),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func outcomeFor(err error) string {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		return outcomeRejected
	}
	return outcomeError
}

func idKey(id int64) string {
	return "id:" + strconv.FormatInt(id, 10)
}
