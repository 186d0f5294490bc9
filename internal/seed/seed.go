// Package seed loads an initial cigarro catalog from a YAML file.
//
// The file format is
//
//	cigarros:
//	  - name: Brahma
//	    brand: Ambev
//	    max: 50
//	    quantity: 10
//	    type: LAGER
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
	"github.com/vyrodovalexey/cigarro-stock/internal/service"
)

// ErrInvalidEntry wraps validation failures of a seed entry.
var ErrInvalidEntry = errors.New("invalid seed entry")

// File is the document layout of a seed file.
type File struct {
	Cigarros []model.CigarroDTO `yaml:"cigarros"`
}

// Creator registers cigarros. *service.Service satisfies it.
type Creator interface {
	Create(ctx context.Context, c model.Cigarro) (*model.Cigarro, error)
}

// Result summarizes an Apply run.
type Result struct {
	Created int
	Skipped int
}

// Load reads and validates the seed file at path.
func Load(path string) ([]model.CigarroDTO, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	items, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}
	return items, nil
}

// Parse decodes a seed document and validates every entry. Unknown keys are
// rejected.
func Parse(r io.Reader) ([]model.CigarroDTO, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc File
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []model.CigarroDTO{}, nil
		}
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}

	seen := make(map[string]int, len(doc.Cigarros))
	for i, item := range doc.Cigarros {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w %d (%q): %w", ErrInvalidEntry, i, item.Name, err)
		}
		if first, dup := seen[item.Name]; dup {
			return nil, fmt.Errorf("%w %d: name %q already used by entry %d", ErrInvalidEntry, i, item.Name, first)
		}
		seen[item.Name] = i
	}

	if doc.Cigarros == nil {
		doc.Cigarros = []model.CigarroDTO{}
	}
	return doc.Cigarros, nil
}

// Apply creates every entry through c. Names that are already registered are
// skipped, which makes seeding idempotent across restarts.
func Apply(ctx context.Context, c Creator, items []model.CigarroDTO, logger *zap.Logger) (Result, error) {
	var res Result

	for _, item := range items {
		created, err := c.Create(ctx, model.ToModel(item))
		switch {
		case errors.Is(err, service.ErrAlreadyRegistered):
			res.Skipped++
			logger.Debug("seed entry already registered", zap.String("name", item.Name))
		case err != nil:
			return res, fmt.Errorf("seeding %q: %w", item.Name, err)
		default:
			res.Created++
			logger.Debug("seed entry created",
				zap.Int64("id", created.ID),
				zap.String("name", created.Name),
			)
		}
	}

	logger.Info("seed catalog applied",
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}
