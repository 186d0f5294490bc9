package model

import (
	"errors"
	"unicode/utf8"
)

// Validation errors for CigarroDTO and QuantityDTO.
var (
	ErrNameRequired       = errors.New("name is required")
	ErrNameTooLong        = errors.New("name cannot exceed 200 characters")
	ErrBrandRequired      = errors.New("brand is required")
	ErrBrandTooLong       = errors.New("brand cannot exceed 200 characters")
	ErrMaxRequired        = errors.New("max is required")
	ErrMaxOutOfRange      = errors.New("max must be between 1 and 500")
	ErrQuantityRequired   = errors.New("quantity is required")
	ErrQuantityOutOfRange = errors.New("quantity must be between 0 and 100")
	ErrQuantityAboveMax   = errors.New("quantity cannot exceed max")
	ErrTypeRequired       = errors.New("type is required")
	ErrIncrementRequired  = errors.New("quantity to increment is required")
	ErrIncrementTooLarge  = errors.New("quantity to increment cannot exceed 100")
)

// Validation limits.
const (
	MaxNameLength      = 200
	MaxBrandLength     = 200
	MaxStockCapacity   = 500
	MaxInitialQuantity = 100
	MaxIncrement       = 100
)

// CigarroDTO is the wire representation of a cigarro. Numeric fields are
// pointers so that a missing field is distinguishable from zero.
type CigarroDTO struct {
	ID       int64       `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string      `json:"name" yaml:"name"`
	Brand    string      `json:"brand" yaml:"brand"`
	Max      *int        `json:"max" yaml:"max"`
	Quantity *int        `json:"quantity" yaml:"quantity"`
	Type     CigarroType `json:"type" yaml:"type"`
}

// Validate checks required fields and value ranges.
func (d *CigarroDTO) Validate() error {
	switch {
	case d.Name == "":
		return ErrNameRequired
	case utf8.RuneCountInString(d.Name) > MaxNameLength:
		return ErrNameTooLong
	case d.Brand == "":
		return ErrBrandRequired
	case utf8.RuneCountInString(d.Brand) > MaxBrandLength:
		return ErrBrandTooLong
	case d.Max == nil:
		return ErrMaxRequired
	case *d.Max < 1 || *d.Max > MaxStockCapacity:
		return ErrMaxOutOfRange
	case d.Quantity == nil:
		return ErrQuantityRequired
	case *d.Quantity < 0 || *d.Quantity > MaxInitialQuantity:
		return ErrQuantityOutOfRange
	case *d.Quantity > *d.Max:
		return ErrQuantityAboveMax
	case d.Type == "":
		return ErrTypeRequired
	case !d.Type.Valid():
		return ErrUnknownType
	}
	return nil
}

// QuantityDTO is the body of an increment request.
type QuantityDTO struct {
	Quantity *int `json:"quantity"`
}

// Validate checks that the increment amount is present and within bounds.
// Negative amounts are allowed and decrease stock.
func (q *QuantityDTO) Validate() error {
	if q.Quantity == nil {
		return ErrIncrementRequired
	}
	if *q.Quantity > MaxIncrement {
		return ErrIncrementTooLarge
	}
	return nil
}
