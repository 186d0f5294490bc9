// Package handler provides the HTTP and WebSocket handlers of the cigarro API.
package handler

import (
	"context"

	"github.com/vyrodovalexey/cigarro-stock/internal/model"
)

// Version is the application version.
const Version = "1.0.0"

// BasePath is the prefix of the cigarro REST resources.
const BasePath = "/api/v1/cigarros"

// CigarroService is the catalog behavior the REST handler depends on.
type CigarroService interface {
	Create(ctx context.Context, c model.Cigarro) (*model.Cigarro, error)
	FindByName(ctx context.Context, name string) (*model.Cigarro, error)
	ListAll(ctx context.Context) ([]model.Cigarro, error)
	DeleteByID(ctx context.Context, id int64) error
	Increment(ctx context.Context, id int64, amount int) (*model.Cigarro, error)
	Ready(ctx context.Context) error
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}
