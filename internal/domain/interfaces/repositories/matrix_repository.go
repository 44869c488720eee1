// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/crossverify/internal/domain/entities"
)

// MatrixRepository defines the interface for loading build matrices
type MatrixRepository interface {
	// LoadMatrix reads, defaults and validates the matrix
	LoadMatrix(ctx context.Context) (*entities.Matrix, error)
}
