package matrixfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ochairo/crossverify/internal/domain/entities"
	"github.com/ochairo/crossverify/internal/domain/interfaces/repositories"
	"github.com/ochairo/crossverify/internal/domain/services"
)

var _ repositories.MatrixRepository = (*Repository)(nil)

// Repository implements repositories.MatrixRepository backed by a single file
type Repository struct {
	path              string
	fallbackToDefault bool
	parser            *Parser
	service           *services.MatrixService
}

// NewRepository creates a file-backed matrix repository. When
// fallbackToDefault is set, a missing file yields entities.DefaultMatrix().
func NewRepository(path string, fallbackToDefault bool) *Repository {
	return &Repository{
		path:              path,
		fallbackToDefault: fallbackToDefault,
		parser:            NewParser(),
		service:           services.NewMatrixService(),
	}
}

// Path returns the configured matrix file path
func (r *Repository) Path() string {
	return r.path
}

// LoadMatrix reads, defaults and validates the matrix
func (r *Repository) LoadMatrix(_ context.Context) (*entities.Matrix, error) {
	var m *entities.Matrix

	_, err := os.Stat(r.path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && r.fallbackToDefault:
		m = entities.DefaultMatrix()
	case err != nil:
		return nil, fmt.Errorf("matrix file %s: %w", r.path, err)
	default:
		m, err = r.parser.ParseFile(r.path)
		if err != nil {
			return nil, fmt.Errorf("matrix file %s: %w", r.path, err)
		}
	}

	r.service.ApplyDefaults(m)
	if err := r.service.Validate(m); err != nil {
		return nil, fmt.Errorf("matrix file %s: %w", r.path, err)
	}
	return m, nil
}
