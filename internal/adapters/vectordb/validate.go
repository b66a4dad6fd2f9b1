package vectordb

import (
	"errors"

	"github.com/0xcro3dile/chronorag-go/internal/domain/entities"
)

// ErrMissingSource is returned when a chunk has no source file.
var ErrMissingSource = errors.New("chunk source file is required")

func validateChunk(c entities.Chunk) error {
	if c.SourceFile == "" {
		return ErrMissingSource
	}
	return nil
}
