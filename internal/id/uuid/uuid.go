// Package uuid generates identifiers for fetch cycles.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 strings, so run IDs sort by start time.
type Generator struct {
	newV7 func() (uuid.UUID, error)
}

// New creates a new Generator.
func New() *Generator {
	return &Generator{newV7: uuid.NewV7}
}

// NewID returns the next run ID.
func (g *Generator) NewID() (string, error) {
	id, err := g.newV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}
