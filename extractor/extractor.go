// Package extractor holds the pluggable unit of work executed by the worker
// pool: given a drawing file path, produce a bill of quantities or fail.
// Implementations never touch the job store; recording outcomes is the
// worker pool's responsibility.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/boqai/boq-server/models"
)

// Extractor turns one drawing file into a bill of quantities. It may take
// arbitrarily long; callers decide whether to wrap it with a deadline.
type Extractor interface {
	Extract(ctx context.Context, path string) (*models.BoQ, error)
}

// Func adapts a plain function to the Extractor interface.
type Func func(ctx context.Context, path string) (*models.BoQ, error)

// Extract implements Extractor.
func (f Func) Extract(ctx context.Context, path string) (*models.BoQ, error) {
	return f(ctx, path)
}

// Dispatcher routes a drawing to the extractor registered for its file
// extension.
type Dispatcher struct {
	byExt map[string]Extractor
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byExt: make(map[string]Extractor)}
}

// Register binds an extractor to a file extension (e.g. ".dwg").
func (d *Dispatcher) Register(ext string, e Extractor) {
	d.byExt[strings.ToLower(ext)] = e
}

// Extract dispatches on the file extension of path.
func (d *Dispatcher) Extract(ctx context.Context, path string) (*models.BoQ, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := d.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported drawing format %q", ext)
	}
	return e.Extract(ctx, path)
}
