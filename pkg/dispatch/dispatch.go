// Package dispatch selects a specialized execution path from the runtime
// pixel type and dimensionality of an image.
//
// The registration engine is built per (pixel type, dimension) pair. A
// Dispatcher is the bridge from a dynamically typed image to one of those
// paths: a lookup table populated once over a fixed cross product of
// supported pairs. Anything outside that set is rejected uniformly through
// HasHandler and ErrUnsupportedCombination.
package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"simpleelastix/pkg/raster"
)

// ErrUnsupportedCombination is returned by Dispatch when no handler was
// registered for the requested pair.
var ErrUnsupportedCombination = errors.New("unsupported pixel type and dimension combination")

// Key identifies one specialization.
type Key struct {
	PixelID   raster.PixelID
	Dimension int
}

func (k Key) String() string {
	return fmt.Sprintf("%d-D %s", k.Dimension, k.PixelID)
}

// Handler runs one specialization.
type Handler[T any] func() (T, error)

// Dispatcher maps keys to handlers. It is not safe for concurrent
// registration; lookups after registration are read-only.
type Dispatcher[T any] struct {
	handlers map[Key]Handler[T]
}

// New returns an empty dispatcher.
func New[T any]() *Dispatcher[T] {
	return &Dispatcher[T]{handlers: make(map[Key]Handler[T])}
}

// Register adds the handler for (pixelID, dimension). Registering the same
// pair twice replaces the earlier handler.
func (d *Dispatcher[T]) Register(pixelID raster.PixelID, dimension int, h Handler[T]) {
	d.handlers[Key{PixelID: pixelID, Dimension: dimension}] = h
}

// RegisterCrossProduct registers build(key) for every pair of pixelIDs and
// dimensions.
func (d *Dispatcher[T]) RegisterCrossProduct(pixelIDs []raster.PixelID, dimensions []int, build func(Key) Handler[T]) {
	for _, p := range pixelIDs {
		for _, dim := range dimensions {
			key := Key{PixelID: p, Dimension: dim}
			d.handlers[key] = build(key)
		}
	}
}

// HasHandler reports whether a handler exists for exactly this pair.
func (d *Dispatcher[T]) HasHandler(pixelID raster.PixelID, dimension int) bool {
	_, ok := d.handlers[Key{PixelID: pixelID, Dimension: dimension}]
	return ok
}

// Dispatch invokes the handler for (pixelID, dimension).
func (d *Dispatcher[T]) Dispatch(pixelID raster.PixelID, dimension int) (T, error) {
	key := Key{PixelID: pixelID, Dimension: dimension}
	h, ok := d.handlers[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrUnsupportedCombination, key)
	}
	return h()
}

// Keys returns the registered pairs ordered by pixel type, then dimension.
func (d *Dispatcher[T]) Keys() []Key {
	keys := make([]Key, 0, len(d.handlers))
	for k := range d.handlers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].PixelID != keys[j].PixelID {
			return keys[i].PixelID < keys[j].PixelID
		}
		return keys[i].Dimension < keys[j].Dimension
	})
	return keys
}
