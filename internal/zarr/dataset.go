package zarr

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/pithecene-io/dsszarr/internal/assemble"
)

// Dataset places an assembled array in the output hierarchy:
//
//	<root>/<GroupID>/<SubGroup>/<array name>
//	<root>/<GroupID>/<SubGroup>/{event,element,time_index}
type Dataset struct {
	GroupID  string
	SubGroup string
	Array    *assemble.Array

	// Attrs are merged into the sub group's attributes.
	Attrs map[string]any
}

// Path returns the sub group path relative to the root.
func (d Dataset) Path() string {
	return path.Join(d.GroupID, d.SubGroup)
}

// WriteDataset writes d through w and consolidates the root metadata.
// The root and group are appended to if present; the data and coordinate
// arrays must not already exist. Existing arrays are detected before any
// group or attribute is written, so a conflicting run leaves the hierarchy
// untouched.
func WriteDataset(ctx context.Context, w *Writer, d Dataset) error {
	if d.Array == nil {
		return fmt.Errorf("zarr: dataset %q has no array", d.Path())
	}
	if d.GroupID == "" || d.SubGroup == "" {
		return errors.New("zarr: dataset group and sub group are required")
	}

	a := d.Array
	targets := []string{a.Name, assemble.DimEvent, assemble.DimElement, assemble.DimTimeIndex}
	for _, name := range targets {
		node := path.Join(d.Path(), name)
		exists, err := w.store.Exists(ctx, w.key(node, ArrayKey))
		if err != nil {
			return fmt.Errorf("zarr: array %q: %w", node, err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrArrayExists, w.key(node, ""))
		}
	}

	for _, g := range []struct {
		node  string
		attrs map[string]any
	}{
		{"", nil},
		{d.GroupID, nil},
		{d.Path(), d.Attrs},
	} {
		if err := w.Group(ctx, g.node, g.attrs); err != nil {
			return err
		}
	}

	shape := a.Shape()
	chunks := []int{1, max(len(a.Elements), 1), max(a.Steps, 1)}

	if err := w.Float64(ctx, ArraySpec{
		Path:   path.Join(d.Path(), a.Name),
		Shape:  shape,
		Chunks: chunks,
		Dims:   assemble.Dims,
	}, a.Data); err != nil {
		return err
	}
	if err := w.Strings(ctx, coord(d.Path(), assemble.DimEvent, len(a.Events)), a.Events); err != nil {
		return err
	}
	if err := w.Strings(ctx, coord(d.Path(), assemble.DimElement, len(a.Elements)), a.Elements); err != nil {
		return err
	}
	if err := w.Int64(ctx, coord(d.Path(), assemble.DimTimeIndex, a.Steps), a.TimeIndex()); err != nil {
		return err
	}

	return w.Consolidate(ctx)
}

func coord(group, dim string, n int) ArraySpec {
	return ArraySpec{
		Path:   path.Join(group, dim),
		Shape:  []int{n},
		Chunks: []int{max(n, 1)},
		Dims:   []string{dim},
	}
}
