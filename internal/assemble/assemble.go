// Package assemble turns a grouped extraction into a dense, labeled
// (event, element, time_index) array.
package assemble

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/pithecene-io/dsszarr/internal/extract"
)

// Dimension names, outermost first.
const (
	DimEvent     = "event"
	DimElement   = "element"
	DimTimeIndex = "time_index"
)

// Dims lists the array dimensions in storage order.
var Dims = []string{DimEvent, DimElement, DimTimeIndex}

var (
	// ErrShapeMismatch indicates ragged input that cannot form a dense array.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmpty indicates a grouped dataset with no events.
	ErrEmpty = errors.New("empty dataset")
)

// ShapeMismatchError names the event that broke the common shape.
type ShapeMismatchError struct {
	Event  string
	Reason string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch in event %q: %s", e.Event, e.Reason)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// Array is a dense 3-D float64 array in C order with coordinate labels.
type Array struct {
	Name     string
	Events   []string
	Elements []string
	Steps    int
	Data     []float64
}

// Build assembles g into an Array named name.
//
// The element coordinate follows the first event's element order. Every
// other event must carry the same element set and every series must have
// the same length. Element order is not required to match across events:
// later events are aligned to the coordinate by element name.
func Build(g *extract.Grouped, name string) (*Array, error) {
	if g == nil || g.Len() == 0 {
		return nil, ErrEmpty
	}

	events := g.Events()
	first := g.Elements(events[0])
	elements := first.Names()
	if len(elements) == 0 {
		return nil, &ShapeMismatchError{Event: events[0], Reason: "no elements"}
	}
	s0, _ := first.Series(elements[0])
	steps := len(s0)

	a := &Array{
		Name:     name,
		Events:   events,
		Elements: elements,
		Steps:    steps,
		Data:     make([]float64, 0, len(events)*len(elements)*steps),
	}

	for _, ev := range events {
		els := g.Elements(ev)
		if els.Len() != len(elements) {
			return nil, &ShapeMismatchError{
				Event:  ev,
				Reason: fmt.Sprintf("%d elements, want %d", els.Len(), len(elements)),
			}
		}
		for _, el := range elements {
			s, ok := els.Series(el)
			if !ok {
				return nil, &ShapeMismatchError{Event: ev, Reason: fmt.Sprintf("missing element %q", el)}
			}
			if len(s) != steps {
				return nil, &ShapeMismatchError{
					Event:  ev,
					Reason: fmt.Sprintf("element %q has %d steps, want %d", el, len(s), steps),
				}
			}
			a.Data = append(a.Data, s...)
		}
	}
	return a, nil
}

// Shape returns (events, elements, steps).
func (a *Array) Shape() []int {
	return []int{len(a.Events), len(a.Elements), a.Steps}
}

// At returns the value at (event, element, step) indices.
func (a *Array) At(e, el, t int) float64 {
	return a.Data[(e*len(a.Elements)+el)*a.Steps+t]
}

// Event returns the slab of event index e, element-major.
func (a *Array) Event(e int) []float64 {
	n := len(a.Elements) * a.Steps
	return a.Data[e*n : (e+1)*n]
}

// Min returns the smallest non-NaN value of event e, or NaN if none.
func (a *Array) Min(e int) float64 {
	return reduce(a.Event(e), func(x, y float64) bool { return x < y })
}

// Max returns the largest non-NaN value of event e, or NaN if none.
func (a *Array) Max(e int) float64 {
	return reduce(a.Event(e), func(x, y float64) bool { return x > y })
}

func reduce(vals []float64, better func(x, y float64) bool) float64 {
	best := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(best) || better(v, best) {
			best = v
		}
	}
	return best
}

// TimeIndex returns 0..Steps-1.
func (a *Array) TimeIndex() []int64 {
	idx := make([]int64, a.Steps)
	for i := range idx {
		idx[i] = int64(i)
	}
	return idx
}

// ElementIndex returns the position of element in the coordinate, or -1.
func (a *Array) ElementIndex(element string) int {
	return slices.Index(a.Elements, element)
}
