package extract

// Elements is the element -> series map of one event, in first-seen order.
type Elements struct {
	names  []string
	series map[string][]float64
}

// Names returns element keys in first-seen order.
func (e *Elements) Names() []string {
	return append([]string(nil), e.names...)
}

// Series returns the series stored for element.
func (e *Elements) Series(element string) ([]float64, bool) {
	s, ok := e.series[element]
	return s, ok
}

// Len returns the number of elements.
func (e *Elements) Len() int {
	return len(e.names)
}

// Grouped is a two-level ordered map: event key -> element key -> series.
// The zero value is ready to use.
type Grouped struct {
	events []string
	byKey  map[string]*Elements
}

// Insert stores series at (event, element) and reports whether an existing
// series was replaced. A replaced entry keeps its original position.
func (g *Grouped) Insert(event, element string, series []float64) bool {
	if g.byKey == nil {
		g.byKey = make(map[string]*Elements)
	}
	els, ok := g.byKey[event]
	if !ok {
		els = &Elements{series: make(map[string][]float64)}
		g.byKey[event] = els
		g.events = append(g.events, event)
	}
	_, replaced := els.series[element]
	if !replaced {
		els.names = append(els.names, element)
	}
	els.series[element] = series
	return replaced
}

// Has reports whether (event, element) holds a series.
func (g *Grouped) Has(event, element string) bool {
	els, ok := g.byKey[event]
	if !ok {
		return false
	}
	_, ok = els.series[element]
	return ok
}

// Events returns event keys in insertion order.
func (g *Grouped) Events() []string {
	return append([]string(nil), g.events...)
}

// Elements returns the elements of event, or nil if absent.
func (g *Grouped) Elements(event string) *Elements {
	return g.byKey[event]
}

// Len returns the number of events.
func (g *Grouped) Len() int {
	return len(g.events)
}
