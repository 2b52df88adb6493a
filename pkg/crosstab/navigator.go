package crosstab

import (
	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

// Navigator addresses one cell of a crosstab by pinning a category per
// dimension. Pins can be set in any order and re-pinning overwrites. An
// unknown dimension name is remembered and reported by the next operation.
type Navigator struct {
	target *Crosstab
	pins   []string
	err    error
}

// Where pins category on the named dimension
func (n *Navigator) Where(dimension, category string) *Navigator {
	i, ok := n.target.byName[dimension]
	if !ok {
		if n.err == nil {
			n.err = errors.New(errors.ErrorTypeDimensionMismatch, "no such dimension").
				WithDetail("dimension", dimension)
		}
		return n
	}
	n.pins[i] = category
	return n
}

// WhereDimension pins category on the dimension with the same name as d
func (n *Navigator) WhereDimension(d *Dimension, category string) *Navigator {
	return n.Where(d.Name(), category)
}

// Categories returns the pinned tuple
func (n *Navigator) Categories() ([]string, error) {
	if n.err != nil {
		return nil, n.err
	}
	for i, pin := range n.pins {
		if pin == "" {
			return nil, errors.New(errors.ErrorTypeMissingCategory, "no category pinned").
				WithDetail("dimension", n.target.dimensions[i].Name())
		}
	}
	return append([]string(nil), n.pins...), nil
}

// Put stores value in the addressed cell
func (n *Navigator) Put(value interface{}, autoCreate bool) error {
	if n.err != nil {
		return n.err
	}
	// Put reports missing categories itself, with the dimension name
	return n.target.Put(n.pins, value, autoCreate)
}

// Get returns the value of the addressed cell
func (n *Navigator) Get() (interface{}, error) {
	if n.err != nil {
		return nil, n.err
	}
	return n.target.Get(n.pins)
}

// SafeGet returns the value of the addressed cell, or def when the cell has
// no value or cannot be addressed
func (n *Navigator) SafeGet(def interface{}) interface{} {
	v, err := n.Get()
	if err != nil || v == nil {
		return def
	}
	return v
}

// Attach sets r as the drill-down of the addressed cell; nil detaches
func (n *Navigator) Attach(r result.AnalyzerResult) error {
	return n.AttachProducer(result.Inline(r))
}

// AttachProducer sets the drill-down producer of the addressed cell
func (n *Navigator) AttachProducer(p *result.Producer) error {
	if n.err != nil {
		return n.err
	}
	return n.target.AttachResultProducer(n.pins, p)
}

// Explore returns the drill-down producer of the addressed cell
func (n *Navigator) Explore() (*result.Producer, error) {
	if n.err != nil {
		return nil, n.err
	}
	return n.target.Explore(n.pins)
}

// Clone copies the pins; the clone addresses the same crosstab
func (n *Navigator) Clone() *Navigator {
	return &Navigator{
		target: n.target,
		pins:   append([]string(nil), n.pins...),
		err:    n.err,
	}
}
