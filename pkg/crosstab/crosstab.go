// Package crosstab implements an N-dimensional table of measures. Each cell
// is addressed by one category per dimension and holds a value and
// optionally a drill-down result producer.
//
//	ct := crosstab.MustNew(crosstab.NumberValue,
//	    crosstab.NewDimension("Column"),
//	    crosstab.NewDimension("Measure", "Row count", "Null count"))
//	err := ct.Where("Column", "age").Where("Measure", "Row count").Put(42, true)
//
// A Crosstab is not safe for concurrent use.
package crosstab

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajitpratap0/nebula-profiler/pkg/errors"
	"github.com/ajitpratap0/nebula-profiler/pkg/result"
)

type cell struct {
	categories []string
	value      interface{}
	producer   *result.Producer
}

func (c *cell) empty() bool {
	return c.value == nil && c.producer == nil
}

// Cell is a read-only view of one cell
type Cell struct {
	Categories []string
	Value      interface{}
	Producer   *result.Producer
}

// Crosstab is an N-dimensional cube of values
type Crosstab struct {
	valueType  ValueType
	dimensions []*Dimension
	byName     map[string]int
	cells      map[string]*cell
}

// New creates a crosstab over copies of the given dimensions, so later
// changes to the caller's dimensions do not reach the crosstab.
func New(valueType ValueType, dimensions ...*Dimension) (*Crosstab, error) {
	if len(dimensions) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "crosstab needs at least one dimension")
	}
	dims := make([]*Dimension, len(dimensions))
	byName := make(map[string]int, len(dimensions))
	for i, d := range dimensions {
		if d == nil {
			return nil, errors.Newf(errors.ErrorTypeValidation, "dimension %d is nil", i)
		}
		if _, dup := byName[d.Name()]; dup {
			return nil, errors.New(errors.ErrorTypeValidation, "duplicate dimension name").
				WithDetail("dimension", d.Name())
		}
		dims[i] = d.Clone()
		byName[d.Name()] = i
	}
	return &Crosstab{
		valueType:  valueType,
		dimensions: dims,
		byName:     byName,
		cells:      make(map[string]*cell),
	}, nil
}

// MustNew is like New but panics on invalid dimensions
func MustNew(valueType ValueType, dimensions ...*Dimension) *Crosstab {
	ct, err := New(valueType, dimensions...)
	if err != nil {
		panic(err)
	}
	return ct
}

// ValueType returns the value type of the crosstab
func (c *Crosstab) ValueType() ValueType {
	return c.valueType
}

// Dimensions returns copies of the dimensions in order
func (c *Crosstab) Dimensions() []*Dimension {
	out := make([]*Dimension, len(c.dimensions))
	for i, d := range c.dimensions {
		out[i] = d.Clone()
	}
	return out
}

// DimensionNames returns the dimension names in order
func (c *Crosstab) DimensionNames() []string {
	names := make([]string, len(c.dimensions))
	for i, d := range c.dimensions {
		names[i] = d.Name()
	}
	return names
}

// Dimension returns a copy of the named dimension
func (c *Crosstab) Dimension(name string) (*Dimension, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.dimensions[i].Clone(), true
}

// DimensionIndex returns the position of the named dimension, or -1
func (c *Crosstab) DimensionIndex(name string) int {
	if i, ok := c.byName[name]; ok {
		return i
	}
	return -1
}

// AddCategory extends the named dimension with category
func (c *Crosstab) AddCategory(dimension, category string) error {
	i, ok := c.byName[dimension]
	if !ok {
		return errors.New(errors.ErrorTypeDimensionMismatch, "no such dimension").
			WithDetail("dimension", dimension)
	}
	if category == "" {
		return errors.New(errors.ErrorTypeMissingCategory, "category must not be empty").
			WithDetail("dimension", dimension)
	}
	c.dimensions[i].AddCategory(category)
	return nil
}

// Len returns the number of cells holding a value or a producer
func (c *Crosstab) Len() int {
	return len(c.cells)
}

// validate checks the tuple shape and, without autoCreate, that every
// category exists.
func (c *Crosstab) validate(categories []string, autoCreate bool) error {
	if len(categories) != len(c.dimensions) {
		return errors.Newf(errors.ErrorTypeDimensionMismatch,
			"tuple has %d categories, crosstab has %d dimensions", len(categories), len(c.dimensions))
	}
	for i, cat := range categories {
		if cat == "" {
			return errors.New(errors.ErrorTypeMissingCategory, "no category given").
				WithDetail("dimension", c.dimensions[i].Name())
		}
	}
	if autoCreate {
		return nil
	}
	for i, cat := range categories {
		if !c.dimensions[i].ContainsCategory(cat) {
			return errors.New(errors.ErrorTypeUnknownCategory, "category not in dimension").
				WithDetail("dimension", c.dimensions[i].Name()).
				WithDetail("category", cat)
		}
	}
	return nil
}

// Put stores value in the cell addressed by categories. With autoCreate,
// unseen categories are appended to their dimensions first. A nil value
// clears the cell value.
func (c *Crosstab) Put(categories []string, value interface{}, autoCreate bool) error {
	if err := c.validate(categories, autoCreate); err != nil {
		return err
	}
	if !c.valueType.Accepts(value) {
		return errors.Newf(errors.ErrorTypeTypeMismatch, "value of type %T does not fit %s crosstab", value, c.valueType).
			WithDetail("categories", strings.Join(categories, RenderSeparator))
	}
	if autoCreate {
		for i, cat := range categories {
			c.dimensions[i].AddCategory(cat)
		}
	}

	key := Key(categories)
	existing, ok := c.cells[key]
	if !ok {
		if value == nil {
			return nil
		}
		existing = &cell{categories: append([]string(nil), categories...)}
		c.cells[key] = existing
	}
	existing.value = value
	if existing.empty() {
		delete(c.cells, key)
	}
	return nil
}

// Get returns the value of the addressed cell, or nil when it has none
func (c *Crosstab) Get(categories []string) (interface{}, error) {
	if err := c.validate(categories, false); err != nil {
		return nil, err
	}
	if existing, ok := c.cells[Key(categories)]; ok {
		return existing.value, nil
	}
	return nil, nil
}

// AttachResultProducer sets the drill-down of the addressed cell. A nil
// producer detaches the current one.
func (c *Crosstab) AttachResultProducer(categories []string, producer *result.Producer) error {
	if err := c.validate(categories, false); err != nil {
		return err
	}
	key := Key(categories)
	existing, ok := c.cells[key]
	if !ok {
		if producer == nil {
			return nil
		}
		existing = &cell{categories: append([]string(nil), categories...)}
		c.cells[key] = existing
	}
	existing.producer = producer
	if existing.empty() {
		delete(c.cells, key)
	}
	return nil
}

// Explore returns the drill-down producer of the addressed cell, or nil
func (c *Crosstab) Explore(categories []string) (*result.Producer, error) {
	if err := c.validate(categories, false); err != nil {
		return nil, err
	}
	if existing, ok := c.cells[Key(categories)]; ok {
		return existing.producer, nil
	}
	return nil, nil
}

// Cells returns every non-empty cell sorted element-wise by category tuple:
// the first dimension's category decides, then the second, and so on
func (c *Crosstab) Cells() []Cell {
	out := make([]Cell, 0, len(c.cells))
	for _, existing := range c.cells {
		out = append(out, Cell{
			Categories: append([]string(nil), existing.categories...),
			Value:      existing.value,
			Producer:   existing.producer,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return CompareTuples(out[i].Categories, out[j].Categories) < 0
	})
	return out
}

// Navigate returns a navigator with no dimension pinned
func (c *Crosstab) Navigate() *Navigator {
	return &Navigator{target: c, pins: make([]string, len(c.dimensions))}
}

// Where is shorthand for Navigate().Where(dimension, category)
func (c *Crosstab) Where(dimension, category string) *Navigator {
	return c.Navigate().Where(dimension, category)
}

// Render dumps up to maxEntries cell values in Cells order, one
// "cat1^cat2: value" line per cell below a "Crosstab:" header. A negative
// maxEntries renders every cell.
func (c *Crosstab) Render(maxEntries int) string {
	var b strings.Builder
	b.WriteString("Crosstab:")

	written := 0
	for _, cl := range c.Cells() {
		if cl.Value == nil {
			continue
		}
		if maxEntries >= 0 && written >= maxEntries {
			break
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(cl.Categories, RenderSeparator))
		b.WriteString(": ")
		b.WriteString(fmt.Sprint(cl.Value))
		written++
	}
	return b.String()
}

// String renders every cell
func (c *Crosstab) String() string {
	return c.Render(-1)
}
