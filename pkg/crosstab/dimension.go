package crosstab

// Dimension is one axis of a crosstab: a name and an ordered set of unique
// category labels. Categories are only ever appended.
type Dimension struct {
	name       string
	categories []string
	index      map[string]int
}

// NewDimension creates a dimension with the given initial categories
func NewDimension(name string, categories ...string) *Dimension {
	d := &Dimension{name: name, index: make(map[string]int, len(categories))}
	for _, c := range categories {
		d.AddCategory(c)
	}
	return d
}

// Name returns the dimension name
func (d *Dimension) Name() string {
	return d.name
}

// AddCategory appends category unless it is already present. Empty labels
// are ignored since they cannot address a cell.
func (d *Dimension) AddCategory(category string) *Dimension {
	if category == "" {
		return d
	}
	if _, ok := d.index[category]; ok {
		return d
	}
	d.index[category] = len(d.categories)
	d.categories = append(d.categories, category)
	return d
}

// ContainsCategory reports whether category belongs to the dimension
func (d *Dimension) ContainsCategory(category string) bool {
	_, ok := d.index[category]
	return ok
}

// IndexOf returns the position of category, or -1
func (d *Dimension) IndexOf(category string) int {
	if i, ok := d.index[category]; ok {
		return i
	}
	return -1
}

// Categories returns a copy of the categories in order
func (d *Dimension) Categories() []string {
	out := make([]string, len(d.categories))
	copy(out, d.categories)
	return out
}

// Len returns the number of categories
func (d *Dimension) Len() int {
	return len(d.categories)
}

// Clone returns an independent copy
func (d *Dimension) Clone() *Dimension {
	return NewDimension(d.name, d.categories...)
}

// Equal reports whether both dimensions have the same name and the same
// categories in the same order
func (d *Dimension) Equal(other *Dimension) bool {
	if other == nil || d.name != other.name || len(d.categories) != len(other.categories) {
		return false
	}
	for i, c := range d.categories {
		if other.categories[i] != c {
			return false
		}
	}
	return true
}
