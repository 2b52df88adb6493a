// Package models provides the row and schema types profiled by analyzers.
package models

// Row is one record of a data set. Values are keyed by column name; a nil
// value is a null.
type Row struct {
	// ID identifies the row within its data set (for example the line number)
	ID     string                 `json:"id"`
	Values map[string]interface{} `json:"values"`
}

// NewRow creates a row with an empty value map
func NewRow(id string) Row {
	return Row{ID: id, Values: make(map[string]interface{})}
}

// Get returns the value of a column and whether the column exists
func (r Row) Get(column string) (interface{}, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// IsNull reports whether the column is absent or holds nil
func (r Row) IsNull(column string) bool {
	v, ok := r.Values[column]
	return !ok || v == nil
}

// Schema describes the columns of a data set.
type Schema struct {
	// Name identifies the data set (file name, table name)
	Name string `json:"name"`

	Fields []Field `json:"fields"`
}

// Field represents a single column in the schema.
type Field struct {
	Name string `json:"name"`

	// Type is the inferred data type (string, integer, float, boolean)
	Type string `json:"type"`
}

// FieldNames returns the column names in schema order
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// HasField reports whether the schema has a column with the given name
func (s Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
