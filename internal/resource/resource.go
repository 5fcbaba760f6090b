// Package resource holds the static descriptors of every Ramp entity that can be
// loaded into the ephemeral store: endpoint, required scopes, column schema and
// accepted filters.
package resource

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sep joins nested JSON keys into a flat column name.
const Sep = "__"

// ErrUnknownResource is returned by Lookup for names not in the catalog.
var ErrUnknownResource = errors.New("unknown resource")

// Kind decides how a JSON value is converted into a column value.
type Kind int

const (
	Text Kind = iota
	Integer
	Real
	Bool
	Time        // RFC 3339 timestamp, stored as UTC text
	Amount      // decimal amount in major units
	MinorAmount // integer amount in minor units, converted using CurrencyPath
	JSON        // any value, stored as compact JSON text
	List        // array of scalars, stored comma separated
)

// SQLType returns the SQLite column affinity for the kind.
func (k Kind) SQLType() string {
	switch k {
	case Integer, Bool:
		return "INTEGER"
	case Real, Amount, MinorAmount:
		return "REAL"
	default:
		return "TEXT"
	}
}

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Real:
		return "real"
	case Bool:
		return "bool"
	case Time:
		return "time"
	case Amount:
		return "amount"
	case MinorAmount:
		return "minor_amount"
	case JSON:
		return "json"
	case List:
		return "list"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Column maps one path in a JSON record to one table column.
type Column struct {
	Name         string
	Path         []string
	Kind         Kind
	CurrencyPath []string
}

// FilterType is the accepted argument type of a filter.
type FilterType string

const (
	FilterString  FilterType = "string"
	FilterDate    FilterType = "date"
	FilterBool    FilterType = "boolean"
	FilterStrings FilterType = "array"
	FilterInt     FilterType = "integer"
)

// Filter is a tool argument translated into an API query (or path) parameter.
type Filter struct {
	Name        string
	Param       string
	Type        FilterType
	Description string
	Required    bool
	// EndOfRange moves a date filter to the next day so the range is inclusive.
	EndOfRange bool
	// InPath substitutes the value into the {Name} placeholder of the descriptor path.
	InPath bool
	Enum   []string
	// Fixed parameters are always sent and cannot be set by the caller.
	Fixed any
}

// Descriptor describes a loadable resource.
type Descriptor struct {
	Name        string
	Tool        string
	Description string
	Scopes      []string
	Path        string
	Columns     []Column
	Filters     []Filter
}

// Table returns the table name the resource is loaded into.
func (d Descriptor) Table() string {
	return d.Name
}

// ColumnNames lists the column names in schema order.
func (d Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (d Descriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Filter returns the named filter.
func (d Descriptor) Filter(name string) (Filter, bool) {
	for _, f := range d.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

// Project returns a copy of the descriptor restricted to the given columns, in
// schema order. An empty list returns the descriptor unchanged.
func (d Descriptor) Project(columns []string) (Descriptor, error) {
	if len(columns) == 0 {
		return d, nil
	}
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		if _, ok := d.Column(c); !ok {
			return Descriptor{}, fmt.Errorf("%s has no column %q", d.Name, c)
		}
		want[c] = true
	}
	out := d
	out.Columns = make([]Column, 0, len(want))
	for _, c := range d.Columns {
		if want[c.Name] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out, nil
}

// Granted reports whether every scope of the descriptor is in granted.
func (d Descriptor) Granted(granted map[string]bool) bool {
	for _, s := range d.Scopes {
		if !granted[s] {
			return false
		}
	}
	return true
}

// Missing lists the descriptor scopes absent from granted.
func (d Descriptor) Missing(granted map[string]bool) []string {
	var out []string
	for _, s := range d.Scopes {
		if !granted[s] {
			out = append(out, s)
		}
	}
	return out
}

// Lookup finds a descriptor by resource name.
func Lookup(name string) (Descriptor, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for _, d := range catalog {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// Catalog returns all descriptors in a stable order.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the sorted resource names.
func Names() []string {
	names := make([]string, len(catalog))
	for i, d := range catalog {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

// Scopes returns every scope any resource requires, sorted.
func Scopes() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range catalog {
		for _, s := range d.Scopes {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func col(name string, kind Kind) Column {
	return Column{Name: name, Path: strings.Split(name, Sep), Kind: kind}
}

// money expands a {amount, currency_code} object into two columns.
func money(prefix string) []Column {
	base := strings.Split(prefix, Sep)
	return []Column{
		{
			Name:         prefix + Sep + "amount",
			Path:         append(base[:len(base):len(base)], "amount"),
			Kind:         MinorAmount,
			CurrencyPath: append(base[:len(base):len(base)], "currency_code"),
		},
		col(prefix+Sep+"currency_code", Text),
	}
}

func cols(groups ...[]Column) []Column {
	var out []Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
