package etl

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ramp/ramp-mcp-server/internal/resource"
)

const dateLayout = "2006-01-02"

// FilterError is an invalid, unknown or missing load argument.
type FilterError struct {
	Resource string
	Filter   string
	Reason   string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: filter %q: %s", e.Resource, e.Filter, e.Reason)
}

// Params translates tool arguments into the request path and query of the
// resource. Empty strings and nulls count as absent.
func Params(desc resource.Descriptor, args map[string]any) (string, url.Values, error) {
	path := desc.Path
	q := url.Values{}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := desc.Filter(name); !ok {
			return "", nil, &FilterError{Resource: desc.Name, Filter: name, Reason: "unknown filter, accepted: " + strings.Join(filterNames(desc), ", ")}
		}
	}

	for _, f := range desc.Filters {
		if f.Fixed != nil {
			if _, set := args[f.Name]; set {
				return "", nil, &FilterError{Resource: desc.Name, Filter: f.Name, Reason: "cannot be set"}
			}
			q.Set(f.Param, fmt.Sprint(f.Fixed))
			continue
		}
		v, ok := args[f.Name]
		if !ok || v == nil || v == "" {
			if f.Required {
				return "", nil, &FilterError{Resource: desc.Name, Filter: f.Name, Reason: "required"}
			}
			continue
		}
		vals, err := encode(f, v)
		if err != nil {
			return "", nil, &FilterError{Resource: desc.Name, Filter: f.Name, Reason: err.Error()}
		}
		if len(vals) == 0 {
			continue
		}
		if f.InPath {
			path = strings.ReplaceAll(path, "{"+f.Name+"}", url.PathEscape(vals[0]))
			continue
		}
		q[f.Param] = vals
	}
	if strings.Contains(path, "{") {
		return "", nil, &FilterError{Resource: desc.Name, Filter: path, Reason: "path parameter missing"}
	}
	return path, q, nil
}

func filterNames(desc resource.Descriptor) []string {
	var out []string
	for _, f := range desc.Filters {
		if f.Fixed == nil {
			out = append(out, f.Name)
		}
	}
	return out
}

func encode(f resource.Filter, v any) ([]string, error) {
	switch f.Type {
	case resource.FilterDate:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want a YYYY-MM-DD string, got %T", v)
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("want YYYY-MM-DD, got %q", s)
		}
		if f.EndOfRange {
			d = d.AddDate(0, 0, 1)
		}
		return []string{d.UTC().Format(time.RFC3339)}, nil

	case resource.FilterBool:
		switch b := v.(type) {
		case bool:
			return []string{strconv.FormatBool(b)}, nil
		case string:
			pb, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return nil, fmt.Errorf("want true or false, got %q", b)
			}
			return []string{strconv.FormatBool(pb)}, nil
		}
		return nil, fmt.Errorf("want a boolean, got %T", v)

	case resource.FilterInt:
		switch n := v.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("want an integer, got %v", n)
			}
			return []string{strconv.FormatInt(int64(n), 10)}, nil
		case string:
			if _, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err != nil {
				return nil, fmt.Errorf("want an integer, got %q", n)
			}
			return []string{strings.TrimSpace(n)}, nil
		}
		return nil, fmt.Errorf("want an integer, got %T", v)

	case resource.FilterStrings:
		var items []any
		switch a := v.(type) {
		case []any:
			items = a
		case []string:
			for _, s := range a {
				items = append(items, s)
			}
		default:
			items = []any{a}
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			s, err := scalar(it)
			if err != nil {
				return nil, err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil

	default:
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return nil, fmt.Errorf("want one of %s, got %q", strings.Join(f.Enum, ", "), s)
		}
		return []string{s}, nil
	}
}

func scalar(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	}
	return "", fmt.Errorf("want a string, got %T", v)
}
