package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FieldClass groups filterable lead fields by the operators they accept.
type FieldClass int

const (
	ClassText FieldClass = iota + 1
	ClassEnum
	ClassNumeric
	ClassDate
	ClassBool
)

func (c FieldClass) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassEnum:
		return "enum"
	case ClassNumeric:
		return "numeric"
	case ClassDate:
		return "date"
	case ClassBool:
		return "boolean"
	}
	return "unknown"
}

var fieldClasses = map[string]FieldClass{
	"email":            ClassText,
	"company":          ClassText,
	"city":             ClassText,
	"first_name":       ClassText,
	"last_name":        ClassText,
	"status":           ClassEnum,
	"source":           ClassEnum,
	"score":            ClassNumeric,
	"lead_value":       ClassNumeric,
	"created_at":       ClassDate,
	"last_activity_at": ClassDate,
	"is_qualified":     ClassBool,
}

// ClassOf returns the class of a filterable field.
func ClassOf(field string) (FieldClass, bool) {
	c, ok := fieldClasses[field]
	return c, ok
}

// Operator is a filter operator name as it appears on the wire.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpGt       Operator = "gt"
	OpLt       Operator = "lt"
	OpBetween  Operator = "between"
	OpOn       Operator = "on"
	OpBefore   Operator = "before"
	OpAfter    Operator = "after"
)

var classOperators = map[FieldClass][]Operator{
	ClassText:    {OpEquals, OpContains},
	ClassEnum:    {OpEquals, OpIn},
	ClassNumeric: {OpEquals, OpGt, OpLt, OpBetween},
	ClassDate:    {OpOn, OpBefore, OpAfter, OpBetween},
	ClassBool:    {OpEquals},
}

// Supports reports whether op is valid for fields of class c.
func (c FieldClass) Supports(op Operator) bool {
	for _, o := range classOperators[c] {
		if o == op {
			return true
		}
	}
	return false
}

// RawFilter is the wire form of a filter descriptor.
type RawFilter struct {
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// IsEmpty reports whether the descriptor carries nothing to filter on.
func (r *RawFilter) IsEmpty() bool {
	return r == nil || r.Operator == "" || r.Value == nil
}

// RawFilters maps field names to wire descriptors. A nil entry is an absent descriptor.
type RawFilters map[string]*RawFilter

// ParseFilters decodes the JSON filters parameter. Numbers are kept as json.Number.
// Any syntax error, or a descriptor that is neither an object nor null, yields ErrInvalidFilters.
func ParseFilters(data string) (RawFilters, error) {
	if strings.TrimSpace(data) == "" {
		return RawFilters{}, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, ErrInvalidFilters
	}
	out := make(RawFilters, len(entries))
	for field, msg := range entries {
		msg = bytes.TrimSpace(msg)
		if bytes.Equal(msg, []byte("null")) {
			out[field] = nil
			continue
		}
		if len(msg) == 0 || msg[0] != '{' {
			return nil, ErrInvalidFilters
		}
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var rf RawFilter
		if err := dec.Decode(&rf); err != nil {
			return nil, ErrInvalidFilters
		}
		out[field] = &rf
	}
	return out, nil
}

// Merge returns a copy of r with entries of other added where r has no entry.
func (r RawFilters) Merge(other RawFilters) RawFilters {
	out := make(RawFilters, len(r)+len(other))
	for k, v := range other {
		out[k] = v
	}
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Encode renders the descriptors in the form accepted by ParseFilters.
func (r RawFilters) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Filter is a validated, typed filter descriptor for one field.
type Filter interface {
	FieldName() string
	filter()
}

// TextFilter applies equals or contains to a text field.
type TextFilter struct {
	Field string
	Op    Operator
	Value string
}

// EnumFilter applies equals (one value) or in (any number of values) to an enum field.
type EnumFilter struct {
	Field  string
	Op     Operator
	Values []string
}

// NumericFilter applies equals, gt, lt or between to a numeric field.
// Value is used by the single-operand operators, Min and Max by between.
type NumericFilter struct {
	Field string
	Op    Operator
	Value float64
	Min   float64
	Max   float64
}

// DateFilter applies on, before, after or between to a timestamp field.
// At is used by the single-operand operators, Start and End by between.
type DateFilter struct {
	Field string
	Op    Operator
	At    time.Time
	Start time.Time
	End   time.Time
}

// BoolFilter applies equals to a boolean field.
type BoolFilter struct {
	Field string
	Value bool
}

func (f TextFilter) FieldName() string    { return f.Field }
func (f EnumFilter) FieldName() string    { return f.Field }
func (f NumericFilter) FieldName() string { return f.Field }
func (f DateFilter) FieldName() string    { return f.Field }
func (f BoolFilter) FieldName() string    { return f.Field }

func (TextFilter) filter()    {}
func (EnumFilter) filter()    {}
func (NumericFilter) filter() {}
func (DateFilter) filter()    {}
func (BoolFilter) filter()    {}

// FilterSet is the validated set of filters of one request, keyed by field.
type FilterSet map[string]Filter

// FilterError reports a malformed value for a recognized field and operator.
type FilterError struct {
	Field    string
	Operator Operator
	Message  string
}

func (e *FilterError) Error() string {
	if e.Operator == "" {
		return fmt.Sprintf("filter %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("filter %s %s: %s", e.Field, e.Operator, e.Message)
}

// DecodeFilters parses and validates the filters parameter in one step.
func DecodeFilters(data string, loc *time.Location) (FilterSet, error) {
	raw, err := ParseFilters(data)
	if err != nil {
		return nil, err
	}
	return raw.Decode(loc)
}

// Decode validates every descriptor against its field class. Unknown fields and
// operators not valid for the field's class are dropped. Zone-less dates are read in loc.
func (r RawFilters) Decode(loc *time.Location) (FilterSet, error) {
	if loc == nil {
		loc = time.UTC
	}
	out := make(FilterSet, len(r))
	for _, field := range slices.Sorted(maps.Keys(r)) {
		rf := r[field]
		if rf.IsEmpty() {
			continue
		}
		class, ok := ClassOf(field)
		if !ok || !class.Supports(rf.Operator) {
			continue
		}
		f, err := decodeFilter(field, class, rf, loc)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out[field] = f
		}
	}
	return out, nil
}

func decodeFilter(field string, class FieldClass, rf *RawFilter, loc *time.Location) (Filter, error) {
	fail := func(msg string) error {
		return &FilterError{Field: field, Operator: rf.Operator, Message: msg}
	}

	switch class {
	case ClassText:
		s, ok := rf.Value.(string)
		if !ok {
			return nil, fail("value must be a string")
		}
		if s == "" {
			return nil, nil
		}
		return TextFilter{Field: field, Op: rf.Operator, Value: s}, nil

	case ClassEnum:
		if rf.Operator == OpEquals {
			s, ok := rf.Value.(string)
			if !ok {
				return nil, fail("value must be a string")
			}
			return EnumFilter{Field: field, Op: OpEquals, Values: []string{s}}, nil
		}
		items, ok := rf.Value.([]any)
		if !ok {
			return nil, fail("value must be an array")
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fail("array items must be strings")
			}
			values = append(values, s)
		}
		return EnumFilter{Field: field, Op: OpIn, Values: values}, nil

	case ClassNumeric:
		if rf.Operator == OpBetween {
			lo, hi, err := rangeBounds(rf.Value, "min", "max")
			if err != nil {
				return nil, fail(err.Error())
			}
			lower, err := toFloat(lo)
			if err != nil {
				return nil, fail("min " + err.Error())
			}
			upper, err := toFloat(hi)
			if err != nil {
				return nil, fail("max " + err.Error())
			}
			return NumericFilter{Field: field, Op: OpBetween, Min: lower, Max: upper}, nil
		}
		v, err := toFloat(rf.Value)
		if err != nil {
			return nil, fail("value " + err.Error())
		}
		return NumericFilter{Field: field, Op: rf.Operator, Value: v}, nil

	case ClassDate:
		if rf.Operator == OpBetween {
			lo, hi, err := rangeBounds(rf.Value, "start", "end")
			if err != nil {
				return nil, fail(err.Error())
			}
			start, err := toTime(lo, loc)
			if err != nil {
				return nil, fail("start " + err.Error())
			}
			end, err := toTime(hi, loc)
			if err != nil {
				return nil, fail("end " + err.Error())
			}
			return DateFilter{Field: field, Op: OpBetween, Start: start, End: end}, nil
		}
		at, err := toTime(rf.Value, loc)
		if err != nil {
			return nil, fail("value " + err.Error())
		}
		return DateFilter{Field: field, Op: rf.Operator, At: at}, nil

	case ClassBool:
		b, err := toBool(rf.Value)
		if err != nil {
			return nil, fail(err.Error())
		}
		return BoolFilter{Field: field, Value: b}, nil
	}
	return nil, nil
}

func rangeBounds(v any, lo, hi string) (any, any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("value must be an object with %s and %s", lo, hi)
	}
	a, okA := m[lo]
	b, okB := m[hi]
	if !okA || !okB || a == nil || b == nil {
		return nil, nil, fmt.Errorf("value must include %s and %s", lo, hi)
	}
	return a, b, nil
}

func toFloat(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("must be a number")
	}
	// NaN and the infinities would compile into match-all comparisons.
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be a number")
	}
	return f, nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("value must be a boolean")
}

func toTime(v any, loc *time.Location) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("must be a date string")
	}
	t, err := ParseTime(s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("is not a valid date")
	}
	return t, nil
}

var zonedLayouts = []string{time.RFC3339Nano, time.RFC3339}

var localLayouts = []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"}

// ParseTime accepts RFC 3339 timestamps, which keep their own offset, and the
// zone-less forms 2006-01-02T15:04:05 and 2006-01-02, which are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
