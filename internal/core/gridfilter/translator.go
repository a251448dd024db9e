// Package gridfilter translates data-grid filter models into lead filter descriptors.
package gridfilter

import (
	"encoding/json"
	"strings"

	"github.com/leadflow/leadflow/pkg/model"
)

// Grid filter types and conditions as emitted by the grid.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeDate   = "date"
	TypeSet    = "set"

	CondContains    = "contains"
	CondEquals      = "equals"
	CondGreaterThan = "greaterThan"
	CondLessThan    = "lessThan"
	CondInRange     = "inRange"
)

// Filter is one column entry of a grid filter model.
type Filter struct {
	FilterType string `json:"filterType"`
	Type       string `json:"type,omitempty"`
	Filter     any    `json:"filter,omitempty"`
	FilterTo   any    `json:"filterTo,omitempty"`
	Values     []any  `json:"values,omitempty"`
	DateFrom   string `json:"dateFrom,omitempty"`
	DateTo     string `json:"dateTo,omitempty"`
}

// Model maps a column field to its grid filter.
type Model map[string]Filter

// ParseModel decodes a JSON grid filter model.
func ParseModel(data string) (Model, error) {
	if strings.TrimSpace(data) == "" {
		return Model{}, nil
	}
	var m Model
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, model.ErrInvalidFilters
	}
	return m, nil
}

// Translate converts a grid model into filter descriptors.
// Conditions with no descriptor counterpart are left out.
func Translate(m Model) model.RawFilters {
	out := make(model.RawFilters, len(m))
	for field, f := range m {
		if rf, ok := translate(f); ok {
			out[field] = rf
		}
	}
	return out
}

func translate(f Filter) (*model.RawFilter, bool) {
	if f.FilterType == TypeDate {
		return translateDate(f)
	}

	switch {
	case f.Type == CondContains:
		return &model.RawFilter{Operator: model.OpContains, Value: f.Filter}, true
	case f.Type == CondEquals:
		return &model.RawFilter{Operator: model.OpEquals, Value: f.Filter}, true
	case f.FilterType == TypeSet:
		values := make([]any, 0, len(f.Values))
		values = append(values, f.Values...)
		return &model.RawFilter{Operator: model.OpIn, Value: values}, true
	case f.Type == CondGreaterThan:
		return &model.RawFilter{Operator: model.OpGt, Value: f.Filter}, true
	case f.Type == CondLessThan:
		return &model.RawFilter{Operator: model.OpLt, Value: f.Filter}, true
	case f.Type == CondInRange:
		return &model.RawFilter{
			Operator: model.OpBetween,
			Value:    map[string]any{"min": f.Filter, "max": f.FilterTo},
		}, true
	}
	return nil, false
}

func translateDate(f Filter) (*model.RawFilter, bool) {
	from := normalizeDate(f.DateFrom)
	if from == "" {
		return nil, false
	}
	switch f.Type {
	case CondEquals:
		return &model.RawFilter{Operator: model.OpOn, Value: from}, true
	case CondLessThan:
		return &model.RawFilter{Operator: model.OpBefore, Value: from}, true
	case CondGreaterThan:
		return &model.RawFilter{Operator: model.OpAfter, Value: from}, true
	case CondInRange:
		to := normalizeDate(f.DateTo)
		if to == "" {
			return nil, false
		}
		return &model.RawFilter{
			Operator: model.OpBetween,
			Value:    map[string]any{"start": from, "end": to},
		}, true
	}
	return nil, false
}

// normalizeDate turns the grid's "2006-01-02 15:04:05" form into one ParseTime accepts.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == len("2006-01-02 15:04:05") && s[10] == ' ' {
		return s[:10] + "T" + s[11:]
	}
	return s
}

// Encode translates the model and renders the filters query parameter.
func Encode(m Model) (string, error) {
	return Translate(m).Encode()
}
