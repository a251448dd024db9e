// Package query compiles validated lead filters into MongoDB predicates.
package query

import (
	"regexp"
	"slices"
	"time"

	"github.com/leadflow/leadflow/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MatchNothing is a field predicate no document satisfies.
func MatchNothing() bson.D {
	return bson.D{{Key: "$in", Value: bson.A{}}}
}

// Compile turns a filter set into a conjunction with one element per field.
// Elements are ordered by field name so equal sets compile to equal predicates.
// An empty set compiles to an empty document, which matches every lead.
func Compile(fs model.FilterSet) bson.D {
	out := bson.D{}
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, field := range keys {
		f := fs[field]
		if f == nil {
			continue
		}
		if cond, ok := compileFilter(f); ok {
			out = append(out, bson.E{Key: f.FieldName(), Value: cond})
		}
	}
	return out
}

func compileFilter(f model.Filter) (any, bool) {
	switch f := f.(type) {
	case model.TextFilter:
		return compileText(f)
	case model.EnumFilter:
		return compileEnum(f)
	case model.NumericFilter:
		return compileNumeric(f)
	case model.DateFilter:
		return compileDate(f)
	case model.BoolFilter:
		return f.Value, true
	}
	return nil, false
}

func compileText(f model.TextFilter) (any, bool) {
	switch f.Op {
	case model.OpEquals:
		return f.Value, true
	case model.OpContains:
		return primitive.Regex{Pattern: regexp.QuoteMeta(f.Value), Options: "i"}, true
	}
	return nil, false
}

func compileEnum(f model.EnumFilter) (any, bool) {
	switch f.Op {
	case model.OpEquals:
		if len(f.Values) != 1 {
			return nil, false
		}
		return f.Values[0], true
	case model.OpIn:
		values := bson.A{}
		for _, v := range f.Values {
			values = append(values, v)
		}
		return bson.D{{Key: "$in", Value: values}}, true
	}
	return nil, false
}

func compileNumeric(f model.NumericFilter) (any, bool) {
	switch f.Op {
	case model.OpEquals:
		return f.Value, true
	case model.OpGt:
		return bson.D{{Key: "$gt", Value: f.Value}}, true
	case model.OpLt:
		return bson.D{{Key: "$lt", Value: f.Value}}, true
	case model.OpBetween:
		if f.Min > f.Max {
			return MatchNothing(), true
		}
		return bson.D{{Key: "$gte", Value: f.Min}, {Key: "$lte", Value: f.Max}}, true
	}
	return nil, false
}

func compileDate(f model.DateFilter) (any, bool) {
	switch f.Op {
	case model.OpOn:
		start, end := DayBounds(f.At)
		return bson.D{{Key: "$gte", Value: start}, {Key: "$lte", Value: end}}, true
	case model.OpBefore:
		return bson.D{{Key: "$lt", Value: f.At}}, true
	case model.OpAfter:
		return bson.D{{Key: "$gt", Value: f.At}}, true
	case model.OpBetween:
		if f.Start.After(f.End) {
			return MatchNothing(), true
		}
		return bson.D{{Key: "$gte", Value: f.Start}, {Key: "$lte", Value: f.End}}, true
	}
	return nil, false
}

// DayBounds returns the first and last millisecond of the calendar day of t, in t's location.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	loc := t.Location()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
