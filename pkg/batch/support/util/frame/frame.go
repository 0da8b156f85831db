// Package frame holds the gota dataframe helpers shared by the pipeline stages and the dashboard.
package frame

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Agg is one aggregation applied to one column.
type Agg struct {
	Column string
	Type   dataframe.AggregationType
}

// Sum aggregates column with SUM.
func Sum(column string) Agg { return Agg{Column: column, Type: dataframe.Aggregation_SUM} }

// Mean aggregates column with MEAN.
func Mean(column string) Agg { return Agg{Column: column, Type: dataframe.Aggregation_MEAN} }

// Count counts the rows of each group through column.
func Count(column string) Agg { return Agg{Column: column, Type: dataframe.Aggregation_COUNT} }

// Name is the column gota writes the result to, e.g. "total_tips_SUM".
func (a Agg) Name() string {
	return fmt.Sprintf("%s_%s", a.Column, a.Type)
}

// GroupBy groups df by keys and applies aggs to every group.
// The key columns must not hold missing values. The rows of the result are unordered.
// An empty df yields an empty result with ok false, since gota cannot aggregate zero groups.
func GroupBy(df dataframe.DataFrame, keys []string, aggs ...Agg) (out dataframe.DataFrame, ok bool, err error) {
	if df.Err != nil {
		return dataframe.DataFrame{}, false, df.Err
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, false, nil
	}
	groups := df.GroupBy(keys...)
	if groups == nil {
		return dataframe.DataFrame{}, false, fmt.Errorf("group by: no key columns")
	}
	if groups.Err != nil {
		return dataframe.DataFrame{}, false, fmt.Errorf("group by %v: %w", keys, groups.Err)
	}

	types := make([]dataframe.AggregationType, len(aggs))
	columns := make([]string, len(aggs))
	for i, a := range aggs {
		types[i] = a.Type
		columns[i] = a.Column
	}
	out = groups.Aggregation(types, columns)
	if out.Err != nil {
		return dataframe.DataFrame{}, false, fmt.Errorf("aggregate %v: %w", keys, out.Err)
	}
	return out, true, nil
}

// Strings returns the cells of column name.
func Strings(df dataframe.DataFrame, name string) ([]string, error) {
	s := df.Col(name)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Records(), nil
}

// Ints returns the cells of column name as ints. Missing cells are an error.
func Ints(df dataframe.DataFrame, name string) ([]int, error) {
	s := df.Col(name)
	if s.Err != nil {
		return nil, s.Err
	}
	v, err := s.Int()
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", name, err)
	}
	return v, nil
}

// Floats returns the cells of column name as float64. Missing cells are NaN.
func Floats(df dataframe.DataFrame, name string) ([]float64, error) {
	s := df.Col(name)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Float(), nil
}

// Nullable returns the cells of column name with missing cells as nil.
func Nullable(df dataframe.DataFrame, name string) ([]*float64, error) {
	v, err := Floats(df, name)
	if err != nil {
		return nil, err
	}
	out := make([]*float64, len(v))
	for i, f := range v {
		out[i] = Pointer(f)
	}
	return out, nil
}

// FromNullable maps nil to NaN, which gota stores as a missing cell.
func FromNullable(v []*float64) []float64 {
	out := make([]float64, len(v))
	for i, p := range v {
		out[i] = math.NaN()
		if p != nil {
			out[i] = *p
		}
	}
	return out
}

// Pointer returns nil for NaN and a pointer to f otherwise.
func Pointer(f float64) *float64 {
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// Column builds a float64 column from nullable values.
func Column(name string, v []*float64) series.Series {
	return series.New(FromNullable(v), series.Float, name)
}
