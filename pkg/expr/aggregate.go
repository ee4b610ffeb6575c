package expr

import "github.com/aretw0/tabula/pkg/domain"

// Agg builds an aggregation descriptor for an arbitrary function name.
func Agg(fn domain.AggFunc, column string) domain.Aggregation {
	return domain.Aggregation{Column: column, Func: fn}
}

// Sum adds up the numeric values of a column per group.
func Sum(column string) domain.Aggregation { return Agg(domain.AggSum, column) }

// Count counts the rows of each group.
func Count(column string) domain.Aggregation { return Agg(domain.AggCount, column) }

// Mean averages the numeric values of a column per group.
func Mean(column string) domain.Aggregation { return Agg(domain.AggMean, column) }

// Min keeps the smallest numeric value per group.
func Min(column string) domain.Aggregation { return Agg(domain.AggMin, column) }

// Max keeps the largest numeric value per group.
func Max(column string) domain.Aggregation { return Agg(domain.AggMax, column) }

// Median keeps the median numeric value per group.
func Median(column string) domain.Aggregation { return Agg(domain.AggMedian, column) }

// Mode keeps the most frequent value per group.
func Mode(column string) domain.Aggregation { return Agg(domain.AggMode, column) }

// Unique counts distinct values per group.
func Unique(column string) domain.Aggregation { return Agg(domain.AggUnique, column) }

// First keeps the first value seen per group.
func First(column string) domain.Aggregation { return Agg(domain.AggFirst, column) }
