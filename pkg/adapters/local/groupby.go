package local

import (
	"fmt"
	"sort"

	"github.com/aretw0/tabula/pkg/domain"
)

// grouped is the result of a group-by: one category per distinct key in
// first-seen order and one series per aggregation.
type grouped struct {
	categories []string
	series     []series
}

type series struct {
	Name string `json:"name"`
	Data []any  `json:"data"`
}

func groupBy(f *frame, col string, aggs []domain.Aggregation) (*grouped, error) {
	keys, err := f.column(col)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	var members [][]int
	out := &grouped{}
	for i, v := range keys {
		k := key(v)
		g, ok := index[k]
		if !ok {
			g = len(members)
			index[k] = g
			members = append(members, nil)
			out.categories = append(out.categories, text(v))
		}
		members[g] = append(members[g], i)
	}

	used := map[string]bool{col: true}
	for _, agg := range aggs {
		values, err := f.column(agg.Column)
		if err != nil {
			return nil, err
		}
		name := agg.Column
		if used[name] {
			name = fmt.Sprintf("%s_%s", agg.Column, agg.Func)
		}
		used[name] = true

		s := series{Name: name, Data: make([]any, len(members))}
		for g, rows := range members {
			vals := make([]any, len(rows))
			for j, r := range rows {
				vals[j] = values[r]
			}
			v, err := aggregate(agg.Func, vals)
			if err != nil {
				return nil, err
			}
			s.Data[g] = v
		}
		out.series = append(out.series, s)
	}
	return out, nil
}

// aggregate reduces the values of one group. Numeric functions skip values
// that are not numbers and yield null when nothing numeric remains.
func aggregate(fn domain.AggFunc, vals []any) (any, error) {
	switch fn {
	case domain.AggCount:
		return int64(len(vals)), nil
	case domain.AggFirst:
		if len(vals) == 0 {
			return nil, nil
		}
		return vals[0], nil
	case domain.AggUnique:
		seen := map[string]struct{}{}
		for _, v := range vals {
			seen[key(v)] = struct{}{}
		}
		return int64(len(seen)), nil
	}

	nums := make([]float64, 0, len(vals))
	for _, v := range vals {
		if n, ok := number(v); ok {
			nums = append(nums, n)
		}
	}

	switch fn {
	case domain.AggSum:
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return wholeToInt(sum), nil
	}
	if len(nums) == 0 {
		switch fn {
		case domain.AggMean, domain.AggMin, domain.AggMax, domain.AggMedian, domain.AggMode:
			return nil, nil
		}
		return nil, fmt.Errorf("unknown aggregation %q", fn)
	}

	switch fn {
	case domain.AggMean:
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return wholeToInt(sum / float64(len(nums))), nil
	case domain.AggMin:
		m := nums[0]
		for _, n := range nums[1:] {
			m = min(m, n)
		}
		return wholeToInt(m), nil
	case domain.AggMax:
		m := nums[0]
		for _, n := range nums[1:] {
			m = max(m, n)
		}
		return wholeToInt(m), nil
	case domain.AggMedian:
		sort.Float64s(nums)
		n := len(nums)
		if n%2 == 1 {
			return wholeToInt(nums[n/2]), nil
		}
		return wholeToInt((nums[n/2-1] + nums[n/2]) / 2), nil
	case domain.AggMode:
		freq := map[float64]int{}
		best, bestCount := nums[0], 0
		for _, n := range nums {
			freq[n]++
			if freq[n] > bestCount {
				best, bestCount = n, freq[n]
			}
		}
		return wholeToInt(best), nil
	}
	return nil, fmt.Errorf("unknown aggregation %q", fn)
}
