package stats

import (
	"sort"

	"github.com/cyclopcam/leafscan/server/resultdb"
)

// Source is anything that can count results per category.
// *resultdb.ResultDB is the production implementation.
type Source interface {
	CountByCategory() ([]resultdb.CategoryCount, error)
}

// Aggregator summarizes the result store by category.
// It holds no state, so every call reflects the current contents of the store.
type Aggregator struct {
	source Source
}

func NewAggregator(source Source) *Aggregator {
	return &Aggregator{
		source: source,
	}
}

// Aggregate returns the number of results in each category.
// Categories without results are absent from the map.
func (a *Aggregator) Aggregate() (map[string]int64, error) {
	counts, err := a.source.CountByCategory()
	if err != nil {
		return nil, err
	}
	m := map[string]int64{}
	for _, c := range counts {
		if c.Count > 0 {
			m[c.Category] += c.Count
		}
	}
	return m, nil
}

// Sorted returns the aggregate as a list, largest category first.
// Ties are broken by category name.
func Sorted(agg map[string]int64) []resultdb.CategoryCount {
	list := make([]resultdb.CategoryCount, 0, len(agg))
	for cat, n := range agg {
		list = append(list, resultdb.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Category < list[j].Category
	})
	return list
}

// Total is the sum of all counts in an aggregate
func Total(agg map[string]int64) int64 {
	total := int64(0)
	for _, n := range agg {
		total += n
	}
	return total
}
