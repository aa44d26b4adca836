package service

import (
	"fmt"
	"math"
	"sort"
)

// Categorical draws values under fixed weights. Weights are renormalised, so
// they need not sum to one.
type Categorical[T any] struct {
	values     []T
	cumulative []float64
}

// NewCategorical validates the weights and builds the cumulative table
func NewCategorical[T any](values []T, weights []float64) (*Categorical[T], error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("categorical distribution needs at least one value")
	}
	if len(values) != len(weights) {
		return nil, fmt.Errorf("got %d values but %d weights", len(values), len(weights))
	}

	var total float64
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("weight %d is invalid: %v", i, w)
		}
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("weights sum to zero")
	}

	cumulative := make([]float64, len(weights))
	var acc float64
	for i, w := range weights {
		acc += w / total
		cumulative[i] = acc
	}
	cumulative[len(cumulative)-1] = 1

	vals := make([]T, len(values))
	copy(vals, values)

	return &Categorical[T]{values: vals, cumulative: cumulative}, nil
}

// MustCategorical panics on invalid weights; for package-level tables
func MustCategorical[T any](values []T, weights []float64) *Categorical[T] {
	c, err := NewCategorical(values, weights)
	if err != nil {
		panic(err)
	}
	return c
}

// Sample draws one value
func (c *Categorical[T]) Sample(rnd RandSource) T {
	u := rnd.Float64()
	i := sort.Search(len(c.cumulative), func(i int) bool { return c.cumulative[i] > u })
	if i == len(c.cumulative) {
		i--
	}
	return c.values[i]
}

// Probability returns the normalised weight of the i-th value
func (c *Categorical[T]) Probability(i int) float64 {
	if i == 0 {
		return c.cumulative[0]
	}
	return c.cumulative[i] - c.cumulative[i-1]
}

// Len returns the number of categories
func (c *Categorical[T]) Len() int {
	return len(c.values)
}
