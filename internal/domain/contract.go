package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Contract is the ordered feature list a model and scaler were fitted on.
type Contract []Feature

// CanonicalContract returns the order training always fixes.
func CanonicalContract() Contract {
	return slices.Clone(Contract(Features))
}

// NewContract validates names and returns them as a Contract. Names outside
// the recognised set are allowed; completion fills them with zero.
func NewContract(names []Feature) (Contract, error) {
	if len(names) == 0 {
		return nil, errors.New("feature contract is empty")
	}
	seen := make(map[Feature]struct{}, len(names))
	for i, n := range names {
		if strings.TrimSpace(string(n)) == "" {
			return nil, fmt.Errorf("feature contract entry %d is blank", i)
		}
		if _, dup := seen[n]; dup {
			return nil, fmt.Errorf("feature contract lists %q twice", n)
		}
		seen[n] = struct{}{}
	}
	return slices.Clone(Contract(names)), nil
}

// Index returns the column position of f, or -1.
func (c Contract) Index(f Feature) int {
	return slices.Index(c, f)
}

// Equal reports whether both contracts name the same features in the same order.
func (c Contract) Equal(other Contract) bool {
	return slices.Equal(c, other)
}

// Names returns the contract as plain strings.
func (c Contract) Names() []string {
	out := make([]string, len(c))
	for i, f := range c {
		out[i] = string(f)
	}
	return out
}
