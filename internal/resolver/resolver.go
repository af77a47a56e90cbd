// Package resolver maps historical commune geocodes to the geocode valid on
// a target date by following the commune mutation chain.
package resolver

import (
	"fmt"
	"time"

	"roestigraben/internal/models"
)

// Resolver resolves historical geocodes against a mutation table bounded by
// a target date. Mutations dated after the target date do not apply.
type Resolver struct {
	successor map[int]step
}

type step struct {
	code int
	date time.Time
}

// New builds a resolver from the mutation table. When a geocode was mutated
// more than once within the window, the latest mutation effective on or
// before the target date wins; later hops are then followed transitively by
// Resolve.
func New(mutations []models.Mutation, target time.Time) *Resolver {
	successor := make(map[int]step, len(mutations))
	for _, m := range mutations {
		if m.Date.After(target) {
			continue
		}
		if prev, ok := successor[m.InitialCode]; ok && !m.Date.After(prev.date) {
			continue
		}
		successor[m.InitialCode] = step{code: m.TerminalCode, date: m.Date}
	}
	return &Resolver{successor: successor}
}

// Resolve follows the mutation chain from the given geocode until no
// further mutation applies and returns the canonical geocode. Geocodes the
// mutation table never mentions resolve to themselves; whether they exist
// at all is the caller's check against the commune registry.
func (r *Resolver) Resolve(geocode int) (int, error) {
	code := geocode
	for hops := 0; hops <= len(r.successor); hops++ {
		next, ok := r.successor[code]
		if !ok {
			return code, nil
		}
		// Self-referencing mutations (renames keeping the geocode) end the chain.
		if next.code == code {
			return code, nil
		}
		code = next.code
	}
	return 0, fmt.Errorf("mutation chain for geocode %d does not terminate", geocode)
}

// Len returns the number of geocodes with an applicable mutation.
func (r *Resolver) Len() int {
	return len(r.successor)
}
