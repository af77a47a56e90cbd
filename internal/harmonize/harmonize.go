// Package harmonize builds the harmonized line-municipality table: every
// line entry resolved to its canonical geocode and joined with the commune
// registry, canton codes and name translations.
package harmonize

import (
	"fmt"
	"regexp"
	"sort"

	"roestigraben/internal/models"
	"roestigraben/internal/resolver"
)

// cantonAbbrev matches a trailing canton abbreviation like " (VD)".
var cantonAbbrev = regexp.MustCompile(` \([A-Z]{2}\)$`)

// Harmonizer resolves line entries and decorates them with registry data.
type Harmonizer struct {
	resolver     *resolver.Resolver
	registry     map[int]models.GeoLevel
	cantons      map[int]string
	translations map[string]models.Translation
}

// Duplicate records two or more entries of one line collapsing into the
// same canonical geocode. Downstream aggregation must sum such rows, so the
// collapse is reported instead of silently dropped.
type Duplicate struct {
	Line    string
	Geocode int
	Orders  []int
}

// Unresolved is a line entry whose canonical geocode is absent from the
// commune registry.
type Unresolved struct {
	Entry     models.LineEntry
	Canonical int
	Reason    string
}

// Result is the harmonized table plus everything that needs reporting.
type Result struct {
	Municipalities []models.Municipality
	Duplicates     []Duplicate
	Unresolved     []Unresolved
}

// New creates a Harmonizer over the given reference data.
func New(res *resolver.Resolver, levels []models.GeoLevel, cantons map[int]string, translations map[string]models.Translation) *Harmonizer {
	registry := make(map[int]models.GeoLevel, len(levels))
	for _, l := range levels {
		registry[l.Geocode] = l
	}
	return &Harmonizer{
		resolver:     res,
		registry:     registry,
		cantons:      cantons,
		translations: translations,
	}
}

// Harmonize resolves every entry and returns the harmonized table sorted by
// line then order. Entries of one line resolving to the same canonical
// geocode keep the lowest order position and are reported as duplicates;
// entries whose canonical geocode is missing from the registry are reported
// as unresolved, never dropped silently.
func (h *Harmonizer) Harmonize(entries []models.LineEntry) (*Result, error) {
	result := &Result{}

	type lineKey struct {
		line    string
		geocode int
	}
	seen := make(map[lineKey]int) // index into result.Municipalities
	dupIndex := make(map[lineKey]int)

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("invalid line entry: %w", err)
		}
		canonical, err := h.resolver.Resolve(entry.Geocode)
		if err != nil {
			result.Unresolved = append(result.Unresolved, Unresolved{
				Entry:     entry,
				Canonical: entry.Geocode,
				Reason:    err.Error(),
			})
			continue
		}
		level, ok := h.registry[canonical]
		if !ok {
			result.Unresolved = append(result.Unresolved, Unresolved{
				Entry:     entry,
				Canonical: canonical,
				Reason:    "not in commune registry",
			})
			continue
		}

		key := lineKey{line: entry.Line, geocode: canonical}
		if idx, ok := seen[key]; ok {
			di, tracked := dupIndex[key]
			if !tracked {
				result.Duplicates = append(result.Duplicates, Duplicate{
					Line:    entry.Line,
					Geocode: canonical,
					Orders:  []int{result.Municipalities[idx].Order},
				})
				di = len(result.Duplicates) - 1
				dupIndex[key] = di
			}
			result.Duplicates[di].Orders = append(result.Duplicates[di].Orders, entry.Order)
			if entry.Order < result.Municipalities[idx].Order {
				result.Municipalities[idx].Order = entry.Order
			}
			continue
		}

		m := models.Municipality{
			Order:      entry.Order,
			Line:       entry.Line,
			Geocode:    canonical,
			Name:       level.NameFR,
			CantonISO2: h.cantons[level.CantonOrder],
		}
		m.NameFR, m.NameDE = h.displayNames(level.NameFR)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("invalid harmonized municipality %d: %w", canonical, err)
		}
		seen[key] = len(result.Municipalities)
		result.Municipalities = append(result.Municipalities, m)
	}

	sort.Slice(result.Municipalities, func(i, j int) bool {
		a, b := result.Municipalities[i], result.Municipalities[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Order < b.Order
	})
	return result, nil
}

// displayNames returns the FR/DE display names for an official French
// commune name, falling back to the official name when no translation
// exists, with trailing canton abbreviations stripped.
func (h *Harmonizer) displayNames(nameFR string) (fr, de string) {
	fr, de = nameFR, nameFR
	if tr, ok := h.translations[nameFR]; ok {
		if tr.FR != "" {
			fr = tr.FR
		}
		if tr.DE != "" {
			de = tr.DE
		}
	}
	return cantonAbbrev.ReplaceAllString(fr, ""), cantonAbbrev.ReplaceAllString(de, "")
}
