// Package results flattens the federal vote-results JSON, extracts ballot
// titles and joins results against the harmonized municipality table.
package results

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"roestigraben/internal/fetch"
	"roestigraben/internal/models"
)

// Flatten produces one record per municipality per ballot from the nested
// vote-results JSON, with the French ballot title attached.
func Flatten(info *fetch.VoteInfo) ([]models.CommuneResult, error) {
	var out []models.CommuneResult
	for _, ballot := range info.Schweiz.Vorlagen {
		name := ballot.Title("fr")
		if name == "" {
			name = "Titre non disponible"
		}
		for _, canton := range ballot.Kantone {
			cantonID, err := strconv.Atoi(canton.Number)
			if err != nil {
				return nil, fmt.Errorf("invalid canton number %q: %w", canton.Number, err)
			}
			for _, commune := range canton.Gemeinden {
				geocode, err := strconv.Atoi(commune.Number)
				if err != nil {
					return nil, fmt.Errorf("invalid commune number %q: %w", commune.Number, err)
				}
				out = append(out, models.CommuneResult{
					Geocode:         geocode,
					CommuneName:     commune.Name,
					CantonID:        cantonID,
					CantonName:      canton.Name,
					BallotID:        ballot.ID,
					BallotName:      name,
					YesVotes:        commune.Resultat.YesVotes,
					NoVotes:         commune.Resultat.NoVotes,
					YesPct:          commune.Resultat.YesPct,
					TurnoutPct:      commune.Resultat.TurnoutPct,
					BallotsReturned: commune.Resultat.BallotsReturned,
					EligibleVoters:  commune.Resultat.EligibleVoters,
					ValidVotes:      commune.Resultat.ValidVotes,
				})
			}
		}
	}
	return out, nil
}

// Titles extracts one row per ballot per language (FR and DE) with a blank
// short title for manual completion, sorted by ballot id then language.
func Titles(info *fetch.VoteInfo) []models.BallotTitle {
	var titles []models.BallotTitle
	for _, ballot := range info.Schweiz.Vorlagen {
		for _, t := range ballot.Titles {
			if t.LangKey != "fr" && t.LangKey != "de" {
				continue
			}
			titles = append(titles, models.BallotTitle{
				BallotID:   ballot.ID,
				Lang:       upperLang(t.LangKey),
				TitleLong:  t.Text,
				TitleShort: "",
			})
		}
	}
	sort.Slice(titles, func(i, j int) bool {
		if titles[i].BallotID != titles[j].BallotID {
			return titles[i].BallotID < titles[j].BallotID
		}
		return titles[i].Lang < titles[j].Lang
	})
	return titles
}

func upperLang(key string) string {
	switch key {
	case "fr":
		return "FR"
	case "de":
		return "DE"
	}
	return key
}

// Join restricts flattened results to the harmonized municipality set and
// emits one profile row per municipality per ballot, sorted by ballot id,
// line, order. Result records sharing a canonical geocode are summed and
// their percentage recomputed before joining. Harmonized municipalities
// without any result record are returned separately for reporting.
func Join(municipalities []models.Municipality, flat []models.CommuneResult) ([]models.ProfileRow, []models.Municipality) {
	aggregated := aggregate(flat)

	byGeocode := make(map[int][]models.CommuneResult)
	for _, r := range aggregated {
		byGeocode[r.Geocode] = append(byGeocode[r.Geocode], r)
	}

	var rows []models.ProfileRow
	var missing []models.Municipality
	for _, m := range municipalities {
		results, ok := byGeocode[m.Geocode]
		if !ok {
			missing = append(missing, m)
			continue
		}
		for _, r := range results {
			rows = append(rows, models.ProfileRow{
				Geocode:    m.Geocode,
				Order:      m.Order,
				Line:       m.Line,
				Name:       m.Name,
				NameFR:     m.NameFR,
				NameDE:     m.NameDE,
				CantonISO2: m.CantonISO2,
				BallotID:   r.BallotID,
				YesPct:     r.YesPct,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.BallotID != b.BallotID {
			return a.BallotID < b.BallotID
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Order < b.Order
	})
	return rows, missing
}

// aggregate sums result records sharing a geocode and ballot and recomputes
// the percentages from the summed counts. The federal JSON normally has one
// record per commune per ballot; duplicates appear when historical communes
// were collapsed into the same canonical geocode upstream.
func aggregate(flat []models.CommuneResult) []models.CommuneResult {
	type key struct {
		geocode int
		ballot  int
	}
	index := make(map[key]int)
	var out []models.CommuneResult
	for _, r := range flat {
		k := key{geocode: r.Geocode, ballot: r.BallotID}
		idx, ok := index[k]
		if !ok {
			index[k] = len(out)
			out = append(out, r)
			continue
		}
		log.Printf("Summing duplicate results for commune %d, ballot %d", r.Geocode, r.BallotID)
		agg := &out[idx]
		agg.YesVotes += r.YesVotes
		agg.NoVotes += r.NoVotes
		agg.BallotsReturned += r.BallotsReturned
		agg.EligibleVoters += r.EligibleVoters
		agg.ValidVotes += r.ValidVotes
		agg.YesPct = pct(agg.YesVotes, agg.YesVotes+agg.NoVotes)
		agg.TurnoutPct = pct(agg.BallotsReturned, agg.EligibleVoters)
	}
	return out
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
