package results

import (
	"math"
	"testing"

	"roestigraben/internal/fetch"
	"roestigraben/internal/models"
)

func testInfo() *fetch.VoteInfo {
	info := &fetch.VoteInfo{}
	info.Schweiz.Vorlagen = []fetch.Vorlage{
		{
			ID: 6650,
			Titles: []fetch.LangText{
				{LangKey: "de", Text: "Vorlage A"},
				{LangKey: "fr", Text: "Objet A"},
				{LangKey: "it", Text: "Oggetto A"},
			},
			Kantone: []fetch.Kanton{
				{
					Number: "22",
					Name:   "Vaud",
					Gemeinden: []fetch.Gemeinde{
						{
							Number: "5586",
							Name:   "Lausanne",
							Resultat: fetch.Resultat{
								YesVotes: 1200, NoVotes: 800, YesPct: 60,
								TurnoutPct: 45.5, BallotsReturned: 2050,
								EligibleVoters: 4500, ValidVotes: 2000,
							},
						},
					},
				},
			},
		},
		{
			ID: 6610,
			Titles: []fetch.LangText{
				{LangKey: "fr", Text: "Objet B"},
				{LangKey: "de", Text: "Vorlage B"},
			},
			Kantone: []fetch.Kanton{
				{
					Number: "22",
					Name:   "Vaud",
					Gemeinden: []fetch.Gemeinde{
						{
							Number:   "5586",
							Name:     "Lausanne",
							Resultat: fetch.Resultat{YesVotes: 900, NoVotes: 1100, YesPct: 45},
						},
					},
				},
			},
		},
	}
	return info
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestFlattenProducesOneRecordPerCommunePerBallot(t *testing.T) {
	flat, err := Flatten(testInfo())
	if err != nil {
		t.Fatalf("Flatten error: %v", err)
	}
	if len(flat) != 2 {
		t.Fatalf("expected 2 records, got %d", len(flat))
	}
	r := flat[0]
	if r.Geocode != 5586 || r.BallotID != 6650 || r.BallotName != "Objet A" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.YesVotes != 1200 || r.NoVotes != 800 || r.EligibleVoters != 4500 {
		t.Fatalf("unexpected counts: %+v", r)
	}
}

func TestFlattenFallsBackWhenFrenchTitleMissing(t *testing.T) {
	info := testInfo()
	info.Schweiz.Vorlagen[0].Titles = []fetch.LangText{
		{LangKey: "de", Text: "Vorlage A"},
	}

	flat, err := Flatten(info)
	if err != nil {
		t.Fatalf("Flatten error: %v", err)
	}
	if flat[0].BallotName != "Titre non disponible" {
		t.Fatalf("expected fallback ballot name, got %q", flat[0].BallotName)
	}
}

func TestFlattenRejectsNonNumericGeocode(t *testing.T) {
	info := testInfo()
	info.Schweiz.Vorlagen[0].Kantone[0].Gemeinden[0].Number = "not-a-code"

	if _, err := Flatten(info); err == nil {
		t.Fatalf("expected error for non-numeric geocode, got none")
	}
}

func TestTitlesSortedWithBlankShortTitle(t *testing.T) {
	titles := Titles(testInfo())
	if len(titles) != 4 {
		t.Fatalf("expected 2 ballots x 2 languages, got %d", len(titles))
	}
	// Sorted by ballot id then language, Italian dropped.
	want := []models.BallotTitle{
		{BallotID: 6610, Lang: "DE", TitleLong: "Vorlage B"},
		{BallotID: 6610, Lang: "FR", TitleLong: "Objet B"},
		{BallotID: 6650, Lang: "DE", TitleLong: "Vorlage A"},
		{BallotID: 6650, Lang: "FR", TitleLong: "Objet A"},
	}
	for i, w := range want {
		got := titles[i]
		if got.BallotID != w.BallotID || got.Lang != w.Lang || got.TitleLong != w.TitleLong {
			t.Fatalf("title %d: got %+v, want %+v", i, got, w)
		}
		if got.TitleShort != "" {
			t.Fatalf("expected blank short title, got %q", got.TitleShort)
		}
	}
}

func TestJoinRestrictsToHarmonizedSet(t *testing.T) {
	municipalities := []models.Municipality{
		{Order: 1, Line: "ic_1", Geocode: 5586, Name: "Lausanne", NameFR: "Lausanne", NameDE: "Lausanne", CantonISO2: "VD"},
		{Order: 2, Line: "ic_1", Geocode: 9999, Name: "Nowhere"},
	}
	flat := []models.CommuneResult{
		{Geocode: 5586, BallotID: 6650, YesVotes: 1200, NoVotes: 800, YesPct: 60},
		{Geocode: 351, BallotID: 6650, YesVotes: 10, NoVotes: 20, YesPct: 33.3},
	}

	rows, missing := Join(municipalities, flat)
	if len(rows) != 1 {
		t.Fatalf("expected 1 profile row, got %d", len(rows))
	}
	if rows[0].Geocode != 5586 || rows[0].BallotID != 6650 || !almostEqual(rows[0].YesPct, 60) {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
	if len(missing) != 1 || missing[0].Geocode != 9999 {
		t.Fatalf("expected municipality 9999 reported missing, got %v", missing)
	}
}

func TestJoinSumsDuplicateCanonicalTargets(t *testing.T) {
	municipalities := []models.Municipality{
		{Order: 1, Line: "ic_1", Geocode: 3003, Name: "Morat"},
	}
	// Two raw records collapsed into the same canonical geocode upstream.
	flat := []models.CommuneResult{
		{Geocode: 3003, BallotID: 6650, YesVotes: 100, NoVotes: 100, YesPct: 50, BallotsReturned: 210, EligibleVoters: 400},
		{Geocode: 3003, BallotID: 6650, YesVotes: 300, NoVotes: 100, YesPct: 75, BallotsReturned: 410, EligibleVoters: 600},
	}

	rows, missing := Join(municipalities, flat)
	if len(missing) != 0 {
		t.Fatalf("expected no missing municipalities, got %v", missing)
	}
	if len(rows) != 1 {
		t.Fatalf("expected summed single row, got %d", len(rows))
	}
	// 400 yes of 600 valid votes.
	if !almostEqual(rows[0].YesPct, 400.0/600.0*100) {
		t.Fatalf("expected recomputed percentage %.4f, got %.4f", 400.0/600.0*100, rows[0].YesPct)
	}
}

func TestJoinSortsByBallotLineOrder(t *testing.T) {
	municipalities := []models.Municipality{
		{Order: 2, Line: "ic_21", Geocode: 351},
		{Order: 1, Line: "ic_1", Geocode: 5586},
	}
	flat := []models.CommuneResult{
		{Geocode: 351, BallotID: 6650, YesPct: 40},
		{Geocode: 5586, BallotID: 6650, YesPct: 60},
		{Geocode: 351, BallotID: 6610, YesPct: 41},
		{Geocode: 5586, BallotID: 6610, YesPct: 61},
	}

	rows, _ := Join(municipalities, flat)
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	type key struct {
		ballot  int
		line    string
		geocode int
	}
	want := []key{
		{6610, "ic_1", 5586},
		{6610, "ic_21", 351},
		{6650, "ic_1", 5586},
		{6650, "ic_21", 351},
	}
	for i, w := range want {
		if rows[i].BallotID != w.ballot || rows[i].Line != w.line || rows[i].Geocode != w.geocode {
			t.Fatalf("row %d: got ballot=%d line=%s geocode=%d, want %+v",
				i, rows[i].BallotID, rows[i].Line, rows[i].Geocode, w)
		}
	}
}
