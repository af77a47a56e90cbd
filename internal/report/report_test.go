package report

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"roestigraben/internal/models"
)

func testMunicipalities() []models.Municipality {
	return []models.Municipality{
		{Order: 1, Line: "ic_1", Geocode: 5586, Name: "Lausanne", CantonISO2: "VD", NameFR: "Lausanne", NameDE: "Lausanne"},
		{Order: 2, Line: "ic_1", Geocode: 3003, Name: "Morat (FR)", CantonISO2: "FR", NameFR: "Morat", NameDE: "Murten"},
		{Order: 1, Line: "ic_21", Geocode: 6621, Name: "Genève", CantonISO2: "GE", NameFR: "Genève", NameDE: "Genf"},
	}
}

func TestHarmonizedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "intercity_harmonized_2024-11-24.csv")
	municipalities := testMunicipalities()

	if err := WriteHarmonized(path, municipalities); err != nil {
		t.Fatalf("WriteHarmonized error: %v", err)
	}
	got, err := ReadHarmonized(path)
	if err != nil {
		t.Fatalf("ReadHarmonized error: %v", err)
	}
	if !reflect.DeepEqual(got, municipalities) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, municipalities)
	}
}

func TestReadHarmonizedRejectsForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "other.csv")
	if err := os.WriteFile(path, []byte("a,b,c,d,e,f,g\n1,2,3,4,5,6,7\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadHarmonized(path); err == nil {
		t.Fatalf("expected header mismatch error, got none")
	}
}

func TestBallotTitlesRoundTripKeepsBlankShortTitles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ballot_name_2024-11-24.csv")
	titles := []models.BallotTitle{
		{BallotID: 6610, Lang: "DE", TitleLong: "Vorlage B", TitleShort: ""},
		{BallotID: 6610, Lang: "FR", TitleLong: "Objet B", TitleShort: ""},
	}

	if err := WriteBallotTitles(path, titles); err != nil {
		t.Fatalf("WriteBallotTitles error: %v", err)
	}
	got, err := ReadBallotTitles(path)
	if err != nil {
		t.Fatalf("ReadBallotTitles error: %v", err)
	}
	if !reflect.DeepEqual(got, titles) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, titles)
	}
}

func TestWriteProfilesHeaderAndValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profil_results_2024-11-24.csv")
	profiles := []models.ProfileRow{
		{Geocode: 5586, Order: 1, Line: "ic_1", Name: "Lausanne", NameFR: "Lausanne", NameDE: "Lausanne", CantonISO2: "VD", BallotID: 6650, YesPct: 60.4},
	}

	if err := WriteProfiles(path, profiles); err != nil {
		t.Fatalf("WriteProfiles error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if lines[0] != "GMDNR,order,ligne,GMDNAME,GMDNAME_FR,GMDNAME_DE,KTN_abr,ballot_id,yes_pct" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "5586,1,ic_1,Lausanne,Lausanne,Lausanne,VD,6650,60.4" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestWriteCommuneResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "df_votes_2024-11-24_municipalities.csv")
	results := []models.CommuneResult{
		{
			Geocode: 5586, CommuneName: "Lausanne", CantonID: 22, CantonName: "Vaud",
			BallotID: 6650, BallotName: "Objet A",
			YesVotes: 1200, NoVotes: 800, YesPct: 60, TurnoutPct: 45.5,
			BallotsReturned: 2050, EligibleVoters: 4500, ValidVotes: 2000,
		},
	}

	if err := WriteCommuneResults(path, results); err != nil {
		t.Fatalf("WriteCommuneResults error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(lines))
	}
	if lines[1] != "5586,Lausanne,22,Vaud,6650,Objet A,1200,800,60,45.5,2050,4500,2000" {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}
