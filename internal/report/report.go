// Package report writes the pipeline's CSV outputs and reads back the
// tables that later stages (or the next run) consume.
package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"roestigraben/internal/models"
)

var (
	harmonizedHeader = []string{"order_ic", "ligne", "GMDNR", "Name_fr", "iso2", "fr", "de"}
	ballotHeader     = []string{"ballot-id", "langue", "title_long", "title_short"}
	profileHeader    = []string{"GMDNR", "order", "ligne", "GMDNAME", "GMDNAME_FR", "GMDNAME_DE", "KTN_abr", "ballot_id", "yes_pct"}
	communeHeader    = []string{
		"id", "commune_name", "canton_id", "canton_name", "ballot_id", "ballot_name",
		"yes_votes", "no_votes", "yes_pct", "turnout_pct",
		"ballots_returned", "eligible_voters", "valid_votes",
	}
)

func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readCSV(path string, header []string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(b))
	got, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(got) != len(header) {
		return nil, fmt.Errorf("%s: unexpected header %v", path, got)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("%s: unexpected header column %q (want %q)", path, got[i], header[i])
		}
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row of %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteHarmonized writes the harmonized line-municipality table.
func WriteHarmonized(path string, municipalities []models.Municipality) error {
	rows := make([][]string, 0, len(municipalities))
	for _, m := range municipalities {
		rows = append(rows, []string{
			strconv.Itoa(m.Order),
			m.Line,
			strconv.Itoa(m.Geocode),
			m.Name,
			m.CantonISO2,
			m.NameFR,
			m.NameDE,
		})
	}
	return writeCSV(path, harmonizedHeader, rows)
}

// ReadHarmonized reads a harmonized table written by WriteHarmonized.
func ReadHarmonized(path string) ([]models.Municipality, error) {
	rows, err := readCSV(path, harmonizedHeader)
	if err != nil {
		return nil, err
	}
	municipalities := make([]models.Municipality, 0, len(rows))
	for i, row := range rows {
		order, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid order: %w", path, i+1, err)
		}
		geocode, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid GMDNR: %w", path, i+1, err)
		}
		municipalities = append(municipalities, models.Municipality{
			Order:      order,
			Line:       row[1],
			Geocode:    geocode,
			Name:       row[3],
			CantonISO2: row[4],
			NameFR:     row[5],
			NameDE:     row[6],
		})
	}
	return municipalities, nil
}

// WriteBallotTitles writes the ballot-title table with its blank short-title
// column for manual completion.
func WriteBallotTitles(path string, titles []models.BallotTitle) error {
	rows := make([][]string, 0, len(titles))
	for _, t := range titles {
		rows = append(rows, []string{
			strconv.Itoa(t.BallotID),
			t.Lang,
			t.TitleLong,
			t.TitleShort,
		})
	}
	return writeCSV(path, ballotHeader, rows)
}

// ReadBallotTitles reads a ballot-title table, typically after the analyst
// filled in the short titles.
func ReadBallotTitles(path string) ([]models.BallotTitle, error) {
	rows, err := readCSV(path, ballotHeader)
	if err != nil {
		return nil, err
	}
	titles := make([]models.BallotTitle, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: invalid ballot id: %w", path, i+1, err)
		}
		titles = append(titles, models.BallotTitle{
			BallotID:   id,
			Lang:       row[1],
			TitleLong:  row[2],
			TitleShort: row[3],
		})
	}
	return titles, nil
}

// WriteProfiles writes the final per-municipality results table.
func WriteProfiles(path string, profiles []models.ProfileRow) error {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			strconv.Itoa(p.Geocode),
			strconv.Itoa(p.Order),
			p.Line,
			p.Name,
			p.NameFR,
			p.NameDE,
			p.CantonISO2,
			strconv.Itoa(p.BallotID),
			formatFloat(p.YesPct),
		})
	}
	return writeCSV(path, profileHeader, rows)
}

// WriteCommuneResults writes the nationwide per-municipality export with
// absolute counts and turnout.
func WriteCommuneResults(path string, results []models.CommuneResult) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.Itoa(r.Geocode),
			r.CommuneName,
			strconv.Itoa(r.CantonID),
			r.CantonName,
			strconv.Itoa(r.BallotID),
			r.BallotName,
			strconv.Itoa(r.YesVotes),
			strconv.Itoa(r.NoVotes),
			formatFloat(r.YesPct),
			formatFloat(r.TurnoutPct),
			strconv.Itoa(r.BallotsReturned),
			strconv.Itoa(r.EligibleVoters),
			strconv.Itoa(r.ValidVotes),
		})
	}
	return writeCSV(path, communeHeader, rows)
}
