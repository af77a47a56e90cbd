// Package reference loads the static CSV inputs of the pipeline: the
// line-municipality lists, the canton ISO2 table and the name translations.
package reference

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"roestigraben/internal/models"
)

// table is a loaded CSV file with a lowercased header index.
type table struct {
	headers []string
	index   map[string]int
	rows    [][]string
}

func loadTable(path string) (*table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(b))
	r.FieldsPerRecord = -1
	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, rec)
	}
	return &table{headers: headers, index: index, rows: rows}, nil
}

// field returns the named column of a row, or "" when the column is missing
// or the row is too short.
func (t *table) field(row []string, name string) string {
	idx, ok := t.index[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (t *table) require(names ...string) error {
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}
	return nil
}

// orderColumn returns the name of the order column in a line CSV, e.g.
// "order_ic1" for line "ic_1".
func orderColumn(line string) string {
	return "order_" + strings.ReplaceAll(strings.ToLower(line), "_", "")
}

// LoadLineMunicipalities reads one line CSV and tags every entry with the
// line name. Entries keep the file's order column so positions along the
// line survive later joins.
func LoadLineMunicipalities(path, line string) ([]models.LineEntry, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load line file %s: %w", path, err)
	}
	orderCol := orderColumn(line)
	if err := t.require(orderCol, "gmdnr"); err != nil {
		return nil, fmt.Errorf("line file %s: %w", path, err)
	}
	entries := make([]models.LineEntry, 0, len(t.rows))
	for i, row := range t.rows {
		order, err := strconv.Atoi(t.field(row, orderCol))
		if err != nil {
			return nil, fmt.Errorf("line file %s row %d: invalid order: %w", path, i+1, err)
		}
		geocode, err := strconv.Atoi(t.field(row, "gmdnr"))
		if err != nil {
			return nil, fmt.Errorf("line file %s row %d: invalid GMDNR: %w", path, i+1, err)
		}
		entry := models.LineEntry{Line: line, Order: order, Geocode: geocode}
		if err := entry.Validate(); err != nil {
			return nil, fmt.Errorf("line file %s row %d: %w", path, i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadCantons reads the canton ISO2 table keyed by the statistical canton
// order number used in the geographic-levels registry.
func LoadCantons(path string) (map[int]string, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load canton file %s: %w", path, err)
	}
	if err := t.require("order", "iso2"); err != nil {
		return nil, fmt.Errorf("canton file %s: %w", path, err)
	}
	cantons := make(map[int]string, len(t.rows))
	for i, row := range t.rows {
		order, err := strconv.Atoi(t.field(row, "order"))
		if err != nil {
			return nil, fmt.Errorf("canton file %s row %d: invalid order: %w", path, i+1, err)
		}
		cantons[order] = t.field(row, "iso2")
	}
	return cantons, nil
}

// LoadTranslations reads the local translation table keyed by the official
// French commune name. Callers treat a missing file as an empty table.
func LoadTranslations(path string) (map[string]models.Translation, error) {
	t, err := loadTable(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load translation file %s: %w", path, err)
	}
	if err := t.require("polg_name", "fr", "de"); err != nil {
		return nil, fmt.Errorf("translation file %s: %w", path, err)
	}
	translations := make(map[string]models.Translation, len(t.rows))
	for _, row := range t.rows {
		tr := models.Translation{
			PolgName: t.field(row, "polg_name"),
			FR:       t.field(row, "fr"),
			DE:       t.field(row, "de"),
		}
		if tr.PolgName == "" {
			continue
		}
		translations[tr.PolgName] = tr
	}
	return translations, nil
}
