package fetch

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roestigraben/internal/models"
)

// queryDateFormat is the DD-MM-YYYY format the BFS commune APIs expect.
const queryDateFormat = "02-01-2006"

// mutationDateLayouts covers the date spellings observed in the mutation
// CSV, which is not consistent across export periods.
var mutationDateLayouts = []string{"02.01.2006", "02-01-2006", "2006-01-02"}

// Mutations retrieves the commune mutations between the two dates from the
// BFS mutation API and parses the CSV response.
func (c *Client) Mutations(ctx context.Context, from, to time.Time) ([]models.Mutation, error) {
	q := url.Values{}
	q.Set("includeTerritoryExchange", "false")
	q.Set("Deleted", "True")
	q.Set("Created", "True")
	q.Set("startPeriod", from.Format(queryDateFormat))
	q.Set("endPeriod", to.Format(queryDateFormat))

	log.Printf("Fetching commune mutations (%s -> %s)...", from.Format(queryDateFormat), to.Format(queryDateFormat))
	body, err := c.get(ctx, c.MutationsURL+"?"+q.Encode())
	if err != nil {
		return nil, NewError("download", err)
	}

	mutations, err := parseMutationsCSV(body)
	if err != nil {
		return nil, NewError("decode", err)
	}
	log.Printf("Fetched %d commune mutations", len(mutations))
	return mutations, nil
}

func parseMutationsCSV(body []byte) ([]models.Mutation, error) {
	body = bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF})
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	headers, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"initialcode", "terminalcode", "mutationdate"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var mutations []models.Mutation
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		initial, err1 := strconv.Atoi(field(row, index, "initialcode"))
		terminal, err2 := strconv.Atoi(field(row, index, "terminalcode"))
		if err1 != nil || err2 != nil {
			// Territory exchanges and renames can carry blank codes; they
			// do not move a commune to a new geocode.
			continue
		}
		date, err := parseMutationDate(field(row, index, "mutationdate"))
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, models.Mutation{
			InitialCode:  initial,
			TerminalCode: terminal,
			Date:         date,
		})
	}
	return mutations, nil
}

func parseMutationDate(s string) (time.Time, error) {
	for _, layout := range mutationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized mutation date %q", s)
}

func field(row []string, index map[string]int, name string) string {
	idx, ok := index[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
