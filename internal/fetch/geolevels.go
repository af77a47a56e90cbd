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

// GeoLevels retrieves the commune registry valid at the given date from the
// BFS geographic-levels service, with French labels.
func (c *Client) GeoLevels(ctx context.Context, asOf time.Time) ([]models.GeoLevel, error) {
	q := url.Values{}
	q.Set("startPeriod", asOf.Format(queryDateFormat))
	q.Set("endPeriod", asOf.Format(queryDateFormat))
	q.Set("useBfsCode", "false")
	q.Set("labelLanguages", "fr")
	q.Set("format", "csv")

	log.Printf("Fetching geographic levels for %s...", asOf.Format(queryDateFormat))
	body, err := c.get(ctx, c.GeoLevelsURL+"?"+q.Encode())
	if err != nil {
		return nil, NewError("download", err)
	}

	levels, err := parseGeoLevelsCSV(body)
	if err != nil {
		return nil, NewError("decode", err)
	}
	log.Printf("Fetched %d communes", len(levels))
	return levels, nil
}

func parseGeoLevelsCSV(body []byte) ([]models.GeoLevel, error) {
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
	for _, col := range []string{"code_ofs", "name_fr", "hr_hgde_hist_l1"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var levels []models.GeoLevel
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		geocode, err := strconv.Atoi(field(row, index, "code_ofs"))
		if err != nil {
			return nil, fmt.Errorf("invalid CODE_OFS %q: %w", field(row, index, "code_ofs"), err)
		}
		cantonOrder, err := strconv.Atoi(field(row, index, "hr_hgde_hist_l1"))
		if err != nil {
			return nil, fmt.Errorf("invalid HR_HGDE_HIST_L1 for commune %d: %w", geocode, err)
		}
		levels = append(levels, models.GeoLevel{
			Geocode:     geocode,
			NameFR:      field(row, index, "name_fr"),
			CantonOrder: cantonOrder,
		})
	}
	return levels, nil
}
