// Package storage persists each pipeline run into an embedded PocketBase
// database so past voting dates stay locally queryable. PocketBase is only
// bootstrapped for data access; nothing is served.
package storage

import (
	"fmt"
	"log"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"

	"roestigraben/internal/models"
)

const (
	municipalitiesCollection = "municipalities"
	profilesCollection       = "profile_results"
	ballotsCollection        = "ballot_titles"
)

type PocketBaseStore struct {
	app *pocketbase.PocketBase
}

func NewPocketBaseStore(dataDir string) (*PocketBaseStore, error) {
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: dataDir,
	})

	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
	}

	if err := ensureCollections(app); err != nil {
		return nil, fmt.Errorf("failed to ensure collections exist: %w", err)
	}

	return &PocketBaseStore{app: app}, nil
}

func ensureCollections(app *pocketbase.PocketBase) error {
	collections := []*pbModels.Collection{
		{
			Name: municipalitiesCollection,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				&schema.SchemaField{Name: "voting_date", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "line", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "line_order", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "geocode", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "name", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "canton_iso2", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "name_fr", Type: schema.FieldTypeText},
				&schema.SchemaField{Name: "name_de", Type: schema.FieldTypeText},
			),
		},
		{
			Name: profilesCollection,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				&schema.SchemaField{Name: "voting_date", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "line", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "line_order", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "geocode", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "ballot_id", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "yes_pct", Type: schema.FieldTypeNumber},
			),
		},
		{
			Name: ballotsCollection,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				&schema.SchemaField{Name: "voting_date", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "ballot_id", Type: schema.FieldTypeNumber, Required: true},
				&schema.SchemaField{Name: "lang", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "title_long", Type: schema.FieldTypeText, Required: true},
				&schema.SchemaField{Name: "title_short", Type: schema.FieldTypeText},
			),
		},
	}

	for _, c := range collections {
		if _, err := app.Dao().FindCollectionByNameOrId(c.Name); err == nil {
			continue
		}
		if err := app.Dao().SaveCollection(c); err != nil {
			return fmt.Errorf("failed to save collection %s: %w", c.Name, err)
		}
	}
	return nil
}

// clearRun removes a voting date's records from a collection so re-running
// a date replaces its data instead of duplicating it.
func (s *PocketBaseStore) clearRun(collectionName, votingDate string) error {
	records, err := s.app.Dao().FindRecordsByExpr(collectionName, dbx.HashExp{"voting_date": votingDate})
	if err != nil {
		return fmt.Errorf("failed to fetch existing records: %w", err)
	}
	for _, record := range records {
		if err := s.app.Dao().DeleteRecord(record); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
	}
	if len(records) > 0 {
		log.Printf("Replaced %d existing %s records for %s", len(records), collectionName, votingDate)
	}
	return nil
}

// SaveMunicipalities stores the harmonized table for a voting date.
func (s *PocketBaseStore) SaveMunicipalities(votingDate string, municipalities []models.Municipality) error {
	if err := s.clearRun(municipalitiesCollection, votingDate); err != nil {
		return err
	}
	collection, err := s.app.Dao().FindCollectionByNameOrId(municipalitiesCollection)
	if err != nil {
		return fmt.Errorf("failed to find collection: %w", err)
	}
	for _, m := range municipalities {
		record := pbModels.NewRecord(collection)
		record.Set("voting_date", votingDate)
		record.Set("line", m.Line)
		record.Set("line_order", m.Order)
		record.Set("geocode", m.Geocode)
		record.Set("name", m.Name)
		record.Set("canton_iso2", m.CantonISO2)
		record.Set("name_fr", m.NameFR)
		record.Set("name_de", m.NameDE)
		if err := s.app.Dao().SaveRecord(record); err != nil {
			return fmt.Errorf("failed to save municipality %d: %w", m.Geocode, err)
		}
	}
	return nil
}

// SaveProfiles stores the final per-municipality results for a voting date.
func (s *PocketBaseStore) SaveProfiles(votingDate string, profiles []models.ProfileRow) error {
	if err := s.clearRun(profilesCollection, votingDate); err != nil {
		return err
	}
	collection, err := s.app.Dao().FindCollectionByNameOrId(profilesCollection)
	if err != nil {
		return fmt.Errorf("failed to find collection: %w", err)
	}
	for _, p := range profiles {
		record := pbModels.NewRecord(collection)
		record.Set("voting_date", votingDate)
		record.Set("line", p.Line)
		record.Set("line_order", p.Order)
		record.Set("geocode", p.Geocode)
		record.Set("ballot_id", p.BallotID)
		record.Set("yes_pct", p.YesPct)
		if err := s.app.Dao().SaveRecord(record); err != nil {
			return fmt.Errorf("failed to save result for municipality %d: %w", p.Geocode, err)
		}
	}
	return nil
}

// SaveBallotTitles stores the ballot titles for a voting date.
func (s *PocketBaseStore) SaveBallotTitles(votingDate string, titles []models.BallotTitle) error {
	if err := s.clearRun(ballotsCollection, votingDate); err != nil {
		return err
	}
	collection, err := s.app.Dao().FindCollectionByNameOrId(ballotsCollection)
	if err != nil {
		return fmt.Errorf("failed to find collection: %w", err)
	}
	for _, t := range titles {
		record := pbModels.NewRecord(collection)
		record.Set("voting_date", votingDate)
		record.Set("ballot_id", t.BallotID)
		record.Set("lang", t.Lang)
		record.Set("title_long", t.TitleLong)
		record.Set("title_short", t.TitleShort)
		if err := s.app.Dao().SaveRecord(record); err != nil {
			return fmt.Errorf("failed to save title for ballot %d: %w", t.BallotID, err)
		}
	}
	return nil
}

// ProfilesByBallot returns the stored results of one ballot on one voting
// date, for ad-hoc queries against past runs.
func (s *PocketBaseStore) ProfilesByBallot(votingDate string, ballotID int) ([]models.ProfileRow, error) {
	collection, err := s.app.Dao().FindCollectionByNameOrId(profilesCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	query := s.app.Dao().RecordQuery(collection)
	query.AndWhere(dbx.HashExp{"voting_date": votingDate, "ballot_id": ballotID})

	var records []*pbModels.Record
	if err := query.All(&records); err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}

	profiles := make([]models.ProfileRow, len(records))
	for i, record := range records {
		profiles[i] = models.ProfileRow{
			Geocode:  record.GetInt("geocode"),
			Order:    record.GetInt("line_order"),
			Line:     record.GetString("line"),
			BallotID: record.GetInt("ballot_id"),
			YesPct:   record.GetFloat("yes_pct"),
		}
	}
	return profiles, nil
}
