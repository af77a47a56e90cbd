package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"roestigraben/internal/fetch"
	"roestigraben/internal/harmonize"
	"roestigraben/internal/models"
	"roestigraben/internal/reference"
	"roestigraben/internal/report"
	"roestigraben/internal/resolver"
	"roestigraben/internal/results"
	"roestigraben/internal/storage"
)

const (
	// The vote-results JSON URL for a voting date is listed on
	// https://opendata.swiss/de/dataset/echtzeitdaten-am-abstimmungstag-zu-eidgenoessischen-abstimmungsvorlagen
	defaultResultsURL = "https://ogd-static.voteinfo-app.ch/v1/ogd/sd-t-17-02-20241124-eidgAbstimmung.json"
	defaultVotingDate = "2024-11-24"

	// The line CSVs were built against the 2024 commune registry, so
	// mutations are harvested from the start of that year.
	defaultMutationsSince = "2024-01-01"
)

// lineFiles names the line municipality lists under the input directory.
var lineFiles = map[string]string{
	"ic_1":  "InterCity_1_communes.csv",
	"ic_21": "InterCity_21_communes.csv",
}

func main() {
	resultsURL := flag.String("results-url", defaultResultsURL, "Vote-results JSON URL for the voting date")
	votingDate := flag.String("voting-date", defaultVotingDate, "Voting date (YYYY-MM-DD)")
	inputDir := flag.String("input-dir", "input/processed", "Directory with the line, canton and translation CSVs")
	outputDir := flag.String("output-dir", "output", "Directory for the generated CSVs")
	dataDir := flag.String("data-dir", "pb_data", "PocketBase data directory for the run store (empty disables it)")
	mutationsSince := flag.String("mutations-since", defaultMutationsSince, "Start of the commune mutation window (YYYY-MM-DD)")
	flag.Parse()

	if err := run(*resultsURL, *votingDate, *inputDir, *outputDir, *dataDir, *mutationsSince); err != nil {
		log.Fatal(err)
	}
}

func run(resultsURL, votingDate, inputDir, outputDir, dataDir, mutationsSince string) error {
	target, err := time.Parse("2006-01-02", votingDate)
	if err != nil {
		return fmt.Errorf("invalid voting date %q: %w", votingDate, err)
	}
	since, err := time.Parse("2006-01-02", mutationsSince)
	if err != nil {
		return fmt.Errorf("invalid mutation window start %q: %w", mutationsSince, err)
	}

	ctx := context.Background()
	log.Printf("=== Vote pipeline for %s ===", votingDate)

	// 1. Line municipality lists.
	lines := make([]string, 0, len(lineFiles))
	for line := range lineFiles {
		lines = append(lines, line)
	}
	sort.Strings(lines)

	var entries []models.LineEntry
	for _, line := range lines {
		path := filepath.Join(inputDir, lineFiles[line])
		lineEntries, err := reference.LoadLineMunicipalities(path, line)
		if err != nil {
			return err
		}
		log.Printf("Loaded %d municipalities for line %s", len(lineEntries), line)
		entries = append(entries, lineEntries...)
	}

	// 2. Commune mutations. A fetch failure downgrades to a warning: codes
	// then pass through unchanged and are still validated against the
	// registry below.
	client := fetch.NewClient()
	mutations, err := client.Mutations(ctx, since, time.Now())
	if err != nil {
		log.Printf("Warning: could not fetch commune mutations: %v", err)
		log.Printf("Continuing without mutation data...")
		mutations = nil
	}
	res := resolver.New(mutations, target)
	log.Printf("%d commune mutations apply on %s", res.Len(), votingDate)

	// 3. Reference data.
	levels, err := client.GeoLevels(ctx, time.Now())
	if err != nil {
		return err
	}
	cantons, err := reference.LoadCantons(filepath.Join(inputDir, "canton_iso2.csv"))
	if err != nil {
		return err
	}
	translations, err := reference.LoadTranslations(filepath.Join(inputDir, "translations.csv"))
	if err != nil {
		log.Printf("Warning: could not load translations: %v", err)
		log.Printf("Continuing with French reference names...")
		translations = nil
	}

	// 4. Harmonize.
	harmonizer := harmonize.New(res, levels, cantons, translations)
	harmonized, err := harmonizer.Harmonize(entries)
	if err != nil {
		return err
	}
	for _, d := range harmonized.Duplicates {
		log.Printf("Line %s: orders %v merged into commune %d", d.Line, d.Orders, d.Geocode)
	}
	if len(harmonized.Unresolved) > 0 {
		for _, u := range harmonized.Unresolved {
			log.Printf("Unresolved: geocode %d (line %s, order %d) -> %d: %s",
				u.Entry.Geocode, u.Entry.Line, u.Entry.Order, u.Canonical, u.Reason)
		}
		return fmt.Errorf("%d line municipalities could not be resolved", len(harmonized.Unresolved))
	}

	harmonizedPath := filepath.Join(outputDir, fmt.Sprintf("intercity_harmonized_%s.csv", votingDate))
	if err := report.WriteHarmonized(harmonizedPath, harmonized.Municipalities); err != nil {
		return err
	}
	log.Printf("Wrote %d harmonized municipalities to %s", len(harmonized.Municipalities), harmonizedPath)

	// 5. Vote results.
	info, err := client.VoteInfo(ctx, resultsURL)
	if err != nil {
		return err
	}

	titles := results.Titles(info)
	ballotsPath := filepath.Join(outputDir, fmt.Sprintf("ballot_name_%s.csv", votingDate))
	if err := report.WriteBallotTitles(ballotsPath, titles); err != nil {
		return err
	}
	log.Printf("Wrote %d ballot titles to %s (fill in title_short manually)", len(titles), ballotsPath)

	flat, err := results.Flatten(info)
	if err != nil {
		return err
	}
	communesPath := filepath.Join(outputDir, fmt.Sprintf("df_votes_%s_municipalities.csv", votingDate))
	if err := report.WriteCommuneResults(communesPath, flat); err != nil {
		return err
	}
	log.Printf("Wrote %d nationwide results to %s", len(flat), communesPath)

	// 6. Join and final profile table.
	profiles, missing := results.Join(harmonized.Municipalities, flat)
	for _, m := range missing {
		log.Printf("No results for %s (ID: %d, line: %s)", m.Name, m.Geocode, m.Line)
	}
	profilesPath := filepath.Join(outputDir, fmt.Sprintf("profil_results_%s.csv", votingDate))
	if err := report.WriteProfiles(profilesPath, profiles); err != nil {
		return err
	}
	log.Printf("Wrote %d profile rows to %s", len(profiles), profilesPath)

	// 7. Run store.
	if dataDir == "" {
		log.Printf("Run store disabled")
		log.Printf("Pipeline finished for %s", votingDate)
		return nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.NewPocketBaseStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize run store: %w", err)
	}
	if err := store.SaveMunicipalities(votingDate, harmonized.Municipalities); err != nil {
		return err
	}
	if err := store.SaveProfiles(votingDate, profiles); err != nil {
		return err
	}
	if err := store.SaveBallotTitles(votingDate, titles); err != nil {
		return err
	}
	log.Printf("Persisted run to %s", dataDir)

	log.Printf("Pipeline finished for %s", votingDate)
	return nil
}
