package models

import (
	"fmt"
	"time"
)

// LineEntry is one municipality position on a named railway line, as read
// from the static line CSVs. Geocode is the historical BFS commune number
// the file was built with; it may since have been merged away.
type LineEntry struct {
	Line    string `json:"line"`
	Order   int    `json:"order"`
	Geocode int    `json:"geocode"`
}

// Validate ensures all required fields are present and valid
func (e *LineEntry) Validate() error {
	if e.Line == "" {
		return fmt.Errorf("line name is required")
	}
	if e.Geocode <= 0 {
		return fmt.Errorf("invalid geocode: %d", e.Geocode)
	}
	return nil
}

// Mutation is one commune mutation from the BFS mutation API: the initial
// geocode stopped being valid on Date and TerminalCode succeeded it.
type Mutation struct {
	InitialCode  int       `json:"initial_code"`
	TerminalCode int       `json:"terminal_code"`
	Date         time.Time `json:"date"`
}

// GeoLevel is one row of the BFS geographic-levels registry: the communes
// valid at the requested date, with their French label and the statistical
// order number of their canton.
type GeoLevel struct {
	Geocode     int    `json:"geocode"`
	NameFR      string `json:"name_fr"`
	CantonOrder int    `json:"canton_order"`
}

// Translation maps an official French commune name to its display names.
type Translation struct {
	PolgName string `json:"polg_name"`
	FR       string `json:"fr"`
	DE       string `json:"de"`
}

// Municipality is one harmonized line municipality: the canonical geocode
// valid on the voting date together with its names and canton.
type Municipality struct {
	Order      int    `json:"order"`
	Line       string `json:"line"`
	Geocode    int    `json:"geocode"`
	Name       string `json:"name"`
	CantonISO2 string `json:"canton_iso2"`
	NameFR     string `json:"name_fr"`
	NameDE     string `json:"name_de"`
}

// Validate ensures all required fields are present and valid
func (m *Municipality) Validate() error {
	if m.Line == "" {
		return fmt.Errorf("line name is required")
	}
	if m.Geocode <= 0 {
		return fmt.Errorf("invalid geocode: %d", m.Geocode)
	}
	if m.Name == "" {
		return fmt.Errorf("municipality name is required")
	}
	return nil
}
