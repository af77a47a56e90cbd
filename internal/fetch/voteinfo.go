package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// VoteInfo is the federal vote-results JSON published on a voting date.
// Only the nationwide block is used; it contains every ballot with its
// per-canton, per-commune results.
type VoteInfo struct {
	Schweiz struct {
		Vorlagen []Vorlage `json:"vorlagen"`
	} `json:"schweiz"`
}

// Vorlage is one ballot with its titles and per-canton results.
type Vorlage struct {
	ID      int        `json:"vorlagenId"`
	Titles  []LangText `json:"vorlagenTitel"`
	Kantone []Kanton   `json:"kantone"`
}

// LangText is a translated title string.
type LangText struct {
	LangKey string `json:"langKey"`
	Text    string `json:"text"`
}

// Kanton is one canton block with its communes.
type Kanton struct {
	Number    string     `json:"geoLevelnummer"`
	Name      string     `json:"geoLevelname"`
	Gemeinden []Gemeinde `json:"gemeinden"`
}

// Gemeinde is one commune with its result for the enclosing ballot.
type Gemeinde struct {
	Number   string   `json:"geoLevelnummer"`
	Name     string   `json:"geoLevelname"`
	Resultat Resultat `json:"resultat"`
}

// Resultat holds the vote counts of one commune. Fields are null in the
// JSON while a commune is still counting; they decode to zero then.
type Resultat struct {
	YesVotes        int     `json:"jaStimmenAbsolut"`
	NoVotes         int     `json:"neinStimmenAbsolut"`
	YesPct          float64 `json:"jaStimmenInProzent"`
	TurnoutPct      float64 `json:"stimmbeteiligungInProzent"`
	BallotsReturned int     `json:"eingelegteStimmzettel"`
	EligibleVoters  int     `json:"anzahlStimmberechtigte"`
	ValidVotes      int     `json:"gueltigeStimmen"`
}

// Title returns the ballot title in the given language, or "" when the
// language is not published.
func (v *Vorlage) Title(langKey string) string {
	for _, t := range v.Titles {
		if t.LangKey == langKey {
			return t.Text
		}
	}
	return ""
}

// VoteInfo downloads and decodes the vote-results JSON from the configured
// URL for the voting date.
func (c *Client) VoteInfo(ctx context.Context, url string) (*VoteInfo, error) {
	log.Printf("Fetching vote results from: %s", url)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, NewError("download", err)
	}

	var info VoteInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, NewError("decode", fmt.Errorf("unexpected JSON shape: %w", err))
	}
	if len(info.Schweiz.Vorlagen) == 0 {
		return nil, NewError("decode", fmt.Errorf("unexpected JSON shape: no ballots under schweiz.vorlagen"))
	}
	log.Printf("Fetched results for %d ballots", len(info.Schweiz.Vorlagen))
	return &info, nil
}
