package models

// CommuneResult is the raw per-municipality result of one ballot, flattened
// from the federal vote-results JSON.
type CommuneResult struct {
	Geocode         int
	CommuneName     string
	CantonID        int
	CantonName      string
	BallotID        int
	BallotName      string
	YesVotes        int
	NoVotes         int
	YesPct          float64
	TurnoutPct      float64
	BallotsReturned int
	EligibleVoters  int
	ValidVotes      int
}

// ProfileRow is one row of the final line-profile table: a harmonized line
// municipality joined with its result for one ballot.
type ProfileRow struct {
	Geocode    int
	Order      int
	Line       string
	Name       string
	NameFR     string
	NameDE     string
	CantonISO2 string
	BallotID   int
	YesPct     float64
}

// BallotTitle is one ballot title in one language. TitleShort starts blank
// and is filled in manually between pipeline runs.
type BallotTitle struct {
	BallotID   int
	Lang       string
	TitleLong  string
	TitleShort string
}
