// Package civic holds the accountability catalogue: politicians, the promises
// they made and how they voted.
package civic

import (
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Politician is a public office holder or candidate.
type Politician struct {
	ID        string
	Slug      string
	Name      string
	Party     string
	Position  string
	County    shared.Region
	Bio       string
	PhotoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPolitician validates and builds a catalogue entry.
func NewPolitician(name, party, position, county, bio string, now time.Time) (*Politician, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.Validationf("civic", "CreatePolitician", "name is required")
	}
	position = strings.TrimSpace(position)
	if position == "" {
		return nil, shared.Validationf("civic", "CreatePolitician", "position is required")
	}
	return &Politician{
		ID:        shared.NewID(),
		Slug:      slug.Make(name),
		Name:      name,
		Party:     strings.TrimSpace(party),
		Position:  position,
		County:    shared.NormalizeRegion(county),
		Bio:       strings.TrimSpace(bio),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// PromiseStatus tracks delivery of a campaign promise.
type PromiseStatus string

const (
	PromisePending    PromiseStatus = "pending"
	PromiseInProgress PromiseStatus = "in_progress"
	PromiseFulfilled  PromiseStatus = "fulfilled"
	PromiseBroken     PromiseStatus = "broken"
)

// ParsePromiseStatus accepts the known statuses, defaulting empty to pending.
func ParsePromiseStatus(s string) (PromiseStatus, error) {
	switch st := PromiseStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return PromisePending, nil
	case PromisePending, PromiseInProgress, PromiseFulfilled, PromiseBroken:
		return st, nil
	default:
		return "", shared.Validationf("civic", "Validate", "unknown promise status %q", s)
	}
}

// Promise is a public commitment made by a politician.
type Promise struct {
	ID           string
	PoliticianID string
	Title        string
	Status       PromiseStatus
	SourceURL    string
	CreatedAt    time.Time
}

// NewPromise validates and builds a promise.
func NewPromise(politicianID, title, status, sourceURL string, now time.Time) (*Promise, error) {
	if err := shared.RequireID("civic", "CreatePromise", "politician_id", politicianID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.Validationf("civic", "CreatePromise", "title is required")
	}
	st, err := ParsePromiseStatus(status)
	if err != nil {
		return nil, err
	}
	return &Promise{
		ID:           shared.NewID(),
		PoliticianID: politicianID,
		Title:        title,
		Status:       st,
		SourceURL:    strings.TrimSpace(sourceURL),
		CreatedAt:    now.UTC(),
	}, nil
}

// Vote is how a politician voted on a bill.
type Vote string

const (
	VoteYes     Vote = "yes"
	VoteNo      Vote = "no"
	VoteAbstain Vote = "abstain"
	VoteAbsent  Vote = "absent"
)

// ParseVote accepts yes, no, abstain and absent in any case.
func ParseVote(s string) (Vote, error) {
	switch v := Vote(strings.ToLower(strings.TrimSpace(s))); v {
	case VoteYes, VoteNo, VoteAbstain, VoteAbsent:
		return v, nil
	default:
		return "", shared.ErrInvalidVote
	}
}

// VotingRecord is one vote cast on one bill.
type VotingRecord struct {
	ID           string
	PoliticianID string
	BillTitle    string
	Vote         Vote
	VotedOn      time.Time
	CreatedAt    time.Time
}

// NewVotingRecord validates and builds a voting record.
func NewVotingRecord(politicianID, billTitle, vote string, votedOn, now time.Time) (*VotingRecord, error) {
	if err := shared.RequireID("civic", "RecordVote", "politician_id", politicianID); err != nil {
		return nil, err
	}
	billTitle = strings.TrimSpace(billTitle)
	if billTitle == "" {
		return nil, shared.Validationf("civic", "RecordVote", "bill title is required")
	}
	v, err := ParseVote(vote)
	if err != nil {
		return nil, err
	}
	if votedOn.IsZero() {
		return nil, shared.Validationf("civic", "RecordVote", "voted_on is required")
	}
	return &VotingRecord{
		ID:           shared.NewID(),
		PoliticianID: politicianID,
		BillTitle:    billTitle,
		Vote:         v,
		VotedOn:      votedOn.UTC(),
		CreatedAt:    now.UTC(),
	}, nil
}
