package civic

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Repository stores the civic catalogue.
type Repository interface {
	CreatePolitician(ctx context.Context, p *Politician) error
	GetPolitician(ctx context.Context, id string) (*Politician, error)
	ListPoliticians(ctx context.Context, county shared.Region, page shared.Page) ([]*Politician, error)

	CreatePromise(ctx context.Context, p *Promise) error
	ListPromises(ctx context.Context, politicianID string) ([]*Promise, error)

	CreateVotingRecord(ctx context.Context, r *VotingRecord) error
	ListVotingRecords(ctx context.Context, politicianID string, page shared.Page) ([]*VotingRecord, error)
}
