package command

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/shared"
)

type memCatalog struct {
	politicians map[string]*civic.Politician
	promises    []*civic.Promise
	votes       []*civic.VotingRecord
}

func newMemCatalog() *memCatalog {
	return &memCatalog{politicians: map[string]*civic.Politician{}}
}

func (c *memCatalog) CreatePolitician(_ context.Context, p *civic.Politician) error {
	c.politicians[p.ID] = p
	return nil
}

func (c *memCatalog) GetPolitician(_ context.Context, id string) (*civic.Politician, error) {
	if p, ok := c.politicians[id]; ok {
		return p, nil
	}
	return nil, shared.ErrPoliticianNotFound
}

func (c *memCatalog) ListPoliticians(context.Context, shared.Region, shared.Page) ([]*civic.Politician, error) {
	return nil, nil
}

func (c *memCatalog) CreatePromise(_ context.Context, p *civic.Promise) error {
	c.promises = append(c.promises, p)
	return nil
}

func (c *memCatalog) ListPromises(context.Context, string) ([]*civic.Promise, error) {
	return c.promises, nil
}

func (c *memCatalog) CreateVotingRecord(_ context.Context, r *civic.VotingRecord) error {
	c.votes = append(c.votes, r)
	return nil
}

func (c *memCatalog) ListVotingRecords(context.Context, string, shared.Page) ([]*civic.VotingRecord, error) {
	return c.votes, nil
}
