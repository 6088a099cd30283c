package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/shared"
)

func TestImportPoliticians_ReportsEveryItem(t *testing.T) {
	repo := newMemCatalog()
	h := NewCatalogHandler(repo, nil)

	items := []PoliticianInput{
		{Name: "Jane Wanjiku", Party: "ODM", Position: "Senator", County: "Nairobi"},
		{Name: "Peter Otieno", Party: "UDA", Position: "MP", County: "Kisumu"},
		{Name: "", Position: "MCA"},
		{Name: "Amina Hassan", Position: "Governor", County: "Mombasa"},
		{Name: "John Kariuki", Position: "Women Rep", County: "Nyeri"},
	}

	report := h.ImportPoliticians(context.Background(), items)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.AllSucceeded())
	require.Len(t, report.Results, 5)

	for i, r := range report.Results {
		assert.Equal(t, i, r.Index)
		if i == 2 {
			assert.False(t, r.OK)
			assert.Equal(t, "name is required", r.Error)
			assert.Empty(t, r.ID)
			continue
		}
		assert.True(t, r.OK)
		assert.NotEmpty(t, r.ID)
	}
	assert.Len(t, repo.politicians, 4)
}

func TestImportVotingRecords(t *testing.T) {
	repo := newMemCatalog()
	h := NewCatalogHandler(repo, nil)
	ctx := context.Background()

	p, err := h.CreatePolitician(ctx, PoliticianInput{Name: "Jane Wanjiku", Position: "Senator"})
	require.NoError(t, err)

	report := h.ImportVotingRecords(ctx, []VotingRecordInput{
		{PoliticianID: p.ID, BillTitle: "Finance Bill 2024", Vote: "No", VotedOn: "2024-06-25"},
		{PoliticianID: p.ID, BillTitle: "Finance Bill 2024", Vote: "maybe", VotedOn: "2024-06-25"},
		{PoliticianID: p.ID, BillTitle: "Housing Levy", Vote: "yes", VotedOn: "25/06/2024"},
		{PoliticianID: shared.NewID(), BillTitle: "Housing Levy", Vote: "yes"},
	})

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.True(t, report.Results[0].OK)
	assert.Equal(t, shared.ErrInvalidVote.Message, report.Results[1].Error)
	assert.Equal(t, "voted_on must be YYYY-MM-DD", report.Results[2].Error)
	assert.Equal(t, "politician not found", report.Results[3].Error)
	require.Len(t, repo.votes, 1)
}

func TestCreatePromise(t *testing.T) {
	repo := newMemCatalog()
	h := NewCatalogHandler(repo, nil)
	ctx := context.Background()

	p, err := h.CreatePolitician(ctx, PoliticianInput{Name: "Amina Hassan", Position: "Governor"})
	require.NoError(t, err)

	pr, err := h.CreatePromise(ctx, PromiseInput{PoliticianID: p.ID, Title: "Tarmac 100km of roads"})
	require.NoError(t, err)
	assert.EqualValues(t, "pending", pr.Status)

	_, err = h.CreatePromise(ctx, PromiseInput{PoliticianID: p.ID, Title: "x", Status: "forgotten"})
	assert.True(t, shared.IsValidation(err))

	_, err = h.CreatePromise(ctx, PromiseInput{PoliticianID: shared.NewID(), Title: "x"})
	assert.True(t, shared.IsNotFound(err))
}
