package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "politicians", politicianModel{}.TableName())
	assert.Equal(t, "promises", promiseModel{}.TableName())
	assert.Equal(t, "voting_records", votingRecordModel{}.TableName())
}

func TestDateColumnKeepsNairobiDay(t *testing.T) {
	day := timeutil.Date(2024, time.June, 25)

	// 2024-06-24T21:00Z is still the 25th in Nairobi.
	col := toDateColumn(day.UTC())
	assert.Equal(t, time.Date(2024, time.June, 25, 0, 0, 0, 0, time.UTC), col)

	back := fromDateColumn(col)
	assert.True(t, back.Equal(day))
	assert.Equal(t, "2024-06-25", timeutil.DayKey(back))
}

func TestPoliticianToDomain(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m := politicianModel{
		ID:        shared.NewID(),
		Slug:      "jane-doe",
		Name:      "Jane Doe",
		Position:  "Senator",
		County:    "nairobi",
		CreatedAt: now,
		UpdatedAt: now,
	}

	p := m.toDomain()
	assert.Equal(t, m.ID, p.ID)
	assert.Equal(t, shared.Region("nairobi"), p.County)
	assert.Equal(t, "Senator", p.Position)
	assert.Equal(t, now, p.CreatedAt)
}
