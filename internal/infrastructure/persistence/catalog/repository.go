// Package catalog stores the civic catalogue (politicians, promises and
// voting records) through gorm. The catalogue is plain CRUD with no ledger
// involvement, so it shares the pgx pool through database/sql.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MODELS
// Tables are created by the schema reconciler; gorm never migrates them.
// ══════════════════════════════════════════════════════════════════════════════

type politicianModel struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Slug      string
	Name      string
	Party     string
	Position  string
	County    string
	Bio       string
	PhotoURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (politicianModel) TableName() string { return "politicians" }

type promiseModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	PoliticianID string `gorm:"type:uuid"`
	Title        string
	Status       string
	SourceURL    string
	CreatedAt    time.Time
}

func (promiseModel) TableName() string { return "promises" }

type votingRecordModel struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	PoliticianID string `gorm:"type:uuid"`
	BillTitle    string
	Vote         string
	VotedOn      time.Time `gorm:"type:date"`
	CreatedAt    time.Time
}

func (votingRecordModel) TableName() string { return "voting_records" }

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// Repository implements civic.Repository with gorm.
type Repository struct {
	db *gorm.DB
}

var _ civic.Repository = (*Repository)(nil)

// Open wraps an existing database/sql handle in gorm.
func Open(sqlDB *sql.DB, debug bool) (*Repository, error) {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: open gorm: %w", err)
	}
	return &Repository{db: db}, nil
}

// New wraps an already configured gorm handle.
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ─────────────────────────────────────────────────────────────────────────────
// Politicians
// ─────────────────────────────────────────────────────────────────────────────

func (r *Repository) CreatePolitician(ctx context.Context, p *civic.Politician) error {
	m := politicianModel{
		ID:        p.ID,
		Slug:      p.Slug,
		Name:      p.Name,
		Party:     p.Party,
		Position:  p.Position,
		County:    string(p.County),
		Bio:       p.Bio,
		PhotoURL:  p.PhotoURL,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError("civic", "CreatePolitician", shared.ErrAlreadyExists, "politician already exists")
		}
		return fmt.Errorf("failed to create politician: %w", err)
	}
	return nil
}

func (r *Repository) GetPolitician(ctx context.Context, id string) (*civic.Politician, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrPoliticianNotFound
	}
	var m politicianModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrPoliticianNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get politician: %w", err)
	}
	return m.toDomain(), nil
}

// ListPoliticians returns politicians by name, optionally for one county.
func (r *Repository) ListPoliticians(ctx context.Context, county shared.Region, page shared.Page) ([]*civic.Politician, error) {
	q := r.db.WithContext(ctx).Model(&politicianModel{})
	if county != "" {
		q = q.Where("county = ?", string(county))
	}

	var models []politicianModel
	if err := q.Order("name").Limit(page.Limit).Offset(page.Offset).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list politicians: %w", err)
	}

	out := make([]*civic.Politician, len(models))
	for i := range models {
		out[i] = models[i].toDomain()
	}
	return out, nil
}

func (m politicianModel) toDomain() *civic.Politician {
	return &civic.Politician{
		ID:        m.ID,
		Slug:      m.Slug,
		Name:      m.Name,
		Party:     m.Party,
		Position:  m.Position,
		County:    shared.Region(m.County),
		Bio:       m.Bio,
		PhotoURL:  m.PhotoURL,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Promises
// ─────────────────────────────────────────────────────────────────────────────

func (r *Repository) CreatePromise(ctx context.Context, p *civic.Promise) error {
	m := promiseModel{
		ID:           p.ID,
		PoliticianID: p.PoliticianID,
		Title:        p.Title,
		Status:       string(p.Status),
		SourceURL:    p.SourceURL,
		CreatedAt:    p.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return shared.ErrPoliticianNotFound
		}
		return fmt.Errorf("failed to create promise: %w", err)
	}
	return nil
}

func (r *Repository) ListPromises(ctx context.Context, politicianID string) ([]*civic.Promise, error) {
	if !shared.IsValidID(politicianID) {
		return nil, shared.ErrPoliticianNotFound
	}
	var models []promiseModel
	err := r.db.WithContext(ctx).
		Where("politician_id = ?", politicianID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list promises: %w", err)
	}

	out := make([]*civic.Promise, len(models))
	for i, m := range models {
		out[i] = &civic.Promise{
			ID:           m.ID,
			PoliticianID: m.PoliticianID,
			Title:        m.Title,
			Status:       civic.PromiseStatus(m.Status),
			SourceURL:    m.SourceURL,
			CreatedAt:    m.CreatedAt,
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Voting records
// ─────────────────────────────────────────────────────────────────────────────

func (r *Repository) CreateVotingRecord(ctx context.Context, v *civic.VotingRecord) error {
	m := votingRecordModel{
		ID:           v.ID,
		PoliticianID: v.PoliticianID,
		BillTitle:    v.BillTitle,
		Vote:         string(v.Vote),
		VotedOn:      toDateColumn(v.VotedOn),
		CreatedAt:    v.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return shared.ErrPoliticianNotFound
		}
		return fmt.Errorf("failed to create voting record: %w", err)
	}
	return nil
}

// ListVotingRecords returns the most recent votes first.
func (r *Repository) ListVotingRecords(ctx context.Context, politicianID string, page shared.Page) ([]*civic.VotingRecord, error) {
	if !shared.IsValidID(politicianID) {
		return nil, shared.ErrPoliticianNotFound
	}
	var models []votingRecordModel
	err := r.db.WithContext(ctx).
		Where("politician_id = ?", politicianID).
		Order("voted_on DESC, created_at DESC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list voting records: %w", err)
	}

	out := make([]*civic.VotingRecord, len(models))
	for i, m := range models {
		out[i] = &civic.VotingRecord{
			ID:           m.ID,
			PoliticianID: m.PoliticianID,
			BillTitle:    m.BillTitle,
			Vote:         civic.Vote(m.Vote),
			VotedOn:      fromDateColumn(m.VotedOn),
			CreatedAt:    m.CreatedAt,
		}
	}
	return out, nil
}

// toDateColumn keeps the Nairobi calendar day when the driver drops the zone.
func toDateColumn(t time.Time) time.Time {
	n := timeutil.ToNairobi(t)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

func fromDateColumn(t time.Time) time.Time {
	return timeutil.Date(t.Year(), t.Month(), t.Day())
}
