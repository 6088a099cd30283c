package command

import (
	"context"
	"log/slog"

	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CIVIC CATALOG COMMANDS
// Single writes and bulk imports of politicians and voting records. Bulk
// imports write each item independently and report every outcome.
// ══════════════════════════════════════════════════════════════════════════════

// PoliticianInput is one politician to create.
type PoliticianInput struct {
	Name     string `json:"name"`
	Party    string `json:"party"`
	Position string `json:"position"`
	County   string `json:"county"`
	Bio      string `json:"bio"`
}

// PromiseInput is one promise to record.
type PromiseInput struct {
	PoliticianID string `json:"politician_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	SourceURL    string `json:"source_url"`
}

// VotingRecordInput is one vote to record. VotedOn is YYYY-MM-DD.
type VotingRecordInput struct {
	PoliticianID string `json:"politician_id"`
	BillTitle    string `json:"bill_title"`
	Vote         string `json:"vote"`
	VotedOn      string `json:"voted_on"`
}

// ImportItemResult is the outcome for one item of a bulk import.
type ImportItemResult struct {
	Index int    `json:"index"`
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportReport summarises a bulk import.
type ImportReport struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
	Results   []ImportItemResult `json:"results"`
}

// AllSucceeded reports whether no item failed.
func (r *ImportReport) AllSucceeded() bool {
	return r.Failed == 0
}

func (r *ImportReport) record(index int, id string, err error) {
	item := ImportItemResult{Index: index, OK: err == nil, ID: id}
	if err != nil {
		item.Error = shared.PublicMessage(err, "internal error")
		item.ID = ""
		r.Failed++
	} else {
		r.Succeeded++
	}
	r.Results = append(r.Results, item)
}

// CatalogHandler handles writes to the civic catalogue.
type CatalogHandler struct {
	repo   civic.Repository
	clock  timeutil.Clock
	logger *slog.Logger
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(repo civic.Repository, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogHandler{
		repo:   repo,
		clock:  timeutil.SystemClock,
		logger: logger.With("handler", "catalog"),
	}
}

// CreatePolitician stores one politician.
func (h *CatalogHandler) CreatePolitician(ctx context.Context, in PoliticianInput) (*civic.Politician, error) {
	p, err := civic.NewPolitician(in.Name, in.Party, in.Position, in.County, in.Bio, h.clock())
	if err != nil {
		return nil, err
	}
	if err := h.repo.CreatePolitician(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreatePromise stores one promise for an existing politician.
func (h *CatalogHandler) CreatePromise(ctx context.Context, in PromiseInput) (*civic.Promise, error) {
	p, err := civic.NewPromise(in.PoliticianID, in.Title, in.Status, in.SourceURL, h.clock())
	if err != nil {
		return nil, err
	}
	if _, err := h.repo.GetPolitician(ctx, p.PoliticianID); err != nil {
		return nil, err
	}
	if err := h.repo.CreatePromise(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordVote stores one voting record for an existing politician.
func (h *CatalogHandler) RecordVote(ctx context.Context, in VotingRecordInput) (*civic.VotingRecord, error) {
	votedOn := h.clock()
	if in.VotedOn != "" {
		d, err := timeutil.ParseDay(in.VotedOn)
		if err != nil {
			return nil, shared.Validationf("civic", "RecordVote", "voted_on must be YYYY-MM-DD")
		}
		votedOn = d
	}
	r, err := civic.NewVotingRecord(in.PoliticianID, in.BillTitle, in.Vote, votedOn, h.clock())
	if err != nil {
		return nil, err
	}
	if _, err := h.repo.GetPolitician(ctx, r.PoliticianID); err != nil {
		return nil, err
	}
	if err := h.repo.CreateVotingRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ImportPoliticians creates every item independently.
func (h *CatalogHandler) ImportPoliticians(ctx context.Context, items []PoliticianInput) *ImportReport {
	report := &ImportReport{Total: len(items), Results: make([]ImportItemResult, 0, len(items))}
	for i, in := range items {
		p, err := h.CreatePolitician(ctx, in)
		id := ""
		if p != nil {
			id = p.ID
		}
		report.record(i, id, err)
		if err != nil {
			h.logger.Warn("politician import item failed", "index", i, "error", err)
		}
	}
	h.logger.Info("politician import finished",
		"total", report.Total, "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}

// ImportVotingRecords creates every item independently.
func (h *CatalogHandler) ImportVotingRecords(ctx context.Context, items []VotingRecordInput) *ImportReport {
	report := &ImportReport{Total: len(items), Results: make([]ImportItemResult, 0, len(items))}
	for i, in := range items {
		r, err := h.RecordVote(ctx, in)
		id := ""
		if r != nil {
			id = r.ID
		}
		report.record(i, id, err)
		if err != nil {
			h.logger.Warn("voting record import item failed", "index", i, "error", err)
		}
	}
	h.logger.Info("voting record import finished",
		"total", report.Total, "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}
