package http

import (
	"net/http"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CIVIC CATALOGUE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// maxImportItems bounds one import request.
const maxImportItems = 1000

// handleListPoliticians handles GET /api/v1/politicians?county=
func (s *Server) handleListPoliticians(w http.ResponseWriter, r *http.Request) {
	if s.deps.Civic == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	list, err := s.deps.Civic.ListPoliticians(r.Context(), shared.NormalizeRegion(r.URL.Query().Get("county")), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]politicianView, len(list))
	for i, p := range list {
		out[i] = presentPolitician(p)
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

// handleGetPolitician handles GET /api/v1/politicians/{id} with promises
// and the latest page of votes.
func (s *Server) handleGetPolitician(w http.ResponseWriter, r *http.Request) {
	if s.deps.Civic == nil {
		notConfigured(w)
		return
	}
	ctx := r.Context()
	p, err := s.deps.Civic.GetPolitician(ctx, pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	promises, err := s.deps.Civic.ListPromises(ctx, p.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	votes, err := s.deps.Civic.ListVotingRecords(ctx, p.ID, pageFromQuery(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := presentPolitician(p)
	view.Promises = make([]promiseView, len(promises))
	for i, pr := range promises {
		view.Promises[i] = presentPromise(pr)
	}
	view.Votes = make([]voteView, len(votes))
	for i, v := range votes {
		view.Votes[i] = presentVote(v)
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreatePolitician handles POST /api/v1/admin/politicians
func (s *Server) handleCreatePolitician(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	var in command.PoliticianInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Catalog.CreatePolitician(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentPolitician(p))
}

// handleCreatePromise handles POST /api/v1/admin/politicians/{id}/promises
func (s *Server) handleCreatePromise(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	var in command.PromiseInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.PoliticianID = pathID(r)
	p, err := s.deps.Catalog.CreatePromise(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentPromise(p))
}

// handleRecordVote handles POST /api/v1/admin/politicians/{id}/votes
func (s *Server) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	var in command.VotingRecordInput
	if err := s.decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.PoliticianID = pathID(r)
	v, err := s.deps.Catalog.RecordVote(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentVote(v))
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk import
// ─────────────────────────────────────────────────────────────────────────────

// handleImportPoliticians handles POST /api/v1/admin/import/politicians with
// a JSON array body.
func (s *Server) handleImportPoliticians(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	var items []command.PoliticianInput
	if err := s.decodeImport(w, r, &items, func() int { return len(items) }); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeImportReport(w, r, "politicians", s.deps.Catalog.ImportPoliticians(r.Context(), items))
}

// handleImportVotingRecords handles POST /api/v1/admin/import/voting-records
func (s *Server) handleImportVotingRecords(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		notConfigured(w)
		return
	}
	var items []command.VotingRecordInput
	if err := s.decodeImport(w, r, &items, func() int { return len(items) }); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeImportReport(w, r, "voting_records", s.deps.Catalog.ImportVotingRecords(r.Context(), items))
}

func (s *Server) decodeImport(w http.ResponseWriter, r *http.Request, dst any, count func() int) error {
	if err := s.decodeJSON(w, r, dst); err != nil {
		return err
	}
	switch n := count(); {
	case n == 0:
		return shared.Validationf("civic", "Import", "import contains no items")
	case n > maxImportItems:
		return shared.Validationf("civic", "Import", "import is limited to %d items", maxImportItems)
	}
	return nil
}

// writeImportReport answers 200 when every item was stored and 207 when
// some failed.
func (s *Server) writeImportReport(w http.ResponseWriter, r *http.Request, kind string, report *command.ImportReport) {
	status := http.StatusOK
	if !report.AllSucceeded() {
		status = http.StatusMultiStatus
	}
	if report.Failed > 0 {
		logger.FromContext(r.Context()).Warn("catalog import partially failed",
			logger.String("kind", kind),
			logger.Int("failed", report.Failed),
		)
	}
	writeJSON(w, status, report)
}
