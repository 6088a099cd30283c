package http

import (
	"net/http"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type profileRequest struct {
	Nickname string `json:"nickname"`
	Emoji    string `json:"emoji"`
	Region   string `json:"region"`
}

// handleCreateUser handles POST /api/v1/users
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		notConfigured(w)
		return
	}
	var req profileRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Users.Create(r.Context(), command.CreateUserCommand{
		Nickname: req.Nickname,
		Emoji:    req.Emoji,
		Region:   req.Region,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentUser(u))
}

// handleUpdateProfile handles PATCH /api/v1/users/{id}
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		notConfigured(w)
		return
	}
	var req profileRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Users.UpdateProfile(r.Context(), command.UpdateProfileCommand{
		UserID:   pathID(r),
		Nickname: req.Nickname,
		Emoji:    req.Emoji,
		Region:   req.Region,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentUser(u))
}

// handleGetProfile handles GET /api/v1/users/{id}
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Profiles == nil {
		notConfigured(w)
		return
	}
	profile, err := s.deps.Profiles.Handle(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleCheckIn handles POST /api/v1/users/{id}/check-in
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	res, err := s.deps.Actions.DailyCheckIn(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard?region=&limit=&offset=
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.deps.Leaderboard == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	result, err := s.deps.Leaderboard.Handle(r.Context(), query.GetLeaderboardQuery{
		Region: r.URL.Query().Get("region"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{
		Limit:   page.Limit,
		Offset:  page.Offset,
		Total:   result.TotalCount,
		HasMore: result.HasMore,
	})
}
