package http

import (
	"errors"
	"net/http"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/logger"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// POSTS & COMMENTS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPosts handles GET /api/v1/posts?region=
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	posts, err := s.deps.Community.ListPosts(r.Context(), shared.NormalizeRegion(r.URL.Query().Get("region")), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]postView, len(posts))
	for i, p := range posts {
		out[i] = presentPost(p)
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

// handleGetPost handles GET /api/v1/posts/{id}
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	p, err := s.deps.Community.GetPost(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentPost(p))
}

type createPostRequest struct {
	UserID string `json:"user_id"`
	Body   string `json:"body"`
	Region string `json:"region"`
}

// handleCreatePost handles POST /api/v1/posts
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req createPostRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.CreatePost(r.Context(), req.UserID, req.Body, req.Region)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusCreated, res)
}

// handleListComments handles GET /api/v1/posts/{id}/comments
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	comments, err := s.deps.Community.ListComments(r.Context(), pathID(r), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]commentView, len(comments))
	for i, c := range comments {
		out[i] = commentView{ID: c.ID, PostID: c.PostID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt}
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

type createCommentRequest struct {
	UserID string `json:"user_id"`
	Body   string `json:"body"`
}

// handleCreateComment handles POST /api/v1/posts/{id}/comments
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req createCommentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.CreateComment(r.Context(), req.UserID, pathID(r), req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusCreated, res)
}

// handleLikePost handles POST /api/v1/posts/{id}/like
func (s *Server) handleLikePost(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req userRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.LikePost(r.Context(), req.UserID, pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLLS
// ══════════════════════════════════════════════════════════════════════════════

// handleListPolls handles GET /api/v1/polls
func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	polls, err := s.deps.Community.ListPolls(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := timeutil.Now()
	out := make([]pollView, len(polls))
	for i, p := range polls {
		out[i] = presentPoll(p, now)
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

// handleGetPoll handles GET /api/v1/polls/{id}
func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	p, err := s.deps.Community.GetPoll(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentPoll(p, timeutil.Now()))
}

type votePollRequest struct {
	UserID   string `json:"user_id"`
	OptionID string `json:"option_id"`
}

// handleVotePoll handles POST /api/v1/polls/{id}/vote
func (s *Server) handleVotePoll(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req votePollRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.VotePoll(r.Context(), req.UserID, pathID(r), req.OptionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// handleCreatePoll handles POST /api/v1/admin/polls
func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreatePollCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.Content.CreatePoll(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentPoll(p, timeutil.Now()))
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORIES
// ══════════════════════════════════════════════════════════════════════════════

// handleListMemories handles GET /api/v1/memories
func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	memories, err := s.deps.Community.ListMemories(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]memoryView, len(memories))
	for i, m := range memories {
		out[i] = presentMemory(m)
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

// handleGetMemory handles GET /api/v1/memories/{id}. Candle counts come from
// the ledger.
func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Memories == nil {
		notConfigured(w)
		return
	}
	m, err := s.deps.Memories.Handle(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentMemory(m))
}

// handleCreateMemory handles POST /api/v1/memories
func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateMemoryCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Content.CreateMemory(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentMemory(m))
}

// handleLightCandle handles POST /api/v1/memories/{id}/candles
func (s *Server) handleLightCandle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req userRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.LightCandle(r.Context(), req.UserID, pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// handleUploadMemoryPhoto handles POST /api/v1/admin/memories/{id}/photo as
// multipart/form-data with a "photo" file part.
func (s *Server) handleUploadMemoryPhoto(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, shared.Validationf("community", "AttachPhoto", "photo exceeds %d bytes", maxErr.Limit))
			return
		}
		s.writeError(w, r, shared.Validationf("community", "AttachPhoto", "expected a multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("photo")
	if err != nil {
		s.writeError(w, r, shared.Validationf("community", "AttachPhoto", "photo part is missing"))
		return
	}
	defer file.Close()

	url, err := s.deps.Content.AttachMemoryPhoto(r.Context(),
		pathID(r), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("memory photo uploaded", logger.String("memory_id", pathID(r)))
	writeJSON(w, http.StatusOK, map[string]string{"photo_url": url})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

// handleListChallenges handles GET /api/v1/challenges
func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	if s.deps.Community == nil {
		notConfigured(w)
		return
	}
	page := pageFromQuery(r)
	challenges, err := s.deps.Community.ListChallenges(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	now := timeutil.Now()
	out := make([]challengeView, len(challenges))
	for i, c := range challenges {
		out[i] = presentChallenge(c, now)
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{Limit: page.Limit, Offset: page.Offset})
}

// handleCompleteChallenge handles POST /api/v1/challenges/{id}/complete
func (s *Server) handleCompleteChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req userRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.CompleteChallenge(r.Context(), req.UserID, pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// handleCreateChallenge handles POST /api/v1/admin/challenges
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateChallengeCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.deps.Content.CreateChallenge(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentChallenge(c, timeutil.Now()))
}
