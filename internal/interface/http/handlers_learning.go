package http

import (
	"net/http"

	"github.com/radake/rada-ke/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// userRequest is the body of every action that only names the acting user.
type userRequest struct {
	UserID string `json:"user_id"`
}

// handleListModules handles GET /api/v1/modules
func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		notConfigured(w)
		return
	}
	modules, err := s.deps.Learning.ListModules(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]moduleView, len(modules))
	for i, m := range modules {
		out[i] = presentModule(m)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetModule handles GET /api/v1/modules/{id}. The module comes with
// its quizzes, without questions.
func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		notConfigured(w)
		return
	}
	m, err := s.deps.Learning.GetModule(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	quizzes, err := s.deps.Learning.ListQuizzes(r.Context(), m.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := presentModule(m)
	view.Quizzes = make([]quizView, len(quizzes))
	for i, q := range quizzes {
		view.Quizzes[i] = presentQuiz(q, false)
	}
	writeJSON(w, http.StatusOK, view)
}

// handleGetLesson handles GET /api/v1/lessons/{id}
func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		notConfigured(w)
		return
	}
	l, err := s.deps.Learning.GetLesson(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentLesson(l))
}

// handleCompleteLesson handles POST /api/v1/lessons/{id}/complete
func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.Actions == nil {
		notConfigured(w)
		return
	}
	var req userRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Actions.CompleteLesson(r.Context(), req.UserID, pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAction(w, r, http.StatusOK, res)
}

// handleGetQuiz handles GET /api/v1/quizzes/{id}. Correct answers stay
// server side.
func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Learning == nil {
		notConfigured(w)
		return
	}
	q, err := s.deps.Learning.GetQuiz(r.Context(), pathID(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presentQuiz(q, true))
}

type submitQuizRequest struct {
	UserID  string   `json:"user_id"`
	Answers []string `json:"answers"`
}

// handleSubmitQuiz handles POST /api/v1/quizzes/{id}/submit
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quizzes == nil {
		notConfigured(w)
		return
	}
	var req submitQuizRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Quizzes.Handle(r.Context(), command.SubmitQuizCommand{
		UserID:  req.UserID,
		QuizID:  pathID(r),
		Answers: req.Answers,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logAward(r, res.Award)
	writeJSON(w, http.StatusOK, presentQuizResult(res))
}

// ─────────────────────────────────────────────────────────────────────────────
// Authoring (admin)
// ─────────────────────────────────────────────────────────────────────────────

// handleCreateModule handles POST /api/v1/admin/modules
func (s *Server) handleCreateModule(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateModuleCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.deps.Content.CreateModule(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentModule(m))
}

// handleCreateLesson handles POST /api/v1/admin/lessons
func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateLessonCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.deps.Content.CreateLesson(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentLesson(l))
}

// handleCreateQuiz handles POST /api/v1/admin/quizzes
func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateQuizCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.deps.Content.CreateQuiz(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentQuiz(q, true))
}

// handleCreateBadge handles POST /api/v1/admin/badges
func (s *Server) handleCreateBadge(w http.ResponseWriter, r *http.Request) {
	if s.deps.Content == nil {
		notConfigured(w)
		return
	}
	var cmd command.CreateBadgeCommand
	if err := s.decodeJSON(w, r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.deps.Content.CreateBadge(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, presentBadge(b))
}
