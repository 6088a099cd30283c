package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/interface/http/handlers"
	"github.com/radake/rada-ke/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Rada.ke API",
		"version": s.config.Version,
		"endpoints": map[string]string{
			"health":      "/health",
			"leaderboard": "/api/v1/leaderboard",
			"modules":     "/api/v1/modules",
			"posts":       "/api/v1/posts",
			"memories":    "/api/v1/memories",
			"politicians": "/api/v1/politicians",
			"events":      "/ws",
		},
	})
}

// handleHealth handles GET /health and /healthz. Unhealthy answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"healthy": true,
			"uptime":  s.Uptime().Round(time.Second).String(),
		})
		return
	}
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		if status := s.deps.HealthChecker.Check(r.Context()); !status.Ready {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles GET /live
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleAdminLogin handles POST /api/v1/admin/login
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, expires, err := s.deps.Auth.Login(req.Username, req.Password)
	switch {
	case errors.Is(err, handlers.ErrInvalidCredentials):
		s.logger.Warn("admin login rejected", logger.RemoteAddr(getClientIP(r)))
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
		return
	case err != nil:
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expires.UTC(),
	})
}

// handleReconcile handles POST /api/v1/admin/schema/reconcile
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Reconciler == nil {
		notConfigured(w)
		return
	}
	result, err := s.deps.Reconciler.Reconcile(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.OK() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, map[string]any{
		"present":     result.Present,
		"created":     result.Created,
		"failed":      result.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

type awardRequest struct {
	UserID     string `json:"user_id"`
	Kind       string `json:"kind"`
	Amount     int    `json:"amount"`
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
}

// handleAwardXP handles POST /api/v1/admin/awards. Amount 0 uses the
// action's policy default.
func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	if s.deps.Awards == nil {
		notConfigured(w)
		return
	}
	var req awardRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	kind := reward.ActionKind(req.Kind).Normalize()
	amount := req.Amount
	if amount == 0 {
		amount = reward.PolicyFor(kind).DefaultXP
	}

	res, err := s.deps.Awards.Handle(r.Context(), command.AwardXPCommand{
		UserID: req.UserID,
		Kind:   kind,
		Amount: amount,
		Source: reward.SourceRef{Type: req.SourceType, ID: req.SourceID},
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logAward(r, res)
	writeJSON(w, http.StatusCreated, map[string]any{
		"transaction_id": res.Transaction.ID,
		"award":          presentAward(res),
	})
}

// handleDeleteUser handles DELETE /api/v1/admin/users/{id}
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil {
		notConfigured(w)
		return
	}
	if err := s.deps.Users.Delete(r.Context(), pathID(r)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
