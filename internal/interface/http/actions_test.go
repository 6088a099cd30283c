package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/application/command/commandtest"
	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/logger"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// actionRig wires the real command handlers over the in-memory ledger.
type actionRig struct {
	store  *commandtest.Store
	clock  *commandtest.Clock
	logs   *bytes.Buffer
	server *Server
}

func newActionRig(t *testing.T) *actionRig {
	t.Helper()
	store := commandtest.NewStore()
	clock := commandtest.NewClock(time.Date(2024, 6, 1, 10, 0, 0, 0, timeutil.NairobiTZ))
	award := command.NewAwardXPHandler(store, nil, &commandtest.Board{}, nil).WithClock(clock.Now)

	logs := &bytes.Buffer{}
	s := newTestServer(t, Dependencies{
		Awards:  award,
		Quizzes: command.NewSubmitQuizHandler(store, store, award),
		Actions: command.NewCivicActionsHandler(store, store, store, award),
		Logger:  logger.New(logger.Options{Output: logs, Level: logger.LevelInfo}),
	})
	return &actionRig{store: store, clock: clock, logs: logs, server: s}
}

func decodeAward(t *testing.T, env envelope) awardView {
	t.Helper()
	var out struct {
		Award *awardView `json:"award"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotNil(t, out.Award)
	return *out.Award
}

// awardLogs returns the "xp awarded" lines written so far.
func (r *actionRig) awardLogs(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(r.logs.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		if m["msg"] == "xp awarded" {
			out = append(out, m)
		}
	}
	return out
}

func TestSubmitQuizEndpoint(t *testing.T) {
	rig := newActionRig(t)
	u := rig.store.AddUser("amani")

	var qs []learning.Question
	for _, ans := range []string{"A", "B", "C", "D", "A"} {
		qs = append(qs, learning.Question{Prompt: "?", Options: []string{"A", "B", "C", "D"}, CorrectAnswer: ans})
	}
	quiz, err := learning.NewQuiz(shared.NewID(), "County Budgets", 0, 0, qs)
	require.NoError(t, err)
	require.NoError(t, rig.store.CreateQuiz(context.Background(), quiz))
	path := "/api/v1/quizzes/" + quiz.ID + "/submit"

	rec, env := do(t, rig.server, http.MethodPost, path, "", map[string]any{
		"user_id": u.ID,
		"answers": []string{"A", "B", "C", "D", "B"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	var res quizResultView
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Passed)
	assert.Equal(t, 80, res.Score)
	assert.Equal(t, 4, res.Correct)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 50, res.XPEarned)
	require.NotNil(t, res.Award)
	assert.Equal(t, 50, res.Award.TotalXP)

	// Passing again is still a 200, but pays nothing.
	rec, env = do(t, rig.server, http.MethodPost, path, "", map[string]any{
		"user_id": u.ID,
		"answers": []string{"A", "B", "C", "D", "A"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	res = quizResultView{}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 100, res.Score)
	assert.Zero(t, res.XPEarned)
	assert.Nil(t, res.Award)
	assert.Equal(t, 2, res.AttemptCount)
	assert.Equal(t, 50, rig.store.UserXP(u.ID))

	lines := rig.awardLogs(t)
	require.Len(t, lines, 1)
	assert.Equal(t, u.ID, lines[0]["user_id"])
	assert.Equal(t, "quiz_passed", lines[0]["action_kind"])
	assert.EqualValues(t, 50, lines[0]["xp_amount"])
}

func TestSubmitQuizEndpointErrors(t *testing.T) {
	rig := newActionRig(t)
	u := rig.store.AddUser("baraka")

	rec, env := do(t, rig.server, http.MethodPost, "/api/v1/quizzes/"+shared.NewID()+"/submit", "", map[string]any{
		"user_id": u.ID,
		"answers": []string{"A"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Code)

	rec, _ = do(t, rig.server, http.MethodPost, "/api/v1/quizzes/"+shared.NewID()+"/submit", "", map[string]any{
		"user_id": u.ID,
		"answer":  []string{"A"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown field")
}

func TestLightCandleEndpoint(t *testing.T) {
	rig := newActionRig(t)
	u := rig.store.AddUser("wanjiru")
	m, err := community.NewMemory(u.ID, "Saba Saba", "", "nairobi", rig.clock.Now())
	require.NoError(t, err)
	require.NoError(t, rig.store.CreateMemory(context.Background(), m))
	path := "/api/v1/memories/" + m.ID + "/candles"
	body := map[string]string{"user_id": u.ID}

	rec, env := do(t, rig.server, http.MethodPost, path, "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	award := decodeAward(t, env)
	assert.Equal(t, 5, award.XPEarned)
	assert.Equal(t, 5, award.TotalXP)
	assert.Equal(t, 1, award.CurrentStreak)

	// Same Nairobi day.
	rig.clock.Advance(3 * time.Hour)
	rec, env = do(t, rig.server, http.MethodPost, path, "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)
	assert.NotEmpty(t, env.RequestID)

	rig.clock.Advance(24 * time.Hour)
	rec, env = do(t, rig.server, http.MethodPost, path, "", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, decodeAward(t, env).TotalXP)

	assert.Equal(t, 10, rig.store.UserXP(u.ID))
	assert.Equal(t, rig.store.LedgerSum(u.ID), rig.store.UserXP(u.ID))
	assert.Len(t, rig.awardLogs(t), 2)

	rec, _ = do(t, rig.server, http.MethodPost, "/api/v1/memories/"+shared.NewID()+"/candles", "", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLikePostEndpoint(t *testing.T) {
	rig := newActionRig(t)
	author := rig.store.AddUser("kamau")
	liker := rig.store.AddUser("njeri")

	rec, env := do(t, rig.server, http.MethodPost, "/api/v1/posts", "", map[string]string{
		"user_id": author.ID,
		"body":    "Budget hearing at the county hall on Friday.",
		"region":  "Nairobi",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ID)
	path := "/api/v1/posts/" + created.ID + "/like"

	rec, env = do(t, rig.server, http.MethodPost, path, "", map[string]string{"user_id": liker.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeAward(t, env).XPEarned)

	rec, env = do(t, rig.server, http.MethodPost, path, "", map[string]string{"user_id": liker.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)

	rec, _ = do(t, rig.server, http.MethodPost, path, "", map[string]string{"user_id": author.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "authors cannot like their own post")

	rec, _ = do(t, rig.server, http.MethodPost, path, "", map[string]string{"user_id": shared.NewID()})
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown user")

	assert.Equal(t, 2, rig.store.UserXP(liker.ID))
	assert.Len(t, rig.store.Ledger(liker.ID), 1)
	assert.Equal(t, 10, rig.store.UserXP(author.ID), "post creation only")
}
