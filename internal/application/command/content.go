package command

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT AUTHORING
// Admin-side creation of learning content, badges, polls and challenges, and
// user-side creation of memories. None of these pay XP.
// ══════════════════════════════════════════════════════════════════════════════

// MediaStore keeps uploaded files and returns their public URL.
type MediaStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// CreateModuleCommand creates a learning module.
type CreateModuleCommand struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Position    int    `json:"position"`
}

// CreateLessonCommand creates a lesson in a module.
type CreateLessonCommand struct {
	ModuleID string `json:"module_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Position int    `json:"position"`
	XPReward int    `json:"xp_reward"`
}

// QuestionInput is one question of CreateQuizCommand.
type QuestionInput struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// CreateQuizCommand creates a quiz with its questions.
type CreateQuizCommand struct {
	ModuleID     string          `json:"module_id"`
	Title        string          `json:"title"`
	PassingScore int             `json:"passing_score"`
	XPReward     int             `json:"xp_reward"`
	Questions    []QuestionInput `json:"questions"`
}

// CreateBadgeCommand adds a badge to the catalogue.
type CreateBadgeCommand struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	Criteria    string `json:"criteria_type"`
	ActionKind  string `json:"action_kind"`
	Threshold   int    `json:"threshold"`
}

// CreatePollCommand opens a poll.
type CreatePollCommand struct {
	Question string     `json:"question"`
	Options  []string   `json:"options"`
	ClosesAt *time.Time `json:"closes_at"`
}

// CreateMemoryCommand adds an entry to the memory archive.
type CreateMemoryCommand struct {
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Story  string `json:"story"`
	Region string `json:"region"`
}

// CreateChallengeCommand creates a challenge.
type CreateChallengeCommand struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	XPReward    int        `json:"xp_reward"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

// ContentHandler handles content authoring commands.
type ContentHandler struct {
	learning  learning.Repository
	community community.Repository
	badges    reward.BadgeRepository
	media     MediaStore
	clock     timeutil.Clock
}

// NewContentHandler creates a new ContentHandler. media may be nil, in which
// case photo uploads are rejected.
func NewContentHandler(
	learningRepo learning.Repository,
	communityRepo community.Repository,
	badges reward.BadgeRepository,
	media MediaStore,
) *ContentHandler {
	return &ContentHandler{
		learning:  learningRepo,
		community: communityRepo,
		badges:    badges,
		media:     media,
		clock:     timeutil.SystemClock,
	}
}

// CreateModule stores a new learning module.
func (h *ContentHandler) CreateModule(ctx context.Context, cmd CreateModuleCommand) (*learning.Module, error) {
	m, err := learning.NewModule(cmd.Title, cmd.Description, cmd.Position)
	if err != nil {
		return nil, err
	}
	if err := h.learning.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateLesson stores a lesson in an existing module.
func (h *ContentHandler) CreateLesson(ctx context.Context, cmd CreateLessonCommand) (*learning.Lesson, error) {
	l, err := learning.NewLesson(cmd.ModuleID, cmd.Title, cmd.Body, cmd.Position, cmd.XPReward)
	if err != nil {
		return nil, err
	}
	if _, err := h.learning.GetModule(ctx, l.ModuleID); err != nil {
		return nil, err
	}
	if err := h.learning.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateQuiz stores a quiz and its questions in an existing module.
func (h *ContentHandler) CreateQuiz(ctx context.Context, cmd CreateQuizCommand) (*learning.Quiz, error) {
	questions := make([]learning.Question, 0, len(cmd.Questions))
	for _, q := range cmd.Questions {
		questions = append(questions, learning.Question{
			Prompt:        q.Prompt,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	quiz, err := learning.NewQuiz(cmd.ModuleID, cmd.Title, cmd.PassingScore, cmd.XPReward, questions)
	if err != nil {
		return nil, err
	}
	if _, err := h.learning.GetModule(ctx, quiz.ModuleID); err != nil {
		return nil, err
	}
	if err := h.learning.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

// CreateBadge adds a badge to the catalogue.
func (h *ContentHandler) CreateBadge(ctx context.Context, cmd CreateBadgeCommand) (*reward.Badge, error) {
	b, err := reward.NewBadge(cmd.Code, cmd.Name, cmd.Description, cmd.Emoji, reward.Criteria{
		Type:       reward.CriteriaType(strings.ToLower(strings.TrimSpace(cmd.Criteria))),
		ActionKind: reward.ActionKind(cmd.ActionKind),
		Threshold:  cmd.Threshold,
	})
	if err != nil {
		return nil, err
	}
	if err := h.badges.CreateBadge(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CreatePoll opens a poll.
func (h *ContentHandler) CreatePoll(ctx context.Context, cmd CreatePollCommand) (*community.Poll, error) {
	p, err := community.NewPoll(cmd.Question, cmd.Options, cmd.ClosesAt, h.clock())
	if err != nil {
		return nil, err
	}
	if err := h.community.CreatePoll(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateMemory adds an entry to the memory archive.
func (h *ContentHandler) CreateMemory(ctx context.Context, cmd CreateMemoryCommand) (*community.Memory, error) {
	m, err := community.NewMemory(cmd.UserID, cmd.Title, cmd.Story, cmd.Region, h.clock())
	if err != nil {
		return nil, err
	}
	if err := h.community.CreateMemory(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AttachMemoryPhoto uploads a photo and links it to the memory.
func (h *ContentHandler) AttachMemoryPhoto(
	ctx context.Context,
	memoryID, filename, contentType string,
	body io.Reader,
	size int64,
) (string, error) {
	if h.media == nil {
		return "", shared.NewDomainError("community", "AttachPhoto", shared.ErrServiceUnavailable, "media storage is not configured")
	}
	if err := shared.RequireID("community", "AttachPhoto", "memory_id", memoryID); err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", shared.Validationf("community", "AttachPhoto", "only images can be attached")
	}
	if _, err := h.community.GetMemory(ctx, memoryID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("memories/%s/%s%s", memoryID, shared.NewID(), strings.ToLower(path.Ext(filename)))
	url, err := h.media.Upload(ctx, key, contentType, body, size)
	if err != nil {
		return "", err
	}
	if err := h.community.SetMemoryPhoto(ctx, memoryID, url); err != nil {
		return "", err
	}
	return url, nil
}

// CreateChallenge creates a challenge; a missing start means now.
func (h *ContentHandler) CreateChallenge(ctx context.Context, cmd CreateChallengeCommand) (*community.Challenge, error) {
	start := h.clock()
	if cmd.StartsAt != nil {
		start = *cmd.StartsAt
	}
	c, err := community.NewChallenge(cmd.Title, cmd.Description, cmd.XPReward, start, cmd.EndsAt)
	if err != nil {
		return nil, err
	}
	if err := h.community.CreateChallenge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
