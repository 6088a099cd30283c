package http

import (
	"time"

	"github.com/radake/rada-ke/internal/application/command"
	"github.com/radake/rada-ke/internal/domain/civic"
	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/user"
	"github.com/radake/rada-ke/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE VIEWS
// Domain types carry no JSON tags; these are the wire shapes.
// ══════════════════════════════════════════════════════════════════════════════

type userView struct {
	ID            string `json:"id"`
	Nickname      string `json:"nickname"`
	Emoji         string `json:"emoji"`
	Region        string `json:"region,omitempty"`
	XP            int    `json:"xp"`
	Level         int    `json:"level"`
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
}

func presentUser(u *user.User) userView {
	return userView{
		ID:            u.ID,
		Nickname:      u.Nickname,
		Emoji:         u.Emoji,
		Region:        string(u.Region),
		XP:            int(u.XP),
		Level:         int(u.Level()),
		CurrentStreak: u.Streak.Current,
		LongestStreak: u.Streak.Longest,
	}
}

type badgeView struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

// awardView summarises what an action earned.
type awardView struct {
	XPEarned       int         `json:"xp_earned"`
	TotalXP        int         `json:"total_xp"`
	Level          int         `json:"level"`
	CurrentStreak  int         `json:"current_streak"`
	StreakExtended bool        `json:"streak_extended"`
	UnlockedBadges []badgeView `json:"unlocked_badges"`
}

func presentAward(res *command.AwardXPResult) *awardView {
	if res == nil {
		return nil
	}
	badges := make([]badgeView, len(res.UnlockedBadges))
	for i, b := range res.UnlockedBadges {
		badges[i] = badgeView{Code: b.Code, Name: b.Name, Emoji: b.Emoji}
	}
	return &awardView{
		XPEarned:       res.XPEarned(),
		TotalXP:        res.NewXP,
		Level:          int(res.Level),
		CurrentStreak:  res.Streak.Current,
		StreakExtended: res.StreakExtended,
		UnlockedBadges: badges,
	}
}

type actionView struct {
	ID    string     `json:"id,omitempty"`
	Award *awardView `json:"award"`
}

func presentAction(res *command.ActionResult) actionView {
	return actionView{ID: res.ID, Award: presentAward(res.Award)}
}

type quizResultView struct {
	Passed       bool       `json:"passed"`
	Score        int        `json:"score"`
	Correct      int        `json:"correct"`
	Total        int        `json:"total"`
	XPEarned     int        `json:"xp_earned"`
	BestScore    int        `json:"best_score"`
	AttemptCount int        `json:"attempt_count"`
	Completed    bool       `json:"completed"`
	Award        *awardView `json:"award,omitempty"`
}

func presentQuizResult(res *command.SubmitQuizResult) quizResultView {
	return quizResultView{
		Passed:       res.Passed,
		Score:        res.Score,
		Correct:      res.Correct,
		Total:        res.Total,
		XPEarned:     res.XPEarned,
		BestScore:    res.BestScore,
		AttemptCount: res.AttemptCount,
		Completed:    res.Completed,
		Award:        presentAward(res.Award),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Learning
// ─────────────────────────────────────────────────────────────────────────────

type moduleView struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Position    int        `json:"position"`
	Quizzes     []quizView `json:"quizzes,omitempty"`
}

func presentModule(m *learning.Module) moduleView {
	return moduleView{ID: m.ID, Slug: m.Slug, Title: m.Title, Description: m.Description, Position: m.Position}
}

type lessonView struct {
	ID       string `json:"id"`
	ModuleID string `json:"module_id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Position int    `json:"position"`
	XPReward int    `json:"xp_reward"`
}

func presentLesson(l *learning.Lesson) lessonView {
	return lessonView{
		ID: l.ID, ModuleID: l.ModuleID, Slug: l.Slug, Title: l.Title,
		Body: l.Body, Position: l.Position, XPReward: l.XPReward,
	}
}

// questionView never carries the correct answer.
type questionView struct {
	ID       string   `json:"id"`
	Position int      `json:"position"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

type quizView struct {
	ID           string         `json:"id"`
	ModuleID     string         `json:"module_id"`
	Slug         string         `json:"slug"`
	Title        string         `json:"title"`
	PassingScore int            `json:"passing_score"`
	XPReward     int            `json:"xp_reward"`
	Questions    []questionView `json:"questions,omitempty"`
}

func presentQuiz(q *learning.Quiz, withQuestions bool) quizView {
	v := quizView{
		ID:           q.ID,
		ModuleID:     q.ModuleID,
		Slug:         q.Slug,
		Title:        q.Title,
		PassingScore: q.EffectivePassingScore(),
		XPReward:     q.EffectiveXP(),
	}
	if withQuestions {
		v.Questions = make([]questionView, len(q.Questions))
		for i, qu := range q.Questions {
			v.Questions[i] = questionView{ID: qu.ID, Position: qu.Position, Prompt: qu.Prompt, Options: qu.Options}
		}
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Community
// ─────────────────────────────────────────────────────────────────────────────

type postView struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"author_id"`
	Body         string    `json:"body"`
	Region       string    `json:"region,omitempty"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func presentPost(p *community.Post) postView {
	return postView{
		ID: p.ID, AuthorID: p.AuthorID, Body: p.Body, Region: string(p.Region),
		LikeCount: p.LikeCount, CommentCount: p.CommentCount, CreatedAt: p.CreatedAt,
	}
}

type commentView struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type pollOptionView struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Votes int    `json:"votes"`
}

type pollView struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	Options   []pollOptionView `json:"options"`
	ClosesAt  *time.Time       `json:"closes_at,omitempty"`
	Open      bool             `json:"open"`
	CreatedAt time.Time        `json:"created_at"`
}

func presentPoll(p *community.Poll, now time.Time) pollView {
	opts := make([]pollOptionView, len(p.Options))
	for i, o := range p.Options {
		opts[i] = pollOptionView{ID: o.ID, Label: o.Label, Votes: o.Votes}
	}
	return pollView{
		ID: p.ID, Question: p.Question, Options: opts, ClosesAt: p.ClosesAt,
		Open: p.IsOpen(now), CreatedAt: p.CreatedAt,
	}
}

type memoryView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Story     string    `json:"story"`
	PhotoURL  string    `json:"photo_url,omitempty"`
	Region    string    `json:"region,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	Candles   int       `json:"candles"`
	CreatedAt time.Time `json:"created_at"`
}

func presentMemory(m *community.Memory) memoryView {
	return memoryView{
		ID: m.ID, Title: m.Title, Story: m.Story, PhotoURL: m.PhotoURL, Region: string(m.Region),
		CreatedBy: m.CreatedBy, Candles: m.Candles, CreatedAt: m.CreatedAt,
	}
}

type challengeView struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	XPReward    int        `json:"xp_reward"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Active      bool       `json:"active"`
}

func presentChallenge(c *community.Challenge, now time.Time) challengeView {
	return challengeView{
		ID: c.ID, Slug: c.Slug, Title: c.Title, Description: c.Description,
		XPReward: c.XPReward, StartsAt: c.StartsAt, EndsAt: c.EndsAt, Active: c.IsActive(now),
	}
}

func presentBadge(b *reward.Badge) map[string]any {
	return map[string]any{
		"id":            b.ID,
		"code":          b.Code,
		"name":          b.Name,
		"description":   b.Description,
		"emoji":         b.Emoji,
		"criteria_type": string(b.Criteria.Type),
		"action_kind":   string(b.Criteria.ActionKind),
		"threshold":     b.Criteria.Threshold,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Civic catalogue
// ─────────────────────────────────────────────────────────────────────────────

type politicianView struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Party    string `json:"party,omitempty"`
	Position string `json:"position,omitempty"`
	County   string `json:"county,omitempty"`
	Bio      string `json:"bio,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`

	Promises []promiseView `json:"promises,omitempty"`
	Votes    []voteView    `json:"votes,omitempty"`
}

func presentPolitician(p *civic.Politician) politicianView {
	return politicianView{
		ID: p.ID, Slug: p.Slug, Name: p.Name, Party: p.Party, Position: p.Position,
		County: string(p.County), Bio: p.Bio, PhotoURL: p.PhotoURL,
	}
}

type promiseView struct {
	ID           string `json:"id"`
	PoliticianID string `json:"politician_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	SourceURL    string `json:"source_url,omitempty"`
}

func presentPromise(p *civic.Promise) promiseView {
	return promiseView{
		ID: p.ID, PoliticianID: p.PoliticianID, Title: p.Title,
		Status: string(p.Status), SourceURL: p.SourceURL,
	}
}

type voteView struct {
	ID           string `json:"id"`
	PoliticianID string `json:"politician_id"`
	BillTitle    string `json:"bill_title"`
	Vote         string `json:"vote"`
	VotedOn      string `json:"voted_on"`
}

func presentVote(v *civic.VotingRecord) voteView {
	return voteView{
		ID: v.ID, PoliticianID: v.PoliticianID, BillTitle: v.BillTitle,
		Vote: string(v.Vote), VotedOn: timeutil.DayKey(v.VotedOn),
	}
}
