// Package community models the participatory side of Rada.ke: the feed,
// polls, the memory archive and civic challenges.
package community

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gosimple/slug"

	"github.com/radake/rada-ke/internal/domain/shared"
)

const (
	maxPostLen    = 2000
	maxCommentLen = 500
	maxTitleLen   = 200
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED
// ══════════════════════════════════════════════════════════════════════════════

// Post is a feed entry.
type Post struct {
	ID           string
	AuthorID     string
	Body         string
	Region       shared.Region
	LikeCount    int
	CommentCount int
	CreatedAt    time.Time
}

// NewPost validates and builds a post.
func NewPost(authorID, body, region string, now time.Time) (*Post, error) {
	if err := shared.RequireID("community", "CreatePost", "user_id", authorID); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxPostLen {
		return nil, shared.Validationf("community", "CreatePost", "body must be 1-%d characters", maxPostLen)
	}
	return &Post{
		ID:        shared.NewID(),
		AuthorID:  authorID,
		Body:      body,
		Region:    shared.NormalizeRegion(region),
		CreatedAt: now.UTC(),
	}, nil
}

// Comment is a reply to a post.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// NewComment validates and builds a comment.
func NewComment(postID, authorID, body string, now time.Time) (*Comment, error) {
	if err := shared.RequireID("community", "CreateComment", "post_id", postID); err != nil {
		return nil, err
	}
	if err := shared.RequireID("community", "CreateComment", "user_id", authorID); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxCommentLen {
		return nil, shared.Validationf("community", "CreateComment", "body must be 1-%d characters", maxCommentLen)
	}
	return &Comment{
		ID:        shared.NewID(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now.UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// POLLS
// ══════════════════════════════════════════════════════════════════════════════

// PollOption is one choice of a poll.
type PollOption struct {
	ID       string
	PollID   string
	Label    string
	Position int
	Votes    int
}

// Poll is a single-choice question.
type Poll struct {
	ID        string
	Question  string
	Options   []PollOption
	ClosesAt  *time.Time
	CreatedAt time.Time
}

// NewPoll validates and builds a poll with at least two options.
func NewPoll(question string, labels []string, closesAt *time.Time, now time.Time) (*Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, shared.Validationf("community", "CreatePoll", "question is required")
	}
	p := &Poll{
		ID:        shared.NewID(),
		Question:  question,
		ClosesAt:  closesAt,
		CreatedAt: now.UTC(),
	}
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		p.Options = append(p.Options, PollOption{
			ID:       shared.NewID(),
			PollID:   p.ID,
			Label:    label,
			Position: len(p.Options),
		})
	}
	if len(p.Options) < 2 {
		return nil, shared.Validationf("community", "CreatePoll", "a poll needs at least two options")
	}
	if closesAt != nil && !closesAt.After(now) {
		return nil, shared.Validationf("community", "CreatePoll", "closing time must be in the future")
	}
	return p, nil
}

// IsOpen reports whether votes are accepted at now.
func (p *Poll) IsOpen(now time.Time) bool {
	return p.ClosesAt == nil || now.Before(*p.ClosesAt)
}

// HasOption reports whether optionID belongs to the poll.
func (p *Poll) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// MEMORY ARCHIVE
// ══════════════════════════════════════════════════════════════════════════════

// Memory honours someone or something lost. Candles are not stored here; the
// count comes from light_candle ledger entries.
type Memory struct {
	ID        string
	Title     string
	Story     string
	PhotoURL  string
	Region    shared.Region
	CreatedBy string
	Candles   int
	CreatedAt time.Time
}

// NewMemory validates and builds a memory entry.
func NewMemory(createdBy, title, story, region string, now time.Time) (*Memory, error) {
	if err := shared.RequireID("community", "CreateMemory", "user_id", createdBy); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return nil, shared.Validationf("community", "CreateMemory", "title must be 1-%d characters", maxTitleLen)
	}
	return &Memory{
		ID:        shared.NewID(),
		Title:     title,
		Story:     strings.TrimSpace(story),
		Region:    shared.NormalizeRegion(region),
		CreatedBy: createdBy,
		CreatedAt: now.UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

// Challenge is a time-boxed civic task that pays XP once.
type Challenge struct {
	ID          string
	Slug        string
	Title       string
	Description string
	XPReward    int
	StartsAt    time.Time
	EndsAt      *time.Time
}

// NewChallenge validates and builds a challenge.
func NewChallenge(title, description string, xp int, startsAt time.Time, endsAt *time.Time) (*Challenge, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, shared.Validationf("community", "CreateChallenge", "title is required")
	}
	if xp <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	if endsAt != nil && !endsAt.After(startsAt) {
		return nil, shared.Validationf("community", "CreateChallenge", "end must be after start")
	}
	return &Challenge{
		ID:          shared.NewID(),
		Slug:        slug.Make(title),
		Title:       title,
		Description: strings.TrimSpace(description),
		XPReward:    xp,
		StartsAt:    startsAt.UTC(),
		EndsAt:      endsAt,
	}, nil
}

// IsActive reports whether the challenge can be completed at now.
func (c *Challenge) IsActive(now time.Time) bool {
	if now.Before(c.StartsAt) {
		return false
	}
	return c.EndsAt == nil || now.Before(*c.EndsAt)
}
