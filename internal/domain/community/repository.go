package community

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/shared"
)

// Repository covers reads and authoring writes that need no XP.
type Repository interface {
	GetPost(ctx context.Context, id string) (*Post, error)
	ListPosts(ctx context.Context, region shared.Region, page shared.Page) ([]*Post, error)
	ListComments(ctx context.Context, postID string, page shared.Page) ([]*Comment, error)

	CreatePoll(ctx context.Context, p *Poll) error
	GetPoll(ctx context.Context, id string) (*Poll, error)
	ListPolls(ctx context.Context, page shared.Page) ([]*Poll, error)

	CreateMemory(ctx context.Context, m *Memory) error
	GetMemory(ctx context.Context, id string) (*Memory, error)
	ListMemories(ctx context.Context, page shared.Page) ([]*Memory, error)
	SetMemoryPhoto(ctx context.Context, id, url string) error

	CreateChallenge(ctx context.Context, c *Challenge) error
	GetChallenge(ctx context.Context, id string) (*Challenge, error)
	ListChallenges(ctx context.Context, page shared.Page) ([]*Challenge, error)
}

// ActionTx holds the community writes that are paired with an XP award and
// must commit or roll back together with it. Insert methods return a
// shared.ErrConflict kind when the row already exists.
type ActionTx interface {
	InsertPost(ctx context.Context, p *Post) error
	InsertComment(ctx context.Context, c *Comment) error
	InsertPostLike(ctx context.Context, postID, userID string) error
	InsertPollVote(ctx context.Context, pollID, optionID, userID string) error
	InsertChallengeCompletion(ctx context.Context, challengeID, userID string) error
	InsertLessonCompletion(ctx context.Context, lessonID, userID string) error
}
