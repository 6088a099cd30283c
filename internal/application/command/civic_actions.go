package command

import (
	"context"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CIVIC ACTIONS
// User actions that write a community row and pay XP in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// ActionResult is returned by every civic action.
type ActionResult struct {
	// ID of the entity the action created, when it created one.
	ID    string
	Award *AwardXPResult
}

// CivicActionsHandler executes civic actions.
type CivicActionsHandler struct {
	community community.Repository
	learning  learning.Repository
	uow       reward.UnitOfWork
	award     *AwardXPHandler
}

// NewCivicActionsHandler creates a new CivicActionsHandler.
func NewCivicActionsHandler(
	communityRepo community.Repository,
	learningRepo learning.Repository,
	uow reward.UnitOfWork,
	award *AwardXPHandler,
) *CivicActionsHandler {
	return &CivicActionsHandler{
		community: communityRepo,
		learning:  learningRepo,
		uow:       uow,
		award:     award,
	}
}

// perform locks the user, runs write and then awards kind with its policy
// amount unless amount is given.
func (h *CivicActionsHandler) perform(
	ctx context.Context,
	op, userID string,
	kind reward.ActionKind,
	amount int,
	src reward.SourceRef,
	write func(tx reward.Tx) error,
) (*AwardXPResult, error) {
	if err := shared.RequireID("community", op, "user_id", userID); err != nil {
		return nil, err
	}
	if amount <= 0 {
		amount = reward.PolicyFor(kind).DefaultXP
	}

	var res *AwardXPResult
	err := h.uow.Do(ctx, func(tx reward.Tx) error {
		if _, err := tx.LockUser(ctx, userID); err != nil {
			return err
		}
		if write != nil {
			if err := write(tx); err != nil {
				return err
			}
		}
		var err error
		res, err = h.award.AwardInTx(ctx, tx, AwardXPCommand{
			UserID: userID,
			Kind:   kind,
			Amount: amount,
			Source: src,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	h.award.AfterCommit(ctx, res)
	return res, nil
}

// LightCandle lights a memorial candle; once per memory per day.
func (h *CivicActionsHandler) LightCandle(ctx context.Context, userID, memoryID string) (*ActionResult, error) {
	if err := shared.RequireID("community", "LightCandle", "memory_id", memoryID); err != nil {
		return nil, err
	}
	if _, err := h.community.GetMemory(ctx, memoryID); err != nil {
		return nil, err
	}
	award, err := h.perform(ctx, "LightCandle", userID, reward.ActionLightCandle, 0,
		reward.Ref(reward.SourceMemory, memoryID), nil)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Award: award}, nil
}

// VotePoll casts the user's single vote on a poll.
func (h *CivicActionsHandler) VotePoll(ctx context.Context, userID, pollID, optionID string) (*ActionResult, error) {
	if err := shared.RequireID("community", "Vote", "poll_id", pollID); err != nil {
		return nil, err
	}
	poll, err := h.community.GetPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if !poll.IsOpen(h.award.Now()) {
		return nil, shared.ErrPollClosed
	}
	if !poll.HasOption(optionID) {
		return nil, shared.ErrInvalidPollOption
	}

	award, err := h.perform(ctx, "Vote", userID, reward.ActionPollVoted, 0,
		reward.Ref(reward.SourcePoll, pollID),
		func(tx reward.Tx) error {
			return tx.InsertPollVote(ctx, pollID, optionID, userID)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: optionID, Award: award}, nil
}

// LikePost likes someone else's post. The liker earns the XP.
func (h *CivicActionsHandler) LikePost(ctx context.Context, userID, postID string) (*ActionResult, error) {
	if err := shared.RequireID("community", "Like", "post_id", postID); err != nil {
		return nil, err
	}
	post, err := h.community.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID == userID {
		return nil, shared.ErrSelfLike
	}

	award, err := h.perform(ctx, "Like", userID, reward.ActionPostLiked, 0,
		reward.Ref(reward.SourcePost, postID),
		func(tx reward.Tx) error {
			return tx.InsertPostLike(ctx, postID, userID)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: postID, Award: award}, nil
}

// CreatePost publishes a post to the feed.
func (h *CivicActionsHandler) CreatePost(ctx context.Context, userID, body, region string) (*ActionResult, error) {
	post, err := community.NewPost(userID, body, region, h.award.Now())
	if err != nil {
		return nil, err
	}
	award, err := h.perform(ctx, "CreatePost", userID, reward.ActionPostCreated, 0,
		reward.Ref(reward.SourcePost, post.ID),
		func(tx reward.Tx) error {
			return tx.InsertPost(ctx, post)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: post.ID, Award: award}, nil
}

// CreateComment replies to an existing post.
func (h *CivicActionsHandler) CreateComment(ctx context.Context, userID, postID, body string) (*ActionResult, error) {
	comment, err := community.NewComment(postID, userID, body, h.award.Now())
	if err != nil {
		return nil, err
	}
	if _, err := h.community.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	award, err := h.perform(ctx, "CreateComment", userID, reward.ActionCommentCreated, 0,
		reward.Ref(reward.SourceComment, comment.ID),
		func(tx reward.Tx) error {
			return tx.InsertComment(ctx, comment)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: comment.ID, Award: award}, nil
}

// CompleteChallenge marks an active challenge done and pays its reward.
func (h *CivicActionsHandler) CompleteChallenge(ctx context.Context, userID, challengeID string) (*ActionResult, error) {
	if err := shared.RequireID("community", "Complete", "challenge_id", challengeID); err != nil {
		return nil, err
	}
	ch, err := h.community.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !ch.IsActive(h.award.Now()) {
		return nil, shared.ErrChallengeInactive
	}

	award, err := h.perform(ctx, "Complete", userID, reward.ActionChallengeCompleted, ch.XPReward,
		reward.Ref(reward.SourceChallenge, ch.ID),
		func(tx reward.Tx) error {
			return tx.InsertChallengeCompletion(ctx, ch.ID, userID)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: ch.ID, Award: award}, nil
}

// CompleteLesson marks a lesson read and pays its reward once.
func (h *CivicActionsHandler) CompleteLesson(ctx context.Context, userID, lessonID string) (*ActionResult, error) {
	if err := shared.RequireID("learning", "CompleteLesson", "lesson_id", lessonID); err != nil {
		return nil, err
	}
	lesson, err := h.learning.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	award, err := h.perform(ctx, "CompleteLesson", userID, reward.ActionLessonCompleted, lesson.XPReward,
		reward.Ref(reward.SourceLesson, lesson.ID),
		func(tx reward.Tx) error {
			return tx.InsertLessonCompletion(ctx, lesson.ID, userID)
		})
	if err != nil {
		return nil, err
	}
	return &ActionResult{ID: lesson.ID, Award: award}, nil
}

// DailyCheckIn pays the daily visit bonus once per Nairobi day.
func (h *CivicActionsHandler) DailyCheckIn(ctx context.Context, userID string) (*ActionResult, error) {
	award, err := h.perform(ctx, "CheckIn", userID, reward.ActionDailyCheckIn, 0,
		reward.Ref(reward.SourceUser, userID), nil)
	if err != nil {
		return nil, err
	}
	return &ActionResult{Award: award}, nil
}
