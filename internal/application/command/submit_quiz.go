package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT QUIZ COMMAND
// Grades a quiz attempt and pays XP on the first pass only.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitQuizCommand contains one submission.
type SubmitQuizCommand struct {
	UserID  string
	QuizID  string
	Answers []string
}

// Validate validates the command.
func (c SubmitQuizCommand) Validate() error {
	if err := shared.RequireID("learning", "Submit", "user_id", c.UserID); err != nil {
		return err
	}
	return shared.RequireID("learning", "Submit", "quiz_id", c.QuizID)
}

// SubmitQuizResult is what the client sees after a submission.
type SubmitQuizResult struct {
	Passed       bool
	Score        int
	Correct      int
	Total        int
	XPEarned     int
	BestScore    int
	AttemptCount int
	Completed    bool

	// Award is nil unless XP was granted.
	Award *AwardXPResult
}

// SubmitQuizHandler handles SubmitQuizCommand.
type SubmitQuizHandler struct {
	quizzes learning.Repository
	uow     reward.UnitOfWork
	award   *AwardXPHandler
}

// NewSubmitQuizHandler creates a new SubmitQuizHandler.
func NewSubmitQuizHandler(quizzes learning.Repository, uow reward.UnitOfWork, award *AwardXPHandler) *SubmitQuizHandler {
	return &SubmitQuizHandler{quizzes: quizzes, uow: uow, award: award}
}

// Handle grades the submission, updates the attempt record and, on a first
// pass, awards the quiz XP in the same transaction.
func (h *SubmitQuizHandler) Handle(ctx context.Context, cmd SubmitQuizCommand) (*SubmitQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	quiz, err := h.quizzes.GetQuiz(ctx, cmd.QuizID)
	if err != nil {
		return nil, err
	}

	grade, err := quiz.Grade(cmd.Answers)
	if err != nil {
		return nil, err
	}

	res := &SubmitQuizResult{
		Passed:  grade.Passed,
		Score:   grade.Score,
		Correct: grade.Correct,
		Total:   grade.Total,
	}

	err = h.uow.Do(ctx, func(tx reward.Tx) error {
		// Lock the user first so a missing user is a 404, not a FK failure.
		if _, err := tx.LockUser(ctx, cmd.UserID); err != nil {
			return err
		}

		attempt, err := tx.LockAttempt(ctx, cmd.UserID, quiz.ID)
		if err != nil {
			return fmt.Errorf("submit_quiz: lock attempt: %w", err)
		}

		now := h.award.Now()
		firstPass := attempt.Record(grade, now)
		if err := tx.SaveAttempt(ctx, attempt); err != nil {
			return fmt.Errorf("submit_quiz: save attempt: %w", err)
		}

		res.BestScore = attempt.BestScore
		res.AttemptCount = attempt.AttemptCount
		res.Completed = attempt.Completed
		res.Award = nil

		if !firstPass {
			return nil
		}

		award, err := h.award.AwardInTx(ctx, tx, AwardXPCommand{
			UserID: cmd.UserID,
			Kind:   reward.ActionQuizPassed,
			Amount: quiz.EffectiveXP(),
			Source: reward.Ref(reward.SourceQuiz, quiz.ID),
			At:     now,
		})
		switch {
		case errors.Is(err, shared.ErrAlreadyPerformed):
			// The ledger already paid this quiz; the attempt still counts.
			return nil
		case err != nil:
			return err
		}
		award.Events = append(award.Events, shared.NewQuizPassedEvent(cmd.UserID, quiz.ID, grade.Score))
		res.Award = award
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Award != nil {
		res.XPEarned = res.Award.XPEarned()
		h.award.AfterCommit(ctx, res.Award)
	}
	return res, nil
}
