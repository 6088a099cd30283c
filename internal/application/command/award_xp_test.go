package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/application/command/commandtest"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/pkg/timeutil"
)

type ledgerFixture struct {
	store *commandtest.Store
	pub   *commandtest.Publisher
	board *commandtest.Board
	clock *commandtest.Clock
	award *AwardXPHandler
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		store: commandtest.NewStore(),
		pub:   &commandtest.Publisher{},
		board: &commandtest.Board{},
		clock: commandtest.NewClock(time.Date(2024, 3, 10, 9, 0, 0, 0, timeutil.NairobiTZ)),
	}
	f.award = NewAwardXPHandler(f.store, f.pub, f.board, nil).WithClock(f.clock.Now)
	return f
}

func TestAwardXP_GrantsAndRecords(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("alice")

	res, err := f.award.Handle(context.Background(), AwardXPCommand{
		UserID: u.ID,
		Kind:   reward.ActionPostCreated,
		Amount: 10,
		Source: reward.Ref(reward.SourcePost, "p1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.NewXP)
	assert.Equal(t, 10, res.XPEarned())
	assert.EqualValues(t, 1, res.Level)
	assert.Equal(t, 1, res.Streak.Current)
	require.Len(t, res.UnlockedBadges, 1)
	assert.Equal(t, "first_steps", res.UnlockedBadges[0].Code)

	ledger := f.store.Ledger(u.ID)
	require.Len(t, ledger, 1)
	assert.Equal(t, reward.ActionPostCreated, ledger[0].Kind)
	assert.Equal(t, "post:p1", ledger[0].Source.String())

	assert.Equal(t, 10, f.store.UserXP(u.ID))
	assert.Equal(t, 10, f.board.Score(u.ID))
	assert.Equal(t, []shared.EventType{shared.EventXPAwarded, shared.EventBadgeUnlocked}, f.pub.Types())
}

func TestAwardXP_RejectsNonPositiveAmounts(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("bob")

	for _, amount := range []int{0, -5} {
		_, err := f.award.Handle(context.Background(), AwardXPCommand{
			UserID: u.ID, Kind: reward.ActionPostCreated, Amount: amount,
		})
		assert.True(t, shared.IsValidation(err), "amount %d: %v", amount, err)
	}

	assert.Empty(t, f.store.Ledger(u.ID))
	assert.Zero(t, f.store.UserXP(u.ID))
	assert.Empty(t, f.pub.Types())
}

func TestAwardXP_UnknownUserIsNotFound(t *testing.T) {
	f := newLedgerFixture()
	ghost := shared.NewID()

	_, err := f.award.Handle(context.Background(), AwardXPCommand{
		UserID: ghost, Kind: reward.ActionPostCreated, Amount: 10,
	})
	assert.True(t, shared.IsNotFound(err))
	assert.Empty(t, f.store.Ledger(ghost))
}

func TestAwardXP_OncePerSourceIsDeduplicated(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("carol")
	cmd := AwardXPCommand{
		UserID: u.ID, Kind: reward.ActionQuizPassed, Amount: 50,
		Source: reward.Ref(reward.SourceQuiz, "q1"),
	}

	_, err := f.award.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = f.award.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyPerformed)
	assert.True(t, shared.IsConflict(err))

	assert.Equal(t, 50, f.store.UserXP(u.ID))
	assert.Len(t, f.store.Ledger(u.ID), 1)
}

func TestAwardXP_DailyScopeResetsNextNairobiDay(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("dan")
	cmd := AwardXPCommand{
		UserID: u.ID, Kind: reward.ActionLightCandle, Amount: 5,
		Source: reward.Ref(reward.SourceMemory, "m1"),
	}
	ctx := context.Background()

	_, err := f.award.Handle(ctx, cmd)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.award.Handle(ctx, cmd)
	assert.True(t, shared.IsConflict(err))

	// A different memory the same day is fine.
	other := cmd
	other.Source = reward.Ref(reward.SourceMemory, "m2")
	_, err = f.award.Handle(ctx, other)
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	res, err := f.award.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 15, res.NewXP)
	assert.Equal(t, 2, res.Streak.Current)
}

func TestAwardXP_BalanceEqualsLedgerSum(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("erin")
	ctx := context.Background()

	kinds := []reward.ActionKind{
		reward.ActionPostCreated, reward.ActionCommentCreated,
		reward.ActionQuizPassed, reward.ActionLightCandle, "shared_on_radio",
	}
	for i := 0; i < 60; i++ {
		kind := kinds[i%len(kinds)]
		_, _ = f.award.Handle(ctx, AwardXPCommand{
			UserID: u.ID,
			Kind:   kind,
			Amount: 1 + i%7,
			// Sources repeat so some awards are rejected as duplicates.
			Source: reward.Ref("thing", string(rune('a'+i%4))),
		})
		if i%9 == 0 {
			f.clock.Advance(13 * time.Hour)
		}
	}

	assert.Equal(t, f.store.LedgerSum(u.ID), f.store.UserXP(u.ID))
}

func TestAwardXP_BadgesAreGrantedOnce(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("fay")
	ctx := context.Background()

	var unlocked []string
	for i := 0; i < 10; i++ {
		res, err := f.award.Handle(ctx, AwardXPCommand{
			UserID: u.ID, Kind: reward.ActionPostCreated, Amount: 100,
		})
		require.NoError(t, err)
		for _, b := range res.UnlockedBadges {
			unlocked = append(unlocked, b.Code)
		}
	}

	assert.Equal(t, []string{"first_steps", "active_citizen"}, unlocked)
	assert.Equal(t, []string{"active_citizen", "first_steps"}, f.store.EarnedCodes(u.ID))
}

func TestAwardXP_ActionCountBadge(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("gus")
	ctx := context.Background()

	var last *AwardXPResult
	for i := 0; i < 5; i++ {
		res, err := f.award.Handle(ctx, AwardXPCommand{
			UserID: u.ID, Kind: reward.ActionQuizPassed, Amount: 50,
			Source: reward.Ref(reward.SourceQuiz, shared.NewID()),
		})
		require.NoError(t, err)
		last = res
	}

	var codes []string
	for _, b := range last.UnlockedBadges {
		codes = append(codes, b.Code)
	}
	assert.Contains(t, codes, "quiz_master")
}

func TestAwardXP_FailureRollsBackEverything(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("hana")
	f.store.GrantErr = errors.New("disk full")

	_, err := f.award.Handle(context.Background(), AwardXPCommand{
		UserID: u.ID, Kind: reward.ActionPostCreated, Amount: 10,
	})
	require.Error(t, err)

	assert.Zero(t, f.store.UserXP(u.ID))
	assert.Empty(t, f.store.Ledger(u.ID))
	assert.Zero(t, f.store.User(u.ID).Streak.Current)
	assert.Empty(t, f.pub.Types(), "nothing is published for a rolled back award")
}

func TestAwardXP_StreakAcrossDays(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("ivy")
	ctx := context.Background()
	award := func() *AwardXPResult {
		res, err := f.award.Handle(ctx, AwardXPCommand{UserID: u.ID, Kind: reward.ActionPostCreated, Amount: 1})
		require.NoError(t, err)
		return res
	}

	award()
	f.clock.Advance(24 * time.Hour)
	award()
	f.clock.Advance(24 * time.Hour)
	res := award()
	assert.Equal(t, 3, res.Streak.Current)
	assert.True(t, res.StreakExtended)

	res = award()
	assert.Equal(t, 3, res.Streak.Current)
	assert.False(t, res.StreakExtended, "same day does not extend")

	f.clock.Advance(72 * time.Hour)
	res = award()
	assert.Equal(t, 1, res.Streak.Current)
	assert.Equal(t, 3, res.Streak.Longest)

	stored := f.store.User(u.ID).Streak
	assert.Equal(t, 1, stored.Current)
	assert.Equal(t, 3, stored.Longest)
}

func TestAwardXP_ConcurrentDuplicatesPayOnce(t *testing.T) {
	f := newLedgerFixture()
	u := f.store.AddUser("jay")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.award.Handle(context.Background(), AwardXPCommand{
				UserID: u.ID, Kind: reward.ActionPollVoted, Amount: 10,
				Source: reward.Ref(reward.SourcePoll, "p1"),
			})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 10, f.store.UserXP(u.ID))
}
