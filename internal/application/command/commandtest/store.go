// Package commandtest provides in-memory stand-ins for the ledger and the
// repositories the command handlers use, so handlers can be exercised
// without Postgres.
package commandtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/leaderboard"
	"github.com/radake/rada-ke/internal/domain/learning"
	"github.com/radake/rada-ke/internal/domain/reward"
	"github.com/radake/rada-ke/internal/domain/shared"
	"github.com/radake/rada-ke/internal/domain/user"
)

// state is the transactional part of the in-memory store. Do works on a
// clone and swaps it in only when fn succeeds.
type state struct {
	users     map[string]user.User
	txs       []reward.Transaction
	dedupe    map[string]bool
	earned    map[string]map[string]time.Time
	attempts  map[string]learning.Attempt
	posts     map[string]community.Post
	comments  []community.Comment
	likes     map[string]bool
	votes     map[string]string
	completed map[string]bool
}

func newState() *state {
	return &state{
		users:     map[string]user.User{},
		dedupe:    map[string]bool{},
		earned:    map[string]map[string]time.Time{},
		attempts:  map[string]learning.Attempt{},
		posts:     map[string]community.Post{},
		likes:     map[string]bool{},
		votes:     map[string]string{},
		completed: map[string]bool{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	c.txs = append(c.txs, s.txs...)
	for k, v := range s.dedupe {
		c.dedupe[k] = v
	}
	for k, v := range s.earned {
		m := make(map[string]time.Time, len(v))
		for b, at := range v {
			m[b] = at
		}
		c.earned[k] = m
	}
	for k, v := range s.attempts {
		c.attempts[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	c.comments = append(c.comments, s.comments...)
	for k, v := range s.likes {
		c.likes[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.completed {
		c.completed[k] = v
	}
	return c
}

// Store is an in-memory reward.UnitOfWork plus the read repositories the
// handlers need. Do holds a single lock, which stands in for row locks.
type Store struct {
	mu    sync.Mutex
	state *state

	badges     []reward.Badge
	modules    map[string]*learning.Module
	lessons    map[string]*learning.Lesson
	quizzes    map[string]*learning.Quiz
	polls      map[string]*community.Poll
	memories   map[string]*community.Memory
	challenges map[string]*community.Challenge

	// GrantErr makes GrantBadge fail, to exercise rollback.
	GrantErr error
}

var (
	_ reward.UnitOfWork      = (*Store)(nil)
	_ reward.Tx              = (*txn)(nil)
	_ learning.Repository    = (*Store)(nil)
	_ community.Repository   = (*Store)(nil)
	_ reward.BadgeRepository = (*Store)(nil)
)

func NewStore() *Store {
	s := &Store{
		state:      newState(),
		modules:    map[string]*learning.Module{},
		lessons:    map[string]*learning.Lesson{},
		quizzes:    map[string]*learning.Quiz{},
		polls:      map[string]*community.Poll{},
		memories:   map[string]*community.Memory{},
		challenges: map[string]*community.Challenge{},
	}
	for _, b := range reward.DefaultBadges() {
		b.ID = shared.NewID()
		s.badges = append(s.badges, b)
	}
	return s
}

func (s *Store) Do(ctx context.Context, fn func(tx reward.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&txn{store: s, st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

// AddUser inserts a user directly, outside any unit of work.
func (s *Store) AddUser(nickname string) *user.User {
	u, err := user.New(nickname, "", "nairobi", time.Now())
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	s.state.users[u.ID] = *u
	s.mu.Unlock()
	return u
}

func (s *Store) UserXP(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(s.state.users[id].XP)
}

func (s *Store) User(id string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.users[id]
}

func (s *Store) Ledger(userID string) []reward.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reward.Transaction
	for _, t := range s.state.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) LedgerSum(userID string) int {
	sum := 0
	for _, t := range s.Ledger(userID) {
		sum += t.Amount
	}
	return sum
}

func (s *Store) EarnedCodes(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []string
	for _, b := range s.badges {
		if _, ok := s.state.earned[userID][b.ID]; ok {
			codes = append(codes, b.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

// ══════════════════════════════════════════════════════════════════════════════
// TX
// ══════════════════════════════════════════════════════════════════════════════

type txn struct {
	store *Store
	st    *state
}

func (t *txn) LockUser(_ context.Context, userID string) (*user.User, error) {
	u, ok := t.st.users[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

func (t *txn) AppendTransaction(_ context.Context, tr *reward.Transaction) error {
	if tr.DedupeKey != nil {
		key := tr.UserID + "|" + tr.Kind.String() + "|" + *tr.DedupeKey
		if t.st.dedupe[key] {
			return shared.ErrAlreadyPerformed
		}
		t.st.dedupe[key] = true
	}
	t.st.txs = append(t.st.txs, *tr)
	return nil
}

func (t *txn) IncrementXP(_ context.Context, userID string, amount int) (int, error) {
	u := t.st.users[userID]
	u.XP += user.XP(amount)
	t.st.users[userID] = u
	return int(u.XP), nil
}

func (t *txn) SaveStreak(_ context.Context, s user.Streak) error {
	u := t.st.users[s.UserID]
	u.Streak = s
	t.st.users[s.UserID] = u
	return nil
}

func (t *txn) CountActions(_ context.Context, userID string, kind reward.ActionKind) (int, error) {
	n := 0
	for _, tr := range t.st.txs {
		if tr.UserID == userID && tr.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (t *txn) ListBadges(context.Context) ([]reward.Badge, error) {
	return append([]reward.Badge(nil), t.store.badges...), nil
}

func (t *txn) EarnedBadgeIDs(_ context.Context, userID string) (map[string]bool, error) {
	out := map[string]bool{}
	for id := range t.st.earned[userID] {
		out[id] = true
	}
	return out, nil
}

func (t *txn) GrantBadge(_ context.Context, userID, badgeID string, at time.Time) (bool, error) {
	if t.store.GrantErr != nil {
		return false, t.store.GrantErr
	}
	if t.st.earned[userID] == nil {
		t.st.earned[userID] = map[string]time.Time{}
	}
	if _, ok := t.st.earned[userID][badgeID]; ok {
		return false, nil
	}
	t.st.earned[userID][badgeID] = at
	return true, nil
}

func (t *txn) LockAttempt(_ context.Context, userID, quizID string) (*learning.Attempt, error) {
	a, ok := t.st.attempts[userID+"|"+quizID]
	if !ok {
		a = learning.Attempt{UserID: userID, QuizID: quizID}
	}
	return &a, nil
}

func (t *txn) SaveAttempt(_ context.Context, a *learning.Attempt) error {
	t.st.attempts[a.UserID+"|"+a.QuizID] = *a
	return nil
}

func (t *txn) InsertPost(_ context.Context, p *community.Post) error {
	t.st.posts[p.ID] = *p
	return nil
}

func (t *txn) InsertComment(_ context.Context, c *community.Comment) error {
	if _, ok := t.st.posts[c.PostID]; !ok {
		return shared.ErrPostNotFound
	}
	t.st.comments = append(t.st.comments, *c)
	return nil
}

func (t *txn) InsertPostLike(_ context.Context, postID, userID string) error {
	key := postID + "|" + userID
	if t.st.likes[key] {
		return shared.ErrAlreadyLiked
	}
	t.st.likes[key] = true
	return nil
}

func (t *txn) InsertPollVote(_ context.Context, pollID, optionID, userID string) error {
	key := pollID + "|" + userID
	if _, ok := t.st.votes[key]; ok {
		return shared.ErrAlreadyVoted
	}
	t.st.votes[key] = optionID
	return nil
}

func (t *txn) InsertChallengeCompletion(_ context.Context, challengeID, userID string) error {
	return t.complete("challenge|" + challengeID + "|" + userID)
}

func (t *txn) InsertLessonCompletion(_ context.Context, lessonID, userID string) error {
	return t.complete("lesson|" + lessonID + "|" + userID)
}

func (t *txn) complete(key string) error {
	if t.st.completed[key] {
		return shared.ErrAlreadyCompleted
	}
	t.st.completed[key] = true
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// READ REPOSITORIES
// ══════════════════════════════════════════════════════════════════════════════

// learning.Repository

func (s *Store) CreateModule(_ context.Context, m *learning.Module) error {
	s.modules[m.ID] = m
	return nil
}

func (s *Store) ListModules(context.Context) ([]*learning.Module, error) {
	var out []*learning.Module
	for _, m := range s.modules {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) GetModule(_ context.Context, id string) (*learning.Module, error) {
	if m, ok := s.modules[id]; ok {
		return m, nil
	}
	return nil, shared.ErrModuleNotFound
}

func (s *Store) CreateLesson(_ context.Context, l *learning.Lesson) error {
	s.lessons[l.ID] = l
	return nil
}

func (s *Store) GetLesson(_ context.Context, id string) (*learning.Lesson, error) {
	if l, ok := s.lessons[id]; ok {
		return l, nil
	}
	return nil, shared.ErrLessonNotFound
}

func (s *Store) CreateQuiz(_ context.Context, q *learning.Quiz) error {
	s.quizzes[q.ID] = q
	return nil
}

func (s *Store) GetQuiz(_ context.Context, id string) (*learning.Quiz, error) {
	if q, ok := s.quizzes[id]; ok {
		return q, nil
	}
	return nil, shared.ErrQuizNotFound
}

func (s *Store) ListQuizzes(_ context.Context, moduleID string) ([]*learning.Quiz, error) {
	var out []*learning.Quiz
	for _, q := range s.quizzes {
		if q.ModuleID == moduleID {
			out = append(out, q)
		}
	}
	return out, nil
}

// community.Repository

func (s *Store) GetPost(_ context.Context, id string) (*community.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.state.posts[id]; ok {
		return &p, nil
	}
	return nil, shared.ErrPostNotFound
}

func (s *Store) ListPosts(context.Context, shared.Region, shared.Page) ([]*community.Post, error) {
	return nil, nil
}

func (s *Store) ListComments(context.Context, string, shared.Page) ([]*community.Comment, error) {
	return nil, nil
}

func (s *Store) CreatePoll(_ context.Context, p *community.Poll) error {
	s.polls[p.ID] = p
	return nil
}

func (s *Store) GetPoll(_ context.Context, id string) (*community.Poll, error) {
	if p, ok := s.polls[id]; ok {
		return p, nil
	}
	return nil, shared.ErrPollNotFound
}

func (s *Store) ListPolls(context.Context, shared.Page) ([]*community.Poll, error) {
	return nil, nil
}

func (s *Store) CreateMemory(_ context.Context, m *community.Memory) error {
	s.memories[m.ID] = m
	return nil
}

func (s *Store) GetMemory(_ context.Context, id string) (*community.Memory, error) {
	if m, ok := s.memories[id]; ok {
		return m, nil
	}
	return nil, shared.ErrMemoryNotFound
}

func (s *Store) ListMemories(context.Context, shared.Page) ([]*community.Memory, error) {
	return nil, nil
}

func (s *Store) SetMemoryPhoto(_ context.Context, id, url string) error {
	m, ok := s.memories[id]
	if !ok {
		return shared.ErrMemoryNotFound
	}
	m.PhotoURL = url
	return nil
}

func (s *Store) CreateChallenge(_ context.Context, c *community.Challenge) error {
	s.challenges[c.ID] = c
	return nil
}

func (s *Store) GetChallenge(_ context.Context, id string) (*community.Challenge, error) {
	if c, ok := s.challenges[id]; ok {
		return c, nil
	}
	return nil, shared.ErrChallengeNotFound
}

func (s *Store) ListChallenges(context.Context, shared.Page) ([]*community.Challenge, error) {
	return nil, nil
}

// reward.BadgeRepository

func (s *Store) CreateBadge(_ context.Context, b *reward.Badge) error {
	for _, existing := range s.badges {
		if existing.Code == b.Code {
			return shared.NewDomainError("reward", "CreateBadge", shared.ErrAlreadyExists, "badge code already used")
		}
	}
	s.badges = append(s.badges, *b)
	return nil
}

func (s *Store) ListBadges(context.Context) ([]reward.Badge, error) {
	return s.badges, nil
}

func (s *Store) ListEarned(context.Context, string) ([]reward.EarnedBadge, error) {
	return nil, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OTHER FAKES
// ══════════════════════════════════════════════════════════════════════════════

// Publisher records published events.
type Publisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *Publisher) Publish(_ context.Context, events ...shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *Publisher) Types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// Board records the last score pushed for each user.
type Board struct {
	mu     sync.Mutex
	scores map[string]int
}

func (b *Board) UpdateScore(_ context.Context, e leaderboard.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scores == nil {
		b.scores = map[string]int{}
	}
	b.scores[e.UserID] = e.XP
	return nil
}

// Score returns the last score pushed for userID.
func (b *Board) Score(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scores[userID]
}

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
