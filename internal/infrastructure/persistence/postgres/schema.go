package postgres

import (
	"fmt"
	"strings"

	"github.com/radake/rada-ke/internal/domain/reward"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXPECTED-TABLE REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Table is one expected table with the DDL that creates it.
// DDL may hold several statements (indexes, seed rows); it runs in one Exec.
type Table struct {
	Name      string
	DDL       string
	DependsOn []string
}

// Registry is an ordered list of tables. Every table must come after the
// tables it depends on.
type Registry []Table

// Names returns table names in registry order.
func (r Registry) Names() []string {
	names := make([]string, len(r))
	for i, t := range r {
		names[i] = t.Name
	}
	return names
}

// Validate checks that names are unique and non-empty, that every table has
// DDL, and that dependencies are declared earlier in the registry.
func (r Registry) Validate() error {
	seen := make(map[string]bool, len(r))
	for i, t := range r {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("schema: table %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("schema: table %q registered twice", t.Name)
		}
		if strings.TrimSpace(t.DDL) == "" {
			return fmt.Errorf("schema: table %q has no DDL", t.Name)
		}
		for _, dep := range t.DependsOn {
			if !seen[dep] {
				return fmt.Errorf("schema: table %q depends on %q which is not registered before it", t.Name, dep)
			}
		}
		seen[t.Name] = true
	}
	return nil
}

// DefaultRegistry returns every table Rada.ke needs, in creation order.
func DefaultRegistry() Registry {
	return Registry{
		{Name: "users", DDL: `
CREATE TABLE IF NOT EXISTS users (
	id               UUID PRIMARY KEY,
	nickname         VARCHAR(40)  NOT NULL,
	emoji            VARCHAR(16)  NOT NULL DEFAULT '',
	region           VARCHAR(64)  NOT NULL DEFAULT '',
	xp               INTEGER      NOT NULL DEFAULT 0 CHECK (xp >= 0),
	current_streak   INTEGER      NOT NULL DEFAULT 0,
	longest_streak   INTEGER      NOT NULL DEFAULT 0,
	last_active_date DATE,
	created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_xp ON users (xp DESC, id);
CREATE INDEX IF NOT EXISTS idx_users_region_xp ON users (region, xp DESC);`},

		{Name: "learning_modules", DDL: `
CREATE TABLE IF NOT EXISTS learning_modules (
	id          UUID PRIMARY KEY,
	slug        VARCHAR(160) NOT NULL,
	title       VARCHAR(200) NOT NULL,
	description TEXT         NOT NULL DEFAULT '',
	position    INTEGER      NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);`},

		{Name: "lessons", DependsOn: []string{"learning_modules"}, DDL: `
CREATE TABLE IF NOT EXISTS lessons (
	id        UUID PRIMARY KEY,
	module_id UUID         NOT NULL REFERENCES learning_modules(id) ON DELETE CASCADE,
	slug      VARCHAR(160) NOT NULL,
	title     VARCHAR(200) NOT NULL,
	body      TEXT         NOT NULL DEFAULT '',
	position  INTEGER      NOT NULL DEFAULT 0,
	xp_reward INTEGER      NOT NULL DEFAULT 20
);
CREATE INDEX IF NOT EXISTS idx_lessons_module ON lessons (module_id, position);`},

		{Name: "quizzes", DependsOn: []string{"learning_modules"}, DDL: `
CREATE TABLE IF NOT EXISTS quizzes (
	id            UUID PRIMARY KEY,
	module_id     UUID         NOT NULL REFERENCES learning_modules(id) ON DELETE CASCADE,
	slug          VARCHAR(160) NOT NULL,
	title         VARCHAR(200) NOT NULL,
	passing_score INTEGER      NOT NULL DEFAULT 70,
	xp_reward     INTEGER      NOT NULL DEFAULT 50,
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_quizzes_module ON quizzes (module_id);`},

		{Name: "quiz_questions", DependsOn: []string{"quizzes"}, DDL: `
CREATE TABLE IF NOT EXISTS quiz_questions (
	id             UUID PRIMARY KEY,
	quiz_id        UUID    NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	prompt         TEXT    NOT NULL,
	options        JSONB   NOT NULL DEFAULT '[]',
	correct_answer TEXT    NOT NULL,
	UNIQUE (quiz_id, position)
);`},

		{Name: "user_quiz_attempts", DependsOn: []string{"users", "quizzes"}, DDL: `
CREATE TABLE IF NOT EXISTS user_quiz_attempts (
	user_id       UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	quiz_id       UUID        NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
	attempt_count INTEGER     NOT NULL DEFAULT 0,
	best_score    INTEGER     NOT NULL DEFAULT 0,
	last_score    INTEGER     NOT NULL DEFAULT 0,
	completed     BOOLEAN     NOT NULL DEFAULT FALSE,
	completed_at  TIMESTAMPTZ,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, quiz_id)
);`},

		{Name: "lesson_completions", DependsOn: []string{"users", "lessons"}, DDL: `
CREATE TABLE IF NOT EXISTS lesson_completions (
	user_id      UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	lesson_id    UUID        NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, lesson_id)
);`},

		{Name: "xp_transactions", DependsOn: []string{"users"}, DDL: `
CREATE TABLE IF NOT EXISTS xp_transactions (
	id          UUID PRIMARY KEY,
	user_id     UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	action_kind VARCHAR(64)  NOT NULL,
	amount      INTEGER      NOT NULL CHECK (amount > 0),
	source_type VARCHAR(32)  NOT NULL DEFAULT '',
	source_id   VARCHAR(64)  NOT NULL DEFAULT '',
	award_date  DATE         NOT NULL,
	dedupe_key  VARCHAR(160),
	created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_xp_transactions_dedupe
	ON xp_transactions (user_id, action_kind, dedupe_key) WHERE dedupe_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_xp_transactions_user ON xp_transactions (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_xp_transactions_source ON xp_transactions (action_kind, source_type, source_id);`},

		{Name: "badges", DDL: `
CREATE TABLE IF NOT EXISTS badges (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	code          VARCHAR(64)  NOT NULL UNIQUE,
	name          VARCHAR(120) NOT NULL,
	description   TEXT         NOT NULL DEFAULT '',
	emoji         VARCHAR(16)  NOT NULL DEFAULT '',
	criteria_type VARCHAR(32)  NOT NULL,
	action_kind   VARCHAR(64)  NOT NULL DEFAULT '',
	threshold     INTEGER      NOT NULL CHECK (threshold > 0)
);` + badgeSeedSQL(reward.DefaultBadges())},

		{Name: "user_badges", DependsOn: []string{"users", "badges"}, DDL: `
CREATE TABLE IF NOT EXISTS user_badges (
	user_id   UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	badge_id  UUID        NOT NULL REFERENCES badges(id) ON DELETE CASCADE,
	earned_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, badge_id)
);`},

		{Name: "politicians", DDL: `
CREATE TABLE IF NOT EXISTS politicians (
	id         UUID PRIMARY KEY,
	slug       VARCHAR(160) NOT NULL,
	name       VARCHAR(160) NOT NULL,
	party      VARCHAR(120) NOT NULL DEFAULT '',
	position   VARCHAR(120) NOT NULL,
	county     VARCHAR(64)  NOT NULL DEFAULT '',
	bio        TEXT         NOT NULL DEFAULT '',
	photo_url  TEXT         NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_politicians_county ON politicians (county, name);`},

		{Name: "promises", DependsOn: []string{"politicians"}, DDL: `
CREATE TABLE IF NOT EXISTS promises (
	id            UUID PRIMARY KEY,
	politician_id UUID         NOT NULL REFERENCES politicians(id) ON DELETE CASCADE,
	title         VARCHAR(300) NOT NULL,
	status        VARCHAR(32)  NOT NULL DEFAULT 'pending',
	source_url    TEXT         NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);`},

		{Name: "voting_records", DependsOn: []string{"politicians"}, DDL: `
CREATE TABLE IF NOT EXISTS voting_records (
	id            UUID PRIMARY KEY,
	politician_id UUID         NOT NULL REFERENCES politicians(id) ON DELETE CASCADE,
	bill_title    VARCHAR(300) NOT NULL,
	vote          VARCHAR(16)  NOT NULL,
	voted_on      DATE         NOT NULL,
	created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_voting_records_politician ON voting_records (politician_id, voted_on DESC);`},

		{Name: "posts", DependsOn: []string{"users"}, DDL: `
CREATE TABLE IF NOT EXISTS posts (
	id         UUID PRIMARY KEY,
	author_id  UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	body       TEXT        NOT NULL,
	region     VARCHAR(64) NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC);`},

		{Name: "comments", DependsOn: []string{"posts", "users"}, DDL: `
CREATE TABLE IF NOT EXISTS comments (
	id         UUID PRIMARY KEY,
	post_id    UUID        NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id  UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	body       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id, created_at);`},

		{Name: "post_likes", DependsOn: []string{"posts", "users"}, DDL: `
CREATE TABLE IF NOT EXISTS post_likes (
	post_id    UUID        NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (post_id, user_id)
);`},

		{Name: "polls", DDL: `
CREATE TABLE IF NOT EXISTS polls (
	id         UUID PRIMARY KEY,
	question   TEXT        NOT NULL,
	closes_at  TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`},

		{Name: "poll_options", DependsOn: []string{"polls"}, DDL: `
CREATE TABLE IF NOT EXISTS poll_options (
	id       UUID PRIMARY KEY,
	poll_id  UUID         NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
	label    VARCHAR(200) NOT NULL,
	position INTEGER      NOT NULL DEFAULT 0
);`},

		{Name: "poll_votes", DependsOn: []string{"polls", "poll_options", "users"}, DDL: `
CREATE TABLE IF NOT EXISTS poll_votes (
	poll_id    UUID        NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
	option_id  UUID        NOT NULL REFERENCES poll_options(id) ON DELETE CASCADE,
	user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (poll_id, user_id)
);`},

		{Name: "memories", DependsOn: []string{"users"}, DDL: `
CREATE TABLE IF NOT EXISTS memories (
	id         UUID PRIMARY KEY,
	title      VARCHAR(200) NOT NULL,
	story      TEXT         NOT NULL DEFAULT '',
	photo_url  TEXT         NOT NULL DEFAULT '',
	region     VARCHAR(64)  NOT NULL DEFAULT '',
	created_by UUID         NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);`},

		{Name: "challenges", DDL: `
CREATE TABLE IF NOT EXISTS challenges (
	id          UUID PRIMARY KEY,
	slug        VARCHAR(160) NOT NULL,
	title       VARCHAR(200) NOT NULL,
	description TEXT         NOT NULL DEFAULT '',
	xp_reward   INTEGER      NOT NULL CHECK (xp_reward > 0),
	starts_at   TIMESTAMPTZ  NOT NULL,
	ends_at     TIMESTAMPTZ
);`},

		{Name: "challenge_completions", DependsOn: []string{"challenges", "users"}, DDL: `
CREATE TABLE IF NOT EXISTS challenge_completions (
	challenge_id UUID        NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
	user_id      UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (challenge_id, user_id)
);`},
	}
}

// badgeSeedSQL renders the starter catalogue as idempotent inserts.
func badgeSeedSQL(badges []reward.Badge) string {
	if len(badges) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nINSERT INTO badges (code, name, description, emoji, criteria_type, action_kind, threshold) VALUES\n")
	for i, badge := range badges {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t(%s, %s, %s, %s, %s, %s, %d)",
			quoteLiteral(badge.Code),
			quoteLiteral(badge.Name),
			quoteLiteral(badge.Description),
			quoteLiteral(badge.Emoji),
			quoteLiteral(string(badge.Criteria.Type)),
			quoteLiteral(string(badge.Criteria.ActionKind)),
			badge.Criteria.Threshold,
		)
	}
	b.WriteString("\nON CONFLICT (code) DO NOTHING;")
	return b.String()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
