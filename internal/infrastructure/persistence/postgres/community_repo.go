package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/radake/rada-ke/internal/domain/community"
	"github.com/radake/rada-ke/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMUNITY REPOSITORY IMPLEMENTATION
// Writes that pay XP live in ledgerTx; this repository covers reads and the
// authoring writes that don't.
// ══════════════════════════════════════════════════════════════════════════════

// CommunityRepository implements community.Repository for PostgreSQL.
type CommunityRepository struct {
	conn *Connection
}

// NewCommunityRepository creates a new CommunityRepository.
func NewCommunityRepository(conn *Connection) *CommunityRepository {
	return &CommunityRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Feed
// ─────────────────────────────────────────────────────────────────────────────

const postSelect = `
	SELECT p.id, p.author_id, p.body, p.region, p.created_at,
	       (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id)
	FROM posts p`

func (r *CommunityRepository) GetPost(ctx context.Context, id string) (*community.Post, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrPostNotFound
	}
	p, err := scanPost(r.conn.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrPostNotFound
	}
	return p, err
}

// ListPosts returns the newest posts, optionally for one region.
func (r *CommunityRepository) ListPosts(ctx context.Context, region shared.Region, page shared.Page) ([]*community.Post, error) {
	rows, err := r.conn.Query(ctx, postSelect+`
		WHERE ($1 = '' OR p.region = $1)
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`, string(region), page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*community.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func scanPost(row pgx.Row) (*community.Post, error) {
	var (
		p      community.Post
		region string
	)
	err := row.Scan(&p.ID, &p.AuthorID, &p.Body, &region, &p.CreatedAt, &p.LikeCount, &p.CommentCount)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}
	p.Region = shared.Region(region)
	return &p, nil
}

// ListComments returns a post's comments, oldest first.
func (r *CommunityRepository) ListComments(ctx context.Context, postID string, page shared.Page) ([]*community.Comment, error) {
	if !shared.IsValidID(postID) {
		return nil, shared.ErrPostNotFound
	}
	rows, err := r.conn.Query(ctx, `
		SELECT id, post_id, author_id, body, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, postID, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*community.Comment
	for rows.Next() {
		var c community.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Polls
// ─────────────────────────────────────────────────────────────────────────────

// CreatePoll inserts the poll and its options in one transaction.
func (r *CommunityRepository) CreatePoll(ctx context.Context, p *community.Poll) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO polls (id, question, closes_at, created_at) VALUES ($1, $2, $3, $4)
		`, p.ID, p.Question, p.ClosesAt, p.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert poll: %w", err)
		}
		for _, o := range p.Options {
			if _, err := tx.Exec(ctx, `
				INSERT INTO poll_options (id, poll_id, label, position) VALUES ($1, $2, $3, $4)
			`, o.ID, p.ID, o.Label, o.Position); err != nil {
				return fmt.Errorf("failed to insert poll option: %w", err)
			}
		}
		return nil
	})
}

// GetPoll returns the poll with options and their vote counts.
func (r *CommunityRepository) GetPoll(ctx context.Context, id string) (*community.Poll, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrPollNotFound
	}
	var p community.Poll
	err := r.conn.QueryRow(ctx, `
		SELECT id, question, closes_at, created_at FROM polls WHERE id = $1
	`, id).Scan(&p.ID, &p.Question, &p.ClosesAt, &p.CreatedAt)
	if IsNoRows(err) {
		return nil, shared.ErrPollNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := r.pollOptions(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Options = options
	return &p, nil
}

func (r *CommunityRepository) pollOptions(ctx context.Context, pollID string) ([]community.PollOption, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT o.id, o.poll_id, o.label, o.position,
		       (SELECT COUNT(*) FROM poll_votes v WHERE v.option_id = o.id)
		FROM poll_options o
		WHERE o.poll_id = $1
		ORDER BY o.position
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to load poll options: %w", err)
	}
	defer rows.Close()

	var options []community.PollOption
	for rows.Next() {
		var o community.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.Label, &o.Position, &o.Votes); err != nil {
			return nil, fmt.Errorf("failed to scan poll option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ListPolls returns the newest polls with their options.
func (r *CommunityRepository) ListPolls(ctx context.Context, page shared.Page) ([]*community.Poll, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, question, closes_at, created_at
		FROM polls
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}

	var polls []*community.Poll
	for rows.Next() {
		var p community.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.ClosesAt, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range polls {
		if p.Options, err = r.pollOptions(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return polls, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Memories
// ─────────────────────────────────────────────────────────────────────────────

func (r *CommunityRepository) CreateMemory(ctx context.Context, m *community.Memory) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO memories (id, title, story, photo_url, region, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.Title, m.Story, m.PhotoURL, string(m.Region), m.CreatedBy, m.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return shared.ErrUserNotFound
		}
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// GetMemory returns the memory without its candle count, which the ledger owns.
func (r *CommunityRepository) GetMemory(ctx context.Context, id string) (*community.Memory, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrMemoryNotFound
	}
	m, err := scanMemory(r.conn.QueryRow(ctx, `
		SELECT id, title, story, photo_url, region, created_by, created_at
		FROM memories WHERE id = $1
	`, id))
	if IsNoRows(err) {
		return nil, shared.ErrMemoryNotFound
	}
	return m, err
}

// ListMemories returns memories with candle counts from the ledger.
func (r *CommunityRepository) ListMemories(ctx context.Context, page shared.Page) ([]*community.Memory, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT m.id, m.title, m.story, m.photo_url, m.region, m.created_by, m.created_at,
		       (SELECT COUNT(*) FROM xp_transactions t
		        WHERE t.action_kind = 'light_candle' AND t.source_type = 'memory' AND t.source_id = m.id::text)
		FROM memories m
		ORDER BY m.created_at DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	var memories []*community.Memory
	for rows.Next() {
		var (
			m      community.Memory
			region string
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Story, &m.PhotoURL, &region, &m.CreatedBy, &m.CreatedAt, &m.Candles); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		m.Region = shared.Region(region)
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}

func (r *CommunityRepository) SetMemoryPhoto(ctx context.Context, id, url string) error {
	tag, err := r.conn.Exec(ctx, `UPDATE memories SET photo_url = $1 WHERE id = $2`, url, id)
	if err != nil {
		return fmt.Errorf("failed to set memory photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrMemoryNotFound
	}
	return nil
}

func scanMemory(row pgx.Row) (*community.Memory, error) {
	var (
		m      community.Memory
		region string
	)
	err := row.Scan(&m.ID, &m.Title, &m.Story, &m.PhotoURL, &region, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan memory: %w", err)
	}
	m.Region = shared.Region(region)
	return &m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Challenges
// ─────────────────────────────────────────────────────────────────────────────

func (r *CommunityRepository) CreateChallenge(ctx context.Context, c *community.Challenge) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO challenges (id, slug, title, description, xp_reward, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.Slug, c.Title, c.Description, c.XPReward, c.StartsAt, c.EndsAt)
	if err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *CommunityRepository) GetChallenge(ctx context.Context, id string) (*community.Challenge, error) {
	if !shared.IsValidID(id) {
		return nil, shared.ErrChallengeNotFound
	}
	c, err := scanChallenge(r.conn.QueryRow(ctx, `
		SELECT id, slug, title, description, xp_reward, starts_at, ends_at
		FROM challenges WHERE id = $1
	`, id))
	if IsNoRows(err) {
		return nil, shared.ErrChallengeNotFound
	}
	return c, err
}

// ListChallenges returns challenges, latest start first.
func (r *CommunityRepository) ListChallenges(ctx context.Context, page shared.Page) ([]*community.Challenge, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, slug, title, description, xp_reward, starts_at, ends_at
		FROM challenges
		ORDER BY starts_at DESC
		LIMIT $1 OFFSET $2
	`, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*community.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func scanChallenge(row pgx.Row) (*community.Challenge, error) {
	var (
		c      community.Challenge
		endsAt *time.Time
	)
	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Description, &c.XPReward, &c.StartsAt, &endsAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}
	c.EndsAt = endsAt
	return &c, nil
}
