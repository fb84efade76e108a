package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devfeed/internal/apperror"
	"github.com/sakif/devfeed/internal/model"
	"github.com/sakif/devfeed/internal/repository"
)

// compile-time check that *DB implements repository.PostRepository
var _ repository.PostRepository = (*DB)(nil)

// Create inserts a new post. The aggregate starts with no likes and no
// comments, so only the posts row is written. ID and CreatedAt are
// assigned here; the caller's struct is updated in place.
func (db *DB) Create(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = time.Now().UTC()

	var lang, code sql.NullString
	if post.CodeSnippet != nil {
		lang = sql.NullString{String: post.CodeSnippet.Language, Valid: true}
		code = sql.NullString{String: post.CodeSnippet.Code, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, content, snippet_language, snippet_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Author.ID,
		post.Content,
		lang,
		code,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	return nil
}

// GetByID loads the full aggregate: the post row with its author resolved,
// the ordered like list, and the ordered comment list with each comment's
// author resolved.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var (
		post       model.Post
		lang, code sql.NullString
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT p.id, p.content, p.snippet_language, p.snippet_code, p.created_at,
		        u.id, u.username, u.avatar_url
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.id = ?`,
		id,
	).Scan(
		&post.ID,
		&post.Content,
		&lang,
		&code,
		&post.CreatedAt,
		&post.Author.ID,
		&post.Author.Username,
		&post.Author.AvatarURL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	if lang.Valid || code.Valid {
		post.CodeSnippet = &model.CodeSnippet{Language: lang.String, Code: code.String}
	}

	if err := db.loadEmbedded(ctx, &post); err != nil {
		return nil, err
	}

	return &post, nil
}

// List returns one page of posts, newest first, plus the total count of
// posts matching the same filter. The count deliberately covers only the
// filtered set so hasMore is correct on per-author feeds.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, int, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if opts.AuthorID != "" {
		where = "WHERE p.author_id = ?"
		args = append(args, opts.AuthorID)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM posts p %s`, where)
	if err := db.conn.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}

	// id DESC as tiebreak keeps pages stable when posts share a timestamp
	// (xid is time-ordered, so this matches creation order).
	pageQuery := fmt.Sprintf(
		`SELECT p.id, p.content, p.snippet_language, p.snippet_code, p.created_at,
		        u.id, u.username, u.avatar_url
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 %s
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ? OFFSET ?`, where)

	rows, err := db.conn.QueryContext(ctx, pageQuery, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		var (
			p          model.Post
			lang, code sql.NullString
		)
		if err := rows.Scan(
			&p.ID, &p.Content, &lang, &code, &p.CreatedAt,
			&p.Author.ID, &p.Author.Username, &p.Author.AvatarURL,
		); err != nil {
			return nil, 0, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		if lang.Valid || code.Valid {
			p.CodeSnippet = &model.CodeSnippet{Language: lang.String, Code: code.String}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	for i := range posts {
		if err := db.loadEmbedded(ctx, &posts[i]); err != nil {
			return nil, 0, err
		}
	}

	return posts, total, nil
}

// UpdateAggregate rewrites the whole aggregate from the in-memory post:
// content and snippet on the posts row, then the like and comment lists,
// whose stored positions are reassigned from slice order.
//
// The rewrite runs in one transaction so a reader never sees a half-written
// aggregate. There is no version check: if two mutations race on the same
// post, the second writer overwrites the first (last writer wins). A
// hardened version would add a version column checked in the UPDATE's
// WHERE clause and return apperror.Conflict on mismatch.
func (db *DB) UpdateAggregate(ctx context.Context, post *model.Post) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning aggregate rewrite: %w", err)
	}
	defer tx.Rollback()

	var lang, code sql.NullString
	if post.CodeSnippet != nil {
		lang = sql.NullString{String: post.CodeSnippet.Language, Valid: true}
		code = sql.NullString{String: post.CodeSnippet.Code, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE posts SET content = ?, snippet_language = ?, snippet_code = ?
		 WHERE id = ?`,
		post.Content, lang, code, post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", post.ID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = ?`, post.ID); err != nil {
		return fmt.Errorf("sqlite: clearing likes for post %s: %w", post.ID, err)
	}
	for i, userID := range post.Likes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id, position) VALUES (?, ?, ?)`,
			post.ID, userID, i,
		); err != nil {
			return fmt.Errorf("sqlite: writing like for post %s: %w", post.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM comments WHERE post_id = ?`, post.ID); err != nil {
		return fmt.Errorf("sqlite: clearing comments for post %s: %w", post.ID, err)
	}
	for i, c := range post.Comments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, post_id, author_id, text, created_at, position)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, post.ID, c.Author.ID, c.Text, c.CreatedAt, i,
		); err != nil {
			return fmt.Errorf("sqlite: writing comment %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing aggregate rewrite: %w", err)
	}

	return nil
}

// Delete removes a post. Foreign keys cascade the delete to the post's
// comments and likes, so the whole aggregate goes in one statement.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("post", id)
	}

	return nil
}

// loadEmbedded populates a post's like list and comment list in stored
// order. Likes and comments are always non-nil so they serialize as [].
func (db *DB) loadEmbedded(ctx context.Context, post *model.Post) error {
	post.Likes = []string{}
	post.Comments = []model.Comment{}

	likeRows, err := db.conn.QueryContext(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY position`,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading likes for post %s: %w", post.ID, err)
	}
	defer likeRows.Close()

	for likeRows.Next() {
		var userID string
		if err := likeRows.Scan(&userID); err != nil {
			return fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		post.Likes = append(post.Likes, userID)
	}
	if err := likeRows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating likes: %w", err)
	}

	commentRows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.text, c.created_at, u.id, u.username, u.avatar_url
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ?
		 ORDER BY c.position`,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading comments for post %s: %w", post.ID, err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var c model.Comment
		if err := commentRows.Scan(
			&c.ID, &c.Text, &c.CreatedAt,
			&c.Author.ID, &c.Author.Username, &c.Author.AvatarURL,
		); err != nil {
			return fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		post.Comments = append(post.Comments, c)
	}
	if err := commentRows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return nil
}
