// Package repository declares the persistence interfaces the service layer
// programs against. The sqlite subpackage provides the concrete store.
package repository

import (
	"context"

	"github.com/sakif/devfeed/internal/model"
)

// ListOptions selects one page of the feed. When AuthorID is set, both
// the listing and the total used for hasMore cover only that author's
// posts.
type ListOptions struct {
	Limit    int
	Offset   int
	AuthorID string
}

// PostRepository stores the post aggregate: the post row plus its embedded
// comment list and like set, read and rewritten as one unit.
//
// GetByID and List return posts with author references resolved (username
// and avatar for the post author and every comment author).
// UpdateAggregate persists the full in-memory aggregate back (content,
// snippet, like order, and comment list) with no version check, so the
// last writer wins when two mutations race on the same post.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	List(ctx context.Context, opts ListOptions) ([]model.Post, int, error)
	UpdateAggregate(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores accounts. The feed uses it only to resolve author
// references and to translate usernames into author IDs.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Upsert(ctx context.Context, user *model.User) error
}
