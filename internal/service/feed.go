// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate input,
// enforce ownership, and orchestrate the repositories; repositories talk
// to SQLite. Services accept plain values and return domain errors from
// the apperror package, so they carry no HTTP knowledge.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/devfeed/internal/apperror"
	"github.com/sakif/devfeed/internal/model"
	"github.com/sakif/devfeed/internal/pagination"
	"github.com/sakif/devfeed/internal/repository"
)

// FeedService owns the post aggregate logic: publishing, the global and
// per-user feeds, like toggling, and the embedded comment collection.
//
// Every mutation follows the same shape: load the full aggregate, check
// ownership where the operation requires it, mutate the in-memory copy,
// and persist the whole aggregate back. The rewrite carries no version
// check, so concurrent mutations of one post resolve as last writer wins.
type FeedService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// NewFeedService creates a FeedService.
func NewFeedService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *FeedService {
	return &FeedService{
		posts:  posts,
		users:  users,
		logger: logger,
	}
}

// requireOwner is the single ownership rule gating every post and comment
// mutation: the stored author ID must equal the caller ID. It runs only
// after the entity's existence is confirmed, so missing entities surface
// as NotFound rather than Unauthorized.
func requireOwner(ownerID, callerID string) error {
	if ownerID != callerID {
		return apperror.Unauthorized("user not authorized")
	}
	return nil
}

// normalizeSnippet applies the default language to a submitted snippet.
// A nil snippet stays nil; the post simply has no code attached.
func normalizeSnippet(snippet *model.CodeSnippet) *model.CodeSnippet {
	if snippet == nil {
		return nil
	}
	s := *snippet
	if strings.TrimSpace(s.Language) == "" {
		s.Language = model.DefaultSnippetLanguage
	}
	return &s
}

// CreatePost publishes a new post by the caller. Content is required; the
// snippet is optional and gets the default language when untagged. The
// returned post has the author resolved and empty like/comment lists.
func (s *FeedService) CreatePost(ctx context.Context, authorID, content string, snippet *model.CodeSnippet) (*model.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "post content is required")
	}

	post := &model.Post{
		Author:      model.Author{ID: authorID},
		Content:     content,
		CodeSnippet: normalizeSnippet(snippet),
	}

	if err := s.posts.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("authorID", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("authorID", authorID),
	)

	// Re-read so the response carries the resolved author profile.
	return s.posts.GetByID(ctx, post.ID)
}

// GetPost returns the full aggregate with all author references resolved.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (s *FeedService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// ListFeed returns one page of the global feed, newest first.
func (s *FeedService) ListFeed(ctx context.Context, p pagination.Params) (*model.Feed, error) {
	return s.listPage(ctx, p, "")
}

// ListUserFeed returns one page of a single author's posts. Returns
// apperror.ErrNotFound if no user has that username. The hasMore flag is
// derived from the author-scoped total, not the global post count.
func (s *FeedService) ListUserFeed(ctx context.Context, username string, p pagination.Params) (*model.Feed, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.listPage(ctx, p, user.ID)
}

func (s *FeedService) listPage(ctx context.Context, p pagination.Params, authorID string) (*model.Feed, error) {
	posts, total, err := s.posts.List(ctx, repository.ListOptions{
		Limit:    p.Limit,
		Offset:   p.Offset(),
		AuthorID: authorID,
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &model.Feed{
		Posts:   posts,
		HasMore: p.HasMore(total),
	}, nil
}

// UpdatePost edits a post's content and, when a new snippet is supplied,
// its snippet. Only the post's author may edit; omitting the snippet
// keeps the existing one. Content is required, as at creation.
func (s *FeedService) UpdatePost(ctx context.Context, id, callerID, content string, snippet *model.CodeSnippet) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(post.Author.ID, callerID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(content) == "" {
		return nil, apperror.ValidationFailed("content", "post content is required")
	}

	post.Content = content
	if snippet != nil {
		post.CodeSnippet = normalizeSnippet(snippet)
	}

	if err := s.posts.UpdateAggregate(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	s.logger.Info("post updated", slog.String("id", id))

	return s.posts.GetByID(ctx, id)
}

// DeletePost removes a post and, with it, every embedded comment and
// like. Only the post's author may delete.
func (s *FeedService) DeletePost(ctx context.Context, id, callerID string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(post.Author.ID, callerID); err != nil {
		return err
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("post deleted",
		slog.String("id", id),
		slog.String("authorID", callerID),
	)
	return nil
}

// ToggleLike flips the caller's like on a post: present → removed,
// absent → inserted at the front. Returns the updated like list, most
// recent first. Any authenticated user may like any post.
func (s *FeedService) ToggleLike(ctx context.Context, postID, callerID string) ([]string, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	liked := false
	for _, userID := range post.Likes {
		if userID == callerID {
			liked = true
			break
		}
	}

	if liked {
		kept := make([]string, 0, len(post.Likes)-1)
		for _, userID := range post.Likes {
			if userID != callerID {
				kept = append(kept, userID)
			}
		}
		post.Likes = kept
	} else {
		post.Likes = append([]string{callerID}, post.Likes...)
	}

	if err := s.posts.UpdateAggregate(ctx, post); err != nil {
		s.logger.Error("failed to toggle like",
			slog.String("postID", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("toggling like: %w", err)
	}

	return post.Likes, nil
}

// AddComment prepends a new comment by the caller and returns the full,
// author-resolved comment list. Text is required.
func (s *FeedService) AddComment(ctx context.Context, postID, callerID, text string) ([]model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        xid.New().String(),
		Author:    model.Author{ID: callerID},
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	post.Comments = append([]model.Comment{comment}, post.Comments...)

	if err := s.posts.UpdateAggregate(ctx, post); err != nil {
		s.logger.Error("failed to add comment",
			slog.String("postID", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("adding comment: %w", err)
	}

	s.logger.Info("comment added",
		slog.String("postID", postID),
		slog.String("commentID", comment.ID),
	)

	return s.resolvedComments(ctx, postID)
}

// UpdateComment replaces a comment's text in place. The comment keeps its
// position in the list. Only the comment's author may edit it; a missing
// comment is NotFound and is checked before ownership.
func (s *FeedService) UpdateComment(ctx context.Context, postID, commentID, callerID, text string) ([]model.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	idx := findComment(post.Comments, commentID)
	if idx < 0 {
		return nil, apperror.NotFound("comment", commentID)
	}
	if err := requireOwner(post.Comments[idx].Author.ID, callerID); err != nil {
		return nil, err
	}

	post.Comments[idx].Text = text

	if err := s.posts.UpdateAggregate(ctx, post); err != nil {
		s.logger.Error("failed to update comment",
			slog.String("postID", postID),
			slog.String("commentID", commentID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating comment: %w", err)
	}

	return s.resolvedComments(ctx, postID)
}

// DeleteComment removes exactly one comment, preserving the relative
// order of the rest. Only the comment's author may delete it.
func (s *FeedService) DeleteComment(ctx context.Context, postID, commentID, callerID string) ([]model.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	idx := findComment(post.Comments, commentID)
	if idx < 0 {
		return nil, apperror.NotFound("comment", commentID)
	}
	if err := requireOwner(post.Comments[idx].Author.ID, callerID); err != nil {
		return nil, err
	}

	post.Comments = append(post.Comments[:idx], post.Comments[idx+1:]...)

	if err := s.posts.UpdateAggregate(ctx, post); err != nil {
		s.logger.Error("failed to delete comment",
			slog.String("postID", postID),
			slog.String("commentID", commentID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("deleting comment: %w", err)
	}

	s.logger.Info("comment deleted",
		slog.String("postID", postID),
		slog.String("commentID", commentID),
	)

	return s.resolvedComments(ctx, postID)
}

// resolvedComments re-reads the aggregate so the returned comment list
// carries resolved author profiles, mirroring what a follow-up GET would
// return.
func (s *FeedService) resolvedComments(ctx context.Context, postID string) ([]model.Comment, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

func findComment(comments []model.Comment, id string) int {
	for i := range comments {
		if comments[i].ID == id {
			return i
		}
	}
	return -1
}
