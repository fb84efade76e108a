package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devfeed/internal/auth"
	"github.com/sakif/devfeed/internal/model"
	"github.com/sakif/devfeed/internal/pagination"
	"github.com/sakif/devfeed/internal/service"
)

// PostHandler serves the feed: post CRUD, like toggling, and comments.
// All mutation routes sit behind auth.RequireAuth, so a caller ID is
// always present in the request context there.
type PostHandler struct {
	feed   *service.FeedService
	logger *slog.Logger
}

// NewPostHandler creates a PostHandler.
func NewPostHandler(feed *service.FeedService, logger *slog.Logger) *PostHandler {
	return &PostHandler{feed: feed, logger: logger}
}

// postRequest is the body for creating and updating posts. The snippet is
// optional; a post can be plain text.
type postRequest struct {
	Content     string             `json:"content"`
	CodeSnippet *model.CodeSnippet `json:"codeSnippet,omitempty"`
}

// commentRequest is the body for adding and editing comments.
type commentRequest struct {
	Text string `json:"text"`
}

// HandleCreate creates a post for the logged-in user.
//
// HTTP: POST /api/posts
// BODY: {"content": "...", "codeSnippet": {"language": "go", "code": "..."}}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.feed.CreatePost(r.Context(), userID, req.Content, req.CodeSnippet)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleList returns one page of the global feed, newest first.
//
// HTTP: GET /api/posts?page=1&limit=5
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	params := pagination.Parse(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))

	feed, err := h.feed.ListFeed(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}

// HandleGetByID returns a single post with its likes and comments.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	post, err := h.feed.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleUpdate replaces a post's content and, if supplied, its snippet.
// Only the author may edit.
//
// HTTP: PUT /api/posts/{id}
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.feed.UpdatePost(r.Context(), r.PathValue("id"), userID, req.Content, req.CodeSnippet)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post together with its likes and comments.
// Only the author may delete.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.feed.DeletePost(r.Context(), r.PathValue("id"), userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "post removed"})
}

// HandleToggleLike flips the caller's like on a post and returns the full
// like list, most recent first.
//
// HTTP: PUT /api/posts/{id}/like
func (h *PostHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	likes, err := h.feed.ToggleLike(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"likes": likes})
}

// HandleAddComment prepends a comment and returns the full comment list,
// newest first.
//
// HTTP: POST /api/posts/{id}/comment
// BODY: {"text": "..."}
func (h *PostHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.feed.AddComment(r.Context(), r.PathValue("id"), userID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.Comment{"comments": comments})
}

// HandleUpdateComment edits a comment's text in place. Only the comment's
// author may edit.
//
// HTTP: PUT /api/posts/{id}/comments/{commentID}
func (h *PostHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.feed.UpdateComment(r.Context(), r.PathValue("id"), r.PathValue("commentID"), userID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.Comment{"comments": comments})
}

// HandleDeleteComment removes a comment. Only the comment's author may
// delete.
//
// HTTP: DELETE /api/posts/{id}/comments/{commentID}
func (h *PostHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	comments, err := h.feed.DeleteComment(r.Context(), r.PathValue("id"), r.PathValue("commentID"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.Comment{"comments": comments})
}
