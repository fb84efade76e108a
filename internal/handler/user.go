package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devfeed/internal/pagination"
	"github.com/sakif/devfeed/internal/service"
)

// UserHandler serves public profile pages: the profile record itself and
// the user's own post feed.
type UserHandler struct {
	auth   *service.AuthService
	feed   *service.FeedService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(authSvc *service.AuthService, feed *service.FeedService, logger *slog.Logger) *UserHandler {
	return &UserHandler{auth: authSvc, feed: feed, logger: logger}
}

// HandleGetProfile returns a user's public profile. The model excludes
// the password hash and GitHub ID from serialization.
//
// HTTP: GET /api/users/{username}
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.GetUserByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// HandleListUserPosts returns one page of a single author's posts. The
// hasMore flag reflects that author's post count only.
//
// HTTP: GET /api/users/{username}/posts?page=1&limit=5
func (h *UserHandler) HandleListUserPosts(w http.ResponseWriter, r *http.Request) {
	params := pagination.Parse(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))

	feed, err := h.feed.ListUserFeed(r.Context(), r.PathValue("username"), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, feed)
}
