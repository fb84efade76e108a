package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devfeed/internal/model"
	"github.com/sakif/devfeed/internal/server"
)

// newTestHandler builds the full router on an in-memory database, so
// these tests cover routing, auth middleware, handlers, services, and the
// store together.
func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{
		DBPath:    ":memory:",
		JWTSecret: "handler-test-secret-0123456789",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	return srv.Handler()
}

// doJSON performs a request against the router. A non-empty token is sent
// as the session cookie, the way the browser client authenticates.
func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// registerUser signs up a user and returns the session token from the
// Set-Cookie header.
func registerUser(t *testing.T, h http.Handler, username string) string {
	t.Helper()

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rr.Code, "register %s: %s", username, rr.Body.String())

	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("register %s: no session cookie in response", username)
	return ""
}

func createPost(t *testing.T, h http.Handler, token, content string) model.Post {
	t.Helper()

	rr := doJSON(t, h, http.MethodPost, "/api/posts", token, map[string]string{"content": content})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var post model.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&post))
	return post
}

func TestPostRoutes_CreateAndGet(t *testing.T) {
	h := newTestHandler(t)
	token := registerUser(t, h, "alice")

	rr := doJSON(t, h, http.MethodPost, "/api/posts", token, map[string]interface{}{
		"content": "first post",
		"codeSnippet": map[string]string{
			"language": "go",
			"code":     `fmt.Println("hi")`,
		},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var created model.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "alice", created.Author.Username)
	assert.Equal(t, "go", created.CodeSnippet.Language)
	assert.Empty(t, created.Likes)
	assert.Empty(t, created.Comments)

	rr = doJSON(t, h, http.MethodGet, "/api/posts/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var fetched model.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "first post", fetched.Content)
}

func TestPostRoutes_CreateRequiresAuth(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodPost, "/api/posts", "", map[string]string{"content": "anonymous"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestPostRoutes_CreateInvalidJSON(t *testing.T) {
	h := newTestHandler(t)
	token := registerUser(t, h, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/posts", bytes.NewBufferString(`{"content":`))
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostRoutes_GetUnknownID(t *testing.T) {
	h := newTestHandler(t)

	rr := doJSON(t, h, http.MethodGet, "/api/posts/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errResp))
	assert.Equal(t, "not_found", errResp["error"])
}

func TestPostRoutes_FeedPagination(t *testing.T) {
	h := newTestHandler(t)
	token := registerUser(t, h, "alice")

	for i := 0; i < 7; i++ {
		createPost(t, h, token, fmt.Sprintf("post %d", i))
	}

	// Default page and limit: first 5, more available.
	rr := doJSON(t, h, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var feed model.Feed
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	assert.Len(t, feed.Posts, 5)
	assert.True(t, feed.HasMore)
	assert.Equal(t, "post 6", feed.Posts[0].Content, "newest post first")

	rr = doJSON(t, h, http.MethodGet, "/api/posts?page=2&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	assert.Len(t, feed.Posts, 2)
	assert.False(t, feed.HasMore)
}

func TestPostRoutes_UpdateByNonAuthor(t *testing.T) {
	h := newTestHandler(t)
	aliceToken := registerUser(t, h, "alice")
	bobToken := registerUser(t, h, "bob")

	post := createPost(t, h, aliceToken, "alice's post")

	rr := doJSON(t, h, http.MethodPut, "/api/posts/"+post.ID, bobToken, map[string]string{"content": "defaced"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/posts/"+post.ID, "", nil)
	var fetched model.Post
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&fetched))
	assert.Equal(t, "alice's post", fetched.Content)
}

func TestPostRoutes_Delete(t *testing.T) {
	h := newTestHandler(t)
	token := registerUser(t, h, "alice")

	post := createPost(t, h, token, "short-lived")

	rr := doJSON(t, h, http.MethodDelete, "/api/posts/"+post.ID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "post removed", resp["message"])

	rr = doJSON(t, h, http.MethodGet, "/api/posts/"+post.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPostRoutes_LikeToggle(t *testing.T) {
	h := newTestHandler(t)
	aliceToken := registerUser(t, h, "alice")
	bobToken := registerUser(t, h, "bob")

	post := createPost(t, h, aliceToken, "like me")

	// Bob likes: list becomes [bob].
	rr := doJSON(t, h, http.MethodPut, "/api/posts/"+post.ID+"/like", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Likes []string `json:"likes"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Likes, 1)
	bobID := resp.Likes[0]

	// Alice likes: most recent first, [alice, bob].
	rr = doJSON(t, h, http.MethodPut, "/api/posts/"+post.ID+"/like", aliceToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Likes, 2)
	assert.Equal(t, bobID, resp.Likes[1])

	// Bob un-likes: [alice].
	rr = doJSON(t, h, http.MethodPut, "/api/posts/"+post.ID+"/like", bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Likes, 1)
	assert.NotEqual(t, bobID, resp.Likes[0])
}

func TestPostRoutes_Comments(t *testing.T) {
	h := newTestHandler(t)
	aliceToken := registerUser(t, h, "alice")
	bobToken := registerUser(t, h, "bob")

	post := createPost(t, h, aliceToken, "discuss")

	rr := doJSON(t, h, http.MethodPost, "/api/posts/"+post.ID+"/comment", aliceToken, map[string]string{"text": "first!"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doJSON(t, h, http.MethodPost, "/api/posts/"+post.ID+"/comment", bobToken, map[string]string{"text": "second"})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Comments []model.Comment `json:"comments"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Comments, 2)
	assert.Equal(t, "second", resp.Comments[0].Text, "newest comment first")
	assert.Equal(t, "bob", resp.Comments[0].Author.Username)
	assert.Equal(t, "first!", resp.Comments[1].Text)

	// Bob cannot edit alice's comment.
	aliceCommentID := resp.Comments[1].ID
	rr = doJSON(t, h, http.MethodPut,
		"/api/posts/"+post.ID+"/comments/"+aliceCommentID, bobToken,
		map[string]string{"text": "hijacked"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Alice edits her own comment in place.
	rr = doJSON(t, h, http.MethodPut,
		"/api/posts/"+post.ID+"/comments/"+aliceCommentID, aliceToken,
		map[string]string{"text": "first! (edited)"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Comments, 2)
	assert.Equal(t, "first! (edited)", resp.Comments[1].Text)

	// Bob deletes his own comment; alice's survives.
	bobCommentID := resp.Comments[0].ID
	rr = doJSON(t, h, http.MethodDelete,
		"/api/posts/"+post.ID+"/comments/"+bobCommentID, bobToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "first! (edited)", resp.Comments[0].Text)
}

func TestPostRoutes_CommentOnMissingPost(t *testing.T) {
	h := newTestHandler(t)
	token := registerUser(t, h, "alice")

	rr := doJSON(t, h, http.MethodPost, "/api/posts/nonexistent/comment", token, map[string]string{"text": "void"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserRoutes_ProfileAndPosts(t *testing.T) {
	h := newTestHandler(t)
	aliceToken := registerUser(t, h, "alice")
	bobToken := registerUser(t, h, "bob")

	createPost(t, h, aliceToken, "alice 1")
	createPost(t, h, aliceToken, "alice 2")
	for i := 0; i < 10; i++ {
		createPost(t, h, bobToken, fmt.Sprintf("bob %d", i))
	}

	rr := doJSON(t, h, http.MethodGet, "/api/users/alice", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var profile map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&profile))
	assert.Equal(t, "alice", profile["username"])
	assert.NotContains(t, profile, "passwordHash")

	rr = doJSON(t, h, http.MethodGet, "/api/users/alice/posts", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var feed model.Feed
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&feed))
	assert.Len(t, feed.Posts, 2)
	assert.False(t, feed.HasMore, "hasMore reflects alice's count, not the global one")

	rr = doJSON(t, h, http.MethodGet, "/api/users/nobody/posts", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
