// Package model defines the data structures used throughout the application.
package model

import "time"

// DefaultSnippetLanguage is applied when a post carries a code snippet
// without an explicit language.
const DefaultSnippetLanguage = "javascript"

// Author is the resolved public reference to the user who wrote a post or
// comment. It is a read-only snapshot assembled at read time from the users
// table; the feed never writes these fields back.
type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
}

// CodeSnippet is the optional language-tagged code attached to a post.
type CodeSnippet struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Comment is an entry in a post's comment list. Comments exist only inside
// their parent post: they are created, edited, and deleted through the post
// aggregate and have no lifecycle of their own. The ID is generated at
// insertion so edits and deletes address a stable identifier rather than a
// list position.
type Comment struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is the feed aggregate: the post itself plus its embedded comment
// list and like set. It is loaded, mutated in memory, and persisted back as
// one unit.
//
// Ordering invariants:
//   - Likes holds user IDs, each at most once, most recent toggle-on first.
//   - Comments is newest-first; edits keep a comment's position, deletes
//     remove it in place.
type Post struct {
	ID          string       `json:"id"`
	Author      Author       `json:"author"`
	Content     string       `json:"content"`
	CodeSnippet *CodeSnippet `json:"codeSnippet,omitempty"`
	Likes       []string     `json:"likes"`
	Comments    []Comment    `json:"comments"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Feed is one page of posts plus the indicator for further pages.
// HasMore is derived from the total matching count, never from the length
// of the returned page.
type Feed struct {
	Posts   []Post `json:"posts"`
	HasMore bool   `json:"hasMore"`
}
