// Package feed defines the upstream domain records (users, posts, comments),
// their parse-and-validate step, and the fetchers that retrieve them.
package feed

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rejectionsTotal tracks validation rejections by entity type.
var rejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "export_rejections_total",
	Help: "Total records dropped by validation, by entity type",
}, []string{"entity"})

// Entity identifies an upstream record type.
type Entity string

const (
	// EntityUser is a record from the users collection.
	EntityUser Entity = "user"

	// EntityPost is a record from the posts collection.
	EntityPost Entity = "post"

	// EntityComment is a record from the comments collection.
	EntityComment Entity = "comment"
)

// User is a validated, immutable user record.
type User struct {
	ID    int64
	Name  string
	Email string
}

// Post is a validated, immutable post record belonging to one user.
type Post struct {
	ID     int64
	UserID int64
	Title  string
	Body   string
}

// Comment is a validated, immutable comment record belonging to one post.
type Comment struct {
	ID     int64
	PostID int64
	Name   string
	Email  string
	Body   string
}

// Rejection describes a record that failed validation. The record never
// reaches the pipeline; the rejection carries enough context for the log.
type Rejection struct {
	Entity Entity
	ID     int64 // 0 when the id field itself is missing
	Field  string
}

// String implements fmt.Stringer.
func (r Rejection) String() string {
	return fmt.Sprintf("%s %d: missing required field %q", r.Entity, r.ID, r.Field)
}

// Raw decode types use pointer fields so absent and null JSON fields are
// distinguishable from zero values. Validation turns a raw record into a
// typed one or a Rejection, never a partially populated struct.

type rawUser struct {
	ID    *int64  `json:"id"`
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (r rawUser) validate() (User, *Rejection) {
	id := int64(0)
	if r.ID != nil {
		id = *r.ID
	}
	if r.ID == nil {
		return User{}, &Rejection{Entity: EntityUser, ID: id, Field: "id"}
	}
	if r.Name == nil || *r.Name == "" {
		return User{}, &Rejection{Entity: EntityUser, ID: id, Field: "name"}
	}
	if r.Email == nil || *r.Email == "" {
		return User{}, &Rejection{Entity: EntityUser, ID: id, Field: "email"}
	}
	return User{ID: *r.ID, Name: *r.Name, Email: *r.Email}, nil
}

type rawPost struct {
	ID     *int64  `json:"id"`
	UserID *int64  `json:"userId"`
	Title  *string `json:"title"`
	Body   *string `json:"body"`
}

func (r rawPost) validate() (Post, *Rejection) {
	id := int64(0)
	if r.ID != nil {
		id = *r.ID
	}
	if r.ID == nil {
		return Post{}, &Rejection{Entity: EntityPost, ID: id, Field: "id"}
	}
	if r.UserID == nil {
		return Post{}, &Rejection{Entity: EntityPost, ID: id, Field: "userId"}
	}
	if r.Title == nil || *r.Title == "" {
		return Post{}, &Rejection{Entity: EntityPost, ID: id, Field: "title"}
	}
	if r.Body == nil || *r.Body == "" {
		return Post{}, &Rejection{Entity: EntityPost, ID: id, Field: "body"}
	}
	return Post{ID: *r.ID, UserID: *r.UserID, Title: *r.Title, Body: *r.Body}, nil
}

type rawComment struct {
	ID     *int64  `json:"id"`
	PostID *int64  `json:"postId"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Body   *string `json:"body"`
}

func (r rawComment) validate() (Comment, *Rejection) {
	id := int64(0)
	if r.ID != nil {
		id = *r.ID
	}
	if r.ID == nil {
		return Comment{}, &Rejection{Entity: EntityComment, ID: id, Field: "id"}
	}
	if r.PostID == nil {
		return Comment{}, &Rejection{Entity: EntityComment, ID: id, Field: "postId"}
	}
	if r.Name == nil || *r.Name == "" {
		return Comment{}, &Rejection{Entity: EntityComment, ID: id, Field: "name"}
	}
	if r.Email == nil || *r.Email == "" {
		return Comment{}, &Rejection{Entity: EntityComment, ID: id, Field: "email"}
	}
	if r.Body == nil || *r.Body == "" {
		return Comment{}, &Rejection{Entity: EntityComment, ID: id, Field: "body"}
	}
	return Comment{ID: *r.ID, PostID: *r.PostID, Name: *r.Name, Email: *r.Email, Body: *r.Body}, nil
}

// LatestPosts returns the n highest-id posts, sorted by id descending.
// The API carries no timestamps, so id order is the recency proxy.
func LatestPosts(posts []Post, n int) []Post {
	sorted := make([]Post, len(posts))
	copy(sorted, posts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// LatestComments returns the n highest-id comments, sorted by id descending.
func LatestComments(comments []Comment, n int) []Comment {
	sorted := make([]Comment, len(comments))
	copy(sorted, comments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID > sorted[j].ID })
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
