package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/placeholder-export/pkg/client"
	"github.com/Sternrassler/placeholder-export/pkg/logging"
	"github.com/rs/zerolog"
)

// Fetcher retrieves and validates upstream records. Each method issues a
// single GET through the resilient client; records failing validation are
// logged once, counted, and dropped.
type Fetcher struct {
	client *client.Client
	logger zerolog.Logger
}

// NewFetcher creates a fetcher on top of an upstream client.
func NewFetcher(c *client.Client) *Fetcher {
	return &Fetcher{
		client: c,
		logger: logging.NewLogger("fetcher"),
	}
}

// Users fetches the users collection and returns the valid records.
func (f *Fetcher) Users(ctx context.Context) ([]User, error) {
	body, err := f.client.GetJSON(ctx, "/users", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}

	var raws []rawUser
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]User, 0, len(raws))
	for _, raw := range raws {
		user, rejection := raw.validate()
		if rejection != nil {
			f.reject(rejection)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// PostsForUser fetches all posts belonging to a user, unsorted.
// The caller is responsible for sort/truncate.
func (f *Fetcher) PostsForUser(ctx context.Context, userID int64) ([]Post, error) {
	query := url.Values{"userId": []string{strconv.FormatInt(userID, 10)}}
	body, err := f.client.GetJSON(ctx, "/posts", query)
	if err != nil {
		return nil, fmt.Errorf("fetch posts for user %d: %w", userID, err)
	}

	var raws []rawPost
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode posts for user %d: %w", userID, err)
	}

	posts := make([]Post, 0, len(raws))
	for _, raw := range raws {
		post, rejection := raw.validate()
		if rejection != nil {
			f.reject(rejection)
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// CommentsForPost fetches all comments belonging to a post, unsorted.
func (f *Fetcher) CommentsForPost(ctx context.Context, postID int64) ([]Comment, error) {
	query := url.Values{"postId": []string{strconv.FormatInt(postID, 10)}}
	body, err := f.client.GetJSON(ctx, "/comments", query)
	if err != nil {
		return nil, fmt.Errorf("fetch comments for post %d: %w", postID, err)
	}

	var raws []rawComment
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, fmt.Errorf("decode comments for post %d: %w", postID, err)
	}

	comments := make([]Comment, 0, len(raws))
	for _, raw := range raws {
		comment, rejection := raw.validate()
		if rejection != nil {
			f.reject(rejection)
			continue
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// reject logs a validation rejection exactly once and counts it.
func (f *Fetcher) reject(r *Rejection) {
	rejectionsTotal.WithLabelValues(string(r.Entity)).Inc()
	f.logger.Warn().
		Str("entity", string(r.Entity)).
		Int64("id", r.ID).
		Str("field", r.Field).
		Msg("Validation rejection, record dropped")
}
