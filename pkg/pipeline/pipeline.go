// Package pipeline drives the three-stage users → posts → comments fetch
// with bounded concurrency and per-item failure isolation.
//
// Stage 1 fetches the users collection (fatal on permanent failure), stage 2
// fans out one posts fetch per selected user, stage 3 one comments fetch per
// retained post. A failed user or post is logged and excluded; the run always
// produces the best-effort result from everything that succeeded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/placeholder-export/pkg/feed"
	"github.com/Sternrassler/placeholder-export/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Prometheus metrics for pipeline stages.
var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "export_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"stage"})

	fetchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_fetch_failures_total",
		Help: "Entities excluded due to permanent fetch failures, by stage",
	}, []string{"stage"})
)

// ErrUsersFetch is returned when the initial users fetch fails permanently.
// There is nothing to export without users, so the run aborts.
var ErrUsersFetch = errors.New("users fetch failed")

// Source provides the upstream records. *feed.Fetcher is the production
// implementation.
type Source interface {
	Users(ctx context.Context) ([]feed.User, error)
	PostsForUser(ctx context.Context, userID int64) ([]feed.Post, error)
	CommentsForPost(ctx context.Context, postID int64) ([]feed.Comment, error)
}

// Config holds pipeline configuration.
type Config struct {
	// MaxPostsPerUser is how many highest-id posts to retain per user.
	MaxPostsPerUser int

	// MaxCommentsPerPost is how many highest-id comments to retain per post.
	MaxCommentsPerPost int

	// MaxConcurrency bounds the fan-out within a stage.
	MaxConcurrency int

	// StageTimeout is the hard deadline per stage; in-flight fetches are
	// cancelled when it elapses and the affected items are excluded.
	StageTimeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxPostsPerUser:    5,
		MaxCommentsPerPost: 3,
		MaxConcurrency:     10,
		StageTimeout:       2 * time.Minute,
	}
}

// Pipeline orchestrates the three fetch stages.
type Pipeline struct {
	source Source
	config Config
	logger zerolog.Logger
}

// New creates a pipeline over the given source.
func New(source Source, cfg Config) *Pipeline {
	if cfg.MaxPostsPerUser <= 0 {
		cfg.MaxPostsPerUser = 5
	}
	if cfg.MaxCommentsPerPost <= 0 {
		cfg.MaxCommentsPerPost = 3
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 10
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 2 * time.Minute
	}

	return &Pipeline{
		source: source,
		config: cfg,
		logger: logging.NewLogger("pipeline"),
	}
}

// Triple is one fully joined (user, post, comment) output unit.
type Triple struct {
	User    feed.User
	Post    feed.Post
	Comment feed.Comment
}

// Result holds the joined records and run counters.
type Result struct {
	// Triples in deterministic order: users, posts and comments each by
	// id descending.
	Triples []Triple

	UsersFetched    int
	UsersSelected   int
	PostsKept       int
	CommentsKept    int
	PostFailures    int // users excluded because their posts fetch failed
	CommentFailures int // posts excluded because their comments fetch failed
}

// Run executes all three stages and returns the joined result.
// Only a permanent stage-1 failure returns an error; everything downstream
// is isolated per item.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	// Stage 1: users (single fetch, fatal on failure)
	users, err := p.fetchUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsersFetch, err)
	}
	result.UsersFetched = len(users)

	selected := make([]feed.User, 0, len(users))
	for _, user := range users {
		if user.ID%2 == 0 {
			selected = append(selected, user)
		}
	}
	result.UsersSelected = len(selected)

	p.logger.Info().
		Int("fetched", result.UsersFetched).
		Int("selected", result.UsersSelected).
		Msg("Stage users complete")

	// Stage 2: posts per selected user
	postsByUser := p.fetchPosts(ctx, selected, result)

	// Stage 3: comments per retained post
	retained := make([]feed.Post, 0)
	for _, posts := range postsByUser {
		retained = append(retained, posts...)
	}
	commentsByPost := p.fetchComments(ctx, retained, result)

	// Deterministic assembly: descending id at every level.
	sortedUsers := make([]feed.User, len(selected))
	copy(sortedUsers, selected)
	sortUsersByIDDesc(sortedUsers)

	for _, user := range sortedUsers {
		posts, ok := postsByUser[user.ID]
		if !ok {
			continue
		}
		for _, post := range posts {
			comments, ok := commentsByPost[post.ID]
			if !ok {
				// Comments fetch failed: the post contributes zero rows.
				continue
			}
			for _, comment := range comments {
				result.Triples = append(result.Triples, Triple{
					User:    user,
					Post:    post,
					Comment: comment,
				})
			}
		}
	}

	p.logger.Info().
		Int("triples", len(result.Triples)).
		Int("post_failures", result.PostFailures).
		Int("comment_failures", result.CommentFailures).
		Msg("Pipeline complete")

	return result, nil
}

// fetchUsers runs stage 1 under the stage timeout.
func (p *Pipeline) fetchUsers(ctx context.Context) ([]feed.User, error) {
	start := time.Now()
	defer func() {
		stageDuration.WithLabelValues("users").Observe(time.Since(start).Seconds())
	}()

	p.logger.Info().Msg("Stage users starting")

	stageCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	return p.source.Users(stageCtx)
}

// fetchPosts runs stage 2: one task per selected user, bounded fan-out.
// Returns the retained (sorted, truncated) posts keyed by user id; users
// whose fetch failed are absent from the map.
func (p *Pipeline) fetchPosts(ctx context.Context, users []feed.User, result *Result) map[int64][]feed.Post {
	start := time.Now()
	defer func() {
		stageDuration.WithLabelValues("posts").Observe(time.Since(start).Seconds())
	}()

	p.logger.Info().
		Int("users", len(users)).
		Int("max_concurrency", p.config.MaxConcurrency).
		Msg("Stage posts starting")

	stageCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	postsByUser := make(map[int64][]feed.Post, len(users))
	var mu sync.Mutex

	var group errgroup.Group
	group.SetLimit(p.config.MaxConcurrency)

	for _, user := range users {
		user := user
		group.Go(func() error {
			posts, err := p.source.PostsForUser(stageCtx, user.ID)
			if err != nil {
				fetchFailuresTotal.WithLabelValues("posts").Inc()
				p.logger.Warn().
					Err(err).
					Int64("user_id", user.ID).
					Msg("Posts fetch failed, user excluded")
				mu.Lock()
				result.PostFailures++
				mu.Unlock()
				return nil
			}

			kept := feed.LatestPosts(posts, p.config.MaxPostsPerUser)

			mu.Lock()
			postsByUser[user.ID] = kept
			result.PostsKept += len(kept)
			mu.Unlock()
			return nil
		})
	}

	// Workers never return errors, Wait is a pure barrier.
	_ = group.Wait()

	p.logger.Info().
		Int("posts_kept", result.PostsKept).
		Int("failures", result.PostFailures).
		Dur("duration", time.Since(start)).
		Msg("Stage posts complete")

	return postsByUser
}

// fetchComments runs stage 3: one task per retained post, same isolation
// policy as stage 2.
func (p *Pipeline) fetchComments(ctx context.Context, posts []feed.Post, result *Result) map[int64][]feed.Comment {
	start := time.Now()
	defer func() {
		stageDuration.WithLabelValues("comments").Observe(time.Since(start).Seconds())
	}()

	p.logger.Info().
		Int("posts", len(posts)).
		Int("max_concurrency", p.config.MaxConcurrency).
		Msg("Stage comments starting")

	stageCtx, cancel := context.WithTimeout(ctx, p.config.StageTimeout)
	defer cancel()

	commentsByPost := make(map[int64][]feed.Comment, len(posts))
	var mu sync.Mutex

	var group errgroup.Group
	group.SetLimit(p.config.MaxConcurrency)

	for _, post := range posts {
		post := post
		group.Go(func() error {
			comments, err := p.source.CommentsForPost(stageCtx, post.ID)
			if err != nil {
				fetchFailuresTotal.WithLabelValues("comments").Inc()
				p.logger.Warn().
					Err(err).
					Int64("post_id", post.ID).
					Msg("Comments fetch failed, post excluded")
				mu.Lock()
				result.CommentFailures++
				mu.Unlock()
				return nil
			}

			kept := feed.LatestComments(comments, p.config.MaxCommentsPerPost)

			mu.Lock()
			commentsByPost[post.ID] = kept
			result.CommentsKept += len(kept)
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()

	p.logger.Info().
		Int("comments_kept", result.CommentsKept).
		Int("failures", result.CommentFailures).
		Dur("duration", time.Since(start)).
		Msg("Stage comments complete")

	return commentsByPost
}

// sortUsersByIDDesc sorts in place, highest id first.
func sortUsersByIDDesc(users []feed.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
}
