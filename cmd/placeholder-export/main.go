// Command placeholder-export fetches users, posts and comments from a
// JSONPlaceholder-style REST API and writes a flat CSV export.
//
// The run aborts with exit status 1 when the initial users fetch fails
// permanently; no output file is written in that case. All downstream
// failures are isolated per user/post, and the CSV is the best-effort
// join of everything that fetched and validated successfully.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Sternrassler/placeholder-export/internal/config"
	"github.com/Sternrassler/placeholder-export/pkg/cache"
	"github.com/Sternrassler/placeholder-export/pkg/client"
	"github.com/Sternrassler/placeholder-export/pkg/export"
	"github.com/Sternrassler/placeholder-export/pkg/feed"
	"github.com/Sternrassler/placeholder-export/pkg/logging"
	"github.com/Sternrassler/placeholder-export/pkg/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	outputPath := flag.String("output", "", "CSV output path (overrides config)")
	flag.Parse()

	// .env is optional, absence is not an error
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if *outputPath != "" {
		cfg.Output.Path = *outputPath
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional Redis response cache; an unreachable Redis degrades to
	// uncached operation instead of failing the run.
	var responseCache *cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().
				Err(err).
				Str("addr", cfg.Cache.RedisAddr).
				Msg("Redis unreachable, running without response cache")
			redisClient.Close()
		} else {
			responseCache = cache.New(redisClient, cfg.Cache.TTL)
			defer redisClient.Close()
			logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Response cache enabled")
		}
	}

	apiClient, err := client.New(client.Config{
		BaseURL:   cfg.API.BaseURL,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.API.Timeout,
		Retry:     cfg.Retry,
		Cache:     responseCache,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create API client")
		os.Exit(1)
	}

	logger.Info().
		Str("base_url", cfg.API.BaseURL).
		Str("output", cfg.Output.Path).
		Int("max_concurrency", cfg.Pipeline.MaxConcurrency).
		Msg("Starting export")

	pipe := pipeline.New(feed.NewFetcher(apiClient), cfg.Pipeline)

	result, err := pipe.Run(ctx)
	if err != nil {
		// Fatal stage-1 failure: abort without writing an output file.
		logger.Error().Err(err).Msg("Export aborted")
		os.Exit(1)
	}

	rows, err := export.WriteCSV(cfg.Output.Path, result.Triples)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Output.Path).Msg("Failed to write output")
		os.Exit(1)
	}

	logger.Info().
		Int("rows", rows).
		Int("users_fetched", result.UsersFetched).
		Int("users_selected", result.UsersSelected).
		Int("posts_kept", result.PostsKept).
		Int("comments_kept", result.CommentsKept).
		Int("post_failures", result.PostFailures).
		Int("comment_failures", result.CommentFailures).
		Str("path", cfg.Output.Path).
		Msg("Export complete")
}
