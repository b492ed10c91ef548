package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librenews/skywire/internal/stream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		redisURL       string
		streamKey      string
		subscriptionID string
		text           string
		author         string
		count          int
	)

	flag.StringVar(&redisURL, "redis-url", envOrDefault("REDIS_URL", "redis://localhost:6379/1"), "Redis URL")
	flag.StringVar(&streamKey, "stream", envOrDefault("STREAM_KEY", "skywire:matches"), "Stream key to XADD to")
	flag.StringVar(&subscriptionID, "subscription", "", "Subscription external id the match belongs to")
	flag.StringVar(&text, "text", "Hello from skywire", "Post text")
	flag.StringVar(&author, "author", "did:plc:skywiretest", "Post author DID")
	flag.IntVar(&count, "count", 1, "Number of events to publish")
	flag.Parse()

	if subscriptionID == "" {
		return fmt.Errorf("--subscription is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	producer := stream.NewRedisProducer(redis.NewClient(opts), streamKey, nil)
	defer producer.Close()

	for i := 0; i < count; i++ {
		now := time.Now().UTC()
		rkey := fmt.Sprintf("3l%d", now.UnixNano())
		event := map[string]any{
			"subscription_id": subscriptionID,
			"post": map[string]any{
				"uri":        fmt.Sprintf("at://%s/app.bsky.feed.post/%s", author, rkey),
				"text":       text,
				"author":     author,
				"indexed_at": now.Format(time.RFC3339Nano),
				"raw_record": map[string]any{
					"$type":     "app.bsky.feed.post",
					"text":      text,
					"createdAt": now.Format(time.RFC3339Nano),
				},
			},
		}
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}

		entryID, err := producer.Publish(ctx, payload)
		if err != nil {
			return err
		}
		fmt.Printf("Published %s to %s\n", entryID, streamKey)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
