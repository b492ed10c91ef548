package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/librenews/skywire/common/logger"
)

const (
	// ReadNew asks for entries never delivered to any consumer in the group.
	ReadNew = ">"
	// ReadPending asks for this consumer's own delivered-but-unacked history.
	ReadPending = "0"

	// DataField is the entry field carrying the JSON match event.
	DataField = "data"
)

// ErrGroupExists is returned by EnsureGroup when the group was already there.
var ErrGroupExists = errors.New("consumer group already exists")

type Config struct {
	Stream    string        // Redis stream key
	Group     string        // Redis consumer group name
	Consumer  string        // Redis consumer name, unique per process
	BatchSize int64         // Entries requested per XREADGROUP
	Block     time.Duration // How long a read for new entries may block
}

// Entry is one raw stream entry as delivered by XREADGROUP.
type Entry struct {
	ID     string
	Values map[string]any
}

// Data returns the payload field. ok is false when the field is missing,
// which is also how entries trimmed from the stream come back on pending reads.
func (e Entry) Data() ([]byte, bool) {
	raw, ok := e.Values[DataField]
	if !ok || raw == nil {
		return nil, false
	}
	switch v := raw.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	default:
		return []byte(fmt.Sprint(v)), true
	}
}

// Client speaks the consumer-group half of the Redis Streams protocol for a
// single stream, group and consumer identity.
type Client struct {
	client *redis.Client
	cfg    Config
}

func NewClient(client *redis.Client, cfg Config) *Client {
	return &Client{
		client: client,
		cfg:    cfg,
	}
}

// EnsureGroup creates the group at "$" so history written before the group
// existed is never replayed. MKSTREAM lets the consumer start before the producer.
func (c *Client) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "$").Err()
	if err == nil {
		return nil
	}
	if hasRedisPrefix(err, "BUSYGROUP") {
		return ErrGroupExists
	}
	return fmt.Errorf("creating consumer group: %w", err)
}

// Read fetches up to BatchSize entries starting after start. With ReadNew the
// call blocks for at most Block; any other start id reads this consumer's
// pending history and returns immediately.
func (c *Client) Read(ctx context.Context, start string) ([]Entry, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "skywire.stream.client",
	})

	block := time.Duration(-1)
	if start == ReadNew {
		block = c.cfg.Block
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, start},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("xreadgroup (stream=%s start=%s): %w", c.cfg.Stream, start, err)
	}

	var entries []Entry
	// Only one stream is requested, so the outer loop runs once.
	for _, s := range streams {
		for _, msg := range s.Messages {
			entries = append(entries, Entry{ID: msg.ID, Values: msg.Values})
		}
	}

	if len(entries) > 0 {
		slog.DebugContext(ctx, "read entries from stream",
			"count", len(entries),
			"start", start,
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}

	return entries, nil
}

func (c *Client) Ack(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, ids...).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// Pending returns the group's count of delivered-but-unacked entries.
func (c *Client) Pending(ctx context.Context) (int64, error) {
	summary, err := c.client.XPending(ctx, c.cfg.Stream, c.cfg.Group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending (stream=%s): %w", c.cfg.Stream, err)
	}
	return summary.Count, nil
}

// ClaimStale moves entries idle for at least minIdle, from any consumer in the
// group, onto this consumer's pending list and returns their ids. The caller
// then reads them back with a pending read.
func (c *Client) ClaimStale(ctx context.Context, minIdle time.Duration, count int64) ([]string, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xpending ext: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		slog.DebugContext(ctx, "stale pending entry",
			"message_id", p.ID,
			"original_consumer", p.Consumer,
			"idle_time", p.Idle,
			"retry_count", p.RetryCount)
		ids = append(ids, p.ID)
	}

	// MinIdle is re-checked by Redis, so an entry another worker claimed in
	// the meantime is skipped rather than stolen.
	claimed, err := c.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("xclaim: %w", err)
	}
	return claimed, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
