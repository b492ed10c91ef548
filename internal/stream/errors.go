package stream

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// IsConnectionError reports whether err means the Redis server could not be
// reached, as opposed to a command-level failure.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsNoGroup reports whether the group (or the whole stream) is gone, e.g.
// after a FLUSHDB or an operator deleting the key.
func IsNoGroup(err error) bool {
	return hasRedisPrefix(err, "NOGROUP")
}

func hasRedisPrefix(err error, prefix string) bool {
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return strings.HasPrefix(rerr.Error(), prefix)
	}
	return false
}
