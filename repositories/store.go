// Package repositories implements the durability backend: an interchangeable
// store for the rolling message and sentiment windows, so they survive a
// process restart. The in-memory room state stays authoritative; every
// implementation here is best-effort and its failure never reaches clients.
package repositories

import (
	"context"
	"strings"

	"log/slog"

	"driftroom/domain"
)

// Store persists the two logical collections per room. Append implies trim:
// implementations keep at most the configured window and drop the oldest.
type Store interface {
	AppendMessage(ctx context.Context, roomID string, m domain.Message) error
	RecentMessages(ctx context.Context, roomID string) ([]domain.Message, error)
	AppendScore(ctx context.Context, roomID string, score float64) error
	RecentScores(ctx context.Context, roomID string) ([]float64, error)
	PurgeRoom(ctx context.Context, roomID string) error
	Ping(ctx context.Context) error
	Close() error
}

// Caps bounds both windows; they match the room's rolling buffers.
type Caps struct {
	Messages int
	Scores   int
}

func DefaultCaps() Caps {
	return Caps{Messages: domain.MessageBufferCap, Scores: domain.ScoreHistoryCap}
}

// Open selects a backend from the connection string: empty means in-memory
// only, a redis:// URL means Redis, anything else is treated as a Badger
// directory path.
func Open(ctx context.Context, url string, caps Caps, log *slog.Logger) (Store, error) {
	switch {
	case url == "":
		return NewMemoryStore(caps), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		return OpenRedis(ctx, url, caps)
	default:
		return OpenBadger(url, caps, log)
	}
}
