package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"driftroom/domain"
)

// RedisStore keeps each window in a Redis list: LPUSH newest, LTRIM to the
// cap, so the list is always exactly the rolling window.
type RedisStore struct {
	client *redis.Client
	caps   Caps
}

func OpenRedis(ctx context.Context, url string, caps Caps) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{client: client, caps: caps}, nil
}

func messagesKey(roomID string) string { return "room:" + roomID + ":messages" }
func scoresKey(roomID string) string   { return "room:" + roomID + ":scores" }

func (s *RedisStore) AppendMessage(ctx context.Context, roomID string, m domain.Message) error {
	value, err := json.Marshal(storedMessage{
		ID: m.ID, Text: m.Text, Color: m.Color, Handle: m.Handle,
		Tag: m.Tag, Sigil: m.Sigil, Whisper: m.Whisper, Flagged: m.Flagged,
		At: m.At.UnixNano(),
	})
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, messagesKey(roomID), value)
	pipe.LTrim(ctx, messagesKey(roomID), 0, int64(s.caps.Messages)-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RecentMessages(ctx context.Context, roomID string) ([]domain.Message, error) {
	values, err := s.client.LRange(ctx, messagesKey(roomID), 0, int64(s.caps.Messages)-1).Result()
	if err != nil {
		return nil, err
	}
	// LPUSH order is newest first; callers want oldest first.
	out := make([]domain.Message, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var sm storedMessage
		if err := json.Unmarshal([]byte(values[i]), &sm); err != nil {
			return nil, err
		}
		out = append(out, domain.Message{
			ID: sm.ID, Text: sm.Text, Color: sm.Color, Handle: sm.Handle,
			Tag: sm.Tag, Sigil: sm.Sigil, Whisper: sm.Whisper, Flagged: sm.Flagged,
			At: time.Unix(0, sm.At).UTC(),
		})
	}
	return out, nil
}

func (s *RedisStore) AppendScore(ctx context.Context, roomID string, score float64) error {
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, scoresKey(roomID), score)
	pipe.LTrim(ctx, scoresKey(roomID), 0, int64(s.caps.Scores)-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) RecentScores(ctx context.Context, roomID string) ([]float64, error) {
	values, err := s.client.LRange(ctx, scoresKey(roomID), 0, int64(s.caps.Scores)-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var score float64
		if err := json.Unmarshal([]byte(values[i]), &score); err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, nil
}

func (s *RedisStore) PurgeRoom(ctx context.Context, roomID string) error {
	return s.client.Del(ctx, messagesKey(roomID), scoresKey(roomID)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
