package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"driftroom/domain"
)

// BadgerStore persists the rolling windows in an embedded BadgerDB.
// Keys are "msg:{room}:{timestamp_padded}:{id}" and
// "score:{room}:{timestamp_padded}": the 19-digit zero padding makes
// lexicographical order chronological, and the message id disambiguates
// same-nanosecond writes.
type BadgerStore struct {
	db   *badger.DB
	caps Caps
	log  *slog.Logger
}

func OpenBadger(path string, caps Caps, log *slog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db, caps: caps, log: log}, nil
}

type storedMessage struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Color   string `json:"color"`
	Handle  string `json:"handle,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Sigil   string `json:"sigil,omitempty"`
	Whisper bool   `json:"whisper,omitempty"`
	Flagged bool   `json:"flagged,omitempty"`
	At      int64  `json:"at"`
}

func (s *BadgerStore) AppendMessage(_ context.Context, roomID string, m domain.Message) error {
	key := fmt.Sprintf("msg:%s:%019d:%s", roomID, m.At.UnixNano(), m.ID)
	value, err := json.Marshal(storedMessage{
		ID: m.ID, Text: m.Text, Color: m.Color, Handle: m.Handle,
		Tag: m.Tag, Sigil: m.Sigil, Whisper: m.Whisper, Flagged: m.Flagged,
		At: m.At.UnixNano(),
	})
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return err
	}
	return s.trim(fmt.Sprintf("msg:%s:", roomID), s.caps.Messages)
}

func (s *BadgerStore) RecentMessages(_ context.Context, roomID string) ([]domain.Message, error) {
	values, err := s.newestFirst(fmt.Sprintf("msg:%s:", roomID), s.caps.Messages)
	if err != nil {
		return nil, err
	}

	// Reverse scan returned newest first; callers want oldest first.
	out := make([]domain.Message, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var sm storedMessage
		if err := json.Unmarshal(values[i], &sm); err != nil {
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

func (s *BadgerStore) AppendScore(_ context.Context, roomID string, score float64) error {
	key := fmt.Sprintf("score:%s:%019d", roomID, time.Now().UnixNano())
	value, err := json.Marshal(score)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return err
	}
	return s.trim(fmt.Sprintf("score:%s:", roomID), s.caps.Scores)
}

func (s *BadgerStore) RecentScores(_ context.Context, roomID string) ([]float64, error) {
	values, err := s.newestFirst(fmt.Sprintf("score:%s:", roomID), s.caps.Scores)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var score float64
		if err := json.Unmarshal(values[i], &score); err != nil {
			return nil, err
		}
		out = append(out, score)
	}
	return out, nil
}

func (s *BadgerStore) PurgeRoom(_ context.Context, roomID string) error {
	for _, prefix := range []string{
		fmt.Sprintf("msg:%s:", roomID),
		fmt.Sprintf("score:%s:", roomID),
	} {
		if err := s.deletePrefix(prefix); err != nil {
			return err
		}
	}
	return nil
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger closed")
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// newestFirst collects up to limit values by reverse prefix scan.
func (s *BadgerStore) newestFirst(prefix string, limit int) ([][]byte, error) {
	var values [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse iteration seeks past the end of the prefix range.
		seek := append([]byte(prefix), 0xff)
		for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if len(values) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				values = append(values, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return values, err
}

// trim deletes the oldest entries beyond keep for the given prefix.
func (s *BadgerStore) trim(prefix string, keep int) error {
	var victims [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var keys [][]byte
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		if len(keys) > keep {
			victims = keys[:len(keys)-keep]
		}
		return nil
	})
	if err != nil || len(victims) == 0 {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range victims {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) deletePrefix(prefix string) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}
