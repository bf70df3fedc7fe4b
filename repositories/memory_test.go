package repositories

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"driftroom/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryStore_Trims_Messages_To_Cap(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore(Caps{Messages: 3, Scores: 5})

	// Given more messages than the cap
	for _, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		req.NoError(store.AppendMessage(ctx, "main", domain.Message{ID: id}))
	}

	// When reading back
	messages, err := store.RecentMessages(ctx, "main")

	// Then only the newest survive, oldest first
	req.NoError(err)
	req.Len(messages, 3)
	req.Equal("m3", messages[0].ID)
	req.Equal("m5", messages[2].ID)
}

func TestMemoryStore_Trims_Scores_To_Cap(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore(Caps{Messages: 3, Scores: 2})

	req.NoError(store.AppendScore(ctx, "main", 0.1))
	req.NoError(store.AppendScore(ctx, "main", 0.2))
	req.NoError(store.AppendScore(ctx, "main", 0.3))

	scores, err := store.RecentScores(ctx, "main")
	req.NoError(err)
	req.Equal([]float64{0.2, 0.3}, scores)
}

func TestMemoryStore_Rooms_Are_Isolated(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore(DefaultCaps())

	req.NoError(store.AppendMessage(ctx, "main", domain.Message{ID: "m1"}))
	req.NoError(store.AppendMessage(ctx, "side", domain.Message{ID: "s1"}))

	main, _ := store.RecentMessages(ctx, "main")
	side, _ := store.RecentMessages(ctx, "side")
	req.Len(main, 1)
	req.Len(side, 1)
	req.Equal("m1", main[0].ID)
}

func TestMemoryStore_PurgeRoom_Drops_Everything(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore(DefaultCaps())

	req.NoError(store.AppendMessage(ctx, "side", domain.Message{ID: "s1"}))
	req.NoError(store.AppendScore(ctx, "side", 0.5))

	req.NoError(store.PurgeRoom(ctx, "side"))

	messages, _ := store.RecentMessages(ctx, "side")
	scores, _ := store.RecentScores(ctx, "side")
	req.Empty(messages)
	req.Empty(scores)
}

func TestOpen_Selects_Backend_By_URL_Shape(t *testing.T) {
	req := require.New(t)

	// Empty keeps everything in memory
	store, err := Open(context.Background(), "", DefaultCaps(), testLogger())
	req.NoError(err)
	req.IsType(&MemoryStore{}, store)
	req.NoError(store.Close())

	// A path opens badger under it
	dir := t.TempDir()
	store, err = Open(context.Background(), dir, DefaultCaps(), testLogger())
	req.NoError(err)
	req.IsType(&BadgerStore{}, store)
	req.NoError(store.Close())
}
