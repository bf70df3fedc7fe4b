package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"driftroom/domain"
)

func TestGhosts_Never_Carry_Text(t *testing.T) {
	req := require.New(t)
	at := time.Now()
	messages := []domain.Message{
		{ID: "m1", Text: "the secret plan", Color: "#e6a3a3", Sigil: "◆", At: at},
		{ID: "m2", Text: "héllo", Color: "#a3c9e6", At: at},
	}

	ghosts := Ghosts(messages)

	req.Len(ghosts, 2)
	req.Equal("m1", ghosts[0].ID)
	req.True(ghosts[0].Ghost)
	req.Equal(len([]rune("the secret plan")), ghosts[0].TextLength)
	// length in runes, not bytes
	req.Equal(5, ghosts[1].TextLength)
}

func TestStream_Lists_Buffered_IDs_In_Order(t *testing.T) {
	req := require.New(t)

	stream := Stream([]domain.Message{{ID: "a"}, {ID: "b"}, {ID: "c"}})

	req.Equal([]string{"a", "b", "c"}, stream.IDs)
}

func TestPresenceGhosts_Carry_Fade(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	lifetime := 90 * time.Second

	views := PresenceGhosts([]domain.PresenceGhost{
		{Color: "#e6a3a3", Handle: "river", LeftAt: now.Add(-45 * time.Second)},
	}, now, lifetime)

	req.Len(views, 1)
	req.Equal("river", views[0].Handle)
	req.InDelta(0.5, views[0].Fade, 0.001)
}

func TestArrivalVibe_Summarizes_The_Room(t *testing.T) {
	req := require.New(t)
	now := time.Now()
	room := domain.NewRoom("main", "The Commons", false, now.Add(-2*time.Minute))
	room.PushScore(0.8)
	room.PushScore(0.6)
	room.AddGhost(domain.PresenceGhost{Color: "#e6a3a3", LeftAt: now})

	vibe := ArrivalVibe(room, 4, now)

	req.Equal(4, vibe.Presence)
	req.Equal("calm", vibe.Mood)
	req.Equal(int64(120), vibe.QuietFor)
	req.True(vibe.HasGhosts)
}
