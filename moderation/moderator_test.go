package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T) *Moderator {
	t.Helper()
	m, err := NewModerator([]string{"nigger", "faggot", "kike"}, MaskChar)
	require.NoError(t, err)
	return m
}

func TestModerate_Rejects_Links(t *testing.T) {
	m := newTestModerator(t)

	cases := []struct {
		name string
		text string
	}{
		{"scheme url", "look at http://example.com/page"},
		{"https url", "HTTPS://EXAMPLE.COM"},
		{"www prefix", "join www.somewhere.gg now"},
		{"bare domain", "check example.com out"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			result := m.Moderate(tc.text)
			req.False(result.Allowed)
			req.Equal(ReasonNoLinks, result.Reason)
		})
	}
}

func TestModerate_Allows_Plain_Text(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	result := m.Moderate("what a lovely evening")

	req.True(result.Allowed)
	req.False(result.Bigotry)
	req.Equal("what a lovely evening", result.MaskedText)
}

func TestModerate_Masks_Denylist_Terms(t *testing.T) {
	m := newTestModerator(t)

	cases := []struct {
		name string
		text string
		want string
	}{
		{"plain term", "you nigger", "you n*****"},
		{"uppercase", "NIGGER", "N*****"},
		{"inflected", "niggers everywhere", "n****** everywhere"},
		{"leet digits", "n1gg3r", "n*****"},
		{"leet symbols", "f@ggot", "f*****"},
		{"trailing punctuation", "nigger!!", "n*****!!"},
		{"mid sentence", "a kike walked in", "a k*** walked in"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			result := m.Moderate(tc.text)
			req.True(result.Allowed)
			req.True(result.Bigotry)
			req.Equal(tc.want, result.MaskedText)
		})
	}
}

func TestModerate_Ignores_Embedded_Terms(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	// A term embedded mid-word must not match
	result := m.Moderate("a quiet snigger")

	req.True(result.Allowed)
	req.False(result.Bigotry)
	req.Equal("a quiet snigger", result.MaskedText)
}

func TestLoadDenylist_Skips_Comments_And_Blanks(t *testing.T) {
	req := require.New(t)

	terms, err := LoadDenylist()

	req.NoError(err)
	req.NotEmpty(terms)
	for _, term := range terms {
		req.NotEmpty(term)
		req.NotContains(term, "#")
	}
}

func TestDefault_Builds_From_Embedded_Denylist(t *testing.T) {
	req := require.New(t)

	m, err := Default()

	req.NoError(err)
	result := m.Moderate("hello there")
	req.True(result.Allowed)
	req.False(result.Bigotry)
}
