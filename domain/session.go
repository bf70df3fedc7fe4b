// Package domain contains core concepts of the chat system.
// This file defines the per-connection Session and its identity rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxHandleLength = 32
	MaxTagLength    = 16
)

// Sigils is the fixed set of glyphs a participant may claim. Anything
// outside this set is dropped during validation.
var Sigils = []string{"◆", "◇", "○", "●", "△", "▽", "☾", "✶"}

// Palette provides fallback colors for sessions that assert none, or an
// invalid one.
var Palette = []string{
	"#e6a3a3", "#a3c9e6", "#a3e6b8", "#e6dca3",
	"#cba3e6", "#e6b8a3", "#a3e6dc", "#b8b8b8",
}

var validate = validator.New()

// Session is the server-side state of one live connection. The transport
// layer holds only the ConnID; everything else is owned by the registry.
type Session struct {
	ConnID       string
	Color        string
	Handle       string
	Tag          string
	Sigil        string
	IP           string
	Focused      bool
	SteppingAway bool
	RoomID       string
}

// Identity is the self-asserted part of a session, as received from the
// client on join or reveal.
type Identity struct {
	Color  string `validate:"omitempty,hexcolor"`
	Handle string `validate:"omitempty,max=32"`
	Tag    string `validate:"omitempty,max=16,alphanum"`
	Sigil  string
}

// Sanitize drops every field that fails validation and normalizes the rest.
// Identity is unauthenticated, so invalid input is ignored rather than
// treated as an error.
func (id Identity) Sanitize() Identity {
	out := Identity{}
	if err := validate.Var(id.Color, "omitempty,hexcolor"); err == nil {
		out.Color = strings.ToLower(id.Color)
	}
	if handle := strings.TrimSpace(id.Handle); handle != "" && isHandle(handle) {
		out.Handle = handle
	}
	if err := validate.Var(id.Tag, "omitempty,max=16,alphanum"); err == nil {
		out.Tag = id.Tag
	}
	for _, s := range Sigils {
		if id.Sigil == s {
			out.Sigil = s
			break
		}
	}
	return out
}

func isHandle(s string) bool {
	if len(s) > MaxHandleLength {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
		default:
			return false
		}
	}
	return true
}

// SyntheticHandle derives a stable display name from a color for forced
// attribution when a flagged author never revealed a handle.
func SyntheticHandle(color string) string {
	hex := strings.TrimPrefix(color, "#")
	if len(hex) > 4 {
		hex = hex[:4]
	}
	return fmt.Sprintf("anon-%s", hex)
}

// DisplayHandle returns the asserted handle, or the synthetic fallback.
func (s *Session) DisplayHandle() string {
	if s.Handle != "" {
		return s.Handle
	}
	return SyntheticHandle(s.Color)
}
