package domain

import "strings"

const (
	// DefaultRoomID always exists and can never be deleted.
	DefaultRoomID = "main"

	MaxSlugLength = 32
)

// Slug normalizes a free-text room title or id into a room id: lowercase,
// alnum and hyphen only, runs of other characters collapse to one hyphen,
// capped at MaxSlugLength. An input that normalizes to nothing falls back
// to the default room id, which is also the documented collision behavior
// for unusable ids.
func Slug(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= MaxSlugLength {
			break
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return DefaultRoomID
	}
	return out
}
