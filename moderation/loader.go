package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed denylist/*.txt
var denylistFS embed.FS

// MaskChar replaces every masked character after the first.
const MaskChar = '*'

// LoadDenylist parses the embedded term files. One file per language,
// one term per line, blank lines and #-comments skipped.
func LoadDenylist() ([]string, error) {
	entries, err := fs.ReadDir(denylistFS, "denylist")
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := denylistFS.ReadFile("denylist/" + entry.Name())
		if err != nil {
			return nil, err
		}
		// Scanner handles both \n and \r\n line endings.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			unique[strings.ToLower(line)] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("denylist is empty")
	}
	terms := make([]string, 0, len(unique))
	for t := range unique {
		terms = append(terms, t)
	}
	return terms, nil
}

// Default builds a moderator from the embedded denylist.
func Default() (*Moderator, error) {
	terms, err := LoadDenylist()
	if err != nil {
		return nil, err
	}
	return NewModerator(terms, MaskChar)
}
