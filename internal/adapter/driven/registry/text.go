package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PipelineRegistry = (*Text)(nil)

// Text is the line-oriented fallback engine. It keeps one entry per line and
// mutates the raw file text instead of round-tripping the whole store through
// a JSON decoder.
//
// Known limitation, carried over deliberately: Remove filters out any line
// containing the quoted id as a substring, so an id that happens to appear
// inside another entry's field values takes that entry with it. The structured
// engine does not share this hazard.
type Text struct {
	path string
	now  func() time.Time
}

// NewText creates the text engine over the file at path.
func NewText(path string) *Text {
	return &Text{path: path, now: time.Now}
}

// entryKey matches the leading `"id":` of an entry line.
var entryKey = regexp.MustCompile(`^\s*"((?:[^"\\]|\\.)*)"\s*:\s*\{`)

// Put appends a serialized entry to the store. An empty or `{}` store becomes
// a single-entry object; otherwise the object is reopened, the last entry gets
// a trailing comma, and the new entry is appended before the closing brace.
// Re-putting an existing id appends a duplicate key; JSON object semantics
// (last key wins) keep the store equivalent to the structured engine's.
func (t *Text) Put(id string, rec model.PipelineRecord) error {
	data, err := readStore(t.path)
	if err != nil {
		return err
	}

	line, err := entryLine(id, rec)
	if err != nil {
		return err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "{}" {
		return writeStore(t.path, []byte("{\n"+line+"\n}\n"))
	}

	entries, err := t.entries(trimmed)
	if err != nil {
		return err
	}
	entries = append(entries, line)
	return t.write(entries)
}

// Remove filters out every line containing the quoted id substring. Removing
// an absent id rewrites nothing.
func (t *Text) Remove(id string) error {
	data, err := readStore(t.path)
	if err != nil {
		return err
	}

	entries, err := t.entries(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}

	needle := `"` + id + `"`
	kept := entries[:0]
	removed := false
	for _, e := range entries {
		if strings.Contains(e, needle) {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if !removed {
		return nil
	}
	return t.write(kept)
}

// Get extracts the entry line for id and decodes that single object.
func (t *Text) Get(id string) (model.PipelineRecord, error) {
	data, err := readStore(t.path)
	if err != nil {
		return model.PipelineRecord{}, err
	}

	entries, err := t.entries(strings.TrimSpace(string(data)))
	if err != nil {
		return model.PipelineRecord{}, err
	}

	// Later duplicates win, matching JSON object semantics.
	match, bodyStart := "", 0
	for _, e := range entries {
		loc := entryKey.FindStringSubmatchIndex(e)
		if loc != nil && e[loc[2]:loc[3]] == id {
			// The match ends just past the opening brace of the body.
			match, bodyStart = e, loc[1]-1
		}
	}
	if match == "" {
		return model.PipelineRecord{}, fmt.Errorf("pipeline %q: %w", id, model.ErrNotFound)
	}

	body := strings.TrimSpace(match[bodyStart:])
	var rec model.PipelineRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return model.PipelineRecord{}, fmt.Errorf("entry %q: %w", id, model.ErrParse)
	}
	return rec, nil
}

// List returns the ids of all entry lines. Duplicate keys from repeated puts
// collapse to one id.
func (t *Text) List() ([]string, error) {
	data, err := readStore(t.path)
	if err != nil {
		return nil, err
	}

	entries, err := t.entries(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var ids []string
	for _, e := range entries {
		m := entryKey.FindStringSubmatch(e)
		if m == nil {
			continue
		}
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	}
	return ids, nil
}

// ReplaceAll rebuilds the whole file from the remote listing.
func (t *Text) ReplaceAll(remote []model.RemotePipeline) error {
	now := t.now().UTC()
	entries := make([]string, 0, len(remote))
	for _, r := range remote {
		line, err := entryLine(r.ID, fetchedRecord(r, now))
		if err != nil {
			return err
		}
		entries = append(entries, line)
	}
	return t.write(entries)
}

// entries splits the store body into its entry lines, dropping the enclosing
// braces and trailing commas. A store that does not look like a JSON object
// fails with ErrParse.
func (t *Text) entries(trimmed string) ([]string, error) {
	if trimmed == "" || trimmed == "{}" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return nil, fmt.Errorf("registry %s: %w", t.path, model.ErrParse)
	}

	body := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	if body == "" {
		return nil, nil
	}

	var entries []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" {
			continue
		}
		if !entryKey.MatchString(line) {
			return nil, fmt.Errorf("registry %s line %q: %w", t.path, line, model.ErrParse)
		}
		entries = append(entries, line)
	}
	return entries, nil
}

// write reassembles the object with commas on all but the last entry.
func (t *Text) write(entries []string) error {
	if len(entries) == 0 {
		return writeStore(t.path, []byte("{}\n"))
	}
	var b strings.Builder
	b.WriteString("{\n")
	for i, e := range entries {
		b.WriteString("  " + strings.TrimSpace(e))
		if i < len(entries)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return writeStore(t.path, []byte(b.String()))
}

// entryLine serializes one record as a single `"id": {...}` line.
func entryLine(id string, rec model.PipelineRecord) (string, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode entry %q: %w", id, err)
	}
	key, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("encode entry key %q: %w", id, err)
	}
	return fmt.Sprintf("  %s: %s", key, body), nil
}
