// internal/signal/file.go
// File-backed providers: external detectors append behavior events to a
// JSONL file and write the current context to a small JSON file; the
// engine only ever reads them.
package signal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// FileBehaviorProvider reads behavior events from a JSONL file, one
// event per line.
type FileBehaviorProvider struct {
	Path string
}

// NewFileBehaviorProvider creates a provider over the given JSONL file.
func NewFileBehaviorProvider(path string) *FileBehaviorProvider {
	return &FileBehaviorProvider{Path: path}
}

func (p *FileBehaviorProvider) RecentEvents(ctx context.Context, userID string, limit int) ([]BehaviorEvent, error) {
	f, err := os.Open(p.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening events file: %w", err)
	}
	defer f.Close()

	var events []BehaviorEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev BehaviorEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			// a malformed line never poisons the rest of the file
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}

	// newest first
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// fileContext is the on-disk context representation.
type fileContext struct {
	Type       string    `json:"context_type"`
	Confidence float64   `json:"confidence"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileContextProvider reads the current user context from a JSON file.
// A context older than MaxAge is treated as absent.
type FileContextProvider struct {
	Path   string
	MaxAge time.Duration
	Now    func() time.Time
}

// NewFileContextProvider creates a provider over the given JSON file.
func NewFileContextProvider(path string, maxAge time.Duration) *FileContextProvider {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &FileContextProvider{Path: path, MaxAge: maxAge, Now: time.Now}
}

func (p *FileContextProvider) CurrentContext(ctx context.Context, userID string) (*UserContext, error) {
	data, err := os.ReadFile(p.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var fc fileContext
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}
	if fc.Type == "" {
		return nil, nil
	}
	if !fc.UpdatedAt.IsZero() && p.Now().Sub(fc.UpdatedAt) > p.MaxAge {
		// stale context is no context
		return nil, nil
	}
	return &UserContext{Type: fc.Type, Confidence: fc.Confidence}, nil
}

// fileSuggestion is one queued suggestion on disk.
type fileSuggestion struct {
	Text string `json:"text"`
}

// FileSuggestionProvider reads pending suggestions from a JSON file
// holding an array of {"text": ...} objects. External suggestion
// generators own the file; entries disappear when they rewrite it.
type FileSuggestionProvider struct {
	Path string
}

// NewFileSuggestionProvider creates a provider over the given JSON file.
func NewFileSuggestionProvider(path string) *FileSuggestionProvider {
	return &FileSuggestionProvider{Path: path}
}

func (p *FileSuggestionProvider) PendingSuggestions(ctx context.Context, userID string) ([]string, error) {
	data, err := os.ReadFile(p.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading suggestions file: %w", err)
	}

	var entries []fileSuggestion
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing suggestions file: %w", err)
	}

	var out []string
	for _, e := range entries {
		if e.Text != "" {
			out = append(out, e.Text)
		}
	}
	return out, nil
}
