// Package registry implements the PipelineRegistry port on a single JSON file.
//
// Two engines are provided. The structured engine round-trips the whole store
// through encoding/json. The text engine mutates the raw file text line by
// line and is kept as a compatibility fallback for hosts without a usable
// JSON round-trip; both
// engines must leave semantically equivalent stores for the same operation
// sequence. Every write goes through an atomic rename so an interrupted run
// never leaves a truncated file behind.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Engine selects the persistence implementation.
type Engine string

const (
	// EngineAuto picks the structured engine.
	EngineAuto Engine = "auto"
	// EngineStructured parses and re-serializes the store as JSON.
	EngineStructured Engine = "structured"
	// EngineText mutates the raw file text; compatibility fallback only.
	EngineText Engine = "text"
)

// Open returns the registry engine for the given selector. The registry file
// is created lazily on first use; only its parent directory is ensured here.
func Open(path string, engine Engine) (driven.PipelineRegistry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	switch engine {
	case EngineAuto, EngineStructured, "":
		return NewStructured(path), nil
	case EngineText:
		return NewText(path), nil
	default:
		return nil, fmt.Errorf("unknown registry engine %q", engine)
	}
}

// readStore returns the current file contents, self-healing a missing file to
// an empty JSON object.
func readStore(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeStore(path, []byte("{}")); err != nil {
			return nil, err
		}
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return data, nil
}

// writeStore replaces the registry file atomically: the content lands in a
// temp file next to the target and is renamed over it.
func writeStore(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write registry %s: %w", path, err)
	}
	return nil
}
