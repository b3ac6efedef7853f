package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PipelineRegistry = (*Structured)(nil)

// Structured is the JSON engine: the whole store is decoded into a map,
// mutated, and re-serialized.
type Structured struct {
	path string
	now  func() time.Time
}

// NewStructured creates the structured engine over the file at path.
func NewStructured(path string) *Structured {
	return &Structured{path: path, now: time.Now}
}

// Put upserts the record under id.
func (s *Structured) Put(id string, rec model.PipelineRecord) error {
	store, err := s.load()
	if err != nil {
		return err
	}
	store[id] = rec
	return s.save(store)
}

// Remove deletes the entry for id. An absent id is a no-op success and the
// file is left untouched.
func (s *Structured) Remove(id string) error {
	store, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := store[id]; !ok {
		return nil
	}
	delete(store, id)
	return s.save(store)
}

// Get returns the record for id.
func (s *Structured) Get(id string) (model.PipelineRecord, error) {
	store, err := s.load()
	if err != nil {
		return model.PipelineRecord{}, err
	}
	rec, ok := store[id]
	if !ok {
		return model.PipelineRecord{}, fmt.Errorf("pipeline %q: %w", id, model.ErrNotFound)
	}
	return rec, nil
}

// List returns all registered ids in no particular order.
func (s *Structured) List() ([]string, error) {
	store, err := s.load()
	if err != nil {
		return nil, err
	}
	return lo.Keys(store), nil
}

// ReplaceAll rebuilds the store from a remote listing, stamping every entry
// with a FetchedAt timestamp and the FETCHED status.
func (s *Structured) ReplaceAll(remote []model.RemotePipeline) error {
	store := make(map[string]model.PipelineRecord, len(remote))
	now := s.now().UTC()
	for _, r := range remote {
		store[r.ID] = fetchedRecord(r, now)
	}
	return s.save(store)
}

func (s *Structured) load() (map[string]model.PipelineRecord, error) {
	data, err := readStore(s.path)
	if err != nil {
		return nil, err
	}
	store := map[string]model.PipelineRecord{}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", s.path, err)
	}
	return store, nil
}

func (s *Structured) save(store map[string]model.PipelineRecord) error {
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	return writeStore(s.path, append(data, '\n'))
}

// fetchedRecord converts a remote listing element into a registry entry.
func fetchedRecord(r model.RemotePipeline, now time.Time) model.PipelineRecord {
	rec := model.PipelineRecord{
		ID:        r.ID,
		Type:      r.Type,
		Status:    model.PipelineStatusFetched,
		FetchedAt: &now,
	}
	if rec.Type == "" {
		rec.Type = model.PipelineTypeWorkZone
	}
	if r.Metadata != nil {
		rec.Metadata = *r.Metadata
		rec.Configuration = model.PipelineConfig{Destination: r.Metadata.Destination}
	}
	return rec
}
