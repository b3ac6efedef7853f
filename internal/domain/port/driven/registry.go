package driven

import (
	"github.com/docflow/pipectl/internal/domain/model"
)

// PipelineRegistry is the driven port for the local durable id -> record map.
// Two engines implement it: a structured JSON engine and a line-oriented text
// engine kept for compatibility. Both persist the registry as a single JSON
// object and must leave semantically equivalent stores for the same operation
// sequence. All writes are atomic; a crash never leaves a partial file behind.
type PipelineRegistry interface {
	// Put upserts the record under its id, overwriting any existing entry.
	Put(id string, rec model.PipelineRecord) error

	// Remove deletes the entry if present. Removing an absent id succeeds
	// and leaves the registry unchanged.
	Remove(id string) error

	// Get returns the record for id, or an error wrapping model.ErrNotFound.
	Get(id string) (model.PipelineRecord, error)

	// List returns all registered pipeline ids. Order is not significant.
	List() ([]string, error)

	// ReplaceAll discards the current contents and rebuilds the registry
	// from a remote listing. Each converted record is stamped with a
	// FetchedAt timestamp and the FETCHED status marker.
	ReplaceAll(remote []model.RemotePipeline) error
}
