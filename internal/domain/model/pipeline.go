package model

import "time"

// PipelineStatus tracks how a registry entry came to exist locally.
type PipelineStatus string

const (
	// PipelineStatusCreated marks entries written after a successful create call.
	PipelineStatusCreated PipelineStatus = "CREATED"
	// PipelineStatusFetched marks entries synthesized from a remote listing.
	PipelineStatusFetched PipelineStatus = "FETCHED"
)

// PipelineType is the integration type sent on create. WorkZone is the only
// type this tool provisions.
const PipelineTypeWorkZone = "WorkZone"

// PipelineConfig holds the destination a pipeline delivers documents to.
type PipelineConfig struct {
	Destination string `json:"destination"`
}

// PipelineMetadata mirrors the metadata object the remote API accepts on create.
type PipelineMetadata struct {
	Destination string `json:"destination"`
}

// PipelineRecord is the local registry entry for one remote pipeline. The
// registry is the tool's own bookkeeping and survives independently of the
// remote service's state.
type PipelineRecord struct {
	ID            string           `json:"id"`
	Type          string           `json:"type"`
	Configuration PipelineConfig   `json:"configuration"`
	Metadata      PipelineMetadata `json:"metadata"`
	CreatedAt     time.Time        `json:"createdAt,omitzero"`
	Status        PipelineStatus   `json:"status"`
	LastTriggered *time.Time       `json:"lastTriggered,omitempty"`
	FetchedAt     *time.Time       `json:"fetchedAt,omitempty"`
}

// NewPipelineRecord builds the record written after a successful create call.
func NewPipelineRecord(id, destination string, now time.Time) PipelineRecord {
	return PipelineRecord{
		ID:            id,
		Type:          PipelineTypeWorkZone,
		Configuration: PipelineConfig{Destination: destination},
		Metadata:      PipelineMetadata{Destination: destination},
		CreatedAt:     now,
		Status:        PipelineStatusCreated,
	}
}

// RemotePipeline is one element of the remote listing. Only the fields the
// tool needs are decoded; anything else the server sends is ignored.
type RemotePipeline struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Metadata *PipelineMetadata `json:"metadata,omitempty"`
}

// CreateResult is the outcome of a create call. The remote API is inconsistent
// about the identifier field name, so ID may be empty even though the HTTP
// call succeeded; Raw then holds the response body for operator follow-up.
type CreateResult struct {
	ID  string
	Raw string
}

// Extracted reports whether an identifier was found in the create response.
func (r CreateResult) Extracted() bool {
	return r.ID != ""
}

// TriggerOutcome classifies the response to a trigger call.
type TriggerOutcome string

const (
	TriggerAccepted    TriggerOutcome = "accepted"
	TriggerRateLimited TriggerOutcome = "rate_limited"
	TriggerNotFound    TriggerOutcome = "not_found"
)

// DeleteOutcome classifies the response to a delete call. AlreadyGone is
// idempotent success: the remote resource no longer exists either way.
type DeleteOutcome string

const (
	DeleteDeleted     DeleteOutcome = "deleted"
	DeleteAlreadyGone DeleteOutcome = "already_gone"
)
