package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// PipelineService couples remote pipeline operations with the local registry.
// The registry is the tool's own durable record and is updated only after the
// remote call has been classified, so a rejected call never mutates it.
type PipelineService struct {
	api      driven.PipelineAPI
	registry driven.PipelineRegistry
	state    driven.StateStore
	journal  driven.OperationJournal
	now      func() time.Time
}

// NewPipelineService wires the pipeline ports together.
func NewPipelineService(
	api driven.PipelineAPI,
	registry driven.PipelineRegistry,
	state driven.StateStore,
	journal driven.OperationJournal,
) *PipelineService {
	return &PipelineService{
		api:      api,
		registry: registry,
		state:    state,
		journal:  journal,
		now:      time.Now,
	}
}

// Create provisions a pipeline for destination and registers it locally. An
// extraction miss (HTTP success but no recognizable identifier) returns the
// raw response without touching the registry; the operator follows up by
// refreshing from the remote listing.
func (s *PipelineService) Create(ctx context.Context, destination string) (model.CreateResult, error) {
	result, err := s.api.CreatePipeline(ctx, destination)
	if err != nil {
		s.record(ctx, driven.JournalEntry{Operation: "create", Outcome: "failed", Detail: err.Error()})
		return model.CreateResult{}, err
	}

	if !result.Extracted() {
		slog.Warn("pipeline created but no identifier extracted; run refresh to pick it up",
			"body", result.Raw,
		)
		s.record(ctx, driven.JournalEntry{Operation: "create", Outcome: "extraction_miss", Detail: result.Raw})
		return result, nil
	}

	rec := model.NewPipelineRecord(result.ID, destination, s.now().UTC())
	if err := s.registry.Put(result.ID, rec); err != nil {
		return result, fmt.Errorf("register pipeline %q: %w", result.ID, err)
	}

	if err := s.state.Set(driven.StateKeyLastPipelineID, result.ID); err != nil {
		slog.Warn("could not persist last pipeline id", "error", err)
	}
	s.record(ctx, driven.JournalEntry{Operation: "create", PipelineID: result.ID, Outcome: "created"})

	slog.Info("pipeline created", "id", result.ID, "destination", destination)
	return result, nil
}

// Refresh replaces the whole registry with the remote listing and returns the
// number of pipelines fetched.
func (s *PipelineService) Refresh(ctx context.Context) (int, error) {
	remote, err := s.api.ListPipelines(ctx)
	if err != nil {
		s.record(ctx, driven.JournalEntry{Operation: "refresh", Outcome: "failed", Detail: err.Error()})
		return 0, err
	}

	if err := s.registry.ReplaceAll(remote); err != nil {
		return 0, fmt.Errorf("refresh registry: %w", err)
	}

	s.record(ctx, driven.JournalEntry{Operation: "refresh", Outcome: "ok", Detail: strconv.Itoa(len(remote)) + " pipelines"})
	slog.Info("registry refreshed", "count", len(remote))
	return len(remote), nil
}

// Trigger starts a run of pipeline id. On acceptance the local record gains a
// LastTriggered timestamp; on any rejection the registry is left unchanged.
func (s *PipelineService) Trigger(ctx context.Context, id string) (model.TriggerOutcome, error) {
	outcome, err := s.api.TriggerPipeline(ctx, id)
	if err != nil {
		s.record(ctx, driven.JournalEntry{Operation: "trigger", PipelineID: id, Outcome: string(outcome), Detail: err.Error()})
		return outcome, err
	}

	now := s.now().UTC()
	rec, getErr := s.registry.Get(id)
	if getErr == nil {
		rec.LastTriggered = &now
		if putErr := s.registry.Put(id, rec); putErr != nil {
			slog.Warn("could not stamp trigger time", "id", id, "error", putErr)
		}
	}

	s.record(ctx, driven.JournalEntry{Operation: "trigger", PipelineID: id, Outcome: string(outcome)})
	slog.Info("pipeline triggered", "id", id)
	return outcome, nil
}

// Delete removes the remote pipeline and the local record. A remote 404 is
// idempotent success; the registry entry goes away either way.
func (s *PipelineService) Delete(ctx context.Context, id string) (model.DeleteOutcome, error) {
	outcome, err := s.api.DeletePipeline(ctx, id)
	if err != nil {
		s.record(ctx, driven.JournalEntry{Operation: "delete", PipelineID: id, Outcome: "failed", Detail: err.Error()})
		return outcome, err
	}

	if err := s.registry.Remove(id); err != nil {
		return outcome, fmt.Errorf("deregister pipeline %q: %w", id, err)
	}

	if last, stateErr := s.state.Get(driven.StateKeyLastPipelineID); stateErr == nil && last == id {
		if err := s.state.Delete(driven.StateKeyLastPipelineID); err != nil {
			slog.Warn("could not clear last pipeline id", "error", err)
		}
	}

	s.record(ctx, driven.JournalEntry{Operation: "delete", PipelineID: id, Outcome: string(outcome)})
	slog.Info("pipeline deleted", "id", id, "outcome", string(outcome))
	return outcome, nil
}

// ListLocal returns the registered pipeline ids.
func (s *PipelineService) ListLocal() ([]string, error) {
	return s.registry.List()
}

// GetLocal returns the local record for id.
func (s *PipelineService) GetLocal(id string) (model.PipelineRecord, error) {
	return s.registry.Get(id)
}

// Status returns the raw remote status document for id.
func (s *PipelineService) Status(ctx context.Context, id string) (json.RawMessage, error) {
	return s.api.GetPipelineStatus(ctx, id)
}

// Executions returns the raw remote execution listing for id.
func (s *PipelineService) Executions(ctx context.Context, id string, page model.Page) (json.RawMessage, error) {
	return s.api.ListExecutions(ctx, id, page)
}

// Execution returns one execution of pipeline id.
func (s *PipelineService) Execution(ctx context.Context, id, executionID string) (json.RawMessage, error) {
	return s.api.GetExecution(ctx, id, executionID)
}

// Documents returns the raw remote document listing for id.
func (s *PipelineService) Documents(ctx context.Context, id string, page model.Page) (json.RawMessage, error) {
	return s.api.ListDocuments(ctx, id, page)
}

// Document returns one remote document, optionally execution-scoped.
func (s *PipelineService) Document(ctx context.Context, id, documentID, executionID string) (json.RawMessage, error) {
	return s.api.GetDocument(ctx, id, documentID, executionID)
}

// record appends to the audit journal; failures are logged, never propagated.
func (s *PipelineService) record(ctx context.Context, entry driven.JournalEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		slog.Warn("journal write failed", "operation", entry.Operation, "error", err)
	}
}
