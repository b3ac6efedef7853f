package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflow/pipectl/internal/application"
	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockAPI struct {
	createResult model.CreateResult
	createErr    error
	listResult   []model.RemotePipeline
	listErr      error
	triggerOut   model.TriggerOutcome
	triggerErr   error
	deleteOut    model.DeleteOutcome
	deleteErr    error
}

func (m *mockAPI) ListPipelines(_ context.Context) ([]model.RemotePipeline, error) {
	return m.listResult, m.listErr
}

func (m *mockAPI) CreatePipeline(_ context.Context, _ string) (model.CreateResult, error) {
	return m.createResult, m.createErr
}

func (m *mockAPI) GetPipelineStatus(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m *mockAPI) ListExecutions(_ context.Context, _ string, _ model.Page) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m *mockAPI) GetExecution(_ context.Context, _, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m *mockAPI) ListDocuments(_ context.Context, _ string, _ model.Page) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m *mockAPI) GetDocument(_ context.Context, _, _, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (m *mockAPI) TriggerPipeline(_ context.Context, _ string) (model.TriggerOutcome, error) {
	return m.triggerOut, m.triggerErr
}

func (m *mockAPI) DeletePipeline(_ context.Context, _ string) (model.DeleteOutcome, error) {
	return m.deleteOut, m.deleteErr
}

type mockRegistry struct {
	records    map[string]model.PipelineRecord
	replaced   []model.RemotePipeline
	replaceHit bool
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{records: map[string]model.PipelineRecord{}}
}

func (m *mockRegistry) Put(id string, rec model.PipelineRecord) error {
	m.records[id] = rec
	return nil
}

func (m *mockRegistry) Remove(id string) error {
	delete(m.records, id)
	return nil
}

func (m *mockRegistry) Get(id string) (model.PipelineRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return model.PipelineRecord{}, model.ErrNotFound
	}
	return rec, nil
}

func (m *mockRegistry) List() ([]string, error) {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockRegistry) ReplaceAll(remote []model.RemotePipeline) error {
	m.replaceHit = true
	m.replaced = remote
	m.records = map[string]model.PipelineRecord{}
	for _, r := range remote {
		m.records[r.ID] = model.PipelineRecord{ID: r.ID, Status: model.PipelineStatusFetched}
	}
	return nil
}

type mockState struct {
	values map[string]string
}

func newMockState() *mockState {
	return &mockState{values: map[string]string{}}
}

func (m *mockState) Get(key string) (string, error) { return m.values[key], nil }

func (m *mockState) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *mockState) Delete(key string) error {
	delete(m.values, key)
	return nil
}

type mockJournal struct {
	entries []driven.JournalEntry
}

func (m *mockJournal) Record(_ context.Context, entry driven.JournalEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockJournal) Recent(_ context.Context, _ int) ([]driven.JournalEntry, error) {
	return m.entries, nil
}

// --- Tests ---

func TestCreateRegistersPipeline(t *testing.T) {
	api := &mockAPI{createResult: model.CreateResult{ID: "p-123", Raw: `{"pipelineId":"p-123"}`}}
	registry := newMockRegistry()
	state := newMockState()
	journal := &mockJournal{}
	svc := application.NewPipelineService(api, registry, state, journal)

	result, err := svc.Create(context.Background(), "Dest1")
	require.NoError(t, err)
	assert.Equal(t, "p-123", result.ID)

	rec, ok := registry.records["p-123"]
	require.True(t, ok, "registry must contain the new pipeline")
	assert.Equal(t, model.PipelineTypeWorkZone, rec.Type)
	assert.Equal(t, "Dest1", rec.Configuration.Destination)
	assert.Equal(t, model.PipelineStatusCreated, rec.Status)
	assert.False(t, rec.CreatedAt.IsZero())

	assert.Equal(t, "p-123", state.values[driven.StateKeyLastPipelineID])

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "create", journal.entries[0].Operation)
	assert.Equal(t, "created", journal.entries[0].Outcome)
}

func TestCreateExtractionMissLeavesRegistryAlone(t *testing.T) {
	api := &mockAPI{createResult: model.CreateResult{Raw: `{"name":"x"}`}}
	registry := newMockRegistry()
	journal := &mockJournal{}
	svc := application.NewPipelineService(api, registry, newMockState(), journal)

	result, err := svc.Create(context.Background(), "Dest1")
	require.NoError(t, err)
	assert.False(t, result.Extracted())
	assert.Equal(t, `{"name":"x"}`, result.Raw)
	assert.Empty(t, registry.records)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "extraction_miss", journal.entries[0].Outcome)
}

func TestCreateRemoteFailure(t *testing.T) {
	api := &mockAPI{createErr: &model.APIError{StatusCode: 500, Body: "boom"}}
	registry := newMockRegistry()
	svc := application.NewPipelineService(api, registry, newMockState(), &mockJournal{})

	_, err := svc.Create(context.Background(), "Dest1")
	require.Error(t, err)
	assert.Empty(t, registry.records)
}

func TestTriggerAcceptedStampsLastTriggered(t *testing.T) {
	api := &mockAPI{triggerOut: model.TriggerAccepted}
	registry := newMockRegistry()
	registry.records["p-123"] = model.PipelineRecord{ID: "p-123", Status: model.PipelineStatusCreated}
	svc := application.NewPipelineService(api, registry, newMockState(), &mockJournal{})

	outcome, err := svc.Trigger(context.Background(), "p-123")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerAccepted, outcome)

	rec := registry.records["p-123"]
	require.NotNil(t, rec.LastTriggered)
}

func TestTriggerRateLimitedLeavesRegistryUnchanged(t *testing.T) {
	api := &mockAPI{
		triggerOut: model.TriggerRateLimited,
		triggerErr: &model.APIError{StatusCode: 429, Body: "slow down"},
	}
	registry := newMockRegistry()
	registry.records["p-123"] = model.PipelineRecord{ID: "p-123"}
	svc := application.NewPipelineService(api, registry, newMockState(), &mockJournal{})

	outcome, err := svc.Trigger(context.Background(), "p-123")
	assert.Equal(t, model.TriggerRateLimited, outcome)
	assert.ErrorIs(t, err, model.ErrRateLimited)
	assert.Nil(t, registry.records["p-123"].LastTriggered)
}

func TestDeleteRemovesRegistryEntry(t *testing.T) {
	for _, tt := range []struct {
		name    string
		outcome model.DeleteOutcome
	}{
		{name: "deleted", outcome: model.DeleteDeleted},
		{name: "already gone is idempotent success", outcome: model.DeleteAlreadyGone},
	} {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{deleteOut: tt.outcome}
			registry := newMockRegistry()
			registry.records["p-123"] = model.PipelineRecord{ID: "p-123"}
			state := newMockState()
			state.values[driven.StateKeyLastPipelineID] = "p-123"
			svc := application.NewPipelineService(api, registry, state, &mockJournal{})

			outcome, err := svc.Delete(context.Background(), "p-123")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, outcome)
			assert.Empty(t, registry.records)
			assert.Empty(t, state.values[driven.StateKeyLastPipelineID])
		})
	}
}

func TestDeleteFailureKeepsRegistryEntry(t *testing.T) {
	api := &mockAPI{deleteErr: &model.APIError{StatusCode: 500, Body: "boom"}}
	registry := newMockRegistry()
	registry.records["p-123"] = model.PipelineRecord{ID: "p-123"}
	svc := application.NewPipelineService(api, registry, newMockState(), &mockJournal{})

	_, err := svc.Delete(context.Background(), "p-123")
	require.Error(t, err)
	assert.Contains(t, registry.records, "p-123")
}

func TestRefreshReplacesRegistry(t *testing.T) {
	api := &mockAPI{listResult: []model.RemotePipeline{{ID: "p-1"}, {ID: "p-2"}}}
	registry := newMockRegistry()
	registry.records["stale"] = model.PipelineRecord{ID: "stale"}
	journal := &mockJournal{}
	svc := application.NewPipelineService(api, registry, newMockState(), journal)

	count, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, registry.replaceHit)
	assert.NotContains(t, registry.records, "stale")
	assert.Contains(t, registry.records, "p-1")
	assert.Contains(t, registry.records, "p-2")
}

func TestRefreshRemoteFailure(t *testing.T) {
	api := &mockAPI{listErr: errors.New("tls handshake failure")}
	registry := newMockRegistry()
	registry.records["keep"] = model.PipelineRecord{ID: "keep"}
	svc := application.NewPipelineService(api, registry, newMockState(), &mockJournal{})

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, registry.replaceHit, "registry untouched when listing fails")
}
