package driven

import (
	"context"
	"encoding/json"

	"github.com/docflow/pipectl/internal/domain/model"
)

// PipelineAPI is the driven port for the remote pipeline-management service.
// Every call presents the client certificate and a bearer token. Transport
// failures surface wrapping model.ErrNetwork; non-2xx responses surface as
// *model.APIError unless the operation maps the status onto an outcome.
type PipelineAPI interface {
	// ListPipelines returns the remote pipeline listing. An empty list is
	// the expected baseline for a freshly provisioned service.
	ListPipelines(ctx context.Context) ([]model.RemotePipeline, error)

	// CreatePipeline provisions a WorkZone pipeline delivering to the given
	// destination. The remote response names the new identifier under
	// either "id" or "pipelineId"; when neither is present the result
	// carries an empty ID and the raw body, not an error, since the HTTP
	// call itself succeeded.
	CreatePipeline(ctx context.Context, destination string) (model.CreateResult, error)

	// GetPipelineStatus returns the raw status document for id.
	GetPipelineStatus(ctx context.Context, id string) (json.RawMessage, error)

	// ListExecutions returns the raw execution listing for id.
	ListExecutions(ctx context.Context, id string, page model.Page) (json.RawMessage, error)

	// GetExecution returns one execution of pipeline id.
	GetExecution(ctx context.Context, id, executionID string) (json.RawMessage, error)

	// ListDocuments returns the raw document listing for id.
	ListDocuments(ctx context.Context, id string, page model.Page) (json.RawMessage, error)

	// GetDocument returns one document of pipeline id. A non-empty
	// executionID scopes the lookup under that execution.
	GetDocument(ctx context.Context, id, documentID, executionID string) (json.RawMessage, error)

	// TriggerPipeline starts a run. 200/202 -> TriggerAccepted. 429 and 404
	// return their outcome together with an error wrapping ErrRateLimited
	// or ErrNotFound so callers can both classify and propagate. The remote
	// service advertises a limit of 5 calls per minute per tenant.
	TriggerPipeline(ctx context.Context, id string) (model.TriggerOutcome, error)

	// DeletePipeline removes the remote resource. 200/204 -> DeleteDeleted;
	// 404 -> DeleteAlreadyGone with a nil error (idempotent success).
	DeletePipeline(ctx context.Context, id string) (model.DeleteOutcome, error)
}
