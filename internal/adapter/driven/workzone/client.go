package workzone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// apiBasePath is the pipeline-management API root on the remote service.
const apiBasePath = "/pipeline/api/v1/pipeline"

// Compile-time interface satisfaction check.
var _ driven.PipelineAPI = (*Client)(nil)

// Client implements the PipelineAPI port over mutual-TLS HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient builds a Client presenting the stored certificate and key plus
// the given bearer token on every call.
func NewClient(baseURL, token string, cred model.Credential, timeout time.Duration) (*Client, error) {
	httpClient, err := newMTLSClient(cred, timeout)
	if err != nil {
		return nil, err
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, token: token}, nil
}

// NewClientWithHTTPClient injects a custom http.Client. Intended for tests
// against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL, token: token}
}

// ListPipelines returns the remote pipeline listing. The service has been
// observed returning both a bare array and an object wrapping it.
func (c *Client) ListPipelines(ctx context.Context) ([]model.RemotePipeline, error) {
	body, err := c.get(ctx, apiBasePath, nil)
	if err != nil {
		return nil, err
	}

	var pipelines []model.RemotePipeline
	if err := json.Unmarshal(body, &pipelines); err == nil {
		return pipelines, nil
	}

	var wrapped struct {
		Pipelines []model.RemotePipeline `json:"pipelines"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode pipeline listing: %w", err)
	}
	return wrapped.Pipelines, nil
}

// CreatePipeline provisions a WorkZone pipeline for the destination. The new
// identifier is extracted from "id" first, then "pipelineId"; when neither is
// present the raw body is returned for operator follow-up rather than an
// error, since the HTTP call itself succeeded.
func (c *Client) CreatePipeline(ctx context.Context, destination string) (model.CreateResult, error) {
	payload, err := json.Marshal(map[string]any{
		"type":     model.PipelineTypeWorkZone,
		"metadata": model.PipelineMetadata{Destination: destination},
	})
	if err != nil {
		return model.CreateResult{}, fmt.Errorf("encode create payload: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, apiBasePath, nil, payload)
	if err != nil {
		return model.CreateResult{}, err
	}
	if status < 200 || status > 299 {
		return model.CreateResult{}, &model.APIError{StatusCode: status, Body: string(body)}
	}

	var parsed struct {
		ID         string `json:"id"`
		PipelineID string `json:"pipelineId"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("create response not parseable", "body", string(body))
		return model.CreateResult{Raw: string(body)}, nil
	}

	id := parsed.ID
	if id == "" {
		id = parsed.PipelineID
	}
	if id == "" {
		slog.Warn("create response carries no pipeline identifier", "body", string(body))
	}
	return model.CreateResult{ID: id, Raw: string(body)}, nil
}

// GetPipelineStatus returns the raw status document for id.
func (c *Client) GetPipelineStatus(ctx context.Context, id string) (json.RawMessage, error) {
	return c.get(ctx, apiBasePath+"/"+url.PathEscape(id)+"/status", nil)
}

// ListExecutions returns the raw execution listing for id.
func (c *Client) ListExecutions(ctx context.Context, id string, page model.Page) (json.RawMessage, error) {
	return c.get(ctx, apiBasePath+"/"+url.PathEscape(id)+"/executions", pageQuery(page))
}

// GetExecution returns one execution of pipeline id.
func (c *Client) GetExecution(ctx context.Context, id, executionID string) (json.RawMessage, error) {
	path := apiBasePath + "/" + url.PathEscape(id) + "/executions/" + url.PathEscape(executionID)
	return c.get(ctx, path, nil)
}

// ListDocuments returns the raw document listing for id.
func (c *Client) ListDocuments(ctx context.Context, id string, page model.Page) (json.RawMessage, error) {
	return c.get(ctx, apiBasePath+"/"+url.PathEscape(id)+"/documents", pageQuery(page))
}

// GetDocument returns one document of pipeline id, optionally scoped under an
// execution.
func (c *Client) GetDocument(ctx context.Context, id, documentID, executionID string) (json.RawMessage, error) {
	path := apiBasePath + "/" + url.PathEscape(id)
	if executionID != "" {
		path += "/executions/" + url.PathEscape(executionID)
	}
	path += "/documents/" + url.PathEscape(documentID)
	return c.get(ctx, path, nil)
}

// TriggerPipeline starts a run of pipeline id. The service advertises a limit
// of 5 trigger calls per minute per tenant; a 429 surfaces as RateLimited and
// is never retried here.
func (c *Client) TriggerPipeline(ctx context.Context, id string) (model.TriggerOutcome, error) {
	payload, err := json.Marshal(map[string]string{"id": id})
	if err != nil {
		return "", fmt.Errorf("encode trigger payload: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, apiBasePath+"/trigger", nil, payload)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK, http.StatusAccepted:
		return model.TriggerAccepted, nil
	case http.StatusTooManyRequests:
		return model.TriggerRateLimited, &model.APIError{StatusCode: status, Body: string(body)}
	case http.StatusNotFound:
		return model.TriggerNotFound, &model.APIError{StatusCode: status, Body: string(body)}
	default:
		return "", &model.APIError{StatusCode: status, Body: string(body)}
	}
}

// DeletePipeline removes the remote pipeline. A 404 is idempotent success:
// the resource is already gone.
func (c *Client) DeletePipeline(ctx context.Context, id string) (model.DeleteOutcome, error) {
	status, body, err := c.do(ctx, http.MethodDelete, apiBasePath+"/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return model.DeleteDeleted, nil
	case http.StatusNotFound:
		return model.DeleteAlreadyGone, nil
	default:
		return "", &model.APIError{StatusCode: status, Body: string(body)}
	}
}

// get issues an authenticated GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	status, body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &model.APIError{StatusCode: status, Body: string(body)}
	}
	return json.RawMessage(body), nil
}

// do builds and issues one authenticated request, retrying transport failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) (int, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	build := func() (*http.Request, error) {
		var body *bytes.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		} else {
			body = bytes.NewReader(nil)
		}
		req, err := http.NewRequest(method, target, body)
		if err != nil {
			return nil, fmt.Errorf("build %s %s: %w", method, path, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return req, nil
	}

	status, body, err := doWithRetry(ctx, c.httpClient, build)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	slog.Debug("pipeline api call", "method", method, "path", path, "status", status)
	return status, body, nil
}

// pageQuery renders top/skip, omitting parameters that match the remote
// defaults.
func pageQuery(page model.Page) url.Values {
	q := url.Values{}
	if page.Top != 0 && page.Top != model.DefaultPage.Top {
		q.Set("top", strconv.Itoa(page.Top))
	}
	if page.Skip != model.DefaultPage.Skip {
		q.Set("skip", strconv.Itoa(page.Skip))
	}
	return q
}
