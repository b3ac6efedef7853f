package driven

// StateStore is a small persisted key/value store for session state the tool
// carries between invocations: endpoints, client id, destination name and the
// last-created pipeline id. The backing file is owner-read/write only.
type StateStore interface {
	// Get returns the value for key, or ("", nil) when the key is unset.
	Get(key string) (string, error)

	// Set stores or replaces the value for key.
	Set(key, value string) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(key string) error
}

// Well-known state keys.
const (
	StateKeyLastPipelineID = "last_pipeline_id"
	StateKeyDestination    = "destination"
	StateKeyClientID       = "client_id"
	StateKeyTokenURL       = "token_url"
	StateKeyLastTokenAt    = "last_token_at"
)
