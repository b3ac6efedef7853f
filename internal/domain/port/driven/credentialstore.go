package driven

import (
	"github.com/docflow/pipectl/internal/domain/model"
)

// CredentialStore materializes pasted certificate and key text as files the
// TLS stack can load. Input often arrives as a single-line escaped PEM string
// copied out of a JSON service key; the store normalizes it before trusting it.
type CredentialStore interface {
	// Store validates, normalizes and writes the pair under the data
	// directory with mode 0600, returning the resulting paths. Empty cert
	// or key text fails wrapping model.ErrValidation.
	Store(certText, keyText, certFile, keyFile string) (model.Credential, error)

	// Load returns the previously stored credential, verifying both files
	// exist and are non-empty. Missing files wrap model.ErrValidation.
	Load(certFile, keyFile string) (model.Credential, error)
}
