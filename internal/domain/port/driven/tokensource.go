package driven

import (
	"context"

	"github.com/docflow/pipectl/internal/domain/model"
)

// TokenSource obtains bearer tokens via the OAuth2 client-credentials grant,
// authenticating with the client certificate over mutual TLS. No caching: the
// endpoint advertises no TTL, so callers re-acquire per command invocation.
type TokenSource interface {
	// Acquire exchanges the credential for a bearer token. A response
	// without an access_token field (or one that does not parse) fails
	// wrapping model.ErrAuth; transport failures wrap model.ErrNetwork.
	Acquire(ctx context.Context) (model.AccessToken, error)
}
