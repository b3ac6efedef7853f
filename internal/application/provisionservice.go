// Package application contains the services that couple remote pipeline
// operations with the local registry, session state and audit journal.
package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// ProvisionService handles the one-time setup steps: materializing the
// certificate/key pair and acquiring bearer tokens.
type ProvisionService struct {
	credentials driven.CredentialStore
	tokens      driven.TokenSource
	state       driven.StateStore
	journal     driven.OperationJournal
}

// NewProvisionService wires the provisioning ports together. tokens may be
// nil until a credential has been stored; AcquireToken fails cleanly then.
func NewProvisionService(
	credentials driven.CredentialStore,
	tokens driven.TokenSource,
	state driven.StateStore,
	journal driven.OperationJournal,
) *ProvisionService {
	return &ProvisionService{
		credentials: credentials,
		tokens:      tokens,
		state:       state,
		journal:     journal,
	}
}

// StoreCredential validates, normalizes and persists the pasted pair.
func (s *ProvisionService) StoreCredential(certText, keyText, certFile, keyFile string) (model.Credential, error) {
	return s.credentials.Store(certText, keyText, certFile, keyFile)
}

// AcquireToken exchanges the credential for a bearer token and records the
// acquisition time in the session state.
func (s *ProvisionService) AcquireToken(ctx context.Context) (model.AccessToken, error) {
	if s.tokens == nil {
		return model.AccessToken{}, model.ErrAuth
	}

	token, err := s.tokens.Acquire(ctx)
	if err != nil {
		s.record(ctx, driven.JournalEntry{Operation: "token", Outcome: "failed", Detail: err.Error()})
		return model.AccessToken{}, err
	}

	if err := s.state.Set(driven.StateKeyLastTokenAt, token.IssuedAt.UTC().Format(time.RFC3339)); err != nil {
		slog.Warn("could not persist token acquisition time", "error", err)
	}
	s.record(ctx, driven.JournalEntry{Operation: "token", Outcome: "acquired"})

	return token, nil
}

// record appends to the audit journal. Journal failures never fail the
// operation being journaled; they are logged and dropped.
func (s *ProvisionService) record(ctx context.Context, entry driven.JournalEntry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		slog.Warn("journal write failed", "operation", entry.Operation, "error", err)
	}
}
