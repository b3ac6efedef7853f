package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docflow/pipectl/internal/adapter/driven/fsys"
	"github.com/docflow/pipectl/internal/adapter/driven/registry"
	sqliteadapter "github.com/docflow/pipectl/internal/adapter/driven/sqlite"
	"github.com/docflow/pipectl/internal/adapter/driven/workzone"
	"github.com/docflow/pipectl/internal/application"
	"github.com/docflow/pipectl/internal/config"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// app is the composition root for one command invocation: it owns the local
// stores and builds the remote-facing services on demand, since most commands
// never touch the network.
type app struct {
	cfg      *config.Config
	creds    *fsys.CredentialStore
	state    driven.StateStore
	registry driven.PipelineRegistry
	db       *sqliteadapter.DB
	journal  driven.OperationJournal
}

func newApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	reg, err := registry.Open(cfg.RegistryPath, registry.Engine(cfg.RegistryEngine))
	if err != nil {
		return nil, err
	}

	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		creds:    fsys.NewCredentialStore(cfg.DataDir),
		state:    fsys.NewStateFile(stateFilePath(cfg)),
		registry: reg,
		db:       db,
		journal:  sqliteadapter.NewJournalRepo(db),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		slog.Error("error closing journal db", "error", err)
	}
}

func stateFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "state.json")
}

// provisionService builds the setup-facing service. The token source is nil
// until a credential exists; AcquireToken then fails with a pointed error.
func (a *app) provisionService() *application.ProvisionService {
	var tokens driven.TokenSource
	if src, err := a.tokenSource(); err == nil {
		tokens = src
	}
	return application.NewProvisionService(a.creds, tokens, a.state, a.journal)
}

// pipelineService acquires a fresh bearer token and builds the API-facing
// service. One token per invocation; nothing is cached across commands.
func (a *app) pipelineService(ctx context.Context) (*application.PipelineService, error) {
	if !a.cfg.HasConnection() {
		return nil, fmt.Errorf("remote connection not configured: set PIPECTL_BASE_URL, PIPECTL_CLIENT_ID and PIPECTL_AUTH_URL (or PIPECTL_TOKEN_URL)")
	}

	cred, err := a.creds.Load(a.cfg.CertFile, a.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("credential not usable (run `pipectl credentials` first): %w", err)
	}

	tokens, err := a.tokenSource()
	if err != nil {
		return nil, err
	}

	provision := application.NewProvisionService(a.creds, tokens, a.state, a.journal)
	token, err := provision.AcquireToken(ctx)
	if err != nil {
		return nil, err
	}
	a.rememberConnection()

	client, err := workzone.NewClient(a.cfg.BaseURL, token.Value, cred, a.cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}

	return application.NewPipelineService(client, a.registry, a.state, a.journal), nil
}

func (a *app) tokenSource() (driven.TokenSource, error) {
	cred, err := a.creds.Load(a.cfg.CertFile, a.cfg.KeyFile)
	if err != nil {
		return nil, err
	}

	return workzone.NewTokenSource(a.resolvedTokenURL(), a.cfg.ClientID, cred, a.cfg.HTTPTimeout)
}

func (a *app) resolvedTokenURL() string {
	if a.cfg.TokenURL != "" {
		return a.cfg.TokenURL
	}
	return workzone.DeriveTokenURL(a.cfg.AuthURL)
}

// rememberConnection mirrors the working connection settings into the state
// file so a later inspection shows what the tool last talked to.
func (a *app) rememberConnection() {
	for key, value := range map[string]string{
		driven.StateKeyClientID: a.cfg.ClientID,
		driven.StateKeyTokenURL: a.resolvedTokenURL(),
	} {
		if err := a.state.Set(key, value); err != nil {
			slog.Warn("could not persist connection state", "key", key, "error", err)
		}
	}
}
