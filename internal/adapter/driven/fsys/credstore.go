// Package fsys implements the file-backed driven ports: credential
// materialization and the persisted session state.
package fsys

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/docflow/pipectl/internal/domain/model"
	"github.com/docflow/pipectl/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore writes pasted certificate/key text under a dedicated
// directory with owner-only permissions.
type CredentialStore struct {
	dir string
}

// NewCredentialStore creates a store rooted at dir. The directory is created
// on first Store.
func NewCredentialStore(dir string) *CredentialStore {
	return &CredentialStore{dir: dir}
}

// Store validates and materializes the pair, returning the resulting paths.
func (s *CredentialStore) Store(certText, keyText, certFile, keyFile string) (model.Credential, error) {
	if strings.TrimSpace(certText) == "" {
		return model.Credential{}, fmt.Errorf("%w: certificate text is empty", model.ErrValidation)
	}
	if strings.TrimSpace(keyText) == "" {
		return model.Credential{}, fmt.Errorf("%w: key text is empty", model.ErrValidation)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return model.Credential{}, fmt.Errorf("create credential dir: %w", err)
	}

	certPath := filepath.Join(s.dir, certFile)
	keyPath := filepath.Join(s.dir, keyFile)

	if err := writeRestricted(certPath, normalizePEM(certText)); err != nil {
		return model.Credential{}, err
	}
	if err := writeRestricted(keyPath, normalizePEM(keyText)); err != nil {
		return model.Credential{}, err
	}

	// File sizes are logged so the operator can sanity-check the paste
	// actually carried PEM material and not an empty string.
	certInfo, _ := os.Stat(certPath)
	keyInfo, _ := os.Stat(keyPath)
	slog.Info("credential stored",
		"cert_path", certPath,
		"cert_bytes", certInfo.Size(),
		"key_path", keyPath,
		"key_bytes", keyInfo.Size(),
	)

	return model.Credential{CertPath: certPath, KeyPath: keyPath}, nil
}

// Load returns the previously stored credential, verifying both files exist
// and are non-empty.
func (s *CredentialStore) Load(certFile, keyFile string) (model.Credential, error) {
	certPath := filepath.Join(s.dir, certFile)
	keyPath := filepath.Join(s.dir, keyFile)

	for _, path := range []string{certPath, keyPath} {
		info, err := os.Stat(path)
		if err != nil {
			return model.Credential{}, fmt.Errorf("%w: credential file %s: %v", model.ErrValidation, path, err)
		}
		if info.Size() == 0 {
			return model.Credential{}, fmt.Errorf("%w: credential file %s is empty", model.ErrValidation, path)
		}
	}

	return model.Credential{CertPath: certPath, KeyPath: keyPath}, nil
}

// normalizePEM turns literal backslash-n escape sequences into real line
// breaks. Pasted service keys often arrive as a single-line JSON string value
// with the PEM newlines escaped.
func normalizePEM(text string) string {
	text = strings.ReplaceAll(text, `\r\n`, "\n")
	text = strings.ReplaceAll(text, `\n`, "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text
}

// writeRestricted writes content atomically and tightens the mode to 0600.
func writeRestricted(path, content string) error {
	if err := atomic.WriteFile(path, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	return nil
}
