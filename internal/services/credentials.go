package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/platformbuilds/ga4-insights/internal/config"
)

// ServiceAccount is the subset of a Google service-account key the service
// checks before handing the raw key to the client library.
type ServiceAccount struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// CredentialStore loads the GA4 service-account key exactly once. After the
// first Load the key and any load error are fixed for the process lifetime.
type CredentialStore struct {
	inline string
	file   string

	once    sync.Once
	raw     []byte
	account ServiceAccount
	err     error
}

// NewCredentialStore creates a store over the configured key sources.
// Inline JSON wins over the file path.
func NewCredentialStore(cfg config.GA4Config) *CredentialStore {
	return &CredentialStore{inline: cfg.CredentialsJSON, file: cfg.CredentialsFile}
}

// Load reads and checks the key. Only the first call does any work.
func (s *CredentialStore) Load() ([]byte, error) {
	s.once.Do(func() {
		s.raw, s.account, s.err = s.read()
	})
	return s.raw, s.err
}

// Account returns the parsed key metadata.
func (s *CredentialStore) Account() (ServiceAccount, error) {
	if _, err := s.Load(); err != nil {
		return ServiceAccount{}, err
	}
	return s.account, nil
}

// Loaded reports whether a valid key is available.
func (s *CredentialStore) Loaded() bool {
	_, err := s.Load()
	return err == nil
}

func (s *CredentialStore) read() ([]byte, ServiceAccount, error) {
	var (
		raw    []byte
		source string
	)
	switch {
	case s.inline != "":
		raw, source = []byte(s.inline), "inline credentials"
	case s.file != "":
		data, err := os.ReadFile(s.file)
		if err != nil {
			return nil, ServiceAccount{}, fmt.Errorf("failed to read GA4 credentials file: %w", err)
		}
		raw, source = data, s.file
	default:
		return nil, ServiceAccount{}, errors.New("no GA4 credentials configured")
	}

	var acct ServiceAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, ServiceAccount{}, fmt.Errorf("invalid GA4 credentials in %s: %w", source, err)
	}
	if acct.Type != "service_account" {
		return nil, ServiceAccount{}, fmt.Errorf("invalid GA4 credentials in %s: type %q, want service_account", source, acct.Type)
	}
	if acct.ClientEmail == "" || acct.PrivateKey == "" {
		return nil, ServiceAccount{}, fmt.Errorf("invalid GA4 credentials in %s: client_email and private_key are required", source)
	}
	return raw, acct, nil
}
