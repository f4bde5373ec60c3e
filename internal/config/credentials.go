package config

import (
	"strings"
	"sync"
)

// Credentials is the live view of the remote instance connection settings.
type Credentials struct {
	Instance string
	Username string
	Password string
}

// CredentialStore holds the current remote credentials behind a lock so a
// runtime credential rotation takes effect on the very next request. Callers
// must read through Snapshot at call time and never cache the values.
type CredentialStore struct {
	mu      sync.RWMutex
	current Credentials
}

func NewCredentialStore(sn *ServiceNow) *CredentialStore {
	return &CredentialStore{
		current: Credentials{
			Instance: strings.TrimRight(sn.Instance, "/"),
			Username: sn.Username,
			Password: sn.Password,
		},
	}
}

func (s *CredentialStore) Snapshot() Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *CredentialStore) Update(creds Credentials) {
	creds.Instance = strings.TrimRight(creds.Instance, "/")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = creds
}

func (s *CredentialStore) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Instance != "" && s.current.Username != "" && s.current.Password != ""
}
