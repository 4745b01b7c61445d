// Copyright (c) 2025 colsql authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores server passwords in the OS credential store so a
// prompted password can be remembered across shell sessions. Storage is
// opt-in via the main.keyring configuration key and always best-effort: a
// missing or locked keychain only means the user is prompted again.
package keychain

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "colsql"

// Manager provides thread-safe access to the OS credential store.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend credentialBackend
}

// credentialBackend is the minimal store interface; the darwin security(1)
// backend and the keyring library both satisfy it.
type credentialBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// NewManager opens the OS credential store. On macOS the native security
// command is tried first, then the keyring library backends.
func NewManager() (*Manager, error) {
	if runtime.GOOS == "darwin" {
		if backend, err := newSecurityBackend(); err == nil {
			return &Manager{backend: backend}, nil
		}
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// openRing opens the OS keyring using native platform backends.
func openRing() (keyring.Keyring, error) {
	var allowed []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowed = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowed = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowed = []keyring.BackendType{keyring.SecretServiceBackend, keyring.PassBackend}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowed,
		PassPrefix:      ServiceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}
	return keyring.Open(cfg)
}

// credentialKey derives the store key for one connection target.
func credentialKey(user, host string, port int) string {
	return fmt.Sprintf("password:%s@%s:%d", user, host, port)
}

// SavePassword remembers the password for user@host:port.
func (m *Manager) SavePassword(user, host string, port int, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := credentialKey(user, host, port)
	if m.backend != nil {
		return m.backend.Set(key, password)
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(password)})
}

// LoadPassword retrieves the stored password for user@host:port.
// A missing entry is reported as an error; callers treat any error as
// "prompt the user".
func (m *Manager) LoadPassword(user, host string, port int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := credentialKey(user, host, port)
	if m.backend != nil {
		password, err := m.backend.Get(key)
		if err != nil {
			return "", err
		}
		if password == "" {
			return "", errors.New("empty stored password")
		}
		return password, nil
	}

	item, err := m.ring.Get(key)
	if err != nil {
		return "", err
	}
	if len(item.Data) == 0 {
		return "", errors.New("empty stored password")
	}
	return string(item.Data), nil
}

// DeletePassword removes the stored password for user@host:port.
func (m *Manager) DeletePassword(user, host string, port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := credentialKey(user, host, port)
	if m.backend != nil {
		return m.backend.Delete(key)
	}
	return m.ring.Remove(key)
}
