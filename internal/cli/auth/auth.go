package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zalando/go-keyring"
)

const (
	service = "quickcred-cli"
)

// storedCookie is the keyring representation of a session cookie
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// getKeyringKey returns a unique key for storing session cookies per server
func getKeyringKey(origin string) string {
	return fmt.Sprintf("session-%s", origin)
}

// SaveCookies persists the session cookies securely in the OS keychain/credential manager
func SaveCookies(origin string, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := keyring.Set(service, getKeyringKey(origin), string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadCookies retrieves the session cookies from the OS keychain/credential manager.
// A missing entry is not an error.
func LoadCookies(origin string) ([]*http.Cookie, error) {
	data, err := keyring.Get(service, getKeyringKey(origin))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to parse stored session: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value})
	}
	return cookies, nil
}

// DeleteCookies removes the session cookies from the OS keychain/credential manager
func DeleteCookies(origin string) error {
	if err := keyring.Delete(service, getKeyringKey(origin)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CookieStore defines the interface for session cookie storage operations
// This allows us to mock the keyring in tests
type CookieStore interface {
	SaveCookies(origin string, cookies []*http.Cookie) error
	LoadCookies(origin string) ([]*http.Cookie, error)
	DeleteCookies(origin string) error
}

// defaultCookieStore implements CookieStore using the OS keyring
type defaultCookieStore struct{}

var Default CookieStore = &defaultCookieStore{}

func (d *defaultCookieStore) SaveCookies(origin string, cookies []*http.Cookie) error {
	return SaveCookies(origin, cookies)
}

func (d *defaultCookieStore) LoadCookies(origin string) ([]*http.Cookie, error) {
	return LoadCookies(origin)
}

func (d *defaultCookieStore) DeleteCookies(origin string) error {
	return DeleteCookies(origin)
}
