package session

import (
	"errors"
	"fmt"
)

// Flags wraps the persisted hints the controller relies on. None of them is
// proof of authentication; they only decide whether to ask the server.
type Flags struct {
	durable   Storage
	ephemeral Storage
}

// NewFlags creates a Flags view over a durable and an ephemeral store
func NewFlags(durable, ephemeral Storage) *Flags {
	return &Flags{durable: durable, ephemeral: ephemeral}
}

// HasSession reports whether a previous profile check succeeded
func (f *Flags) HasSession() bool {
	_, ok := f.durable.Get(KeyHasSession)
	return ok
}

// MarkSession records a successful profile confirmation
func (f *Flags) MarkSession() error {
	return f.durable.Set(KeyHasSession, "true")
}

// MarkJustLoggedIn records that a login happened in this terminal session
func (f *Flags) MarkJustLoggedIn() error {
	return f.ephemeral.Set(KeyJustLoggedIn, "true")
}

// ConsumeJustLoggedIn returns the justLoggedIn flag and deletes it. The
// flag value is valid even when deleting it fails.
func (f *Flags) ConsumeJustLoggedIn() (bool, error) {
	return consume(f.ephemeral, KeyJustLoggedIn)
}

// SetPreventRedirect suppresses the next landing-page auto redirect
func (f *Flags) SetPreventRedirect() error {
	return f.ephemeral.Set(KeyPreventRedirect, "true")
}

// ConsumePreventRedirect returns the preventRedirect flag and deletes it.
// The flag value is valid even when deleting it fails.
func (f *Flags) ConsumePreventRedirect() (bool, error) {
	return consume(f.ephemeral, KeyPreventRedirect)
}

// ClearPreventRedirect drops a pending preventRedirect flag without reading it
func (f *Flags) ClearPreventRedirect() error {
	return f.ephemeral.Remove(KeyPreventRedirect)
}

// Clear removes hasSession and justLoggedIn
func (f *Flags) Clear() error {
	return errors.Join(
		f.durable.Remove(KeyHasSession),
		f.ephemeral.Remove(KeyJustLoggedIn),
	)
}

// DashboardView returns the last selected dashboard view, if any
func (f *Flags) DashboardView() (View, bool) {
	raw, ok := f.durable.Get(KeyDashboardView)
	if !ok {
		return "", false
	}
	view, err := ParseView(raw)
	if err != nil {
		return "", false
	}
	return view, true
}

// SetDashboardView persists the selected dashboard view
func (f *Flags) SetDashboardView(view View) error {
	if err := f.durable.Set(KeyDashboardView, string(view)); err != nil {
		return fmt.Errorf("failed to save dashboard view: %w", err)
	}
	return nil
}

func consume(s Storage, key string) (bool, error) {
	if _, ok := s.Get(key); !ok {
		return false, nil
	}
	if err := s.Remove(key); err != nil {
		return true, fmt.Errorf("failed to clear %s: %w", key, err)
	}
	return true, nil
}
