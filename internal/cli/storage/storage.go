// Package storage persists the client's flag stores on disk: a durable store
// shared by every terminal, and an ephemeral store per terminal session.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quickcred/quickcred/internal/cli/userconfig"
)

const (
	durableFileName = "storage.json"
	sessionsDirName = "sessions"

	// SessionEnvVar overrides the terminal session scope
	SessionEnvVar = "QUICKCRED_SESSION"
)

var (
	unsafeScopeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	errCorruptFile = errors.New("storage file is corrupt")
)

// FileStore is a session.Storage backed by a JSON file. Values are kept per
// namespace (the server origin) so flags for different servers never mix.
// The file is re-read on every access; concurrent writers from other
// processes are last-write-wins. A file that does not parse reads as empty
// and is replaced on the next write.
type FileStore struct {
	path      string
	namespace string
	logger    zerolog.Logger
	mu        sync.Mutex
}

type fileContents map[string]map[string]string

// NewFileStore creates a store at path for namespace
func NewFileStore(path, namespace string) *FileStore {
	return &FileStore{path: path, namespace: namespace, logger: zerolog.Nop()}
}

// SetLogger sets the logger used to report unreadable files
func (s *FileStore) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// Durable opens the durable store for a server origin
func Durable(origin string) (*FileStore, error) {
	dir, err := userconfig.Dir()
	if err != nil {
		return nil, err
	}
	return NewFileStore(filepath.Join(dir, durableFileName), origin), nil
}

// Ephemeral opens the store for the current terminal session
func Ephemeral(origin string) (*FileStore, error) {
	dir, err := userconfig.Dir()
	if err != nil {
		return nil, err
	}
	name := SessionScope() + ".json"
	return NewFileStore(filepath.Join(dir, sessionsDirName, name), origin), nil
}

// SessionScope identifies the current terminal session: QUICKCRED_SESSION
// if set, otherwise the parent shell's process id.
func SessionScope() string {
	if scope := os.Getenv(SessionEnvVar); scope != "" {
		return unsafeScopeChars.ReplaceAllString(scope, "_")
	}
	return "ppid-" + strconv.Itoa(os.Getppid())
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := s.read()
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Str("key", key).Msg("Failed to read storage, treating as empty")
		return "", false
	}
	v, ok := contents[s.namespace][key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, _, err := s.readForWrite()
	if err != nil {
		return err
	}
	if contents[s.namespace] == nil {
		contents[s.namespace] = make(map[string]string)
	}
	contents[s.namespace][key] = value
	return s.write(contents)
}

func (s *FileStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, reset, err := s.readForWrite()
	if err != nil {
		return err
	}
	values := contents[s.namespace]
	if _, ok := values[key]; !ok && !reset {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		delete(contents, s.namespace)
	}
	return s.write(contents)
}

func (s *FileStore) read() (fileContents, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(fileContents), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}

	contents := make(fileContents)
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptFile, err)
	}
	return contents, nil
}

// readForWrite is read, except that a corrupt file starts over empty and
// reset reports that it did
func (s *FileStore) readForWrite() (contents fileContents, reset bool, err error) {
	contents, err = s.read()
	if errors.Is(err, errCorruptFile) {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Resetting corrupt storage file")
		return make(fileContents), true, nil
	}
	return contents, false, err
}

func (s *FileStore) write(contents fileContents) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write storage file: %w", err)
	}
	return nil
}
