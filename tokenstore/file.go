package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	campushub "github.com/campushub/campushub-go"
)

const credentialsFileName = "credentials.json"

// File persists the token pair as a JSON credentials file, created with 0600
// permissions. A missing file reads as an empty pair.
type File struct {
	mu   sync.Mutex
	path string
}

// compile-time check
var _ campushub.TokenStore = (*File)(nil)

// credentials is the on-disk layout.
type credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewFile creates a file-backed store at path.
func NewFile(path string) *File { return &File{path: path} }

// DefaultPath returns the standard credentials location,
// ~/.campushub/credentials.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("campushub/tokenstore: find home directory: %w", err)
	}
	return filepath.Join(home, ".campushub", credentialsFileName), nil
}

// Load reads the stored pair. A missing file is an empty pair, not an error.
func (f *File) Load() (campushub.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return campushub.TokenPair{}, nil
		}
		return campushub.TokenPair{}, fmt.Errorf("campushub/tokenstore: read %s: %w", f.path, err)
	}

	var creds credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return campushub.TokenPair{}, fmt.Errorf("campushub/tokenstore: parse %s: %w", f.path, err)
	}
	return campushub.TokenPair{Access: creds.AccessToken, Refresh: creds.RefreshToken}, nil
}

// Save writes the pair, creating the parent directory when needed. The file
// is written 0600 since it holds live credentials.
func (f *File) Save(p campushub.TokenPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("campushub/tokenstore: create config directory: %w", err)
	}

	data, err := json.MarshalIndent(credentials{
		AccessToken:  p.Access,
		RefreshToken: p.Refresh,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("campushub/tokenstore: marshal credentials: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("campushub/tokenstore: write credentials: %w", err)
	}
	return nil
}

// Clear removes the credentials file. A missing file is not an error.
func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("campushub/tokenstore: remove credentials: %w", err)
	}
	return nil
}
