// Package localstate persists the two pieces of device-local state the timer
// needs: a random per-device instance id and the ownership token of the
// user's current session.
package localstate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type fileData struct {
	InstanceID string            `yaml:"instance_id"`
	Tokens     map[string]string `yaml:"tokens,omitempty"`
}

// File is a YAML-backed device state file. Every read goes back to disk so
// several processes on one device observe each other's writes.
type File struct {
	path string
	mu   sync.Mutex
}

// Open opens or creates the state file at path and ensures it carries an
// instance id.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("local state path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	f := &File{path: path}
	if _, err := f.InstanceID(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// InstanceID returns the device id, generating and persisting it on first use.
func (f *File) InstanceID() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return "", err
	}
	if data.InstanceID != "" {
		return data.InstanceID, nil
	}
	data.InstanceID = uuid.NewString()
	if err := f.save(data); err != nil {
		return "", err
	}
	return data.InstanceID, nil
}

// For scopes token access to one user.
func (f *File) For(userID string) *UserState {
	return &UserState{file: f, userID: userID}
}

func (f *File) load() (*fileData, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &fileData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local state: %w", err)
	}
	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse local state %s: %w", f.path, err)
	}
	return &data, nil
}

func (f *File) save(data *fileData) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode local state: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write local state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write local state: %w", err)
	}
	return nil
}

func (f *File) update(fn func(*fileData)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if data.Tokens == nil {
		data.Tokens = map[string]string{}
	}
	fn(data)
	if len(data.Tokens) == 0 {
		data.Tokens = nil
	}
	return f.save(data)
}

// UserState is the device state seen by one user's controller.
type UserState struct {
	file   *File
	userID string
}

// Token returns the stored ownership token, or "" when none is held.
func (u *UserState) Token() (string, error) {
	u.file.mu.Lock()
	defer u.file.mu.Unlock()

	data, err := u.file.load()
	if err != nil {
		return "", err
	}
	return data.Tokens[u.userID], nil
}

func (u *UserState) SetToken(token string) error {
	return u.file.update(func(d *fileData) {
		d.Tokens[u.userID] = token
	})
}

func (u *UserState) ClearToken() error {
	return u.file.update(func(d *fileData) {
		delete(d.Tokens, u.userID)
	})
}

func (u *UserState) InstanceID() (string, error) {
	return u.file.InstanceID()
}
