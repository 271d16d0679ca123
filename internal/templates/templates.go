// Package templates manages canned reply templates, persisted locally as a
// JSON file. A template's message may contain the {name} placeholder, which
// renders as the replying agent's display name.
package templates

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Template is one canned reply.
type Template struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Defaults seed the store on first use.
func Defaults() []Template {
	return []Template{
		{ID: uuid.NewString(), Title: "Personal greeting", Message: "Hi! I'm {name}, how can I help you today?"},
		{ID: uuid.NewString(), Title: "Hold message", Message: "Thanks for your patience. An agent will be with you shortly."},
		{ID: uuid.NewString(), Title: "Personal sign-off", Message: "Thanks for reaching out. I'm {name} and it was a pleasure to help. Have a great day!"},
	}
}

// ErrNotFound reports a reference that matches no stored template.
var ErrNotFound = errors.New("template not found")

// Store reads and writes the template file.
type Store struct {
	path string
}

// Open returns a store backed by the given file. The file is created lazily
// on the first mutation; reads of a missing file see the defaults.
func Open(path string) *Store {
	return &Store{path: path}
}

// DefaultPath places the template file next to the rest of the user's
// trueblue state.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".trueblue", "templates.json"), nil
}

// List returns every stored template in file order.
func (s *Store) List() ([]Template, error) {
	return s.load()
}

// Get resolves a reference against id and title, title case-insensitively.
func (s *Store) Get(ref string) (*Template, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	for i := range all {
		if all[i].ID == ref || strings.EqualFold(all[i].Title, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// Add stores a new template. Title and message must be non-empty after
// trimming; a duplicate title is rejected.
func (s *Store) Add(title, message string) (*Template, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" {
		return nil, errors.New("template title must not be empty")
	}
	if message == "" {
		return nil, errors.New("template message must not be empty")
	}

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if strings.EqualFold(t.Title, title) {
			return nil, fmt.Errorf("template %q already exists", t.Title)
		}
	}

	tmpl := Template{ID: uuid.NewString(), Title: title, Message: message}
	all = append(all, tmpl)
	if err := s.save(all); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Remove deletes the template matching ref by id or title.
func (s *Store) Remove(ref string) (*Template, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	for i := range all {
		if all[i].ID == ref || strings.EqualFold(all[i].Title, ref) {
			removed := all[i]
			all = append(all[:i], all[i+1:]...)
			if err := s.save(all); err != nil {
				return nil, err
			}
			return &removed, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, ref)
}

// Render substitutes the {name} placeholder with the agent's display name.
func Render(message, agentName string) string {
	return strings.ReplaceAll(message, "{name}", agentName)
}

func (s *Store) load() ([]Template, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	var all []Template
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("templates file %s is corrupt: %w", s.path, err)
	}
	return all, nil
}

func (s *Store) save(all []Template) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating templates dir: %w", err)
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing templates: %w", err)
	}
	return nil
}
