// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package settings manages site-wide settings persisted as a JSON file.
// Settings are read often and written rarely, so the store keeps the
// current value in memory behind a RWMutex and rewrites the file
// atomically on save.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Site holds public site identity settings.
type Site struct {
	Title        string `json:"title"`
	Tagline      string `json:"tagline"`
	Description  string `json:"description"`
	ContactEmail string `json:"contact_email"`
	FooterText   string `json:"footer_text"`
}

// Content holds content presentation settings.
type Content struct {
	PostsPerPage    int    `json:"posts_per_page"`
	ShowAuthor      bool   `json:"show_author"`
	ShowViewCounts  bool   `json:"show_view_counts"`
	DefaultCategory string `json:"default_category"`
}

// Uploads holds media upload settings.
type Uploads struct {
	MaxSizeMB      int  `json:"max_size_mb"`
	GenerateThumbs bool `json:"generate_thumbs"`
}

// Security holds login and form protection settings.
type Security struct {
	LoginMaxAttempts int `json:"login_max_attempts"`
	LoginWindowMins  int `json:"login_window_mins"`
	SessionHours     int `json:"session_hours"`
}

// Settings is the full persisted settings document.
type Settings struct {
	Site     Site     `json:"site"`
	Content  Content  `json:"content"`
	Uploads  Uploads  `json:"uploads"`
	Security Security `json:"security"`
}

// Defaults returns the settings used when no file exists yet.
func Defaults() Settings {
	return Settings{
		Site: Site{
			Title:       "Promontolio",
			Tagline:     "Stories from the olive grove",
			Description: "A blog about olive oil, recipes and the people who make it.",
			FooterText:  "Promontolio",
		},
		Content: Content{
			PostsPerPage:    9,
			ShowAuthor:      true,
			ShowViewCounts:  false,
			DefaultCategory: "news",
		},
		Uploads: Uploads{
			MaxSizeMB:      10,
			GenerateThumbs: true,
		},
		Security: Security{
			LoginMaxAttempts: 5,
			LoginWindowMins:  15,
			SessionHours:     24,
		},
	}
}

// Store loads, caches and persists the settings file.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewStore loads settings from path, falling back to defaults when the
// file does not exist. A missing file is created on the first Save.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, current: Defaults()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	// Unmarshal over defaults so fields missing from an older file keep
	// their default values.
	if err := json.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	if err := s.current.validate(); err != nil {
		return nil, fmt.Errorf("settings file: %w", err)
	}
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Save validates, persists and swaps in the new settings. The file is
// written to a temp file in the same directory and renamed over the old
// one so readers never observe a partial write.
func (s *Store) Save(next Settings) error {
	if err := next.validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".settings-*.json")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings file: %w", err)
	}

	s.current = next
	return nil
}

func (st Settings) validate() error {
	if st.Site.Title == "" {
		return errors.New("site title must not be empty")
	}
	if st.Content.PostsPerPage < 1 || st.Content.PostsPerPage > 50 {
		return fmt.Errorf("posts per page must be 1-50, got %d", st.Content.PostsPerPage)
	}
	if st.Uploads.MaxSizeMB < 1 || st.Uploads.MaxSizeMB > 100 {
		return fmt.Errorf("upload limit must be 1-100 MB, got %d", st.Uploads.MaxSizeMB)
	}
	if st.Security.LoginMaxAttempts < 1 {
		return fmt.Errorf("login max attempts must be positive, got %d", st.Security.LoginMaxAttempts)
	}
	if st.Security.SessionHours < 1 {
		return fmt.Errorf("session lifetime must be positive, got %d", st.Security.SessionHours)
	}
	return nil
}
