// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"strings"
	"time"
)

// Media file types, derived from MIME type at upload time.
const (
	MediaTypeImage    = "image"
	MediaTypeVideo    = "video"
	MediaTypeAudio    = "audio"
	MediaTypeDocument = "document"
)

// ValidMediaTypes contains the media type buckets an item can be filed
// under.
var ValidMediaTypes = []string{
	MediaTypeImage,
	MediaTypeVideo,
	MediaTypeAudio,
	MediaTypeDocument,
}

// IsValidMediaType reports whether t is one of the media type buckets.
func IsValidMediaType(t string) bool {
	for _, v := range ValidMediaTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Media represents an uploaded file in the media library.
type Media struct {
	ID          int64         `json:"id"`
	Filename    string        `json:"filename"`
	OrigName    string        `json:"orig_name"`
	MimeType    string        `json:"mime_type"`
	FileType    string        `json:"file_type"`
	Size        int64         `json:"size"`
	Path        string        `json:"path"`
	ThumbPath   string        `json:"thumb_path"`
	Width       sql.NullInt64 `json:"width,omitempty"`
	Height      sql.NullInt64 `json:"height,omitempty"`
	Title       string        `json:"title"`
	AltText     string        `json:"alt_text"`
	Caption     string        `json:"caption"`
	Description string        `json:"description"`
	Tags        string        `json:"tags"` // comma-separated
	UploadedBy  int64         `json:"uploaded_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// UploaderName is populated by joined queries, not stored.
	UploaderName string `json:"uploader_name,omitempty"`
}

// IsImage returns true if the media file is an image.
func (m *Media) IsImage() bool {
	return m.FileType == MediaTypeImage
}

// HasThumbnail returns true if a thumbnail was generated for this file.
func (m *Media) HasThumbnail() bool {
	return m.ThumbPath != ""
}

// URL returns the public URL path for serving this file.
func (m *Media) URL() string {
	return "/uploads/" + m.Path
}

// ThumbURL returns the public URL path for the thumbnail, or the
// original file when no thumbnail exists.
func (m *Media) ThumbURL() string {
	if m.ThumbPath != "" {
		return "/uploads/" + m.ThumbPath
	}
	return m.URL()
}

// TagList splits the stored comma-separated tags into a slice,
// dropping empty entries.
func (m *Media) TagList() []string {
	if m.Tags == "" {
		return nil
	}
	var out []string
	for _, tag := range strings.Split(m.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// FileTypeFromMime maps a MIME type onto one of the media type buckets.
func FileTypeFromMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mime, "video/"):
		return MediaTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return MediaTypeAudio
	default:
		return MediaTypeDocument
	}
}
