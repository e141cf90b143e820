// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// GenerateUploadFilename builds a collision-resistant stored filename for an
// upload: a millisecond timestamp plus random hex, keeping the original
// extension lowercased. The original name is never trusted for storage.
func GenerateUploadFilename(origName string) string {
	ext := strings.ToLower(filepath.Ext(origName))
	buf := make([]byte, 8)
	// rand.Read never fails on supported platforms (crypto/rand panics
	// on error since Go 1.24)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), hex.EncodeToString(buf), ext)
}

// ThumbnailFilename returns the thumbnail name for a stored filename.
func ThumbnailFilename(filename string) string {
	return "thumb-" + filename
}
