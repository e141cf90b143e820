// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging stores uploaded media files and processes image uploads:
// EXIF auto-rotation, dimension extraction and square thumbnail generation
// using pure Go libraries.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/util"
)

// Thumbnail dimensions and JPEG quality.
const (
	ThumbSize    = 300
	ThumbQuality = 85
	JPEGQuality  = 95
)

// allowedMimeTypes is the upload allow-list, keyed by MIME type.
var allowedMimeTypes = map[string]bool{
	// Images
	"image/jpeg":    true,
	"image/png":     true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,

	// Documents
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,

	// Video
	"video/mp4":  true,
	"video/webm": true,
	"video/ogg":  true,

	// Audio
	"audio/mpeg": true,
	"audio/wav":  true,
	"audio/ogg":  true,
}

// decodableMimeTypes are image types the pure Go decoders handle. SVG is
// an image but is stored as-is, with no dimensions or thumbnail. WebP is
// absent because uploads are rewritten to image/jpeg before this check.
var decodableMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// StoreResult describes a stored upload.
type StoreResult struct {
	Filename  string // generated stored filename
	Path      string // path relative to the upload root, e.g. "image/163...-ab.jpg"
	ThumbPath string // relative thumbnail path, empty when none was generated
	MimeType  string
	FileType  string // image, video, audio or document
	Size      int64
	Width     int // 0 when not a decodable image
	Height    int
}

// Processor stores uploads under a root directory partitioned by file type.
type Processor struct {
	uploadDir string
}

// NewProcessor creates a processor rooted at uploadDir.
func NewProcessor(uploadDir string) *Processor {
	return &Processor{uploadDir: uploadDir}
}

// IsAllowedType checks a MIME type against the upload allow-list.
func IsAllowedType(mimeType string) bool {
	return allowedMimeTypes[mimeType]
}

// DetectMimeType sniffs the MIME type of file data, falling back to the
// extension for types http.DetectContentType cannot identify.
func DetectMimeType(data []byte, filename string) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType returns types like "image/jpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)

	if contentType == "application/octet-stream" || contentType == "text/plain" {
		if byExt := mimeFromExtension(filename); byExt != "" {
			return byExt
		}
	}
	return contentType
}

// StoreUpload validates, stores and (for images) processes one upload.
// The returned paths are relative to the upload root.
func (p *Processor) StoreUpload(reader io.Reader, origName string) (*StoreResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	mimeType := DetectMimeType(data, origName)
	if !IsAllowedType(mimeType) {
		return nil, fmt.Errorf("file type %s is not allowed", mimeType)
	}

	mimeType, origName = normalizeUpload(mimeType, origName)

	fileType := model.FileTypeFromMime(mimeType)
	filename := util.GenerateUploadFilename(origName)

	result := &StoreResult{
		Filename: filename,
		Path:     filepath.Join(fileType, filename),
		MimeType: mimeType,
		FileType: fileType,
	}

	if decodableMimeTypes[mimeType] {
		// Decode, auto-rotate per EXIF, and re-encode without metadata
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
		img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

		bounds := img.Bounds()
		result.Width = bounds.Dx()
		result.Height = bounds.Dy()

		data, err = encodeImage(img, formatForMime(mimeType), JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encoding image: %w", err)
		}

		thumbPath, err := p.saveThumbnail(img, fileType, filename)
		if err != nil {
			return nil, fmt.Errorf("creating thumbnail: %w", err)
		}
		result.ThumbPath = thumbPath
	}

	if _, err := p.saveFile(fileType, filename, data); err != nil {
		return nil, err
	}
	result.Size = int64(len(data))

	return result, nil
}

// saveThumbnail writes a center-cropped square thumbnail next to the
// original and returns its relative path.
func (p *Processor) saveThumbnail(img image.Image, fileType, filename string) (string, error) {
	thumb := imaging.Fill(img, ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos)

	thumbName := util.ThumbnailFilename(filename)
	data, err := encodeImage(thumb, detectFormatFromFilename(filename), ThumbQuality)
	if err != nil {
		return "", err
	}

	if _, err := p.saveFile(fileType, thumbName, data); err != nil {
		return "", err
	}
	return filepath.Join(fileType, thumbName), nil
}

// GetImageDimensions returns the dimensions of an image file.
func (p *Processor) GetImageDimensions(relPath string) (width, height int, err error) {
	file, err := os.Open(filepath.Join(p.uploadDir, relPath))
	if err != nil {
		return 0, 0, fmt.Errorf("opening image: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Decode config only for efficiency (doesn't decode full image)
	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("reading image config: %w", err)
	}

	return config.Width, config.Height, nil
}

// DeleteFiles removes a stored file and its thumbnail. Missing files are
// ignored so a half-deleted record can be cleaned up again.
func (p *Processor) DeleteFiles(relPath, thumbRelPath string) error {
	for _, rel := range []string{relPath, thumbRelPath} {
		if rel == "" {
			continue
		}
		full, err := p.resolve(rel)
		if err != nil {
			return err
		}
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("deleting %s: %w", rel, err)
		}
	}
	return nil
}

// resolve joins a relative path onto the upload root, rejecting traversal.
func (p *Processor) resolve(relPath string) (string, error) {
	clean := filepath.Clean(relPath)
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid upload path %q", relPath)
	}

	absBase, err := filepath.Abs(p.uploadDir)
	if err != nil {
		return "", fmt.Errorf("resolving upload root: %w", err)
	}
	target := filepath.Join(absBase, clean)

	rel, err := filepath.Rel(absBase, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path traversal detected in %q", relPath)
	}
	return target, nil
}

// saveFile writes data under uploadDir/<subDir>/<filename> and returns
// the absolute path.
func (p *Processor) saveFile(subDir, filename string, data []byte) (string, error) {
	safeName, err := util.SanitizeFilename(filename)
	if err != nil {
		return "", err
	}

	target, err := p.resolve(filepath.Join(subDir, safeName))
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("saving file: %w", err)
	}
	return target, nil
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// Orientation values:
// 1: Normal
// 2: Flip horizontal
// 3: Rotate 180°
// 4: Flip vertical
// 5: Rotate 90° CW + flip horizontal
// 6: Rotate 90° CW
// 7: Rotate 90° CCW + flip horizontal
// 8: Rotate 90° CCW
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage encodes an image to bytes with the specified format and quality.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, err
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// normalizeUpload rewrites types that cannot be written back as received.
// Pure Go has no WebP encoder, so a WebP upload is re-encoded to JPEG and
// must carry the converted MIME type and extension, otherwise the stored
// bytes and the recorded metadata disagree.
func normalizeUpload(mimeType, origName string) (string, string) {
	if mimeType == "image/webp" {
		return "image/jpeg", strings.TrimSuffix(origName, filepath.Ext(origName)) + ".jpg"
	}
	return mimeType, origName
}

// detectFormatFromFilename extracts format from filename extension.
func detectFormatFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	default:
		return "jpeg"
	}
}

// formatForMime maps a decodable image MIME type to an encoder format.
func formatForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	default:
		return "jpeg"
	}
}

// mimeFromExtension resolves MIME types the content sniffer cannot, such
// as office documents and CSV, from the filename extension.
func mimeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".svg":
		return "image/svg+xml"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return ""
	}
}
