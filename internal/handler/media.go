// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/imaging"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/settings"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/uikit"
)

// MediaPerPage is the number of media items to display per library page.
const MediaPerPage = 24

// MediaFileTypes lists the filterable media file types.
var MediaFileTypes = []string{
	model.MediaTypeImage,
	model.MediaTypeVideo,
	model.MediaTypeAudio,
	model.MediaTypeDocument,
}

// MediaSorts lists the supported library sort orders.
var MediaSorts = []string{
	store.MediaSortNewest,
	store.MediaSortOldest,
	store.MediaSortName,
	store.MediaSortLargest,
	store.MediaSortUsage,
}

// MediaHandler handles media library routes.
type MediaHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	processor      *imaging.Processor
	settings       *settings.Store
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, proc *imaging.Processor, st *settings.Store) *MediaHandler {
	return &MediaHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		processor:      proc,
		settings:       st,
	}
}

// MediaListData holds data for the media library template.
type MediaListData struct {
	Items      []model.Media
	Stats      store.MediaStats
	Pagination uikit.AdminPagination
	Search     string
	TypeFilter string
	Sort       string
	FileTypes  []string
	Sorts      []string
}

// Library handles GET /admin/media - displays the media library grid.
func (h *MediaHandler) Library(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	page := uikit.ParsePageParam(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	typeFilter := r.URL.Query().Get("type")
	if typeFilter != "" && !isValidFileType(typeFilter) {
		typeFilter = ""
	}

	sort := r.URL.Query().Get("sort")
	if sort == "" || !isValidMediaSort(sort) {
		sort = store.MediaSortNewest
	}

	params := store.ListMediaParams{
		Search:   search,
		FileType: typeFilter,
		Sort:     sort,
	}

	totalCount, err := h.queries.CountMedia(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to count media", "error", err)
		return
	}

	page, _ = uikit.NormalizePagination(page, int(totalCount), MediaPerPage)
	params.Limit = MediaPerPage
	params.Offset = int64((page - 1) * MediaPerPage)

	items, err := h.queries.ListMedia(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to list media", "error", err)
		return
	}

	stats, err := h.queries.GetMediaStats(r.Context())
	if err != nil {
		slog.Error("failed to get media stats", "error", err)
	}

	data := MediaListData{
		Items:      items,
		Stats:      stats,
		Pagination: uikit.BuildAdminPagination(page, int(totalCount), MediaPerPage, redirectAdminMedia, r.URL.Query()),
		Search:     search,
		TypeFilter: typeFilter,
		Sort:       sort,
		FileTypes:  MediaFileTypes,
		Sorts:      MediaSorts,
	}

	if err := h.renderer.Render(w, r, "admin/media_library", render.TemplateData{
		Title: "Media Library",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// UploadForm handles GET /admin/media/upload - displays the upload form.
func (h *MediaHandler) UploadForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := h.renderer.Render(w, r, "admin/media_upload", render.TemplateData{
		Title: "Upload Media",
		User:  user,
		Data: map[string]any{
			"MaxSizeMB": h.settings.Get().Uploads.MaxSizeMB,
		},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Upload handles POST /admin/media/upload - stores one or more uploaded files.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	maxBytes := int64(h.settings.Get().Uploads.MaxSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*10+1<<20)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		flashError(w, r, h.renderer, redirectAdminMediaUpload, "Upload too large or malformed")
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
		if len(headers) == 0 {
			// Single-file form field fallback
			headers = r.MultipartForm.File["file"]
		}
	}
	if len(headers) == 0 {
		flashError(w, r, h.renderer, redirectAdminMediaUpload, "No files selected")
		return
	}

	var uploaded, failed int
	for _, header := range headers {
		if err := h.storeOne(r, header, maxBytes, user.ID); err != nil {
			slog.Error("upload failed", "error", err, "file", header.Filename, "uploaded_by", user.ID)
			failed++
			continue
		}
		uploaded++
	}

	message := fmt.Sprintf("Uploaded %d file(s)", uploaded)
	if failed > 0 {
		message = fmt.Sprintf("Uploaded %d file(s), %d failed", uploaded, failed)
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Trigger", fmt.Sprintf(`{"showToast": %q}`, message))
		w.WriteHeader(http.StatusOK)
		return
	}

	flashType := "success"
	if uploaded == 0 {
		flashType = "error"
	}
	flashAndRedirect(w, r, h.renderer, redirectAdminMedia, message, flashType)
}

// storeOne validates and stores a single uploaded file.
func (h *MediaHandler) storeOne(r *http.Request, header *multipart.FileHeader, maxBytes, uploadedBy int64) error {
	if header.Size > maxBytes {
		return fmt.Errorf("file exceeds the %d MB limit", h.settings.Get().Uploads.MaxSizeMB)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer file.Close()

	result, err := h.processor.StoreUpload(file, header.Filename)
	if err != nil {
		return err
	}

	now := time.Now()
	media, err := h.queries.CreateMedia(r.Context(), store.CreateMediaParams{
		Filename:   result.Filename,
		OrigName:   header.Filename,
		MimeType:   result.MimeType,
		FileType:   result.FileType,
		Size:       result.Size,
		Path:       result.Path,
		ThumbPath:  result.ThumbPath,
		Width:      nullDimension(result.Width),
		Height:     nullDimension(result.Height),
		UploadedBy: uploadedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		// Keep the filesystem consistent with the database
		if delErr := h.processor.DeleteFiles(result.Path, result.ThumbPath); delErr != nil {
			slog.Error("failed to remove orphaned upload", "error", delErr, "path", result.Path)
		}
		return fmt.Errorf("recording upload: %w", err)
	}

	slog.Info("media uploaded", "media_id", media.ID, "filename", media.Filename, "size", media.Size, "uploaded_by", uploadedBy)
	return nil
}

// MediaEditData holds data for the media edit template.
type MediaEditData struct {
	Media      model.Media
	UsageCount int64
	Errors     map[string]string
}

// EditForm handles GET /admin/media/{id} - displays the media detail form.
func (h *MediaHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminMedia, "Invalid media ID")
		return
	}

	media, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminMedia, "media", id,
		func(id int64) (model.Media, error) { return h.queries.GetMediaByID(r.Context(), id) })
	if !ok {
		return
	}

	usage, err := h.queries.CountMediaUsage(r.Context(), media.Path)
	if err != nil {
		slog.Error("failed to count media usage", "error", err, "media_id", id)
	}

	if err := h.renderer.Render(w, r, "admin/media_edit", render.TemplateData{
		Title: "Edit Media",
		User:  user,
		Data: MediaEditData{
			Media:      media,
			UsageCount: usage,
			Errors:     make(map[string]string),
		},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Update handles POST /admin/media/{id} - updates the descriptive metadata.
func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminMedia, "Invalid media ID")
		return
	}

	if _, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminMedia, "media", id,
		func(id int64) (model.Media, error) { return h.queries.GetMediaByID(r.Context(), id) }); !ok {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, fmt.Sprintf(redirectAdminMediaID, id)) {
		return
	}

	params := store.UpdateMediaMetaParams{
		ID:          id,
		Title:       strings.TrimSpace(r.FormValue("title")),
		AltText:     strings.TrimSpace(r.FormValue("alt_text")),
		Caption:     strings.TrimSpace(r.FormValue("caption")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Tags:        strings.TrimSpace(r.FormValue("tags")),
	}

	if _, err := h.queries.UpdateMediaMeta(r.Context(), params); err != nil {
		slog.Error("failed to update media", "error", err, "media_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminMediaID, id), "Error updating media")
		return
	}

	slog.Info("media updated", "media_id", id, "updated_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminMedia, "Media updated successfully")
}

// Delete handles DELETE /admin/media/{id} - deletes a media item and its files.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid media ID", http.StatusBadRequest)
		return
	}

	media, ok := requireEntityWithError(w, "media", id,
		func(id int64) (model.Media, error) { return h.queries.GetMediaByID(r.Context(), id) })
	if !ok {
		return
	}

	usage, err := h.queries.CountMediaUsage(r.Context(), media.Path)
	if err != nil {
		logAndInternalError(w, "failed to count media usage", "error", err, "media_id", id)
		return
	}
	if usage > 0 {
		http.Error(w, fmt.Sprintf("File is used by %d article(s)", usage), http.StatusConflict)
		return
	}

	// Remove files first; a stale DB row is recoverable, an orphaned row
	// pointing at nothing is confusing in the library grid
	if err := h.processor.DeleteFiles(media.Path, media.ThumbPath); err != nil {
		slog.Error("failed to delete media files", "error", err, "media_id", id, "path", media.Path)
	}

	if err := h.queries.DeleteMedia(r.Context(), id); err != nil {
		slog.Error("failed to delete media", "error", err, "media_id", id)
		http.Error(w, "Error deleting media", http.StatusInternalServerError)
		return
	}

	slog.Info("media deleted", "media_id", id, "filename", media.Filename, "deleted_by", user.ID)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Trigger", `{"showToast": "Media deleted"}`)
		w.WriteHeader(http.StatusOK)
		return
	}

	flashSuccess(w, r, h.renderer, redirectAdminMedia, "Media deleted successfully")
}

// Bulk handles POST /admin/media/bulk - deletes or re-files several media
// items in one request.
func (h *MediaHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminMedia) {
		return
	}

	var ids []int64
	for _, raw := range r.Form["ids"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		flashError(w, r, h.renderer, redirectAdminMedia, "No files selected")
		return
	}

	switch action := r.FormValue("bulk_action"); action {
	case "delete":
		h.bulkDelete(w, r, user, ids)
	case "retype":
		h.bulkRetype(w, r, user, ids)
	default:
		flashError(w, r, h.renderer, redirectAdminMedia, "Unknown bulk action")
	}
}

// bulkDelete removes the selected items, skipping any still referenced by
// an article.
func (h *MediaHandler) bulkDelete(w http.ResponseWriter, r *http.Request, user *model.User, ids []int64) {
	var deleted, skipped int
	for _, id := range ids {
		media, err := h.queries.GetMediaByID(r.Context(), id)
		if err != nil {
			skipped++
			continue
		}
		usage, err := h.queries.CountMediaUsage(r.Context(), media.Path)
		if err != nil || usage > 0 {
			skipped++
			continue
		}
		if err := h.processor.DeleteFiles(media.Path, media.ThumbPath); err != nil {
			slog.Error("failed to delete media files", "error", err, "media_id", id, "path", media.Path)
		}
		if err := h.queries.DeleteMedia(r.Context(), id); err != nil {
			slog.Error("failed to delete media", "error", err, "media_id", id)
			skipped++
			continue
		}
		deleted++
	}

	slog.Info("media bulk delete", "deleted", deleted, "skipped", skipped, "deleted_by", user.ID)

	msg := fmt.Sprintf("Deleted %d file(s)", deleted)
	if skipped > 0 {
		msg += fmt.Sprintf(", skipped %d still in use or missing", skipped)
	}
	flashSuccess(w, r, h.renderer, redirectAdminMedia, msg)
}

// bulkRetype moves the selected items into a different type bucket.
func (h *MediaHandler) bulkRetype(w http.ResponseWriter, r *http.Request, user *model.User, ids []int64) {
	fileType := r.FormValue("file_type")
	if !model.IsValidMediaType(fileType) {
		flashError(w, r, h.renderer, redirectAdminMedia, "Invalid media type")
		return
	}

	var updated int
	for _, id := range ids {
		if err := h.queries.UpdateMediaFileType(r.Context(), id, fileType); err != nil {
			slog.Error("failed to update media type", "error", err, "media_id", id)
			continue
		}
		updated++
	}

	slog.Info("media bulk retype", "updated", updated, "file_type", fileType, "updated_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminMedia,
		fmt.Sprintf("Moved %d file(s) to %s", updated, fileType))
}

// ListJSON handles GET /admin/media/picker - returns media as JSON for the
// editor's image picker.
func (h *MediaHandler) ListJSON(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := h.queries.ListMedia(r.Context(), store.ListMediaParams{
		Search:   search,
		FileType: model.MediaTypeImage,
		Sort:     store.MediaSortNewest,
		Limit:    MediaPerPage,
		Offset:   int64(uikit.ParsePageParam(r)-1) * MediaPerPage,
	})
	if err != nil {
		slog.Error("failed to list media", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	type pickerItem struct {
		ID       int64  `json:"id"`
		URL      string `json:"url"`
		ThumbURL string `json:"thumb_url"`
		AltText  string `json:"alt_text"`
		OrigName string `json:"orig_name"`
	}

	out := make([]pickerItem, 0, len(items))
	for i := range items {
		m := &items[i]
		out = append(out, pickerItem{
			ID:       m.ID,
			URL:      m.URL(),
			ThumbURL: m.ThumbURL(),
			AltText:  m.AltText,
			OrigName: m.OrigName,
		})
	}

	writeJSONSuccess(w, map[string]any{"items": out})
}

// nullDimension converts a pixel dimension into sql.NullInt64, treating
// zero (not a decodable image) as NULL.
func nullDimension(v int) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func isValidFileType(fileType string) bool {
	for _, t := range MediaFileTypes {
		if t == fileType {
			return true
		}
	}
	return false
}

func isValidMediaSort(sort string) bool {
	for _, s := range MediaSorts {
		if s == sort {
			return true
		}
	}
	return false
}
