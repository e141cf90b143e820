package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/promontolio/promoblog/internal/model"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	// Create temp file for test database
	f, err := os.CreateTemp("", "promoblog-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	// Open database
	db, err := NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}

	// Run migrations
	if err := Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return db, cleanup
}

func createTestUser(t *testing.T, q *Queries, username, email, role string) model.User {
	t.Helper()
	now := time.Now()
	u, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Role:         role,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func createTestArticle(t *testing.T, q *Queries, authorID int64, title, slug, status string) model.Article {
	t.Helper()
	now := time.Now()
	params := CreateArticleParams{
		Title:     title,
		Slug:      slug,
		Category:  model.CategoryNews,
		Status:    status,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == model.ArticleStatusPublished {
		params.PublishedAt = sql.NullTime{Time: now, Valid: true}
	}
	a, err := q.CreateArticle(context.Background(), params)
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	return a
}

func TestCreateUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	now := time.Now()
	user, err := q.CreateUser(ctx, CreateUserParams{
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hashed-password",
		FirstName:    "Test",
		LastName:     "User",
		Role:         model.RoleEditor,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if user.ID == 0 {
		t.Error("user.ID should not be 0")
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "test@example.com")
	}
	if user.Role != model.RoleEditor {
		t.Errorf("Role = %q, want %q", user.Role, model.RoleEditor)
	}
	if user.LoginCount != 0 {
		t.Errorf("LoginCount = %d, want 0", user.LoginCount)
	}
	if user.LastLoginAt.Valid {
		t.Error("LastLoginAt should be null for a new user")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createTestUser(t, q, "first", "dup@example.com", model.RoleAuthor)

	now := time.Now()
	_, err := q.CreateUser(context.Background(), CreateUserParams{
		Username:     "second",
		Email:        "dup@example.com",
		PasswordHash: "hash",
		Role:         model.RoleAuthor,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil {
		t.Fatal("expected unique constraint error for duplicate email")
	}
	if !IsUniqueConstraintErr(err) {
		t.Errorf("IsUniqueConstraintErr = false for %v", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	created := createTestUser(t, q, "findme", "find@example.com", model.RoleAdmin)

	found, err := q.GetUserByEmail(ctx, "find@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %d, want %d", found.ID, created.ID)
	}

	// Case-insensitive lookup
	found, err = q.GetUserByEmail(ctx, "FIND@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail (upper): %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("case-insensitive ID = %d, want %d", found.ID, created.ID)
	}
}

func TestUpdateUser_EmailVerified(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "verifyme", "verifyme@example.com", model.RoleAuthor)
	if u.EmailVerified {
		t.Error("new user should start unverified")
	}

	got, err := q.UpdateUser(ctx, UpdateUserParams{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		Status:        u.Status,
		EmailVerified: true,
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if !got.EmailVerified {
		t.Error("EmailVerified not persisted")
	}

	reload, err := q.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if !reload.EmailVerified {
		t.Error("EmailVerified lost on reload")
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	_, err := q.GetUserByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestListUsers_Filters(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	createTestUser(t, q, "alice", "alice@example.com", model.RoleAdmin)
	createTestUser(t, q, "bob", "bob@example.com", model.RoleAuthor)
	bob2 := createTestUser(t, q, "bobby", "bobby@example.com", model.RoleAuthor)

	if err := q.UpdateUserStatus(ctx, bob2.ID, model.StatusSuspended); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}

	tests := []struct {
		name   string
		params ListUsersParams
		want   int
	}{
		{"all", ListUsersParams{Limit: 10}, 3},
		{"search bob", ListUsersParams{Search: "bob", Limit: 10}, 2},
		{"role author", ListUsersParams{Role: model.RoleAuthor, Limit: 10}, 2},
		{"suspended only", ListUsersParams{Status: model.StatusSuspended, Limit: 10}, 1},
		{"role and search", ListUsersParams{Search: "bobby", Role: model.RoleAuthor, Limit: 10}, 1},
		{"no match", ListUsersParams{Search: "zzz", Limit: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := q.ListUsers(ctx, tt.params)
			if err != nil {
				t.Fatalf("ListUsers: %v", err)
			}
			if len(users) != tt.want {
				t.Errorf("len = %d, want %d", len(users), tt.want)
			}

			count, err := q.CountUsers(ctx, tt.params)
			if err != nil {
				t.Fatalf("CountUsers: %v", err)
			}
			if count != int64(tt.want) {
				t.Errorf("count = %d, want %d", count, tt.want)
			}
		})
	}
}

func TestRecordUserLogin(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	u := createTestUser(t, q, "login", "login@example.com", model.RoleAuthor)

	if err := q.RecordUserLogin(ctx, u.ID); err != nil {
		t.Fatalf("RecordUserLogin: %v", err)
	}
	if err := q.RecordUserLogin(ctx, u.ID); err != nil {
		t.Fatalf("RecordUserLogin: %v", err)
	}

	got, err := q.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.LoginCount != 2 {
		t.Errorf("LoginCount = %d, want 2", got.LoginCount)
	}
	if !got.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set after login")
	}
}

func TestGetUserStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	createTestUser(t, q, "a1", "a1@example.com", model.RoleAdmin)
	createTestUser(t, q, "a2", "a2@example.com", model.RoleAuthor)
	u := createTestUser(t, q, "a3", "a3@example.com", model.RoleAuthor)
	if err := q.UpdateUserStatus(ctx, u.ID, model.StatusInactive); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}

	stats, err := q.GetUserStats(ctx)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Active != 2 {
		t.Errorf("Active = %d, want 2", stats.Active)
	}
	if stats.ByRole[model.RoleAuthor] != 2 {
		t.Errorf("ByRole[author] = %d, want 2", stats.ByRole[model.RoleAuthor])
	}
	if stats.Recent != 3 {
		t.Errorf("Recent = %d, want 3", stats.Recent)
	}
}

func TestCreateArticle_UniqueSlug(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)
	createTestArticle(t, q, author.ID, "First", "same-slug", model.ArticleStatusDraft)

	now := time.Now()
	_, err := q.CreateArticle(context.Background(), CreateArticleParams{
		Title:     "Second",
		Slug:      "same-slug",
		Category:  model.CategoryNews,
		Status:    model.ArticleStatusDraft,
		AuthorID:  author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !IsUniqueConstraintErr(err) {
		t.Errorf("expected unique constraint error, got %v", err)
	}
}

func TestGetPublishedArticleBySlug(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)
	createTestArticle(t, q, author.ID, "Live", "live-post", model.ArticleStatusPublished)
	createTestArticle(t, q, author.ID, "Hidden", "hidden-post", model.ArticleStatusDraft)

	got, err := q.GetPublishedArticleBySlug(ctx, "live-post")
	if err != nil {
		t.Fatalf("GetPublishedArticleBySlug: %v", err)
	}
	if got.Title != "Live" {
		t.Errorf("Title = %q, want %q", got.Title, "Live")
	}
	if got.AuthorName != "writer" {
		t.Errorf("AuthorName = %q, want %q", got.AuthorName, "writer")
	}

	// Drafts are invisible through the published lookup
	_, err = q.GetPublishedArticleBySlug(ctx, "hidden-post")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("draft lookup err = %v, want sql.ErrNoRows", err)
	}
}

func TestListPublishedArticles(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	now := time.Now()
	for i, slug := range []string{"one", "two", "three"} {
		_, err := q.CreateArticle(ctx, CreateArticleParams{
			Title:       slug,
			Slug:        slug,
			Category:    model.CategoryRecipes,
			Status:      model.ArticleStatusPublished,
			AuthorID:    author.ID,
			PublishedAt: sql.NullTime{Time: now.Add(time.Duration(i) * time.Hour), Valid: true},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			t.Fatalf("CreateArticle: %v", err)
		}
	}
	createTestArticle(t, q, author.ID, "Draft", "a-draft", model.ArticleStatusDraft)

	articles, err := q.ListPublishedArticles(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListPublishedArticles: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("len = %d, want 3", len(articles))
	}
	// Newest publish date first
	if articles[0].Slug != "three" {
		t.Errorf("first slug = %q, want %q", articles[0].Slug, "three")
	}

	count, err := q.CountPublishedArticles(ctx, model.CategoryRecipes)
	if err != nil {
		t.Fatalf("CountPublishedArticles: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	// Paging
	page2, err := q.ListPublishedArticles(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("ListPublishedArticles page 2: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("page 2 len = %d, want 1", len(page2))
	}
}

func TestIncrementArticleViews(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)
	art := createTestArticle(t, q, author.ID, "Counted", "counted", model.ArticleStatusPublished)

	for i := 0; i < 3; i++ {
		if err := q.IncrementArticleViews(ctx, art.ID); err != nil {
			t.Fatalf("IncrementArticleViews: %v", err)
		}
	}

	got, err := q.GetArticleByID(ctx, art.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got.ViewCount != 3 {
		t.Errorf("ViewCount = %d, want 3", got.ViewCount)
	}
}

func TestUpdateArticle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)
	art := createTestArticle(t, q, author.ID, "Before", "before", model.ArticleStatusDraft)

	now := time.Now()
	updated, err := q.UpdateArticle(ctx, UpdateArticleParams{
		ID:          art.ID,
		Title:       "After",
		Slug:        "after",
		Excerpt:     "changed",
		Body:        "new body",
		Category:    model.CategoryRecipes,
		Status:      model.ArticleStatusPublished,
		PublishedAt: sql.NullTime{Time: now, Valid: true},
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("UpdateArticle: %v", err)
	}
	if updated.Title != "After" || updated.Slug != "after" {
		t.Errorf("updated = %q/%q, want After/after", updated.Title, updated.Slug)
	}
	if !updated.PublishedAt.Valid {
		t.Error("PublishedAt should be set after publish")
	}
	if updated.ViewCount != art.ViewCount {
		t.Errorf("ViewCount changed on update: %d -> %d", art.ViewCount, updated.ViewCount)
	}
}

func TestCountMediaUsage(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	now := time.Now()
	_, err := q.CreateArticle(ctx, CreateArticleParams{
		Title:      "Cover",
		Slug:       "cover",
		Category:   model.CategoryNews,
		Status:     model.ArticleStatusDraft,
		AuthorID:   author.ID,
		CoverImage: "image/123-abc.jpg",
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	_, err = q.CreateArticle(ctx, CreateArticleParams{
		Title:     "Inline",
		Slug:      "inline",
		Category:  model.CategoryNews,
		Status:    model.ArticleStatusDraft,
		AuthorID:  author.ID,
		Body:      "![pic](/uploads/image/123-abc.jpg)",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}

	n, err := q.CountMediaUsage(ctx, "image/123-abc.jpg")
	if err != nil {
		t.Fatalf("CountMediaUsage: %v", err)
	}
	if n != 2 {
		t.Errorf("usage = %d, want 2", n)
	}

	n, err = q.CountMediaUsage(ctx, "image/unused.jpg")
	if err != nil {
		t.Fatalf("CountMediaUsage: %v", err)
	}
	if n != 0 {
		t.Errorf("usage = %d, want 0", n)
	}
}

func TestMediaCRUD(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	uploader := createTestUser(t, q, "up", "up@example.com", model.RoleEditor)

	now := time.Now()
	m, err := q.CreateMedia(ctx, CreateMediaParams{
		Filename:   "123-abc.jpg",
		OrigName:   "holiday.jpg",
		MimeType:   "image/jpeg",
		FileType:   model.MediaTypeImage,
		Size:       2048,
		Path:       "image/123-abc.jpg",
		ThumbPath:  "image/thumb-123-abc.jpg",
		Width:      sql.NullInt64{Int64: 800, Valid: true},
		Height:     sql.NullInt64{Int64: 600, Valid: true},
		UploadedBy: uploader.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateMedia: %v", err)
	}
	if m.ID == 0 {
		t.Error("media ID should not be 0")
	}

	got, err := q.GetMediaByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMediaByID: %v", err)
	}
	if got.UploaderName != "up" {
		t.Errorf("UploaderName = %q, want %q", got.UploaderName, "up")
	}
	if got.Width.Int64 != 800 {
		t.Errorf("Width = %d, want 800", got.Width.Int64)
	}

	updated, err := q.UpdateMediaMeta(ctx, UpdateMediaMetaParams{
		ID:          m.ID,
		Title:       "Holiday shot",
		AltText:     "An alt",
		Caption:     "A caption",
		Description: "Taken at the coast",
		Tags:        "holiday, coast",
	})
	if err != nil {
		t.Fatalf("UpdateMediaMeta: %v", err)
	}
	if updated.AltText != "An alt" || updated.Caption != "A caption" {
		t.Errorf("meta = %q/%q", updated.AltText, updated.Caption)
	}
	if updated.Title != "Holiday shot" || updated.Description != "Taken at the coast" {
		t.Errorf("title/description = %q/%q", updated.Title, updated.Description)
	}
	if tags := updated.TagList(); len(tags) != 2 || tags[0] != "holiday" {
		t.Errorf("TagList = %v, want [holiday coast]", tags)
	}

	if err := q.DeleteMedia(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMedia: %v", err)
	}
	if _, err := q.GetMediaByID(ctx, m.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("after delete err = %v, want sql.ErrNoRows", err)
	}
}

func TestListMedia_FilterAndSort(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	uploader := createTestUser(t, q, "up", "up@example.com", model.RoleEditor)

	now := time.Now()
	files := []struct {
		filename, orig, ftype string
		size                  int64
	}{
		{"1.jpg", "beach.jpg", model.MediaTypeImage, 100},
		{"2.pdf", "report.pdf", model.MediaTypeDocument, 300},
		{"3.jpg", "alps.jpg", model.MediaTypeImage, 200},
	}
	for _, f := range files {
		_, err := q.CreateMedia(ctx, CreateMediaParams{
			Filename:   f.filename,
			OrigName:   f.orig,
			MimeType:   "application/octet-stream",
			FileType:   f.ftype,
			Size:       f.size,
			Path:       f.ftype + "/" + f.filename,
			UploadedBy: uploader.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			t.Fatalf("CreateMedia: %v", err)
		}
	}

	images, err := q.ListMedia(ctx, ListMediaParams{FileType: model.MediaTypeImage, Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia: %v", err)
	}
	if len(images) != 2 {
		t.Errorf("images len = %d, want 2", len(images))
	}

	byName, err := q.ListMedia(ctx, ListMediaParams{Sort: MediaSortName, Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia by name: %v", err)
	}
	if byName[0].OrigName != "alps.jpg" {
		t.Errorf("first by name = %q, want alps.jpg", byName[0].OrigName)
	}

	bySize, err := q.ListMedia(ctx, ListMediaParams{Sort: MediaSortLargest, Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia by size: %v", err)
	}
	if bySize[0].Size != 300 {
		t.Errorf("largest = %d, want 300", bySize[0].Size)
	}

	found, err := q.ListMedia(ctx, ListMediaParams{Search: "beach", Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia search: %v", err)
	}
	if len(found) != 1 {
		t.Errorf("search len = %d, want 1", len(found))
	}
}

func TestSubscriberLifecycle(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	now := time.Now()
	sub, err := q.CreateSubscriber(ctx, CreateSubscriberParams{
		Email:     "reader@example.com",
		Name:      "Reader",
		Token:     "tok-123",
		Confirmed: true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSubscriber: %v", err)
	}
	if !sub.Active {
		t.Error("new subscriber should be active")
	}
	if !sub.Confirmed {
		t.Error("subscriber should be confirmed")
	}

	// Duplicate email is rejected case-insensitively
	_, err = q.CreateSubscriber(ctx, CreateSubscriberParams{
		Email:     "READER@example.com",
		Token:     "tok-456",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !IsUniqueConstraintErr(err) {
		t.Errorf("expected unique constraint error, got %v", err)
	}

	// Unsubscribe via token
	byToken, err := q.GetSubscriberByToken(ctx, "tok-123")
	if err != nil {
		t.Fatalf("GetSubscriberByToken: %v", err)
	}
	if err := q.SetSubscriberActive(ctx, byToken.ID, false); err != nil {
		t.Fatalf("SetSubscriberActive: %v", err)
	}

	active, err := q.CountActiveSubscribers(ctx)
	if err != nil {
		t.Fatalf("CountActiveSubscribers: %v", err)
	}
	if active != 0 {
		t.Errorf("active = %d, want 0", active)
	}

	got, err := q.GetSubscriberByEmail(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("GetSubscriberByEmail: %v", err)
	}
	if got.Active {
		t.Error("subscriber should be inactive after unsubscribe")
	}
}

func TestGetArticleStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	createTestArticle(t, q, author.ID, "P1", "p1", model.ArticleStatusPublished)
	createTestArticle(t, q, author.ID, "P2", "p2", model.ArticleStatusPublished)
	createTestArticle(t, q, author.ID, "D1", "d1", model.ArticleStatusDraft)
	a := createTestArticle(t, q, author.ID, "V", "v", model.ArticleStatusPublished)
	for i := 0; i < 5; i++ {
		if err := q.IncrementArticleViews(ctx, a.ID); err != nil {
			t.Fatalf("IncrementArticleViews: %v", err)
		}
	}

	stats, err := q.GetArticleStats(ctx)
	if err != nil {
		t.Fatalf("GetArticleStats: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Published != 3 {
		t.Errorf("Published = %d, want 3", stats.Published)
	}
	if stats.Drafts != 1 {
		t.Errorf("Drafts = %d, want 1", stats.Drafts)
	}
	if stats.TotalViews != 5 {
		t.Errorf("TotalViews = %d, want 5", stats.TotalViews)
	}
	if stats.ByCategory[model.CategoryNews] != 4 {
		t.Errorf("ByCategory[news] = %d, want 4", stats.ByCategory[model.CategoryNews])
	}
	// Everything above was just created, so it falls in both windows
	if stats.Recent != 4 {
		t.Errorf("Recent = %d, want 4", stats.Recent)
	}
	if stats.ThisMonth != 4 {
		t.Errorf("ThisMonth = %d, want 4", stats.ThisMonth)
	}
}

func TestGetArticleStats_EmptyDB(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	stats, err := New(db).GetArticleStats(context.Background())
	if err != nil {
		t.Fatalf("GetArticleStats: %v", err)
	}
	if stats.Total != 0 || stats.TotalViews != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
}

func TestDeleteUser_KeepsAuthoredContent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "leaver", "leaver@example.com", model.RoleAuthor)
	art := createTestArticle(t, q, author.ID, "Olive Oil Basics", "olive-oil-basics", model.ArticleStatusPublished)

	if err := q.DeleteUser(ctx, author.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	got, err := q.GetArticleByID(ctx, art.ID)
	if err != nil {
		t.Fatalf("GetArticleByID after author delete: %v", err)
	}
	if got.AuthorID != author.ID {
		t.Errorf("AuthorID = %d, want %d", got.AuthorID, author.ID)
	}
	if got.AuthorName != "" {
		t.Errorf("AuthorName = %q, want empty for a deleted author", got.AuthorName)
	}
}

func TestCountActiveAdmins(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	admin := createTestUser(t, q, "boss", "boss@example.com", model.RoleAdmin)
	other := createTestUser(t, q, "boss2", "boss2@example.com", model.RoleSuper)
	createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	n, err := q.CountActiveAdmins(ctx, admin.ID)
	if err != nil {
		t.Fatalf("CountActiveAdmins: %v", err)
	}
	if n != 1 {
		t.Errorf("admins excluding %d = %d, want 1", admin.ID, n)
	}

	// A suspended admin no longer counts
	if err := q.UpdateUserStatus(ctx, other.ID, model.StatusInactive); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}
	n, err = q.CountActiveAdmins(ctx, admin.ID)
	if err != nil {
		t.Fatalf("CountActiveAdmins: %v", err)
	}
	if n != 0 {
		t.Errorf("admins after suspend = %d, want 0", n)
	}
}

func TestListPopularArticles_TiesBreakOnNewest(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	now := time.Now()
	mk := func(title, slug string, createdAt time.Time) model.Article {
		a, err := q.CreateArticle(ctx, CreateArticleParams{
			Title: title, Slug: slug, Category: model.CategoryNews,
			Status: model.ArticleStatusPublished, AuthorID: author.ID,
			PublishedAt: sql.NullTime{Time: createdAt, Valid: true},
			CreatedAt:   createdAt, UpdatedAt: createdAt,
		})
		if err != nil {
			t.Fatalf("CreateArticle: %v", err)
		}
		return a
	}
	older := mk("Older", "older", now.Add(-2*time.Hour))
	newer := mk("Newer", "newer", now)
	for _, id := range []int64{older.ID, newer.ID} {
		for i := 0; i < 3; i++ {
			if err := q.IncrementArticleViews(ctx, id); err != nil {
				t.Fatalf("IncrementArticleViews: %v", err)
			}
		}
	}

	got, err := q.ListPopularArticles(ctx, 10)
	if err != nil {
		t.Fatalf("ListPopularArticles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != newer.ID {
		t.Errorf("first = %q, want the newer article on a view tie", got[0].Title)
	}
}

func TestGetSubscriberStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	now := time.Now()
	mk := func(email, token string, createdAt time.Time) model.Subscriber {
		s, err := q.CreateSubscriber(ctx, CreateSubscriberParams{
			Email: email, Token: token, Confirmed: true,
			CreatedAt: createdAt, UpdatedAt: createdAt,
		})
		if err != nil {
			t.Fatalf("CreateSubscriber: %v", err)
		}
		return s
	}
	mk("new@example.com", "t1", now)
	mk("old@example.com", "t2", now.AddDate(0, 0, -60))
	left := mk("left@example.com", "t3", now)
	if err := q.SetSubscriberActive(ctx, left.ID, false); err != nil {
		t.Fatalf("SetSubscriberActive: %v", err)
	}

	stats, err := q.GetSubscriberStats(ctx)
	if err != nil {
		t.Fatalf("GetSubscriberStats: %v", err)
	}
	if stats.Active != 2 {
		t.Errorf("Active = %d, want 2", stats.Active)
	}
	if stats.Recent != 2 {
		t.Errorf("Recent = %d, want 2", stats.Recent)
	}
}

func TestMonthlyCounts(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	prevMonth := monthStart.Add(-time.Hour)

	for i, created := range []time.Time{now, now, prevMonth} {
		_, err := q.CreateArticle(ctx, CreateArticleParams{
			Title: fmt.Sprintf("A%d", i), Slug: fmt.Sprintf("a%d", i),
			Category: model.CategoryNews, Status: model.ArticleStatusDraft,
			AuthorID: author.ID, CreatedAt: created, UpdatedAt: created,
		})
		if err != nil {
			t.Fatalf("CreateArticle: %v", err)
		}
	}

	series, err := q.GetArticleMonthlyCounts(ctx, 6)
	if err != nil {
		t.Fatalf("GetArticleMonthlyCounts: %v", err)
	}
	if len(series) != 6 {
		t.Fatalf("series len = %d, want 6", len(series))
	}
	byMonth := make(map[string]int64, len(series))
	for _, mc := range series {
		byMonth[mc.Month] = mc.Count
	}
	if got := byMonth[now.Format("2006-01")]; got != 2 {
		t.Errorf("current month = %d, want 2", got)
	}
	if got := byMonth[prevMonth.Format("2006-01")]; got != 1 {
		t.Errorf("previous month = %d, want 1", got)
	}
	// The window starts zero-filled
	if series[0].Count != 0 {
		t.Errorf("oldest month = %d, want 0", series[0].Count)
	}

	subs, err := q.GetSubscriberMonthlyCounts(ctx, 6)
	if err != nil {
		t.Fatalf("GetSubscriberMonthlyCounts: %v", err)
	}
	if len(subs) != 6 {
		t.Fatalf("subscriber series len = %d, want 6", len(subs))
	}
	for _, mc := range subs {
		if mc.Count != 0 {
			t.Errorf("month %s = %d, want 0 with no subscribers", mc.Month, mc.Count)
		}
	}
}

func TestListMedia_MetadataSearchAndUsageSort(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	uploader := createTestUser(t, q, "up", "up@example.com", model.RoleEditor)
	author := createTestUser(t, q, "writer", "writer@example.com", model.RoleAuthor)

	now := time.Now()
	mk := func(filename, title, tags string) model.Media {
		m, err := q.CreateMedia(ctx, CreateMediaParams{
			Filename: filename, OrigName: filename,
			MimeType: "image/jpeg", FileType: model.MediaTypeImage, Size: 100,
			Path: "image/" + filename, UploadedBy: uploader.ID,
			Title: title, Tags: tags,
			CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateMedia: %v", err)
		}
		return m
	}
	used := mk("cover.jpg", "Summer cover", "summer, hero")
	mk("spare.jpg", "Spare shot", "archive")

	_, err := q.CreateArticle(ctx, CreateArticleParams{
		Title: "Uses cover", Slug: "uses-cover", Category: model.CategoryNews,
		Status: model.ArticleStatusDraft, AuthorID: author.ID,
		CoverImage: used.Path, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}

	// Search matches title and tags, not just filenames
	byTitle, err := q.ListMedia(ctx, ListMediaParams{Search: "summer cover", Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia search title: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != used.ID {
		t.Errorf("title search = %d rows, want the titled upload", len(byTitle))
	}
	byTag, err := q.ListMedia(ctx, ListMediaParams{Search: "hero", Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia search tag: %v", err)
	}
	if len(byTag) != 1 || byTag[0].ID != used.ID {
		t.Errorf("tag search = %d rows, want the tagged upload", len(byTag))
	}

	byUsage, err := q.ListMedia(ctx, ListMediaParams{Sort: MediaSortUsage, Limit: 10})
	if err != nil {
		t.Fatalf("ListMedia by usage: %v", err)
	}
	if len(byUsage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(byUsage))
	}
	if byUsage[0].ID != used.ID {
		t.Errorf("first by usage = %q, want the referenced upload", byUsage[0].OrigName)
	}
}

func TestGetMediaStats(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	uploader := createTestUser(t, q, "up", "up@example.com", model.RoleEditor)

	now := time.Now()
	for _, f := range []struct {
		name, ftype string
		size        int64
	}{
		{"a.jpg", model.MediaTypeImage, 100},
		{"b.jpg", model.MediaTypeImage, 150},
		{"c.pdf", model.MediaTypeDocument, 500},
	} {
		_, err := q.CreateMedia(ctx, CreateMediaParams{
			Filename:   f.name,
			OrigName:   f.name,
			MimeType:   "application/octet-stream",
			FileType:   f.ftype,
			Size:       f.size,
			Path:       f.ftype + "/" + f.name,
			UploadedBy: uploader.ID,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			t.Fatalf("CreateMedia: %v", err)
		}
	}

	stats, err := q.GetMediaStats(ctx)
	if err != nil {
		t.Fatalf("GetMediaStats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.TotalSize != 750 {
		t.Errorf("TotalSize = %d, want 750", stats.TotalSize)
	}
	if stats.ByType[model.MediaTypeImage] != 2 {
		t.Errorf("ByType[image] = %d, want 2", stats.ByType[model.MediaTypeImage])
	}
}

func TestBootstrapSuperUser(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := BootstrapSuperUser(ctx, db, "boss@example.com", "bosspass123"); err != nil {
		t.Fatalf("BootstrapSuperUser: %v", err)
	}

	q := New(db)
	u, err := q.GetUserByEmail(ctx, "boss@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Role != model.RoleSuper {
		t.Errorf("Role = %q, want %q", u.Role, model.RoleSuper)
	}

	// Second run is a no-op
	if err := BootstrapSuperUser(ctx, db, "other@example.com", "x"); err != nil {
		t.Fatalf("BootstrapSuperUser (second): %v", err)
	}
	count, err := q.CountAllUsers(ctx)
	if err != nil {
		t.Fatalf("CountAllUsers: %v", err)
	}
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestSeedDemo(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := BootstrapSuperUser(ctx, db, "boss@example.com", "bosspass123"); err != nil {
		t.Fatalf("BootstrapSuperUser: %v", err)
	}
	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	q := New(db)
	n, err := q.CountArticles(ctx, ListArticlesParams{})
	if err != nil {
		t.Fatalf("CountArticles: %v", err)
	}
	if n == 0 {
		t.Error("SeedDemo created no articles")
	}

	// Second run is a no-op
	if err := SeedDemo(ctx, db); err != nil {
		t.Fatalf("SeedDemo (second): %v", err)
	}
	n2, err := q.CountArticles(ctx, ListArticlesParams{})
	if err != nil {
		t.Fatalf("CountArticles: %v", err)
	}
	if n2 != n {
		t.Errorf("article count changed on second seed: %d -> %d", n, n2)
	}
}
