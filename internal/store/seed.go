package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/model"
)

// BootstrapSuperUser creates the initial super user when the users table is
// empty. When password is empty a random one is generated and logged once so
// the operator can log in and change it.
func BootstrapSuperUser(ctx context.Context, db *sql.DB, email, password string) error {
	queries := New(db)

	count, err := queries.CountAllUsers(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	generated := false
	if password == "" {
		buf := make([]byte, 18)
		if _, err := rand.Read(buf); err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(buf)
		generated = true
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Username:     "admin",
		Email:        auth.NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    "Site",
		LastName:     "Admin",
		Role:         model.RoleSuper,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating super user: %w", err)
	}

	if generated {
		slog.Info("created initial super user with generated password",
			"id", user.ID,
			"email", user.Email,
			"password", password,
		)
	} else {
		slog.Info("created initial super user",
			"id", user.ID,
			"email", user.Email,
		)
	}
	return nil
}

// SeedDemo inserts a handful of demo articles so a fresh install has
// something to show. It is a no-op when any article exists.
func SeedDemo(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	n, err := queries.CountArticles(ctx, ListArticlesParams{})
	if err != nil {
		return fmt.Errorf("counting articles: %w", err)
	}
	if n > 0 {
		return nil
	}

	admin, err := firstUser(ctx, queries)
	if err != nil {
		return err
	}

	now := time.Now()
	demos := []CreateArticleParams{
		{
			Title:       "What Makes Extra Virgin Olive Oil Extra",
			Slug:        "what-makes-extra-virgin-olive-oil-extra",
			Excerpt:     "The grading rules behind the label, explained.",
			Body:        "## Grades\n\nExtra virgin is the top grade: cold-extracted, free acidity under 0.8%, and no sensory defects.",
			Category:    model.CategoryOliveOilGuide,
			Status:      model.ArticleStatusPublished,
			AuthorID:    admin.ID,
			Tags:        "basics, grading",
			PublishedAt: sql.NullTime{Time: now, Valid: true},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Title:     "Pan Con Tomate, The Right Way",
			Slug:      "pan-con-tomate-the-right-way",
			Excerpt:   "Four ingredients, no shortcuts.",
			Body:      "Bread, ripe tomato, salt, and a generous pour of olive oil.",
			Category:  model.CategoryRecipes,
			Status:    model.ArticleStatusDraft,
			AuthorID:  admin.ID,
			Tags:      "recipes, spain",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for _, d := range demos {
		if _, err := queries.CreateArticle(ctx, d); err != nil {
			return fmt.Errorf("seeding article %q: %w", d.Title, err)
		}
	}

	slog.Info("seeded demo articles", "count", len(demos))
	return nil
}

func firstUser(ctx context.Context, queries *Queries) (model.User, error) {
	users, err := queries.ListUsers(ctx, ListUsersParams{Limit: 1})
	if err != nil {
		return model.User{}, fmt.Errorf("finding seed author: %w", err)
	}
	if len(users) == 0 {
		return model.User{}, errors.New("no users exist to author demo content")
	}
	return users[0], nil
}
