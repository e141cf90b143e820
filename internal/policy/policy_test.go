// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/promontolio/promoblog/internal/model"
)

func user(id int64, role string) *model.User {
	return &model.User{ID: id, Role: role, Status: model.StatusActive}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		role   string
		action Action
		want   bool
	}{
		{"author can create articles", model.RoleAuthor, ActionArticleCreate, true},
		{"author cannot publish", model.RoleAuthor, ActionArticlePublish, false},
		{"editor can publish", model.RoleEditor, ActionArticlePublish, true},
		{"editor cannot manage users", model.RoleEditor, ActionUserList, false},
		{"admin can manage users", model.RoleAdmin, ActionUserList, true},
		{"admin can manage settings", model.RoleAdmin, ActionSettingsManage, true},
		{"super can do everything", model.RoleSuper, ActionUserDelete, true},
		{"unknown role denied", "ghost", ActionDashboardView, false},
		{"unknown action denied", model.RoleSuper, Action("nope"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.action))
		})
	}
}

func TestCanEditArticle(t *testing.T) {
	author := user(1, model.RoleAuthor)
	editor := user(2, model.RoleEditor)

	assert.True(t, CanEditArticle(author, 1), "author edits own")
	assert.False(t, CanEditArticle(author, 2), "author cannot edit others")
	assert.True(t, CanEditArticle(editor, 1), "editor edits any")
}

func TestCanDeleteArticle(t *testing.T) {
	author := user(1, model.RoleAuthor)
	admin := user(3, model.RoleAdmin)

	assert.True(t, CanDeleteArticle(author, 1))
	assert.False(t, CanDeleteArticle(author, 99))
	assert.True(t, CanDeleteArticle(admin, 99))
}

func TestCheckUserAction(t *testing.T) {
	admin := user(10, model.RoleAdmin)
	super := user(20, model.RoleSuper)
	other := user(30, model.RoleEditor)
	otherSuper := user(40, model.RoleSuper)

	tests := []struct {
		name      string
		actor     *model.User
		target    *model.User
		action    Action
		newRole   string
		newStatus string
		wantErr   error
	}{
		{"admin deletes editor", admin, other, ActionUserDelete, "", "", nil},
		{"editor cannot delete", other, admin, ActionUserDelete, "", "", ErrForbidden},
		{"no self delete", admin, admin, ActionUserDelete, "", "", ErrSelfDelete},
		{"no self deactivate", admin, admin, ActionUserEdit, "", model.StatusInactive, ErrSelfDeactivate},
		{"self edit keeping active ok", admin, admin, ActionUserEdit, "", model.StatusActive, nil},
		{"admin cannot touch super", admin, otherSuper, ActionUserEdit, "", "", ErrSuperTarget},
		{"super touches super", super, otherSuper, ActionUserEdit, "", "", nil},
		{"admin cannot grant super", admin, other, ActionUserEdit, model.RoleSuper, "", ErrGrantSuper},
		{"super grants super", super, other, ActionUserEdit, model.RoleSuper, "", nil},
		{"admin resets editor password", admin, other, ActionUserResetPassword, "", "", nil},
		{"admin cannot reset super password", admin, otherSuper, ActionUserResetPassword, "", "", ErrSuperTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckUserAction(tt.actor, tt.target, tt.action, tt.newRole, tt.newStatus)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
