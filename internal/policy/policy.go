// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy centralizes role-based authorization decisions. Every
// permission check in handlers goes through this package so the capability
// table lives in one place instead of being scattered across route guards.
package policy

import (
	"errors"

	"github.com/promontolio/promoblog/internal/model"
)

// Action identifies a guarded operation.
type Action string

// Guarded operations.
const (
	ActionDashboardView Action = "dashboard.view"

	ActionArticleCreate     Action = "article.create"
	ActionArticleEditOwn    Action = "article.edit_own"
	ActionArticleEditAny    Action = "article.edit_any"
	ActionArticlePublish    Action = "article.publish"
	ActionArticleDeleteOwn  Action = "article.delete_own"
	ActionArticleDeleteAny  Action = "article.delete_any"

	ActionMediaUpload    Action = "media.upload"
	ActionMediaEdit      Action = "media.edit"
	ActionMediaDelete    Action = "media.delete"

	ActionUserList          Action = "user.list"
	ActionUserCreate        Action = "user.create"
	ActionUserEdit          Action = "user.edit"
	ActionUserDelete        Action = "user.delete"
	ActionUserResetPassword Action = "user.reset_password"

	ActionSubscriberManage Action = "subscriber.manage"
	ActionSettingsManage   Action = "settings.manage"
)

// minRole maps each action to the least privileged role that may perform it.
var minRole = map[Action]string{
	ActionDashboardView: model.RoleAuthor,

	ActionArticleCreate:    model.RoleAuthor,
	ActionArticleEditOwn:   model.RoleAuthor,
	ActionArticleEditAny:   model.RoleEditor,
	ActionArticlePublish:   model.RoleEditor,
	ActionArticleDeleteOwn: model.RoleAuthor,
	ActionArticleDeleteAny: model.RoleEditor,

	ActionMediaUpload: model.RoleAuthor,
	ActionMediaEdit:   model.RoleEditor,
	ActionMediaDelete: model.RoleEditor,

	ActionUserList:          model.RoleAdmin,
	ActionUserCreate:        model.RoleAdmin,
	ActionUserEdit:          model.RoleAdmin,
	ActionUserDelete:        model.RoleAdmin,
	ActionUserResetPassword: model.RoleAdmin,

	ActionSubscriberManage: model.RoleAdmin,
	ActionSettingsManage:   model.RoleAdmin,
}

// Authorization errors returned by CheckUserAction.
var (
	ErrForbidden      = errors.New("insufficient permissions")
	ErrSelfDelete     = errors.New("cannot delete your own account")
	ErrSelfDeactivate = errors.New("cannot deactivate your own account")
	ErrSuperTarget    = errors.New("only a super user can modify a super user")
	ErrGrantSuper     = errors.New("only a super user can grant the super role")
)

// Allowed reports whether a role may perform the given action. Unknown
// actions are denied.
func Allowed(role string, action Action) bool {
	req, ok := minRole[action]
	if !ok {
		return false
	}
	return model.RoleLevel(role) >= model.RoleLevel(req)
}

// CanEditArticle reports whether the actor may edit an article owned by
// authorID.
func CanEditArticle(actor *model.User, authorID int64) bool {
	if Allowed(actor.Role, ActionArticleEditAny) {
		return true
	}
	return Allowed(actor.Role, ActionArticleEditOwn) && actor.ID == authorID
}

// CanDeleteArticle reports whether the actor may delete an article owned by
// authorID.
func CanDeleteArticle(actor *model.User, authorID int64) bool {
	if Allowed(actor.Role, ActionArticleDeleteAny) {
		return true
	}
	return Allowed(actor.Role, ActionArticleDeleteOwn) && actor.ID == authorID
}

// CheckUserAction validates an account-management operation by actor against
// target, enforcing the rules that plain role comparison cannot express:
// self-protection (no deleting or deactivating yourself) and super-user
// isolation (only supers touch supers or grant the super role).
//
// newRole and newStatus carry the intended values for edit operations; pass
// empty strings when the field is not changing.
func CheckUserAction(actor, target *model.User, action Action, newRole, newStatus string) error {
	if !Allowed(actor.Role, action) {
		return ErrForbidden
	}

	switch action {
	case ActionUserDelete:
		if actor.ID == target.ID {
			return ErrSelfDelete
		}
	case ActionUserEdit:
		if actor.ID == target.ID && newStatus != "" && newStatus != model.StatusActive {
			return ErrSelfDeactivate
		}
	}

	// Super-user isolation applies to every mutating action on a target.
	if target.IsSuper() && !actor.IsSuper() && actor.ID != target.ID {
		return ErrSuperTarget
	}
	if newRole == model.RoleSuper && target.Role != model.RoleSuper && !actor.IsSuper() {
		return ErrGrantSuper
	}

	return nil
}
