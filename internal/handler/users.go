// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/policy"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/uikit"
)

// UsersPerPage is the number of users to display per admin list page.
const UsersPerPage = 10

// UsersHandler handles user management routes.
type UsersHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *UsersHandler {
	return &UsersHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// UsersListData holds data for the users list template.
type UsersListData struct {
	Users        []model.User
	Stats        store.UserStats
	Pagination   uikit.AdminPagination
	Search       string
	RoleFilter   string
	StatusFilter string
	Roles        []string
	Statuses     []string
}

// List handles GET /admin/users - displays a paginated, filterable list.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	page := uikit.ParsePageParam(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	roleFilter := r.URL.Query().Get("role")
	if roleFilter != "" && !model.IsValidRole(roleFilter) {
		roleFilter = ""
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !model.IsValidStatus(statusFilter) {
		statusFilter = ""
	}

	params := store.ListUsersParams{
		Search: search,
		Role:   roleFilter,
		Status: statusFilter,
	}

	totalCount, err := h.queries.CountUsers(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to count users", "error", err)
		return
	}

	page, _ = uikit.NormalizePagination(page, int(totalCount), UsersPerPage)
	params.Limit = UsersPerPage
	params.Offset = int64((page - 1) * UsersPerPage)

	users, err := h.queries.ListUsers(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to list users", "error", err)
		return
	}

	stats, err := h.queries.GetUserStats(r.Context())
	if err != nil {
		slog.Error("failed to get user stats", "error", err)
		// List still renders without the stat cards
	}

	data := UsersListData{
		Users:        users,
		Stats:        stats,
		Pagination:   uikit.BuildAdminPagination(page, int(totalCount), UsersPerPage, redirectAdminUsers, r.URL.Query()),
		Search:       search,
		RoleFilter:   roleFilter,
		StatusFilter: statusFilter,
		Roles:        model.ValidRoles,
		Statuses:     model.ValidStatuses,
	}

	if err := h.renderer.Render(w, r, "admin/users_list", render.TemplateData{
		Title: "Users",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// UserFormData holds data for the user form template.
type UserFormData struct {
	EditUser   *model.User
	Roles      []string
	Statuses   []string
	Errors     map[string]string
	FormValues map[string]string
	IsEdit     bool
}

// NewForm handles GET /admin/users/new - displays the new user form.
func (h *UsersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	data := UserFormData{
		Roles:      model.ValidRoles,
		Statuses:   model.ValidStatuses,
		Errors:     make(map[string]string),
		FormValues: make(map[string]string),
		IsEdit:     false,
	}

	if err := h.renderer.Render(w, r, "admin/users_form", render.TemplateData{
		Title: "New User",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Create handles POST /admin/users - creates a new user.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminUsersNew) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := auth.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	role := r.FormValue("role")
	status := r.FormValue("status")

	formValues := map[string]string{
		"username":   username,
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"role":       role,
		"status":     status,
	}

	errs := make(map[string]string)

	if err := auth.ValidateUsername(username); err != nil {
		errs["username"] = err.Error()
	}
	if err := auth.ValidateEmail(email); err != nil {
		errs["email"] = err.Error()
	}
	if err := auth.ValidatePassword(password); err != nil {
		errs["password"] = err.Error()
	}

	if role == "" {
		role = model.RoleAuthor
		formValues["role"] = role
	} else if !model.IsValidRole(role) {
		errs["role"] = "Invalid role"
	} else if role == model.RoleSuper && !actor.IsSuper() {
		errs["role"] = "Only a super user can grant the super role"
	}

	if status == "" {
		status = model.StatusActive
		formValues["status"] = status
	} else if !model.IsValidStatus(status) {
		errs["status"] = "Invalid status"
	}

	if len(errs) > 0 {
		h.renderUserForm(w, r, "New User", UserFormData{
			Roles:      model.ValidRoles,
			Statuses:   model.ValidStatuses,
			Errors:     errs,
			FormValues: formValues,
			IsEdit:     false,
		})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		flashError(w, r, h.renderer, redirectAdminUsersNew, "Error creating user")
		return
	}

	now := time.Now()
	created, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         role,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if store.IsUniqueConstraintErr(err) {
			errs["email"] = "A user with this email or username already exists"
			h.renderUserForm(w, r, "New User", UserFormData{
				Roles:      model.ValidRoles,
				Statuses:   model.ValidStatuses,
				Errors:     errs,
				FormValues: formValues,
				IsEdit:     false,
			})
			return
		}
		slog.Error("failed to create user", "error", err)
		flashError(w, r, h.renderer, redirectAdminUsersNew, "Error creating user")
		return
	}

	slog.Info("user created", "user_id", created.ID, "username", created.Username, "role", created.Role, "created_by", actor.ID)
	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User created successfully")
}

// EditForm handles GET /admin/users/{id} - displays the edit user form.
func (h *UsersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	h.renderUserForm(w, r, "Edit User", UserFormData{
		EditUser:   &target,
		Roles:      model.ValidRoles,
		Statuses:   model.ValidStatuses,
		Errors:     make(map[string]string),
		FormValues: userFormValues(target),
		IsEdit:     true,
	})
}

// userFormValues prefills the edit form from a stored user.
func userFormValues(u model.User) map[string]string {
	values := map[string]string{
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"status":     u.Status,
		"bio":        u.Bio,
		"avatar_url": u.AvatarURL,
	}
	if u.EmailVerified {
		values["email_verified"] = "on"
	}
	return values
}

// Update handles POST /admin/users/{id} - updates an existing user.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id)) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := auth.NormalizeEmail(r.FormValue("email"))
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	role := r.FormValue("role")
	status := r.FormValue("status")
	emailVerified := r.FormValue("email_verified") == "on"
	bio := strings.TrimSpace(r.FormValue("bio"))
	avatarURL := strings.TrimSpace(r.FormValue("avatar_url"))

	formValues := map[string]string{
		"username":   username,
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"role":       role,
		"status":     status,
		"bio":        bio,
		"avatar_url": avatarURL,
	}
	if emailVerified {
		formValues["email_verified"] = "on"
	}

	errs := make(map[string]string)

	if err := auth.ValidateUsername(username); err != nil {
		errs["username"] = err.Error()
	}
	if err := auth.ValidateEmail(email); err != nil {
		errs["email"] = err.Error()
	}

	if role == "" {
		role = target.Role
		formValues["role"] = role
	} else if !model.IsValidRole(role) {
		errs["role"] = "Invalid role"
	}

	if status == "" {
		status = target.Status
		formValues["status"] = status
	} else if !model.IsValidStatus(status) {
		errs["status"] = "Invalid status"
	}

	if err := policy.CheckUserAction(actor, &target, policy.ActionUserEdit, role, status); err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, capitalizeError(err))
		return
	}

	// Demoting or deactivating the last admin would lock everyone out
	if target.HasRole(model.RoleAdmin) &&
		(model.RoleLevel(role) < model.RoleLevel(model.RoleAdmin) || status != model.StatusActive) {
		last, err := h.isLastActiveAdmin(r, target.ID)
		if err != nil {
			logAndInternalError(w, "failed to count admins", "error", err)
			return
		}
		if last {
			flashError(w, r, h.renderer, redirectAdminUsers, "Cannot demote or deactivate the last admin")
			return
		}
	}

	if len(errs) > 0 {
		h.renderUserForm(w, r, "Edit User", UserFormData{
			EditUser:   &target,
			Roles:      model.ValidRoles,
			Statuses:   model.ValidStatuses,
			Errors:     errs,
			FormValues: formValues,
			IsEdit:     true,
		})
		return
	}

	updated, err := h.queries.UpdateUser(r.Context(), store.UpdateUserParams{
		ID:            id,
		Username:      username,
		Email:         email,
		FirstName:     firstName,
		LastName:      lastName,
		Role:          role,
		Status:        status,
		EmailVerified: emailVerified,
		Bio:           bio,
		AvatarURL:     avatarURL,
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		if store.IsUniqueConstraintErr(err) {
			errs["email"] = "A user with this email or username already exists"
			h.renderUserForm(w, r, "Edit User", UserFormData{
				EditUser:   &target,
				Roles:      model.ValidRoles,
				Statuses:   model.ValidStatuses,
				Errors:     errs,
				FormValues: formValues,
				IsEdit:     true,
			})
			return
		}
		slog.Error("failed to update user", "error", err, "user_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id), "Error updating user")
		return
	}

	slog.Info("user updated", "user_id", updated.ID, "username", updated.Username, "updated_by", actor.ID)
	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User updated successfully")
}

// ResetPassword handles POST /admin/users/{id}/password - sets a new password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := policy.CheckUserAction(actor, &target, policy.ActionUserResetPassword, "", ""); err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, capitalizeError(err))
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id)) {
		return
	}

	password := r.FormValue("password")
	if err := auth.ValidatePassword(password); err != nil {
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id), capitalizeError(err))
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id), "Error resetting password")
		return
	}

	if err := h.queries.UpdateUserPassword(r.Context(), id, hash); err != nil {
		slog.Error("failed to reset password", "error", err, "user_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id), "Error resetting password")
		return
	}

	slog.Info("password reset", "user_id", id, "reset_by", actor.ID)
	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectAdminUsersID, id), "Password reset successfully")
}

// ToggleStatus handles POST /admin/users/{id}/status - toggles active status.
func (h *UsersHandler) ToggleStatus(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, "Invalid user ID")
		return
	}

	target, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminUsers, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	newStatus := model.StatusActive
	if target.IsActive() {
		newStatus = model.StatusInactive
	}

	if err := policy.CheckUserAction(actor, &target, policy.ActionUserEdit, "", newStatus); err != nil {
		flashError(w, r, h.renderer, redirectAdminUsers, capitalizeError(err))
		return
	}

	if newStatus != model.StatusActive && target.HasRole(model.RoleAdmin) {
		last, err := h.isLastActiveAdmin(r, target.ID)
		if err != nil {
			logAndInternalError(w, "failed to count admins", "error", err)
			return
		}
		if last {
			flashError(w, r, h.renderer, redirectAdminUsers, "Cannot deactivate the last admin")
			return
		}
	}

	if err := h.queries.UpdateUserStatus(r.Context(), id, newStatus); err != nil {
		slog.Error("failed to update user status", "error", err, "user_id", id)
		flashError(w, r, h.renderer, redirectAdminUsers, "Error updating user status")
		return
	}

	slog.Info("user status changed", "user_id", id, "status", newStatus, "changed_by", actor.ID)
	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User status updated")
}

// Delete handles DELETE /admin/users/{id} - deletes a user.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	target, ok := requireEntityWithError(w, "user", id,
		func(id int64) (model.User, error) { return h.queries.GetUserByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := policy.CheckUserAction(actor, &target, policy.ActionUserDelete, "", ""); err != nil {
		http.Error(w, capitalizeError(err), http.StatusForbidden)
		return
	}

	if target.HasRole(model.RoleAdmin) {
		last, err := h.isLastActiveAdmin(r, target.ID)
		if err != nil {
			logAndInternalError(w, "failed to count admins", "error", err)
			return
		}
		if last {
			http.Error(w, "Cannot delete the last admin", http.StatusConflict)
			return
		}
	}

	if err := h.queries.DeleteUser(r.Context(), id); err != nil {
		slog.Error("failed to delete user", "error", err, "user_id", id)
		http.Error(w, "Error deleting user", http.StatusInternalServerError)
		return
	}

	slog.Info("user deleted", "user_id", id, "username", target.Username, "deleted_by", actor.ID)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Trigger", `{"showToast": "User deleted"}`)
		w.WriteHeader(http.StatusOK)
		return
	}

	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User deleted successfully")
}

// renderUserForm renders the user form template with the given data.
func (h *UsersHandler) renderUserForm(w http.ResponseWriter, r *http.Request, title string, data UserFormData) {
	if err := h.renderer.Render(w, r, "admin/users_form", render.TemplateData{
		Title: title,
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// isLastActiveAdmin reports whether id is the only remaining active user
// with the admin role or higher.
func (h *UsersHandler) isLastActiveAdmin(r *http.Request, id int64) (bool, error) {
	others, err := h.queries.CountActiveAdmins(r.Context(), id)
	if err != nil {
		return false, err
	}
	return others == 0, nil
}

// capitalizeError upper-cases the first letter of an error message for
// display in flash messages.
func capitalizeError(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
