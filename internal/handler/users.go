package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msomdec/agro-iam/internal/clientip"
	"github.com/msomdec/agro-iam/internal/domain"
	"github.com/msomdec/agro-iam/internal/service"
)

// UserHandler handles the /api/v1/users endpoints.
type UserHandler struct {
	auth         *service.AuthService
	users        *service.UserService
	locations    domain.LocationResolver
	tokenTTL     time.Duration
	cookieSecure bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *service.AuthService, users *service.UserService, locations domain.LocationResolver, tokenTTL time.Duration, cookieSecure bool) *UserHandler {
	return &UserHandler{
		auth:         auth,
		users:        users,
		locations:    locations,
		tokenTTL:     tokenTTL,
		cookieSecure: cookieSecure,
	}
}

// HandleSignUp registers a new user, tagging the account with the location
// resolved from the caller's IP.
// POST /api/v1/users/sign-up
// Request:  {"userName":"...","email":"...","password":"...","phoneNumber":"+51...","identificator":"12345678"}
// Response: 201 {"user": {...}}
func (h *UserHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ip := clientip.FromContext(r.Context())
	if ip == "" {
		ip = clientip.FromRequest(r)
	}
	location := h.locations.Resolve(r.Context(), ip)

	user, err := h.auth.SignUp(r.Context(), req, location)
	if err != nil {
		writeServiceError(w, "sign up user", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleSignIn verifies credentials and issues a token, both in the body and
// as the auth_token cookie.
// POST /api/v1/users/sign-in
// Request:  {"email":"...","password":"..."}
// Response: {"id":1,"userName":"...","email":"...","token":"..."}
func (h *UserHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "sign in user", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.tokenTTL.Seconds()),
	})

	writeJSON(w, http.StatusOK, SignInDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
	})
}

// HandleGet returns a user by ID.
// GET /api/v1/users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleUpdateProfile changes the caller's username, email or phone number.
// PUT /api/v1/users/{id}/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := selfID(w, r)
	if !ok {
		return
	}

	var req service.UpdateProfileInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleUpdatePassword changes the caller's password.
// PUT /api/v1/users/{id}/password
// Request: {"currentPassword":"...","newPassword":"..."}
func (h *UserHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := selfID(w, r)
	if !ok {
		return
	}

	var req service.UpdatePasswordInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.users.UpdatePassword(r.Context(), id, req); err != nil {
		writeServiceError(w, "update password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// HandleDelete removes the caller's account and clears the auth cookie.
// DELETE /api/v1/users/{id}
// Response: 204 No Content
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := selfID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete user", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid user ID.")
		return 0, false
	}
	return id, true
}

// selfID parses the path ID and requires it to match the authenticated user.
func selfID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return 0, false
	}

	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return 0, false
	}
	if user.ID != id {
		writeServiceError(w, "check ownership", domain.ErrForbidden)
		return 0, false
	}
	return id, true
}
