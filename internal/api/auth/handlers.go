package auth

import (
	"errors"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/codr1/seitai-booking/internal/api/apiutil"
)

var (
	userStore UserStore
	limiter   *rate.Limiter
	initOnce  sync.Once
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Passwords are 4-8 alphanumeric characters; the clinic's customers
	// type these on a tablet at the front desk.
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,8}$`)
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(store UserStore) {
	if store == nil {
		return
	}
	initOnce.Do(func() {
		userStore = store
		limiter = rate.NewLimiter(rate.Limit(10), 20) // restrictive for auth
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/auth/register
func HandleRegister(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if userStore == nil {
		logger.Error().Msg("User store not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !limiter.Allow() {
		apiutil.WriteError(w, http.StatusTooManyRequests, "Too many requests, try again shortly")
		return
	}

	var req registerRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Email, password and name are required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if !passwordPattern.MatchString(req.Password) {
		apiutil.WriteError(w, http.StatusBadRequest, "Password must be 4-8 alphanumeric characters")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to hash password")
		apiutil.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		IsFirstTime:  true,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: hash,
	}

	if err := userStore.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			apiutil.WriteError(w, http.StatusConflict, "This email address is already registered")
			return
		}
		logger.Error().Err(err).Msg("Failed to create user")
		apiutil.WriteError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("User registered")
	_ = apiutil.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

// POST /api/v1/auth/login
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	if userStore == nil {
		logger.Error().Msg("User store not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !limiter.Allow() {
		apiutil.WriteError(w, http.StatusTooManyRequests, "Too many requests, try again shortly")
		return
	}

	var req loginRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		apiutil.WriteError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := userStore.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			logger.Error().Err(err).Msg("Failed to load user")
		}
		apiutil.WriteError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !VerifyPassword(user.PasswordHash, req.Password) {
		apiutil.WriteError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}

	now := time.Now().UTC()
	if err := userStore.TouchLogin(r.Context(), user.ID, now); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update last login")
	}
	user.LastLoginAt = &now

	if err := CreateSession(w, user.ID); err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		apiutil.WriteError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	logger.Info().Str("user_id", user.ID).Msg("User logged in")
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

// POST /api/v1/auth/logout
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSession(w, r)
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GET /api/v1/auth/me
func HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"user": user})
}

// ResolveUser loads the account behind the request's session cookie, or nil
// when the request is anonymous.
func ResolveUser(r *http.Request) *User {
	if userStore == nil {
		return nil
	}
	id, ok := UserIDFromRequest(r)
	if !ok {
		return nil
	}
	user, err := userStore.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to load session user")
		}
		return nil
	}
	return &user
}

// POST /api/v1/auth/first-time
// Marks the signed-in customer as no longer first-time, switching them to
// the returning menu after their first booking.
func HandleUpdateFirstTime(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	user := UserFromContext(r.Context())
	if user == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	if err := userStore.SetFirstTime(r.Context(), user.ID, false); err != nil {
		logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update first-time flag")
		apiutil.WriteError(w, http.StatusInternalServerError, "Update failed")
		return
	}

	_ = apiutil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}
