package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stash/cmd/identity"
	"stash/cmd/internal/auth/session"
)

// BasePath is the mount point for all user and session routes.
const BasePath = "/api/v1/users"

// Handler wires HTTP endpoints to the session service.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service

	loginFailures prometheus.Counter
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithLoginFailureCounter records failed credential checks on the given
// counter.
func WithLoginFailureCounter(c prometheus.Counter) HandlerOption {
	return func(h *Handler) {
		if h == nil || c == nil {
			return
		}
		h.loginFailures = c
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}

	h := &Handler{log: log, cfg: cfg, sessions: sessions}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires the user routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc(BasePath+"/register", h.handleRegister)
	mux.HandleFunc(BasePath+"/login", h.handleLogin)
	mux.HandleFunc(BasePath+"/logout", h.requireAuth(h.handleLogout))
	mux.HandleFunc(BasePath+"/refresh-token", h.handleRefresh)
	mux.HandleFunc(BasePath+"/change-password", h.requireAuth(h.handleChangePassword))
	mux.HandleFunc(BasePath+"/profile", h.requireAuth(h.handleUpdateProfile))
	mux.HandleFunc(BasePath+"/me", h.requireAuth(h.handleMe))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	profile, err := h.sessions.Register(r.Context(), now, req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case session.IsValidation(err):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "Email address already registered")
		default:
			h.log.Error("auth.register.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Something went wrong while registering the user")
		}
		return
	}

	writeData(w, http.StatusCreated, profile, "User registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	u, issued, err := h.sessions.Login(r.Context(), now, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "Email and password are required")
		case errors.Is(err, session.ErrInvalidCredentials):
			if h.loginFailures != nil {
				h.loginFailures.Inc()
			}
			writeError(w, http.StatusBadRequest, "Invalid user credentials")
		default:
			h.log.Error("auth.login.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.setSessionCookies(w, issued)
	writeData(w, http.StatusOK, loginData{
		User:         u.Profile(),
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, "User logged in successfully")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, _ := UserFromContext(r.Context())
	now := time.Now().UTC()
	if err := h.sessions.Logout(r.Context(), now, u.ID); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.clearSessionCookies(w)
	writeData(w, http.StatusOK, struct{}{}, "User logged out successfully")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	// Cookie first, then the body field, mirroring the access-token order.
	refreshToken, ok := cookieToken(r, refreshCookieName)
	if !ok {
		refreshToken = strings.TrimSpace(req.RefreshToken)
	}

	now := time.Now().UTC()
	u, issued, err := h.sessions.Refresh(r.Context(), now, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Token is invalid or used")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookies(w, issued)
	writeData(w, http.StatusOK, loginData{
		User:         u.Profile(),
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
	}, "Access token refreshed successfully")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, _ := UserFromContext(r.Context())
	now := time.Now().UTC()
	err := h.sessions.ChangePassword(r.Context(), now, u.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case session.IsValidation(err):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		case errors.Is(err, session.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Invalid old password")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.Error("auth.change_password.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeData(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, _ := UserFromContext(r.Context())
	now := time.Now().UTC()
	profile, err := h.sessions.UpdateProfile(r.Context(), now, u.ID, req.Email, req.FullName)
	if err != nil {
		switch {
		case session.IsValidation(err):
			writeError(w, http.StatusBadRequest, validationMessage(err))
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "Email address already registered")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			h.log.Error("auth.update_profile.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeData(w, http.StatusOK, profile, "Profile updated successfully")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, _ := UserFromContext(r.Context())
	writeData(w, http.StatusOK, u, "Current user fetched successfully")
}

// validationMessage surfaces the service's validation message without
// leaking anything else.
func validationMessage(err error) string {
	var v session.ValidationError
	if errors.As(err, &v) && v.Msg != "" {
		return v.Msg
	}
	return "Invalid request"
}
