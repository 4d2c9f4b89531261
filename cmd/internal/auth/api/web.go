package authapi

import (
	"net/http"
	"strings"
	"time"

	"stash/cmd/internal/auth/session"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	h.setCookie(w, accessCookieName, issued.AccessToken, issued.AccessExp)
	h.setCookie(w, refreshCookieName, issued.RefreshToken, issued.RefreshExp)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, accessCookieName)
	h.expireCookie(w, refreshCookieName)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	if h == nil || w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if h == nil || w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func cookieToken(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// accessTokenFromRequest prefers the cookie over the Authorization header.
func accessTokenFromRequest(r *http.Request) string {
	if v, ok := cookieToken(r, accessCookieName); ok {
		return v
	}
	return bearerToken(r)
}
