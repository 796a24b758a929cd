package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/modelmagic/portal/internal/api/types"
	"github.com/modelmagic/portal/internal/services"
	appErr "github.com/modelmagic/portal/pkg/errors"
)

const (
	stateCookie    = "mm_oidc_state"
	nonceCookie    = "mm_oidc_nonce"
	verifierCookie = "mm_oidc_verifier"
	loginCookieTTL = 10 * time.Minute
)

// OIDCProvider is the external sign-in flow; *services.OIDCService
// implements it.
type OIDCProvider interface {
	AuthCodeURL(ls services.LoginState) string
	Exchange(ctx context.Context, code string, ls services.LoginState) (*services.Session, error)
}

type AuthHandler struct {
	auth   services.AuthService
	oidc   OIDCProvider
	appURL string
}

// NewAuthHandler wires the auth endpoints. oidc may be nil when external
// sign-in is not configured.
func NewAuthHandler(auth services.AuthService, oidc OIDCProvider, appURL string) *AuthHandler {
	return &AuthHandler{auth: auth, oidc: oidc, appURL: strings.TrimRight(appURL, "/")}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess)
}

// RequestMagicLink always answers 202 for well-formed requests so the
// response does not reveal whether the email has an account.
func (h *AuthHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req types.MagicLinkRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.SendLoginLink(r.Context(), req.Email); err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusAccepted, map[string]string{
		"message": "If an account exists for this email, a sign-in link is on its way.",
	})
}

func (h *AuthHandler) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req types.VerifyLoginLinkRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.auth.VerifyLoginLink(r.Context(), req.Token)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, sess)
}

func (h *AuthHandler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		fail(w, r, appErr.New(appErr.CodeNotFound, "external sign-in is not enabled"))
		return
	}
	ls, err := services.NewLoginState()
	if err != nil {
		fail(w, r, appErr.Wrap(err, appErr.CodeInternal, "generate login state"))
		return
	}
	secure := h.secureCookies()
	setShortCookie(w, stateCookie, ls.State, secure)
	setShortCookie(w, nonceCookie, ls.Nonce, secure)
	setShortCookie(w, verifierCookie, ls.Verifier, secure)
	http.Redirect(w, r, h.oidc.AuthCodeURL(ls), http.StatusFound)
}

// OIDCCallback finishes the provider flow and hands the session token to the
// front end in the URL fragment, which browsers do not send to servers.
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		fail(w, r, appErr.New(appErr.CodeNotFound, "external sign-in is not enabled"))
		return
	}
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		fail(w, r, appErr.New(appErr.CodeUnauthorized, "provider returned an error").WithMeta("error", e))
		return
	}
	ls := services.LoginState{
		State:    cookieValue(r, stateCookie),
		Nonce:    cookieValue(r, nonceCookie),
		Verifier: cookieValue(r, verifierCookie),
	}
	if ls.State == "" || ls.State != q.Get("state") {
		fail(w, r, appErr.New(appErr.CodeUnauthorized, "invalid state"))
		return
	}
	if ls.Nonce == "" || ls.Verifier == "" {
		fail(w, r, appErr.New(appErr.CodeUnauthorized, "login attempt expired"))
		return
	}
	code := q.Get("code")
	if code == "" {
		fail(w, r, appErr.New(appErr.CodeInvalid, "missing code"))
		return
	}

	sess, err := h.oidc.Exchange(r.Context(), code, ls)
	secure := h.secureCookies()
	clearCookie(w, stateCookie, secure)
	clearCookie(w, nonceCookie, secure)
	clearCookie(w, verifierCookie, secure)
	if err != nil {
		fail(w, r, err)
		return
	}
	frag := url.Values{}
	frag.Set("access_token", sess.Token)
	frag.Set("token_type", sess.TokenType)
	http.Redirect(w, r, h.appURL+"/auth/callback#"+frag.Encode(), http.StatusFound)
}

func (h *AuthHandler) secureCookies() bool {
	return strings.HasPrefix(h.appURL, "https://")
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func setShortCookie(w http.ResponseWriter, name, value string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(loginCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
