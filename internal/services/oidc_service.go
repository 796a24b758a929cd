package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	appErr "github.com/modelmagic/portal/pkg/errors"
)

type OIDCConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// LoginState is the per-attempt secret material kept in short-lived cookies
// between the redirect and the callback.
type LoginState struct {
	State    string
	Nonce    string
	Verifier string
}

// OIDCService signs clients in with an external identity provider (Google)
// and exchanges the verified identity for a portal session.
type OIDCService struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config oauth2.Config
	auth         AuthService
}

func NewOIDCService(ctx context.Context, cfg OIDCConfig, auth AuthService) (*OIDCService, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return &OIDCService{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		auth: auth,
	}, nil
}

func NewLoginState() (LoginState, error) {
	var ls LoginState
	var err error
	if ls.State, err = randomBase64URL(32); err != nil {
		return ls, err
	}
	if ls.Nonce, err = randomBase64URL(32); err != nil {
		return ls, err
	}
	if ls.Verifier, err = randomBase64URL(32); err != nil {
		return ls, err
	}
	return ls, nil
}

// AuthCodeURL is the provider URL the browser is redirected to.
func (s *OIDCService) AuthCodeURL(ls LoginState) string {
	return s.oauth2Config.AuthCodeURL(
		ls.State,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", pkceS256Challenge(ls.Verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("nonce", ls.Nonce),
	)
}

// Exchange redeems the authorization code, verifies the ID token and its
// nonce, and signs the user in.
func (s *OIDCService) Exchange(ctx context.Context, code string, ls LoginState) (*Session, error) {
	exchangeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := s.oauth2Config.Exchange(exchangeCtx, code, oauth2.SetAuthURLParam("code_verifier", ls.Verifier))
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "token exchange failed")
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "missing id token")
	}
	idToken, err := s.verifier.Verify(exchangeCtx, rawIDToken)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid id token")
	}

	var claims struct {
		Nonce         string `json:"nonce"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid id token claims")
	}
	if claims.Nonce == "" || claims.Nonce != ls.Nonce {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid nonce")
	}
	if !claims.EmailVerified {
		return nil, appErr.New(appErr.CodeUnauthorized, "email not verified by provider")
	}
	return s.auth.SignInExternal(ctx, claims.Email, claims.Name)
}

func randomBase64URL(nBytes int) (string, error) {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func pkceS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
