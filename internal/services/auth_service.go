// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/modelmagic/portal/internal/mail"
	"github.com/modelmagic/portal/internal/models"
	"github.com/modelmagic/portal/internal/repository"
	appErr "github.com/modelmagic/portal/pkg/errors"
	"github.com/modelmagic/portal/pkg/logger"
)

const (
	SessionTTL   = 24 * time.Hour
	LoginLinkTTL = 15 * time.Minute

	// PurposeLoginLink marks tokens that may only be exchanged for a session.
	PurposeLoginLink = "magic_link"
)

// Session is a signed bearer token for the API.
type Session struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      *models.User `json:"user"`
}

type AuthService interface {
	// Login checks a password. Only accounts with a password (admins) can use it.
	Login(ctx context.Context, email, password string) (*Session, error)
	CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error)
	IssueSession(user *models.User) (*Session, error)
	// SignInExternal finds or creates a client account for an identity
	// verified by a third-party provider.
	SignInExternal(ctx context.Context, email, name string) (*Session, error)

	SendLoginLink(ctx context.Context, email string) error
	SendLoginLinkToUser(ctx context.Context, userID uuid.UUID) error
	VerifyLoginLink(ctx context.Context, token string) (*Session, error)
}

type authService struct {
	userRepo   repository.UserRepository
	mailer     mail.Mailer
	appURL     string
	hmacSecret []byte
	now        func() time.Time
}

var _ AuthService = (*authService)(nil)
var _ LoginLinkSender = (*authService)(nil)

func NewAuthService(userRepo repository.UserRepository, mailer mail.Mailer, appURL string, secret []byte) AuthService {
	return &authService{
		userRepo:   userRepo,
		mailer:     mailer,
		appURL:     strings.TrimRight(appURL, "/"),
		hmacSecret: secret,
		now:        time.Now,
	}
}

func invalidCredentials() error {
	return appErr.New(appErr.CodeUnauthorized, "invalid credentials")
}

func (s *authService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	if len(password) < 8 {
		return nil, appErr.New(appErr.CodeInvalid, "password must be at least 8 characters")
	}
	ph, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, _, err := s.userRepo.FindOrCreate(ctx, email, name)
	if err != nil {
		return nil, err
	}
	user.Role = models.RoleAdmin
	user.PasswordHash = string(ph)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*Session, error) {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		return nil, invalidCredentials()
	}
	if user.PasswordHash == "" {
		return nil, invalidCredentials()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}
	return s.IssueSession(&user)
}

func (s *authService) IssueSession(user *models.User) (*Session, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"role":  string(user.Role),
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(SessionTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{
		Token:     tokenString,
		TokenType: "Bearer",
		ExpiresIn: int(SessionTTL.Seconds()),
		User:      user,
	}, nil
}

func (s *authService) SignInExternal(ctx context.Context, email, name string) (*Session, error) {
	if strings.TrimSpace(email) == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "identity has no email")
	}
	user, created, err := s.userRepo.FindOrCreate(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if created {
		logger.L().Info("client account created on external sign-in", zap.String("user_id", user.ID.String()))
	}
	return s.IssueSession(user)
}

// SendLoginLink emails a sign-in link. Unknown addresses are ignored so the
// endpoint does not reveal which emails have accounts.
func (s *authService) SendLoginLink(ctx context.Context, email string) error {
	var user models.User
	if err := s.userRepo.GetByEmail(ctx, email, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			logger.L().Info("login link requested for unknown email")
			return nil
		}
		return err
	}
	return s.sendLoginLink(ctx, &user)
}

func (s *authService) SendLoginLinkToUser(ctx context.Context, userID uuid.UUID) error {
	var user models.User
	if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
		return err
	}
	return s.sendLoginLink(ctx, &user)
}

func (s *authService) sendLoginLink(ctx context.Context, user *models.User) error {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.ID.String(),
		"purpose": PurposeLoginLink,
		"iat":     now.Unix(),
		"exp":     now.Add(LoginLinkTTL).Unix(),
	})
	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return fmt.Errorf("sign login link: %w", err)
	}

	return s.mailer.Send(ctx, mail.Message{
		Template: mail.TemplateMagicLink,
		To:       user.Email,
		Data: mail.Data{
			ClientName:   user.DisplayName(),
			MagicLinkURL: s.appURL + "/auth/verify?token=" + url.QueryEscape(tokenString),
			ExpiresIn:    "15 minutes",
		},
	})
}

func (s *authService) VerifyLoginLink(ctx context.Context, token string) (*Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.hmacSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErr.New(appErr.CodeUnauthorized, "login link expired")
		}
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid login link")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || claims["purpose"] != PurposeLoginLink {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid login link")
	}
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid login link")
	}

	var user models.User
	if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "invalid login link")
		}
		return nil, err
	}
	return s.IssueSession(&user)
}
