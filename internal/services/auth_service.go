package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/guildchat/internal/models"
	"github.com/prudhvinik1/guildchat/internal/presence"
	"github.com/prudhvinik1/guildchat/internal/repositories"
	"github.com/prudhvinik1/guildchat/internal/utils"
	"go.uber.org/zap"
)

var userNumberPattern = regexp.MustCompile(`^[0-9]{8}$`)

// ConnectionCloser tears down a user's live connection.
type ConnectionCloser interface {
	Disconnect(userID uuid.UUID, conn presence.Conn) bool
}

type AuthService struct {
	users       repositories.UserRepository
	sessionRepo repositories.SessionRepository
	closer      ConnectionCloser
	activity    *ActivityLogger
	log         *zap.Logger
	jwtSecret   string
	jwtExpiry   time.Duration
}

type RegisterRequest struct {
	Email      string
	Username   string
	UserNumber string
	Password   string
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type TokenClaims struct {
	UserID    uuid.UUID
	SessionID string
}

func NewAuthService(
	users repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	closer ConnectionCloser,
	activity *ActivityLogger,
	log *zap.Logger,
	jwtSecret string,
	jwtExpiry time.Duration,
) *AuthService {
	return &AuthService{
		users:       users,
		sessionRepo: sessionRepo,
		closer:      closer,
		activity:    activity,
		log:         log.Named("auth"),
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
	}
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, validationError("invalid email address")
	}
	if req.Username == "" {
		return nil, validationError("username is required")
	}
	if !userNumberPattern.MatchString(req.UserNumber) {
		return nil, validationError("user number must be exactly 8 digits")
	}

	// Check if email already exists
	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}
	if err != nil && err != repositories.ErrNotFound {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	existing, err = s.users.GetByUserNumber(ctx, req.UserNumber)
	if err == nil && existing != nil {
		return nil, ErrUserNumberTaken
	}
	if err != nil && err != repositories.ErrNotFound {
		return nil, fmt.Errorf("failed to check user number: %w", err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return nil, validationError("%v", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		UserNumber:   req.UserNumber,
		PasswordHash: hashedPassword,
		Status:       string(models.StatusOffline),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.activity.Log(ctx, user.ID, models.ActionRegister, map[string]any{
		"username":    user.Username,
		"user_number": user.UserNumber,
	})
	return s.issue(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == repositories.ErrNotFound {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	s.activity.Log(ctx, user.ID, models.ActionLogin, nil)
	return s.issue(ctx, user)
}

// issue creates a session and signs a token referencing it.
func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.jwtExpiry),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(user.ID, session.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	}, nil
}

func (s *AuthService) generateToken(userID uuid.UUID, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID.String(),
		"jti": sessionID,
		"exp": expiresAt.Unix(),
		"iat": issuedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken checks the signature and expiry and that the session has not been
// revoked.
func (s *AuthService) VerifyToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userIDStr, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	sessionID, ok := claims["jti"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err == repositories.ErrNotFound {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    userID,
		SessionID: sessionID,
	}, nil
}

// Logout revokes the token's session and drops the user's live connection.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.VerifyToken(ctx, tokenString)
	if err != nil {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, claims.SessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if s.closer.Disconnect(claims.UserID, nil) {
		s.log.Debug("closed live connection on logout", zap.Stringer("user_id", claims.UserID))
	}
	s.activity.Log(ctx, claims.UserID, models.ActionLogout, nil)
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessionRepo.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to logout all sessions: %w", err)
	}
	s.closer.Disconnect(userID, nil)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}
