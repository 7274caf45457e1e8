package app

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"docai/internal/logger"
	"docai/internal/model"
	"docai/internal/pkg/jwtutil"
	"docai/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already taken")
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidCredential = errors.New("incorrect username or password")
	ErrInactiveUser      = errors.New("inactive user")
	ErrUnauthenticated   = errors.New("could not validate credentials")
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
)

type AuthService struct {
	users  UserStore
	signer *jwtutil.Signer
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput.Username may hold either the username or the email address.
type LoginInput struct {
	Username string
	Password string
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func NewAuthService(users UserStore, signer *jwtutil.Signer) *AuthService {
	return &AuthService{
		users:  users,
		signer: signer,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(input.Password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Email:          email,
		Username:       username,
		HashedPassword: string(hash),
		IsActive:       true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameExists
		}
		return nil, err
	}

	logger.FromContext(ctx).Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*Token, error) {
	login := strings.TrimSpace(input.Username)
	if login == "" || input.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetByUsername(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil && strings.Contains(login, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(login))
		if err != nil {
			return nil, err
		}
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.signer.GenerateToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.signer.TTL().Seconds()),
	}, nil
}

// Authenticate resolves a bearer token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.signer.ParseToken(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	username := claims.Username()
	if username == "" {
		return nil, ErrUnauthenticated
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// EnsureAdmin creates the superuser if neither its email nor its username is
// taken, and promotes an existing account otherwise. It reports whether a
// new account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, input RegisterInput) (*model.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		existing, err = s.users.GetByUsername(ctx, strings.TrimSpace(input.Username))
		if err != nil {
			return nil, false, err
		}
	}
	if existing != nil {
		if !existing.IsSuperuser {
			if err := s.users.SetSuperuser(ctx, existing.ID, true); err != nil {
				return nil, false, err
			}
			existing.IsSuperuser = true
		}
		return existing, false, nil
	}

	user, err := s.Register(ctx, input)
	if err != nil {
		return nil, false, err
	}
	if err := s.users.SetSuperuser(ctx, user.ID, true); err != nil {
		return nil, false, err
	}
	user.IsSuperuser = true
	return user, true, nil
}
