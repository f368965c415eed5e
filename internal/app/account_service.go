/**
 * @description
 * Account flows: registration, login and profile management. Passwords are
 * bcrypt-hashed; sessions are stateless HS256 bearer tokens.
 */
package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

const tokenLifetime = 24 * time.Hour

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRegistration = errors.New("email, username and password are required")
)

// UserStore is the subset of the user repository the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string, userType domain.UserType, phone string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error)
}

// AccountService provides registration, login and profile flows.
type AccountService struct {
	repo      UserStore
	outbox    EventEnqueuer
	jwtSecret []byte
}

// NewAccountService creates a new account service.
func NewAccountService(repo UserStore, outbox EventEnqueuer, jwtSecret string) *AccountService {
	return &AccountService{repo: repo, outbox: outbox, jwtSecret: []byte(jwtSecret)}
}

// Register creates a new account and enqueues the welcome email.
func (s *AccountService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || len(req.Password) < 8 {
		return nil, ErrInvalidRegistration
	}
	if req.UserType != domain.BusinessOwnerUser {
		req.UserType = domain.RegularUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.CreateUser(ctx, req.Email, req.Username, string(hash), req.UserType, req.Phone)
	if err != nil {
		return nil, err
	}

	welcome := domain.EmailEvent{
		To:        user.Email,
		Subject:   "Welcome to VyaparLink",
		Template:  "welcome",
		Data:      map[string]string{"username": user.Username},
		Timestamp: time.Now().UTC(),
	}
	if err := s.outbox.Enqueue(ctx, domain.EventsExchange, domain.EmailWelcomeKey, welcome); err != nil {
		log.Printf("WARN: failed to enqueue welcome email for %s: %v", user.Email, err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{Token: token, User: user}, nil
}

// Login checks credentials and returns a signed token.
func (s *AccountService) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	user, err := s.repo.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResponse{Token: token, User: user}, nil
}

// GetProfile returns the caller's account.
func (s *AccountService) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// UpdateProfile applies a partial profile update.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error) {
	return s.repo.UpdateProfile(ctx, userID, req)
}

func (s *AccountService) issueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"staff": user.IsStaff,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
