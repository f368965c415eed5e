package app

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vyaparlink/directory-server/internal/domain"
	"github.com/vyaparlink/directory-server/internal/store"
)

type userRepoStub struct {
	users map[string]*domain.User
}

func newUserRepoStub() *userRepoStub {
	return &userRepoStub{users: make(map[string]*domain.User)}
}

func (s *userRepoStub) CreateUser(ctx context.Context, email, username, passwordHash string, userType domain.UserType, phone string) (*domain.User, error) {
	if _, exists := s.users[email]; exists {
		return nil, store.ErrEmailTaken
	}
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		UserType:     userType,
		Phone:        phone,
	}
	s.users[email] = user
	return user, nil
}

func (s *userRepoStub) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, ok := s.users[email]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *userRepoStub) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *userRepoStub) UpdateProfile(ctx context.Context, userID uuid.UUID, req domain.UpdateProfileRequest) (*domain.User, error) {
	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	return user, nil
}

func TestRegisterIssuesTokenAndWelcomeEmail(t *testing.T) {
	repo := newUserRepoStub()
	outbox := &enqueuerStub{}
	svc := NewAccountService(repo, outbox, "test-secret")

	resp, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:    "Owner@Example.COM",
		Username: "owner",
		Password: "sufficiently-long",
		UserType: domain.BusinessOwnerUser,
	})
	if err != nil {
		t.Fatalf("expected registration to succeed, got %v", err)
	}
	if resp.User.Email != "owner@example.com" {
		t.Fatalf("expected a normalized email, got %q", resp.User.Email)
	}
	if len(outbox.keys) != 1 || outbox.keys[0] != domain.EmailWelcomeKey {
		t.Fatalf("expected a welcome email event, got %v", outbox.keys)
	}

	token, err := jwt.Parse(resp.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("expected a valid token, got %v", err)
	}
	claims := token.Claims.(jwt.MapClaims)
	if claims["sub"] != resp.User.ID.String() {
		t.Fatalf("expected subject %s, got %v", resp.User.ID, claims["sub"])
	}
}

func TestRegisterRejectsShortPasswords(t *testing.T) {
	svc := NewAccountService(newUserRepoStub(), &enqueuerStub{}, "test-secret")

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Email:    "owner@example.com",
		Username: "owner",
		Password: "short",
	})
	if !errors.Is(err, ErrInvalidRegistration) {
		t.Fatalf("expected ErrInvalidRegistration, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	repo := newUserRepoStub()
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	repo.users["owner@example.com"] = &domain.User{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		PasswordHash: string(hash),
	}
	svc := NewAccountService(repo, &enqueuerStub{}, "test-secret")

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "wrong-password",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for a wrong password, got %v", err)
	}

	_, err = svc.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for an unknown email, got %v", err)
	}

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "owner@example.com",
		Password: "correct-password",
	})
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a signed token")
	}
}
