package service

import (
	"context"
	"errors"
	"gorillax/fitness-api/internal/domain"
	"gorillax/fitness-api/internal/repository"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockUserRepo struct {
	users map[primitive.ObjectID]domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[primitive.ObjectID]domain.User)}
}

func (r *mockUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}
	user.ID = primitive.NewObjectID()
	r.users[user.ID] = *user
	return user.ID, nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	if u, ok := r.users[id]; ok {
		copied := u
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			copied := u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func newTestAuthService(repo repository.UserRepository) AuthService {
	return NewAuthService(repo, "test-secret-key", time.Hour)
}

func TestRegisterAndLoginByEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), "maria", "maria@example.com", "supersecret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID.IsZero() {
		t.Fatal("expected an assigned id")
	}
	if user.PasswordHash == "supersecret1" {
		t.Fatal("password must not be stored in plain text")
	}

	token, loggedIn, err := svc.Login(context.Background(), "maria@example.com", "supersecret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a JWT token")
	}
	if loggedIn.ID != user.ID {
		t.Error("login returned a different user")
	}
}

func TestLoginByUsername(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	if _, err := svc.Register(context.Background(), "maria", "maria@example.com", "supersecret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "maria", "supersecret1"); err != nil {
		t.Fatalf("login by username failed: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	if _, err := svc.Register(context.Background(), "maria", "maria@example.com", "supersecret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "maria@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	if _, err := svc.Register(context.Background(), "maria", "maria@example.com", "supersecret1"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), "other", "maria@example.com", "supersecret1"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate email: expected ErrUserAlreadyExists, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "maria", "other@example.com", "supersecret1"); !errors.Is(err, ErrUserAlreadyExists) {
		t.Errorf("duplicate username: expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestAuthService(repo)

	user, err := svc.Register(context.Background(), "maria", "maria@example.com", "supersecret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, _, err := svc.Login(context.Background(), "maria@example.com", "supersecret1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	userID, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if userID != user.ID {
		t.Errorf("token carries wrong user id: %s vs %s", userID.Hex(), user.ID.Hex())
	}

	if _, err := svc.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage input, got %v", err)
	}
}
