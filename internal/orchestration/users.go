package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/models"
	"github.com/bizmatters/learnpath/lesson-orchestrator/internal/store"
)

// Users stores accounts at users/{id} and finds them by email.
type Users struct {
	store store.DocumentStore
	now   func() time.Time
}

func NewUsers(st store.DocumentStore) *Users {
	return &Users{store: st, now: func() time.Time { return time.Now().UTC() }}
}

// FindByEmail returns ErrNotFound when no account uses email.
func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	snaps, err := u.store.List(ctx, "users", store.Eq("email", normalizeEmail(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	var user models.User
	if err := snaps[0].Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := u.store.Get(ctx, store.Path("users", id), &user); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Create hashes password with bcrypt and stores a new account.
func (u *Users) Create(ctx context.Context, name, email, password string) (*models.User, error) {
	if _, err := u.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmailTaken, email)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := u.now()
	user := &models.User{
		ID:             uuid.New().String(),
		Name:           name,
		Email:          normalizeEmail(email),
		HashedPassword: string(hashed),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.store.Set(ctx, store.Path("users", user.ID), user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	return user, nil
}

// Authenticate returns ErrInvalidCredentials for an unknown email or a wrong
// password alike.
func (u *Users) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := u.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
