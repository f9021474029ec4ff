package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/repository"
)

const (
	maxUsernameLength        = 64
	defaultMinPasswordLength = 3
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password, role string) (*domain.User, error)
	VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	EnsureAdmin(ctx context.Context, username, password string) (*domain.User, bool, error)
}

// UserOptions tunes registration.
type UserOptions struct {
	BcryptCost         int
	MinPasswordLength  int
	AllowRoleSelection bool
}

type userService struct {
	users repository.UserRepository
	opts  UserOptions

	dummyOnce sync.Once
	dummyHash []byte
}

func NewUserService(users repository.UserRepository, opts UserOptions) UserService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = defaultMinPasswordLength
	}
	return &userService{
		users: users,
		opts:  opts,
	}
}

func (s *userService) Register(ctx context.Context, username, password, role string) (*domain.User, error) {
	r := domain.RoleUser
	if s.opts.AllowRoleSelection {
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, err
		}
		r = parsed
	}
	return s.create(ctx, username, password, r)
}

func (s *userService) create(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < s.opts.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, s.opts.MinPasswordLength)
	}
	if len(password) > 72 {
		return nil, fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInvalidInput)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, storeErr("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, storeErr("create user", err)
	}

	return sanitizeUser(user), nil
}

func (s *userService) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// keep the unknown-user path as slow as a wrong password
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeErr("lookup user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, storeErr("get user", err)
	}
	return sanitizeUser(user), nil
}

// EnsureAdmin creates the admin account unless a user with that name exists.
// The returned bool reports whether a new account was created.
func (s *userService) EnsureAdmin(ctx context.Context, username, password string) (*domain.User, bool, error) {
	username = strings.TrimSpace(username)
	existing, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			return nil, false, fmt.Errorf("ensure admin: user %q exists with role %s: %w", username, existing.Role, domain.ErrDuplicateUser)
		}
		return sanitizeUser(existing), false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, false, storeErr("lookup admin", err)
	}

	user, err := s.create(ctx, username, password, domain.RoleAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("ensure admin: %w", err)
	}
	return user, true, nil
}

func (s *userService) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("dbdrive-dummy-password"), s.opts.BcryptCost)
		if err != nil {
			h = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z8AqD3Cz1rgZ1yQ9nPpa6Zy6")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func validateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return fmt.Errorf("%w: username must be at most %d characters", domain.ErrInvalidInput, maxUsernameLength)
	}
	for _, r := range username {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: username contains control characters", domain.ErrInvalidInput)
		}
	}
	return nil
}

// storeErr marks a repository failure as ErrStoreUnavailable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
