package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"membership_site/internal/model"
	"membership_site/internal/repository"
	"membership_site/internal/utils"

	"github.com/go-playground/validator/v10"
)

var (
	ErrDuplicateUser        = errors.New("email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrUnauthorized         = errors.New("you are not authorized to access this page")
	ErrAlreadyAuthenticated = errors.New("already logged in")
)

// ValidationError reports the first input rule a request failed. It is
// user-correctable and its message is rendered verbatim on the form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SessionGrant is the outcome of a successful login, consumed by the
// caller to create a session.
type SessionGrant struct {
	Authenticated bool
	Name          string
	Admin         bool
}

// AuthService provides signup, login and role management
type AuthService interface {
	Signup(ctx context.Context, name, username, password string) (*model.User, error)
	Login(ctx context.Context, current *model.Session, username, password string) (*SessionGrant, error)
	Logout(ctx context.Context, sessionID string) error
	ListUsers(ctx context.Context, actor *model.Session) ([]model.User, error)
	Promote(ctx context.Context, actor *model.Session, username string) error
	Demote(ctx context.Context, actor *model.Session, username string) error
}

type authService struct {
	userRepo   repository.UserRepository
	sessions   SessionService
	validate   *validator.Validate
	bcryptCost int
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repository.UserRepository, sessions SessionService, bcryptCost int) AuthService {
	return &authService{
		userRepo:   userRepo,
		sessions:   sessions,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
	}
}

type signupInput struct {
	Name     string `validate:"required,alphanum,max=20"`
	Username string `validate:"required,email"`
	Password string `validate:"required,max=20"`
}

type loginInput struct {
	Username string `validate:"required,email"`
	Password string `validate:"required,max=20"`
}

// Signup validates the input, hashes the password and creates the user
// with admin=false. The unique index on username is the authoritative
// duplicate guard; the lookup beforehand only gives a friendlier path.
func (s *authService) Signup(ctx context.Context, name, username, password string) (*model.User, error) {
	if verr := s.check(signupInput{Name: name, Username: username, Password: password}); verr != nil {
		return nil, verr
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}

	hashedPassword, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         name,
		Username:     username,
		PasswordHash: hashedPassword,
		Admin:        false,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user in repository: %w", err)
	}

	log.Printf("User created: %s", user.Username)
	return user, nil
}

// Login verifies credentials and returns a session grant. An already
// authenticated caller short-circuits to ErrAlreadyAuthenticated, which
// callers treat as success.
func (s *authService) Login(ctx context.Context, current *model.Session, username, password string) (*SessionGrant, error) {
	if current != nil && current.Authenticated && !current.Expired(time.Now()) {
		return nil, ErrAlreadyAuthenticated
	}

	if verr := s.check(loginInput{Username: username, Password: password}); verr != nil {
		return nil, verr
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error finding user by username: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	log.Printf("User logged in: %s", user.Username)
	return &SessionGrant{
		Authenticated: true,
		Name:          user.Name,
		Admin:         user.Admin,
	}, nil
}

// Logout destroys the session unconditionally; absent sessions are a no-op
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// ListUsers returns every user; requires an authenticated admin session
func (s *authService) ListUsers(ctx context.Context, actor *model.Session) ([]model.User, error) {
	if !isAdmin(actor) {
		return nil, ErrUnauthorized
	}
	return s.userRepo.ListAll(ctx)
}

// Promote grants the admin flag to the named user
func (s *authService) Promote(ctx context.Context, actor *model.Session, username string) error {
	return s.setAdmin(ctx, actor, username, true)
}

// Demote clears the admin flag; demoting a non-admin succeeds unchanged
func (s *authService) Demote(ctx context.Context, actor *model.Session, username string) error {
	return s.setAdmin(ctx, actor, username, false)
}

func (s *authService) setAdmin(ctx context.Context, actor *model.Session, username string, admin bool) error {
	if !isAdmin(actor) {
		return ErrUnauthorized
	}
	if err := s.userRepo.SetAdmin(ctx, username, admin); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	return nil
}

func isAdmin(actor *model.Session) bool {
	return actor != nil && actor.Authenticated && actor.IsAdmin
}

// check runs struct validation and converts the first failure into a
// ValidationError with a user-facing message.
func (s *authService) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validation failed: %w", err)
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = field + " is required"
	case "email":
		msg = field + " must be a valid email"
	case "alphanum":
		msg = field + " must only contain alphanumeric characters"
	case "max":
		msg = field + " length must be at most " + fe.Param() + " characters"
	default:
		msg = field + " is invalid"
	}
	return &ValidationError{Field: field, Message: msg}
}
