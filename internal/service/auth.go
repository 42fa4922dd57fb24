// Package service holds the business rules. Handlers call services; services
// call repositories and the auth utilities. Nothing in here knows about HTTP.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (store)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/recipe-organizer/internal/apperror"
	"github.com/sakif/recipe-organizer/internal/auth"
	"github.com/sakif/recipe-organizer/internal/model"
	"github.com/sakif/recipe-organizer/internal/repository"
)

// AuthService registers users, checks credentials and issues session tokens.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewAuthService creates an AuthService. Called once in server.New.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger,
	}
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is what register and login hand back to the client.
type AuthResult struct {
	Token string `json:"token"`
}

// Register creates an account and returns a session token for its email.
//
// The email existence check runs first so a taken email never causes a write.
// Two concurrent registrations for the same email can both pass that check;
// the store's unique field then rejects the second Create, which is reported
// the same way.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByField(ctx, repository.EmailField, in.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: checking email: %w", err)
	}
	if taken {
		return nil, apperror.EmailTaken()
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.EmailTaken()
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user.Email)
}

// Login checks email and password and returns a fresh session token.
//
// An unknown email and a wrong password produce the same error, so a caller
// cannot use login to find out which emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	user, err := s.users.FindByField(ctx, repository.EmailField, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: finding user: %w", err)
	}

	if err := s.passwords.Verify(user.Password, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// a stored value that is not a bcrypt hash
			s.logger.Error("stored password hash unusable",
				slog.String("userID", user.ID),
				slog.Any("error", err),
			)
		}
		return nil, apperror.InvalidCredentials()
	}

	return s.issue(user.Email)
}

// ValidateToken returns the email a token was issued for.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// IsTokenValid reports whether token is currently valid.
func (s *AuthService) IsTokenValid(token string) bool {
	return s.tokens.IsValid(token)
}

func (s *AuthService) issue(email string) (*AuthResult, error) {
	token, err := s.tokens.Issue(email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}
	return &AuthResult{Token: token}, nil
}

// validateInput runs the struct tags on in and reports the first failing
// field as an apperror validation error.
func (s *AuthService) validateInput(in RegisterInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service/auth: validating input: %w", err)
	}

	fe := verrs[0]
	field := jsonFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return apperror.ValidationFailed(field, field+" is required")
	case "email":
		return apperror.ValidationFailed(field, "email must be a valid email address")
	default:
		return apperror.ValidationFailed(field, field+" is invalid")
	}
}

// jsonFieldName maps the Go field names of RegisterInput to their JSON names.
func jsonFieldName(goName string) string {
	switch goName {
	case "Username":
		return "username"
	case "Email":
		return "email"
	case "Password":
		return "password"
	}
	return goName
}
