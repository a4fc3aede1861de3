package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"estate/internal/auth"
	"estate/internal/cache"
	"estate/internal/mailer"
	"estate/internal/models"
	"estate/internal/repository"

	"github.com/google/uuid"
)

const userService = "user"

// Tokens issues and verifies signed tokens.
type Tokens interface {
	Issue(userID uuid.UUID, purpose auth.Purpose, ttl time.Duration) (string, error)
	IssueAccess(userID uuid.UUID) (string, error)
	Parse(token string, purpose auth.Purpose) (uuid.UUID, error)
}

// Mailer hands messages off for delivery without waiting.
type Mailer interface {
	SendAsync(msg mailer.Message)
}

// UserOptions configures the reset-link flow.
type UserOptions struct {
	ResetTokenTTL time.Duration
	FrontendURL   string
}

// UserService manages account lifecycle.
type UserService struct {
	store  repository.Store
	hasher auth.Hasher
	tokens Tokens
	mail   Mailer
	opts   UserOptions
}

func NewUserService(store repository.Store, hasher auth.Hasher, tokens Tokens, mail Mailer, opts UserOptions) *UserService {
	if opts.ResetTokenTTL <= 0 {
		opts.ResetTokenTTL = 15 * time.Minute
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, mail: mail, opts: opts}
}

type CreateUserInput struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type AlterUserInput struct {
	ID        uuid.UUID `json:"-"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

type ResetPasswordInput struct {
	ID              uuid.UUID `json:"-"`
	OldPassword     string    `json:"old_password"`
	NewPassword     string    `json:"new_password"`
	ConfirmPassword string    `json:"confirm_password"`
}

type ConfirmResetInput struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create registers an inactive account.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (models.Result[*models.User], error) {
	return run(ctx, userService, "create", func(ctx context.Context) (*models.User, error) {
		var user *models.User
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			if err := ensureUnique(ctx, tx.Users(), in.Username, in.Email, nil); err != nil {
				return err
			}

			hash, err := s.hasher.Hash(in.Password)
			if err != nil {
				return models.NewInternalError(err)
			}

			user = &models.User{
				Username:  optional(in.Username),
				FirstName: in.FirstName,
				LastName:  in.LastName,
				Email:     in.Email,
				Password:  hash,
				Status:    models.UserStatusInactive,
			}
			return tx.Users().Create(ctx, user)
		})
		if err != nil {
			return nil, err
		}
		return user, nil
	})
}

// ensureUnique checks username (when set) before email, ignoring exceptID.
func ensureUnique(ctx context.Context, users repository.UserRepository, username, email string, exceptID *uuid.UUID) error {
	if username != "" {
		taken, err := users.ExistsByUsername(ctx, username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return models.ErrUsernameTaken
		}
	}
	taken, err := users.ExistsByEmail(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return models.ErrEmailTaken
	}
	return nil
}

// activeUser loads id and reports UserNotFound for missing or inactive
// accounts.
func activeUser(ctx context.Context, users repository.UserRepository, id uuid.UUID) (*models.User, error) {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	if !user.IsActive() {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// Alter updates the profile fields of an active account.
func (s *UserService) Alter(ctx context.Context, in AlterUserInput) (models.Result[*models.User], error) {
	result, err := run(ctx, userService, "alter", func(ctx context.Context) (*models.User, error) {
		var user *models.User
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if user, err = activeUser(ctx, tx.Users(), in.ID); err != nil {
				return err
			}
			if err := ensureUnique(ctx, tx.Users(), in.Username, in.Email, &user.ID); err != nil {
				return err
			}

			user.FirstName = in.FirstName
			user.LastName = in.LastName
			user.Email = in.Email
			user.Username = optional(in.Username)
			return tx.Users().Update(ctx, user, "first_name", "last_name", "email", "username")
		})
		return user, err
	})
	cache.InvalidateUser(ctx, in.ID)
	return result, err
}

// Activate flips an inactive account to active.
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (models.Result[*models.User], error) {
	result, err := run(ctx, userService, "activate", func(ctx context.Context) (*models.User, error) {
		var user *models.User
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if user, err = tx.Users().GetByID(ctx, id); err != nil {
				return notFoundAs(err, models.ErrUserNotFound)
			}
			if user.IsActive() {
				return models.ErrAlreadyActive
			}
			flipped, err := tx.Users().TransitionStatus(ctx, id, models.UserStatusInactive, models.UserStatusActive)
			if err != nil {
				return err
			}
			if !flipped {
				return models.ErrAlreadyActive
			}
			user.Status = models.UserStatusActive
			return nil
		})
		return user, err
	})
	cache.InvalidateUser(ctx, id)
	return result, err
}

// Deactivate flips an account to inactive. Callers cannot deactivate
// themselves.
func (s *UserService) Deactivate(ctx context.Context, id, actorID uuid.UUID) (models.Result[*models.User], error) {
	result, err := run(ctx, userService, "deactivate", func(ctx context.Context) (*models.User, error) {
		var user *models.User
		err := s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if user, err = tx.Users().GetByID(ctx, id); err != nil {
				return notFoundAs(err, models.ErrUserNotFound)
			}
			if id == actorID {
				return models.ErrSelfDeactivationForbidden
			}
			user.Status = models.UserStatusInactive
			return tx.Users().Update(ctx, user, "status")
		})
		return user, err
	})
	cache.InvalidateUser(ctx, id)
	return result, err
}

// ResetPassword replaces the password after verifying the old one.
func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) (models.Result[*models.User], error) {
	return run(ctx, userService, "reset_password", func(ctx context.Context) (*models.User, error) {
		return s.changePassword(ctx, in)
	})
}

// ResetPasswordByID is ResetPassword with a confirmation field that must
// match the new password.
func (s *UserService) ResetPasswordByID(ctx context.Context, in ResetPasswordInput) (models.Result[*models.User], error) {
	return run(ctx, userService, "reset_password_by_id", func(ctx context.Context) (*models.User, error) {
		if in.NewPassword != in.ConfirmPassword {
			return nil, models.ErrPasswordMismatch
		}
		return s.changePassword(ctx, in)
	})
}

func (s *UserService) changePassword(ctx context.Context, in ResetPasswordInput) (*models.User, error) {
	var user *models.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if user, err = activeUser(ctx, tx.Users(), in.ID); err != nil {
			return err
		}
		if !s.hasher.Verify(user.Password, in.OldPassword) {
			return models.ErrIncorrectPassword
		}
		return s.storePassword(ctx, tx, user, in.NewPassword)
	})
	return user, err
}

func (s *UserService) storePassword(ctx context.Context, tx repository.Store, user *models.User, plain string) error {
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return models.NewInternalError(err)
	}
	user.Password = hash
	return tx.Users().Update(ctx, user, "password")
}

// Login verifies credentials of an active account and issues a session
// token.
func (s *UserService) Login(ctx context.Context, in LoginInput) (models.Result[LoginResult], error) {
	return run(ctx, userService, "login", func(ctx context.Context) (LoginResult, error) {
		user, err := s.store.Users().GetActiveByUsername(ctx, in.Username)
		if err != nil {
			return LoginResult{}, err
		}
		if user == nil {
			return LoginResult{}, models.ErrLoginFailed
		}
		if !user.IsActive() {
			return LoginResult{}, models.ErrAccountNotActivated
		}
		if !s.hasher.Verify(user.Password, in.Password) {
			return LoginResult{}, models.ErrLoginFailed
		}

		token, err := s.tokens.IssueAccess(user.ID)
		if err != nil {
			return LoginResult{}, models.NewInternalError(err)
		}
		return LoginResult{User: user, Token: token}, nil
	})
}

// ListUsers returns active users with their activity counts, newest first.
func (s *UserService) ListUsers(ctx context.Context, in ListInput) (models.Result[models.Page[models.UserWithActivityCount]], error) {
	return run(ctx, userService, "list", func(ctx context.Context) (models.Page[models.UserWithActivityCount], error) {
		bounds, err := resolveList(in)
		if err != nil {
			return models.Page[models.UserWithActivityCount]{}, err
		}
		rows, total, err := s.store.Users().List(ctx, in.Filter, bounds)
		if err != nil {
			return models.Page[models.UserWithActivityCount]{}, err
		}
		return page(rows, total, bounds), nil
	})
}

// Autocomplete finds active users by first or last name.
func (s *UserService) Autocomplete(ctx context.Context, search string) (models.Result[[]models.User], error) {
	return run(ctx, userService, "autocomplete", func(ctx context.Context) ([]models.User, error) {
		users, err := s.store.Users().SearchByName(ctx, search)
		if users == nil {
			users = []models.User{}
		}
		return users, err
	})
}

func (s *UserService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.store.Users().ExistsByUsername(ctx, username, nil)
}

func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.store.Users().ExistsByEmail(ctx, email, nil)
}

func (s *UserService) ExistsByUsernameExcept(ctx context.Context, username string, id uuid.UUID) (bool, error) {
	return s.store.Users().ExistsByUsername(ctx, username, &id)
}

func (s *UserService) ExistsByEmailExcept(ctx context.Context, email string, id uuid.UUID) (bool, error) {
	return s.store.Users().ExistsByEmail(ctx, email, &id)
}

// Get returns the account with id, served from the cache when possible.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (models.Result[*models.User], error) {
	return run(ctx, userService, "get", func(ctx context.Context) (*models.User, error) {
		var user models.User
		err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
			found, err := s.store.Users().GetByID(ctx, id)
			if err != nil {
				return notFoundAs(err, models.ErrUserNotFound)
			}
			user = *found
			return nil
		})
		if err != nil {
			return nil, err
		}
		return &user, nil
	})
}

// SendResetPasswordLink mails a reset link to the active account registered
// under email. Delivery happens in the background.
func (s *UserService) SendResetPasswordLink(ctx context.Context, email string) (models.Result[struct{}], error) {
	return run(ctx, userService, "send_reset_link", func(ctx context.Context) (struct{}, error) {
		email = strings.TrimSpace(email)
		if email == "" {
			return struct{}{}, models.ErrMailEmpty
		}
		user, err := s.store.Users().GetActiveByEmail(ctx, email)
		if err != nil {
			return struct{}{}, err
		}
		if user == nil {
			return struct{}{}, models.ErrEmailNotRegistered
		}

		token, err := s.tokens.Issue(user.ID, auth.PurposePasswordReset, s.opts.ResetTokenTTL)
		if err != nil {
			return struct{}{}, models.NewInternalError(err)
		}

		link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(s.opts.FrontendURL, "/"), token)
		s.mail.SendAsync(mailer.Message{
			To:      user.Email,
			Subject: "Reset your password",
			Body: fmt.Sprintf("Hello %s,\n\nUse the link below to choose a new password. It expires in %s.\n\n%s\n",
				user.FirstName, s.opts.ResetTokenTTL, link),
		})
		return struct{}{}, nil
	})
}

// ConfirmPasswordReset sets a new password for the subject of a reset token.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, in ConfirmResetInput) (models.Result[*models.User], error) {
	return run(ctx, userService, "confirm_reset", func(ctx context.Context) (*models.User, error) {
		if in.NewPassword != in.ConfirmPassword {
			return nil, models.ErrPasswordMismatch
		}
		id, err := s.tokens.Parse(in.Token, auth.PurposePasswordReset)
		if err != nil {
			return nil, models.ErrInvalidToken
		}

		var user *models.User
		err = s.store.Transaction(ctx, func(tx repository.Store) error {
			var err error
			if user, err = activeUser(ctx, tx.Users(), id); err != nil {
				return err
			}
			return s.storePassword(ctx, tx, user, in.NewPassword)
		})
		return user, err
	})
}
