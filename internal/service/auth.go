package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/mail"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/token"
)

type Auth struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	tokens *token.Manager
	mailer mail.Sender
}

func NewAuth(gormDB *gorm.DB, logger *zap.SugaredLogger, tokens *token.Manager, mailer mail.Sender) *Auth {
	return &Auth{
		db:     gormDB,
		logger: logger,
		tokens: tokens,
		mailer: mailer,
	}
}

// Signup registers a user or re-issues the confirmation code for an existing
// (username, email) pair. Username and email are each unique on their own; a
// collision on either field against a different account is a conflict.
func (s *Auth) Signup(username, email string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if err := validateEmail(email); err != nil {
		return err
	}

	var user db.User
	err := s.db.Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		if user.Email != email {
			return apperr.Conflict("username is already taken")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		var other db.User
		if err := s.db.Where("email = ?", email).First(&other).Error; err == nil {
			return apperr.Conflict("email is already taken")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "lookup email")
		}
		user = db.User{
			Username: username,
			Email:    email,
			Role:     policy.RoleUser,
		}
	default:
		return errors.Wrap(err, "lookup username")
	}

	code := uuid.New().String()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash confirmation code")
	}
	user.ConfirmationHash = string(hash)

	if err := s.db.Save(&user).Error; err != nil {
		// two concurrent signups for the same fresh identity race on the
		// unique indexes; the loser sees a conflict
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("username or email is already taken")
		}
		return errors.Wrap(err, "save user")
	}

	s.dispatchCode(user.Email, user.Username, code)
	return nil
}

// dispatchCode is fire-and-forget: a delivery failure is logged and the
// signup stands. Re-running signup issues a fresh code.
func (s *Auth) dispatchCode(email, username, code string) {
	go func() {
		body := "Use this code to obtain a token\n" +
			"confirmation_code: " + code + "\n" +
			"username: " + username + "\n"
		if err := s.mailer.Send(email, "Registration confirmation code", body); err != nil {
			s.logger.Errorw("confirmation code dispatch failed",
				"username", username, "error", err)
		}
	}()
}

// IssueToken exchanges a confirmation code for a bearer token. A still-valid
// code can be presented again and yields a fresh token.
func (s *Auth) IssueToken(username, code string) (string, error) {
	if username == "" || code == "" {
		return "", apperr.Validation("username and confirmation_code are required")
	}

	var user db.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("user not found")
		}
		return "", errors.Wrap(err, "lookup user")
	}

	if user.ConfirmationHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.ConfirmationHash), []byte(code)) != nil {
		return "", apperr.AuthFailed("confirmation code does not match")
	}

	if !user.Active {
		if err := s.db.Model(&user).Update("active", true).Error; err != nil {
			return "", errors.Wrap(err, "activate user")
		}
	}

	signed, err := s.tokens.Mint(user.ID, user.Username, user.Role)
	if err != nil {
		return "", errors.Wrap(err, "mint token")
	}
	return signed, nil
}

// Authenticate resolves verified claims to the stored user. Transport uses it
// to build the actor for each request.
func (s *Auth) Authenticate(claims *token.Claims) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.AuthFailed("user no longer exists")
		}
		return nil, errors.Wrap(err, "lookup user")
	}
	return &user, nil
}
