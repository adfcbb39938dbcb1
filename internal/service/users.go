package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

type Users struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewUsers(gormDB *gorm.DB, logger *zap.SugaredLogger) *Users {
	return &Users{db: gormDB, logger: logger}
}

type CreateUserInput struct {
	Username  string
	Email     string
	Role      policy.Role
	Bio       string
	FirstName string
	LastName  string
}

type UpdateUserInput struct {
	Email     *string
	Role      *policy.Role
	Bio       *string
	FirstName *string
	LastName  *string
}

func (s *Users) List(actor policy.Actor, search string, page Page) ([]db.User, int64, error) {
	if !policy.Allowed(actor, policy.ActionRead, policy.ResourceUsers, false) {
		return nil, 0, apperr.Forbidden("user administration requires the admin tier")
	}
	page = page.normalize()

	q := s.db.Model(&db.User{})
	if search != "" {
		q = q.Where("username LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	users := make([]db.User, 0)
	if err := q.Order("username").Offset(page.offset()).Limit(page.Size).Find(&users).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	return users, total, nil
}

func (s *Users) Create(actor policy.Actor, input CreateUserInput) (*db.User, error) {
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceUsers, false) {
		return nil, apperr.Forbidden("user administration requires the admin tier")
	}
	if err := validateUsername(input.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(input.Email); err != nil {
		return nil, err
	}
	role := input.Role
	if role == "" {
		role = policy.RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Validation("role is invalid")
	}

	user := db.User{
		Username:  input.Username,
		Email:     input.Email,
		Role:      role,
		Bio:       input.Bio,
		FirstName: input.FirstName,
		LastName:  input.LastName,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("username or email is already taken")
		}
		return nil, errors.Wrap(err, "create user")
	}
	return &user, nil
}

func (s *Users) GetByUsername(actor policy.Actor, username string) (*db.User, error) {
	if !policy.Allowed(actor, policy.ActionRead, policy.ResourceUsers, false) {
		return nil, apperr.Forbidden("user administration requires the admin tier")
	}
	return s.findByUsername(username)
}

func (s *Users) UpdateByUsername(actor policy.Actor, username string, input UpdateUserInput) (*db.User, error) {
	if !policy.Allowed(actor, policy.ActionModify, policy.ResourceUsers, false) {
		return nil, apperr.Forbidden("user administration requires the admin tier")
	}
	user, err := s.findByUsername(username)
	if err != nil {
		return nil, err
	}
	return s.apply(user, input, true)
}

func (s *Users) DeleteByUsername(actor policy.Actor, username string) error {
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceUsers, false) {
		return apperr.Forbidden("user administration requires the admin tier")
	}
	user, err := s.findByUsername(username)
	if err != nil {
		return err
	}

	// the user's reviews take their comment threads with them
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id IN (?)",
			tx.Model(&db.Review{}).Select("id").Where("author_id = ?", user.ID),
		).Delete(&db.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete review comments")
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&db.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete comments")
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&db.Review{}).Error; err != nil {
			return errors.Wrap(err, "delete reviews")
		}
		if err := tx.Delete(user).Error; err != nil {
			return errors.Wrap(err, "delete user")
		}
		return nil
	})
}

// Me returns the actor's own profile.
func (s *Users) Me(actor policy.Actor) (*db.User, error) {
	if !policy.Allowed(actor, policy.ActionRead, policy.ResourceOwnProfile, false) {
		return nil, apperr.Forbidden("authentication required")
	}
	var user db.User
	if err := s.db.First(&user, actor.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, errors.Wrap(err, "lookup user")
	}
	return &user, nil
}

// UpdateMe patches the actor's own profile. Role changes through this surface
// are ignored: the stored role stays as it was.
func (s *Users) UpdateMe(actor policy.Actor, input UpdateUserInput) (*db.User, error) {
	if !policy.Allowed(actor, policy.ActionModify, policy.ResourceOwnProfile, false) {
		return nil, apperr.Forbidden("authentication required")
	}
	user, err := s.Me(actor)
	if err != nil {
		return nil, err
	}
	input.Role = nil
	return s.apply(user, input, false)
}

func (s *Users) apply(user *db.User, input UpdateUserInput, allowRole bool) (*db.User, error) {
	if input.Email != nil {
		if err := validateEmail(*input.Email); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if allowRole && input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperr.Validation("role is invalid")
		}
		user.Role = *input.Role
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}

	if err := s.db.Save(user).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("email is already taken")
		}
		return nil, errors.Wrap(err, "save user")
	}
	return user, nil
}

func (s *Users) findByUsername(username string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, errors.Wrap(err, "lookup user")
	}
	return &user, nil
}
