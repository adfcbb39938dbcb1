package db

import (
	"time"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		GormForkedModel
		Name string `gorm:"size:256;not null"`
		Slug string `gorm:"size:50;not null;uniqueIndex"`
	}

	Genre struct {
		GormForkedModel
		Name string `gorm:"size:256;not null"`
		Slug string `gorm:"size:50;not null;uniqueIndex"`
	}

	Title struct {
		GormForkedModel
		Name        string `gorm:"size:256;not null"`
		Year        int    `gorm:"not null;index"`
		Description string
		CategoryID  *uint64
		Category    *Category `gorm:"constraint:OnDelete:SET NULL"`
		Genres      []Genre   `gorm:"many2many:genre_titles;constraint:OnDelete:CASCADE"`
	}

	// Review keeps one row per (title, author); the unique index is the
	// authority, not any application-side check.
	Review struct {
		GormForkedModel
		TitleID  uint64 `gorm:"not null;uniqueIndex:uidx_review_title_author"`
		Title    Title  `gorm:"constraint:OnDelete:CASCADE"`
		AuthorID uint64 `gorm:"not null;uniqueIndex:uidx_review_title_author"`
		Author   User   `gorm:"constraint:OnDelete:CASCADE"`
		Text     string `gorm:"not null"`
		Score    int    `gorm:"not null"`
	}

	Comment struct {
		GormForkedModel
		ReviewID uint64 `gorm:"not null;index"`
		Review   Review `gorm:"constraint:OnDelete:CASCADE"`
		AuthorID uint64 `gorm:"not null;index"`
		Author   User   `gorm:"constraint:OnDelete:CASCADE"`
		Text     string `gorm:"not null"`
	}

	User struct {
		GormForkedModel
		Username         string      `gorm:"size:150;not null;uniqueIndex"`
		Email            string      `gorm:"size:254;not null;uniqueIndex"`
		Role             policy.Role `gorm:"size:10;not null;default:user"`
		Bio              string
		FirstName        string `gorm:"size:150"`
		LastName         string `gorm:"size:150"`
		ConfirmationHash string
		Superuser        bool
		Active           bool
	}
)

// Actor builds the policy-facing view of the user.
func (u *User) Actor() policy.Actor {
	return policy.Actor{
		ID:            u.ID,
		Role:          u.Role,
		Superuser:     u.Superuser,
		Authenticated: true,
	}
}
