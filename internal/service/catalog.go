package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

// Catalog manages the category and genre reference data. Reads are public,
// writes are admin tier only.
type Catalog struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewCatalog(gormDB *gorm.DB, logger *zap.SugaredLogger) *Catalog {
	return &Catalog{db: gormDB, logger: logger}
}

func (s *Catalog) ListCategories(search string, page Page) ([]db.Category, int64, error) {
	page = page.normalize()
	q := s.db.Model(&db.Category{})
	if search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count categories")
	}

	categories := make([]db.Category, 0)
	if err := q.Order("name").Offset(page.offset()).Limit(page.Size).Find(&categories).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list categories")
	}
	return categories, total, nil
}

func (s *Catalog) CreateCategory(actor policy.Actor, name, slug string) (*db.Category, error) {
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceCatalog, false) {
		return nil, apperr.Forbidden("catalog writes require the admin tier")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	category := db.Category{Name: name, Slug: slug}
	if err := s.db.Create(&category).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("category slug is already taken")
		}
		return nil, errors.Wrap(err, "create category")
	}
	return &category, nil
}

// DeleteCategory removes the category and detaches its titles; the titles
// themselves stay.
func (s *Catalog) DeleteCategory(actor policy.Actor, slug string) error {
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceCatalog, false) {
		return apperr.Forbidden("catalog writes require the admin tier")
	}

	var category db.Category
	if err := s.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("category not found")
		}
		return errors.Wrap(err, "lookup category")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Title{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return errors.Wrap(err, "detach titles")
		}
		if err := tx.Delete(&category).Error; err != nil {
			return errors.Wrap(err, "delete category")
		}
		return nil
	})
}

func (s *Catalog) ListGenres(search string, page Page) ([]db.Genre, int64, error) {
	page = page.normalize()
	q := s.db.Model(&db.Genre{})
	if search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count genres")
	}

	genres := make([]db.Genre, 0)
	if err := q.Order("name").Offset(page.offset()).Limit(page.Size).Find(&genres).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list genres")
	}
	return genres, total, nil
}

func (s *Catalog) CreateGenre(actor policy.Actor, name, slug string) (*db.Genre, error) {
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceCatalog, false) {
		return nil, apperr.Forbidden("catalog writes require the admin tier")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateSlug(slug); err != nil {
		return nil, err
	}

	genre := db.Genre{Name: name, Slug: slug}
	if err := s.db.Create(&genre).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("genre slug is already taken")
		}
		return nil, errors.Wrap(err, "create genre")
	}
	return &genre, nil
}

// DeleteGenre removes the genre and its join rows; titles stay.
func (s *Catalog) DeleteGenre(actor policy.Actor, slug string) error {
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceCatalog, false) {
		return apperr.Forbidden("catalog writes require the admin tier")
	}

	var genre db.Genre
	if err := s.db.Where("slug = ?", slug).First(&genre).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("genre not found")
		}
		return errors.Wrap(err, "lookup genre")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM genre_titles WHERE genre_id = ?", genre.ID).Error; err != nil {
			return errors.Wrap(err, "detach titles")
		}
		if err := tx.Delete(&genre).Error; err != nil {
			return errors.Wrap(err, "delete genre")
		}
		return nil
	})
}
