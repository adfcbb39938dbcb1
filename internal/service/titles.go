package service

import (
	"database/sql"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

type Titles struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewTitles(gormDB *gorm.DB, logger *zap.SugaredLogger) *Titles {
	return &Titles{db: gormDB, logger: logger}
}

type TitleFilter struct {
	CategorySlug string
	GenreSlug    string
	Name         string
	Year         int
}

// RatedTitle carries the on-read aggregate. Rating is nil when the title has
// no reviews; it is never rounded here.
type RatedTitle struct {
	db.Title
	Rating *float64
}

type CreateTitleInput struct {
	Name         string
	Year         int
	Description  string
	CategorySlug *string
	GenreSlugs   []string
}

type UpdateTitleInput struct {
	Name         *string
	Year         *int
	Description  *string
	CategorySlug *string
	GenreSlugs   *[]string
}

func (s *Titles) List(filter TitleFilter, page Page) ([]RatedTitle, int64, error) {
	page = page.normalize()

	base := squirrel.StatementBuilder.
		Select().
		From("titles t").
		LeftJoin("categories c ON c.id = t.category_id").
		LeftJoin("genre_titles gt ON gt.title_id = t.id").
		LeftJoin("genres g ON g.id = gt.genre_id")

	w := squirrel.And{}
	if filter.CategorySlug != "" {
		w = append(w, squirrel.Eq{"c.slug": filter.CategorySlug})
	}
	if filter.GenreSlug != "" {
		w = append(w, squirrel.Eq{"g.slug": filter.GenreSlug})
	}
	if filter.Year != 0 {
		w = append(w, squirrel.Eq{"t.year": filter.Year})
	}
	if filter.Name != "" {
		w = append(w, squirrel.Like{"t.name": "%" + filter.Name + "%"})
	}
	if len(w) > 0 {
		base = base.Where(w)
	}

	countSQL, countArgs, err := base.Column("COUNT(DISTINCT t.id)").ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build count sql")
	}
	idSQL, idArgs, err := base.Column("t.id").
		GroupBy("t.id", "t.name").
		OrderBy("t.name", "t.id").
		Limit(uint64(page.Size)).
		Offset(uint64(page.offset())).
		ToSql()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build list sql")
	}

	var (
		total int64
		rated []RatedTitle
	)
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(countSQL, countArgs...).Scan(&total).Error; err != nil {
			return errors.Wrap(err, "count titles")
		}

		ids := make([]uint64, 0)
		if err := tx.Raw(idSQL, idArgs...).Scan(&ids).Error; err != nil {
			return errors.Wrap(err, "select title ids")
		}
		if len(ids) == 0 {
			rated = []RatedTitle{}
			return nil
		}

		titles := make([]db.Title, 0, len(ids))
		if err := tx.Preload("Genres").Preload("Category").
			Where("id IN ?", ids).
			Order("name, id").
			Find(&titles).Error; err != nil {
			return errors.Wrap(err, "load titles")
		}

		ratings, err := s.ratings(tx, ids)
		if err != nil {
			return err
		}

		rated = make([]RatedTitle, len(titles))
		for i := range titles {
			rated[i] = RatedTitle{Title: titles[i], Rating: ratings[titles[i].ID]}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return rated, total, nil
}

// Get fetches the title and computes its rating in the same transaction, so
// the aggregate is never torn across concurrent review writes.
func (s *Titles) Get(id uint64) (*RatedTitle, error) {
	var result RatedTitle
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var title db.Title
		if err := tx.Preload("Genres").Preload("Category").First(&title, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("title not found")
			}
			return errors.Wrap(err, "lookup title")
		}

		ratings, err := s.ratings(tx, []uint64{id})
		if err != nil {
			return err
		}
		result = RatedTitle{Title: title, Rating: ratings[id]}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Titles) ratings(tx *gorm.DB, ids []uint64) (map[uint64]*float64, error) {
	type row struct {
		TitleID uint64
		Rating  sql.NullFloat64
	}
	rows := make([]row, 0)
	if err := tx.Model(&db.Review{}).
		Select("title_id, AVG(score) AS rating").
		Where("title_id IN ?", ids).
		Group("title_id").
		Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "aggregate ratings")
	}

	result := make(map[uint64]*float64, len(rows))
	for _, r := range rows {
		if r.Rating.Valid {
			v := r.Rating.Float64
			result[r.TitleID] = &v
		}
	}
	return result, nil
}

func (s *Titles) Create(actor policy.Actor, input CreateTitleInput) (*RatedTitle, error) {
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceCatalog, false) {
		return nil, apperr.Forbidden("catalog writes require the admin tier")
	}
	if err := validateName(input.Name); err != nil {
		return nil, err
	}
	if err := validateYear(input.Year); err != nil {
		return nil, err
	}

	title := db.Title{
		Name:        input.Name,
		Year:        input.Year,
		Description: input.Description,
	}

	if input.CategorySlug != nil {
		category, err := s.categoryBySlug(*input.CategorySlug)
		if err != nil {
			return nil, err
		}
		title.CategoryID = &category.ID
	}

	genres, err := s.genresBySlugs(input.GenreSlugs)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := s.db.Create(&title).Error; err != nil {
		return nil, errors.Wrap(err, "create title")
	}
	return s.Get(title.ID)
}

func (s *Titles) Update(actor policy.Actor, id uint64, input UpdateTitleInput) (*RatedTitle, error) {
	if !policy.Allowed(actor, policy.ActionModify, policy.ResourceCatalog, false) {
		return nil, apperr.Forbidden("catalog writes require the admin tier")
	}

	var title db.Title
	if err := s.db.First(&title, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("title not found")
		}
		return nil, errors.Wrap(err, "lookup title")
	}

	if input.Name != nil {
		if err := validateName(*input.Name); err != nil {
			return nil, err
		}
		title.Name = *input.Name
	}
	if input.Year != nil {
		if err := validateYear(*input.Year); err != nil {
			return nil, err
		}
		title.Year = *input.Year
	}
	if input.Description != nil {
		title.Description = *input.Description
	}
	if input.CategorySlug != nil {
		if *input.CategorySlug == "" {
			title.CategoryID = nil
		} else {
			category, err := s.categoryBySlug(*input.CategorySlug)
			if err != nil {
				return nil, err
			}
			title.CategoryID = &category.ID
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Genres", "Category").Save(&title).Error; err != nil {
			return errors.Wrap(err, "save title")
		}
		if input.GenreSlugs != nil {
			genres, err := s.genresBySlugs(*input.GenreSlugs)
			if err != nil {
				return err
			}
			if err := tx.Model(&title).Association("Genres").Replace(genres); err != nil {
				return errors.Wrap(err, "replace genres")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Delete removes the title together with its reviews and their comments.
func (s *Titles) Delete(actor policy.Actor, id uint64) error {
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceCatalog, false) {
		return apperr.Forbidden("catalog writes require the admin tier")
	}

	var title db.Title
	if err := s.db.First(&title, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("title not found")
		}
		return errors.Wrap(err, "lookup title")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id IN (?)",
			tx.Model(&db.Review{}).Select("id").Where("title_id = ?", id),
		).Delete(&db.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete comments")
		}
		if err := tx.Where("title_id = ?", id).Delete(&db.Review{}).Error; err != nil {
			return errors.Wrap(err, "delete reviews")
		}
		if err := tx.Exec("DELETE FROM genre_titles WHERE title_id = ?", id).Error; err != nil {
			return errors.Wrap(err, "detach genres")
		}
		if err := tx.Delete(&title).Error; err != nil {
			return errors.Wrap(err, "delete title")
		}
		return nil
	})
}

func (s *Titles) categoryBySlug(slug string) (*db.Category, error) {
	var category db.Category
	if err := s.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown category slug %q", slug)
		}
		return nil, errors.Wrap(err, "lookup category")
	}
	return &category, nil
}

func (s *Titles) genresBySlugs(slugs []string) ([]db.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	genres := make([]db.Genre, 0, len(slugs))
	if err := s.db.Where("slug IN ?", slugs).Find(&genres).Error; err != nil {
		return nil, errors.Wrap(err, "lookup genres")
	}
	if len(genres) != len(slugs) {
		return nil, apperr.Validation("unknown genre slug")
	}
	return genres, nil
}
