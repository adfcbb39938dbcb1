package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

// Reviews implements the review operations nested under a title. Path
// resolution failures always win over policy denials: an unresolved title or
// review is reported as not found before any authorization decision.
type Reviews struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewReviews(gormDB *gorm.DB, logger *zap.SugaredLogger) *Reviews {
	return &Reviews{db: gormDB, logger: logger}
}

type UpdateReviewInput struct {
	Text  *string
	Score *int
}

func (s *Reviews) ListByTitle(titleID uint64, page Page) ([]db.Review, int64, error) {
	if err := s.titleExists(titleID); err != nil {
		return nil, 0, err
	}
	page = page.normalize()

	q := s.db.Model(&db.Review{}).Where("title_id = ?", titleID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count reviews")
	}

	reviews := make([]db.Review, 0)
	if err := q.Preload("Author").
		Order("created_at, id").
		Offset(page.offset()).Limit(page.Size).
		Find(&reviews).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list reviews")
	}
	return reviews, total, nil
}

func (s *Reviews) Get(titleID, reviewID uint64) (*db.Review, error) {
	var review db.Review
	err := s.db.Preload("Author").
		Where("id = ? AND title_id = ?", reviewID, titleID).
		First(&review).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, errors.Wrap(err, "lookup review")
	}
	return &review, nil
}

// Create inserts a review; the (title, author) unique index is what enforces
// the one-review-per-title invariant under concurrency.
func (s *Reviews) Create(actor policy.Actor, titleID uint64, text string, score int) (*db.Review, error) {
	if err := s.titleExists(titleID); err != nil {
		return nil, err
	}
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceReview, false) {
		return nil, apperr.Forbidden("authentication required")
	}
	if text == "" {
		return nil, apperr.Validation("text is required")
	}
	if err := validateScore(score); err != nil {
		return nil, err
	}

	review := db.Review{
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     text,
		Score:    score,
	}
	if err := s.db.Create(&review).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("you have already reviewed this title")
		}
		return nil, errors.Wrap(err, "create review")
	}
	return s.Get(titleID, review.ID)
}

func (s *Reviews) Update(actor policy.Actor, titleID, reviewID uint64, input UpdateReviewInput) (*db.Review, error) {
	review, err := s.Get(titleID, reviewID)
	if err != nil {
		return nil, err
	}
	owner := review.AuthorID != 0 && review.AuthorID == actor.ID
	if !policy.Allowed(actor, policy.ActionModify, policy.ResourceReview, owner) {
		return nil, apperr.Forbidden("only the author, a moderator or an admin may edit a review")
	}

	if input.Text != nil {
		if *input.Text == "" {
			return nil, apperr.Validation("text is required")
		}
		review.Text = *input.Text
	}
	if input.Score != nil {
		if err := validateScore(*input.Score); err != nil {
			return nil, err
		}
		review.Score = *input.Score
	}

	if err := s.db.Save(review).Error; err != nil {
		return nil, errors.Wrap(err, "save review")
	}
	return review, nil
}

// Delete removes the review and its comment thread.
func (s *Reviews) Delete(actor policy.Actor, titleID, reviewID uint64) error {
	review, err := s.Get(titleID, reviewID)
	if err != nil {
		return err
	}
	owner := review.AuthorID != 0 && review.AuthorID == actor.ID
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceReview, owner) {
		return apperr.Forbidden("only the author, a moderator or an admin may delete a review")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", review.ID).Delete(&db.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete comments")
		}
		if err := tx.Delete(review).Error; err != nil {
			return errors.Wrap(err, "delete review")
		}
		return nil
	})
}

func (s *Reviews) titleExists(titleID uint64) error {
	var count int64
	if err := s.db.Model(&db.Title{}).Where("id = ?", titleID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "lookup title")
	}
	if count == 0 {
		return apperr.NotFound("title not found")
	}
	return nil
}
