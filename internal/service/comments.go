package service

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
)

// Comments lives under /titles/:id/reviews/:id; a review that does not belong
// to the given title makes the whole path unresolvable.
type Comments struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewComments(gormDB *gorm.DB, logger *zap.SugaredLogger) *Comments {
	return &Comments{db: gormDB, logger: logger}
}

func (s *Comments) ListByReview(titleID, reviewID uint64, page Page) ([]db.Comment, int64, error) {
	if err := s.reviewExists(titleID, reviewID); err != nil {
		return nil, 0, err
	}
	page = page.normalize()

	q := s.db.Model(&db.Comment{}).Where("review_id = ?", reviewID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count comments")
	}

	comments := make([]db.Comment, 0)
	if err := q.Preload("Author").
		Order("created_at, id").
		Offset(page.offset()).Limit(page.Size).
		Find(&comments).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list comments")
	}
	return comments, total, nil
}

func (s *Comments) Get(titleID, reviewID, commentID uint64) (*db.Comment, error) {
	if err := s.reviewExists(titleID, reviewID); err != nil {
		return nil, err
	}

	var comment db.Comment
	err := s.db.Preload("Author").
		Where("id = ? AND review_id = ?", commentID, reviewID).
		First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("comment not found")
		}
		return nil, errors.Wrap(err, "lookup comment")
	}
	return &comment, nil
}

func (s *Comments) Create(actor policy.Actor, titleID, reviewID uint64, text string) (*db.Comment, error) {
	if err := s.reviewExists(titleID, reviewID); err != nil {
		return nil, err
	}
	if !policy.Allowed(actor, policy.ActionCreate, policy.ResourceComment, false) {
		return nil, apperr.Forbidden("authentication required")
	}
	if text == "" {
		return nil, apperr.Validation("text is required")
	}

	comment := db.Comment{
		ReviewID: reviewID,
		AuthorID: actor.ID,
		Text:     text,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, errors.Wrap(err, "create comment")
	}
	return s.Get(titleID, reviewID, comment.ID)
}

func (s *Comments) Update(actor policy.Actor, titleID, reviewID, commentID uint64, text string) (*db.Comment, error) {
	comment, err := s.Get(titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	owner := comment.AuthorID != 0 && comment.AuthorID == actor.ID
	if !policy.Allowed(actor, policy.ActionModify, policy.ResourceComment, owner) {
		return nil, apperr.Forbidden("only the author, a moderator or an admin may edit a comment")
	}
	if text == "" {
		return nil, apperr.Validation("text is required")
	}

	comment.Text = text
	if err := s.db.Save(comment).Error; err != nil {
		return nil, errors.Wrap(err, "save comment")
	}
	return comment, nil
}

func (s *Comments) Delete(actor policy.Actor, titleID, reviewID, commentID uint64) error {
	comment, err := s.Get(titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	owner := comment.AuthorID != 0 && comment.AuthorID == actor.ID
	if !policy.Allowed(actor, policy.ActionDelete, policy.ResourceComment, owner) {
		return apperr.Forbidden("only the author, a moderator or an admin may delete a comment")
	}
	if err := s.db.Delete(comment).Error; err != nil {
		return errors.Wrap(err, "delete comment")
	}
	return nil
}

func (s *Comments) reviewExists(titleID, reviewID uint64) error {
	var count int64
	if err := s.db.Model(&db.Review{}).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Count(&count).Error; err != nil {
		return errors.Wrap(err, "lookup review")
	}
	if count == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}
