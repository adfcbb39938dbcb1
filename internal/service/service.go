// Package service implements the application operations over the store. Every
// operation takes the acting user explicitly; there is no ambient request
// state.
package service

import (
	"regexp"
	"time"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
)

const (
	maxLenName     = 256
	maxLenSlug     = 50
	maxLenUsername = 150
	maxLenEmail    = 254

	minScore = 1
	maxScore = 10

	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

func validateUsername(username string) error {
	if username == "" {
		return apperr.Validation("username is required")
	}
	if len(username) > maxLenUsername {
		return apperr.Validation("username is too long")
	}
	if username == "me" {
		return apperr.Validation("username 'me' is reserved")
	}
	if !usernameRe.MatchString(username) {
		return apperr.Validation("username contains invalid characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.Validation("email is required")
	}
	if len(email) > maxLenEmail {
		return apperr.Validation("email is too long")
	}
	if !emailRe.MatchString(email) {
		return apperr.Validation("email is invalid")
	}
	return nil
}

func validateSlug(slug string) error {
	if slug == "" {
		return apperr.Validation("slug is required")
	}
	if len(slug) > maxLenSlug {
		return apperr.Validation("slug is too long")
	}
	if !slugRe.MatchString(slug) {
		return apperr.Validation("slug contains invalid characters")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return apperr.Validation("name is required")
	}
	if len(name) > maxLenName {
		return apperr.Validation("name is too long")
	}
	return nil
}

func validateYear(year int) error {
	if year <= 0 {
		return apperr.Validation("year is required")
	}
	if year > time.Now().Year() {
		return apperr.Newf(apperr.KindValidation, "year %d is in the future", year)
	}
	return nil
}

func validateScore(score int) error {
	if score < minScore || score > maxScore {
		return apperr.Newf(apperr.KindValidation,
			"score must be between %d and %d", minScore, maxScore)
	}
	return nil
}
