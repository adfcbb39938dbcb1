package transport

import (
	"time"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/db"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/service"
)

type (
	ErrorResp struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}

	ListResp struct {
		Count   int64       `json:"count"`
		Results interface{} `json:"results"`
	}

	SignupReq struct {
		Username string `json:"username" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
	}

	TokenReq struct {
		Username         string `json:"username" validate:"required"`
		ConfirmationCode string `json:"confirmation_code" validate:"required"`
	}

	TokenResp struct {
		Token string `json:"token"`
	}

	SlugReq struct {
		Name string `json:"name" validate:"required"`
		Slug string `json:"slug" validate:"required"`
	}

	SlugResp struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}

	TitleReq struct {
		Name        string   `json:"name" validate:"required"`
		Year        int      `json:"year" validate:"required"`
		Description string   `json:"description"`
		Category    *string  `json:"category"`
		Genre       []string `json:"genre"`
	}

	TitlePatchReq struct {
		Name        *string   `json:"name"`
		Year        *int      `json:"year"`
		Description *string   `json:"description"`
		Category    *string   `json:"category"`
		Genre       *[]string `json:"genre"`
	}

	TitleResp struct {
		ID          uint64     `json:"id"`
		Name        string     `json:"name"`
		Year        int        `json:"year"`
		Rating      *float64   `json:"rating"`
		Description string     `json:"description"`
		Genre       []SlugResp `json:"genre"`
		Category    *SlugResp  `json:"category"`
	}

	ReviewReq struct {
		Text  string `json:"text" validate:"required"`
		Score int    `json:"score" validate:"required"`
	}

	ReviewPatchReq struct {
		Text  *string `json:"text"`
		Score *int    `json:"score"`
	}

	ReviewResp struct {
		ID      uint64    `json:"id"`
		Text    string    `json:"text"`
		Author  string    `json:"author"`
		Score   int       `json:"score"`
		PubDate time.Time `json:"pub_date"`
	}

	CommentReq struct {
		Text string `json:"text" validate:"required"`
	}

	CommentResp struct {
		ID      uint64    `json:"id"`
		Text    string    `json:"text"`
		Author  string    `json:"author"`
		PubDate time.Time `json:"pub_date"`
	}

	UserCreateReq struct {
		Username  string `json:"username" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
		Role      string `json:"role"`
		Bio       string `json:"bio"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	UserPatchReq struct {
		Email     *string `json:"email" validate:"omitempty,email"`
		Role      *string `json:"role"`
		Bio       *string `json:"bio"`
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}

	UserResp struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		Bio       string `json:"bio"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
)

func toSlugResp(name, slug string) SlugResp {
	return SlugResp{Name: name, Slug: slug}
}

func toTitleResp(rt service.RatedTitle) TitleResp {
	resp := TitleResp{
		ID:          rt.ID,
		Name:        rt.Name,
		Year:        rt.Year,
		Rating:      rt.Rating,
		Description: rt.Description,
		Genre:       make([]SlugResp, len(rt.Genres)),
	}
	for i, g := range rt.Genres {
		resp.Genre[i] = toSlugResp(g.Name, g.Slug)
	}
	if rt.Category != nil {
		category := toSlugResp(rt.Category.Name, rt.Category.Slug)
		resp.Category = &category
	}
	return resp
}

func toReviewResp(r db.Review) ReviewResp {
	return ReviewResp{
		ID:      r.ID,
		Text:    r.Text,
		Author:  r.Author.Username,
		Score:   r.Score,
		PubDate: r.CreatedAt,
	}
}

func toCommentResp(c db.Comment) CommentResp {
	return CommentResp{
		ID:      c.ID,
		Text:    c.Text,
		Author:  c.Author.Username,
		PubDate: c.CreatedAt,
	}
}

func toUserResp(u db.User) UserResp {
	return UserResp{
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		Bio:       u.Bio,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
