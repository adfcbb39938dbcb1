package transport

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/service"
)

func parseInt(v string) (int, error) {
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Newf(apperr.KindValidation, "invalid integer %q", v)
	}
	return parsed, nil
}

func (s *HTTPServer) Signup(c echo.Context) error {
	req := SignupReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.auth.Signup(req.Username, req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &req)
}

func (s *HTTPServer) Token(c echo.Context) error {
	req := TokenReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	signed, err := s.auth.IssueToken(req.Username, req.ConfirmationCode)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, TokenResp{Token: signed})
}

func (s *HTTPServer) CategoryList(c echo.Context) error {
	categories, total, err := s.catalog.ListCategories(c.QueryParam("search"), GetPage(c))
	if err != nil {
		return err
	}
	results := make([]SlugResp, len(categories))
	for i := range categories {
		results[i] = toSlugResp(categories[i].Name, categories[i].Slug)
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) CategoryCreate(c echo.Context) error {
	req := SlugReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	category, err := s.catalog.CreateCategory(GetActor(c), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSlugResp(category.Name, category.Slug))
}

func (s *HTTPServer) CategoryDelete(c echo.Context) error {
	if err := s.catalog.DeleteCategory(GetActor(c), c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) GenreList(c echo.Context) error {
	genres, total, err := s.catalog.ListGenres(c.QueryParam("search"), GetPage(c))
	if err != nil {
		return err
	}
	results := make([]SlugResp, len(genres))
	for i := range genres {
		results[i] = toSlugResp(genres[i].Name, genres[i].Slug)
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) GenreCreate(c echo.Context) error {
	req := SlugReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	genre, err := s.catalog.CreateGenre(GetActor(c), req.Name, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSlugResp(genre.Name, genre.Slug))
}

func (s *HTTPServer) GenreDelete(c echo.Context) error {
	if err := s.catalog.DeleteGenre(GetActor(c), c.Param("slug")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) TitleList(c echo.Context) error {
	filter := service.TitleFilter{
		CategorySlug: c.QueryParam("category"),
		GenreSlug:    c.QueryParam("genre"),
		Name:         c.QueryParam("name"),
	}
	if yearParam := c.QueryParam("year"); yearParam != "" {
		year, err := parseInt(yearParam)
		if err != nil {
			return err
		}
		filter.Year = year
	}

	titles, total, err := s.titles.List(filter, GetPage(c))
	if err != nil {
		return err
	}
	results := make([]TitleResp, len(titles))
	for i := range titles {
		results[i] = toTitleResp(titles[i])
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) TitleCreate(c echo.Context) error {
	req := TitleReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	title, err := s.titles.Create(GetActor(c), service.CreateTitleInput{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toTitleResp(*title))
}

func (s *HTTPServer) TitleGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return err
	}
	title, err := s.titles.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResp(*title))
}

func (s *HTTPServer) TitleUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return err
	}
	req := TitlePatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	title, err := s.titles.Update(GetActor(c), id, service.UpdateTitleInput{
		Name:         req.Name,
		Year:         req.Year,
		Description:  req.Description,
		CategorySlug: req.Category,
		GenreSlugs:   req.Genre,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTitleResp(*title))
}

func (s *HTTPServer) TitleDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return err
	}
	if err := s.titles.Delete(GetActor(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) ReviewList(c echo.Context) error {
	titleID, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return err
	}
	reviews, total, err := s.reviews.ListByTitle(titleID, GetPage(c))
	if err != nil {
		return err
	}
	results := make([]ReviewResp, len(reviews))
	for i := range reviews {
		results[i] = toReviewResp(reviews[i])
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) ReviewCreate(c echo.Context) error {
	titleID, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return err
	}
	req := ReviewReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	review, err := s.reviews.Create(GetActor(c), titleID, req.Text, req.Score)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReviewResp(*review))
}

func (s *HTTPServer) ReviewGet(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	review, err := s.reviews.Get(titleID, reviewID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResp(*review))
}

func (s *HTTPServer) ReviewUpdate(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	req := ReviewPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	review, err := s.reviews.Update(GetActor(c), titleID, reviewID, service.UpdateReviewInput{
		Text:  req.Text,
		Score: req.Score,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReviewResp(*review))
}

func (s *HTTPServer) ReviewDelete(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(GetActor(c), titleID, reviewID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) CommentList(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	comments, total, err := s.comments.ListByReview(titleID, reviewID, GetPage(c))
	if err != nil {
		return err
	}
	results := make([]CommentResp, len(comments))
	for i := range comments {
		results[i] = toCommentResp(comments[i])
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) CommentCreate(c echo.Context) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return err
	}
	req := CommentReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := s.comments.Create(GetActor(c), titleID, reviewID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toCommentResp(*comment))
}

func (s *HTTPServer) CommentGet(c echo.Context) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	comment, err := s.comments.Get(titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResp(*comment))
}

func (s *HTTPServer) CommentUpdate(c echo.Context) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	req := CommentReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := s.comments.Update(GetActor(c), titleID, reviewID, commentID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCommentResp(*comment))
}

func (s *HTTPServer) CommentDelete(c echo.Context) error {
	titleID, reviewID, commentID, err := commentPath(c)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(GetActor(c), titleID, reviewID, commentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *HTTPServer) Me(c echo.Context) error {
	actor := GetActor(c)
	if !actor.Authenticated {
		return c.JSON(http.StatusUnauthorized, ErrorResp{
			Kind: "auth_failed", Message: "authentication required",
		})
	}
	user, err := s.users.Me(actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(*user))
}

func (s *HTTPServer) MeUpdate(c echo.Context) error {
	actor := GetActor(c)
	if !actor.Authenticated {
		return c.JSON(http.StatusUnauthorized, ErrorResp{
			Kind: "auth_failed", Message: "authentication required",
		})
	}
	req := UserPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := s.users.UpdateMe(actor, userPatchInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(*user))
}

func (s *HTTPServer) UserList(c echo.Context) error {
	users, total, err := s.users.List(GetActor(c), c.QueryParam("search"), GetPage(c))
	if err != nil {
		return err
	}
	results := make([]UserResp, len(users))
	for i := range users {
		results[i] = toUserResp(users[i])
	}
	return c.JSON(http.StatusOK, ListResp{Count: total, Results: results})
}

func (s *HTTPServer) UserCreate(c echo.Context) error {
	req := UserCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := s.users.Create(GetActor(c), service.CreateUserInput{
		Username:  req.Username,
		Email:     req.Email,
		Role:      policy.Role(req.Role),
		Bio:       req.Bio,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResp(*user))
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	user, err := s.users.GetByUsername(GetActor(c), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(*user))
}

func (s *HTTPServer) UserUpdate(c echo.Context) error {
	req := UserPatchReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := s.users.UpdateByUsername(GetActor(c), c.Param("username"), userPatchInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResp(*user))
}

func (s *HTTPServer) UserDelete(c echo.Context) error {
	if err := s.users.DeleteByUsername(GetActor(c), c.Param("username")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func userPatchInput(req UserPatchReq) service.UpdateUserInput {
	input := service.UpdateUserInput{
		Email:     req.Email,
		Bio:       req.Bio,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.Role != nil {
		role := policy.Role(*req.Role)
		input.Role = &role
	}
	return input
}

func reviewPath(c echo.Context) (uint64, uint64, error) {
	titleID, err := GetAndParseParam(c, "title_id")
	if err != nil {
		return 0, 0, err
	}
	reviewID, err := GetAndParseParam(c, "review_id")
	if err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

func commentPath(c echo.Context) (uint64, uint64, uint64, error) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return 0, 0, 0, err
	}
	commentID, err := GetAndParseParam(c, "comment_id")
	if err != nil {
		return 0, 0, 0, err
	}
	return titleID, reviewID, commentID, nil
}
