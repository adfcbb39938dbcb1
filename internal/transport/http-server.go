package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Night-Owl-Collective/reviewdb-back/internal/apperr"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/config"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/policy"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/service"
	"github.com/Night-Owl-Collective/reviewdb-back/internal/token"
)

const actorKey = "actor"

type (
	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		auth     *service.Auth
		users    *service.Users
		catalog  *service.Catalog
		titles   *service.Titles
		reviews  *service.Reviews
		comments *service.Comments
		tokens   *token.Manager
		logger   *zap.SugaredLogger
	}
)

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	auth *service.Auth,
	users *service.Users,
	catalog *service.Catalog,
	titles *service.Titles,
	reviews *service.Reviews,
	comments *service.Comments,
	tokens *token.Manager,
	logger *zap.SugaredLogger,
) *HTTPServer {
	instance := HTTPServer{
		auth:     auth,
		users:    users,
		catalog:  catalog,
		titles:   titles,
		reviews:  reviews,
		comments: comments,
		tokens:   tokens,
		logger:   logger,
	}

	e := instance.Router()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

// Router assembles the echo instance; tests drive it directly.
func (s *HTTPServer) Router() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = s.ErrorHandler

	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(s.RequestLogger)
	e.Use(s.AuthMiddleware)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/signup", s.Signup)
	v1.POST("/auth/token", s.Token)

	v1.GET("/categories", s.CategoryList)
	v1.POST("/categories", s.CategoryCreate)
	v1.DELETE("/categories/:slug", s.CategoryDelete)

	v1.GET("/genres", s.GenreList)
	v1.POST("/genres", s.GenreCreate)
	v1.DELETE("/genres/:slug", s.GenreDelete)

	v1.GET("/titles", s.TitleList)
	v1.POST("/titles", s.TitleCreate)
	v1.GET("/titles/:title_id", s.TitleGet)
	v1.PATCH("/titles/:title_id", s.TitleUpdate)
	v1.DELETE("/titles/:title_id", s.TitleDelete)

	v1.GET("/titles/:title_id/reviews", s.ReviewList)
	v1.POST("/titles/:title_id/reviews", s.ReviewCreate)
	v1.GET("/titles/:title_id/reviews/:review_id", s.ReviewGet)
	v1.PATCH("/titles/:title_id/reviews/:review_id", s.ReviewUpdate)
	v1.DELETE("/titles/:title_id/reviews/:review_id", s.ReviewDelete)

	v1.GET("/titles/:title_id/reviews/:review_id/comments", s.CommentList)
	v1.POST("/titles/:title_id/reviews/:review_id/comments", s.CommentCreate)
	v1.GET("/titles/:title_id/reviews/:review_id/comments/:comment_id", s.CommentGet)
	v1.PATCH("/titles/:title_id/reviews/:review_id/comments/:comment_id", s.CommentUpdate)
	v1.DELETE("/titles/:title_id/reviews/:review_id/comments/:comment_id", s.CommentDelete)

	v1.GET("/users/me", s.Me)
	v1.PATCH("/users/me", s.MeUpdate)
	v1.GET("/users", s.UserList)
	v1.POST("/users", s.UserCreate)
	v1.GET("/users/:username", s.UserGet)
	v1.PATCH("/users/:username", s.UserUpdate)
	v1.DELETE("/users/:username", s.UserDelete)

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return e
}

// ErrorHandler maps the service error kinds onto HTTP status codes.
func (s *HTTPServer) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = c.JSON(he.Code, ErrorResp{Kind: "http", Message: he.Error()})
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"
	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindValidation, apperr.KindAuthFailed:
		status = http.StatusBadRequest
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	default:
		s.logger.Errorw("unhandled error", "path", c.Path(), "error", err)
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	_ = c.JSON(status, ErrorResp{Kind: kind.String(), Message: message})
}

// AuthMiddleware resolves the bearer token to an actor. Requests without a
// token proceed as anonymous; a token that fails verification is rejected
// outright.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			c.Set(actorKey, policy.Anonymous)
			return next(c)
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.JSON(http.StatusUnauthorized, ErrorResp{
				Kind: "auth_failed", Message: "invalid authorization header format",
			})
		}

		claims, err := s.tokens.Verify(parts[1])
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResp{
				Kind: "auth_failed", Message: err.Error(),
			})
		}

		user, err := s.auth.Authenticate(claims)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, ErrorResp{
				Kind: "auth_failed", Message: "unknown user",
			})
		}

		c.Set(actorKey, user.Actor())
		return next(c)
	}
}

func (s *HTTPServer) RequestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		var body []byte
		if c.Request().Body != nil {
			body, _ = io.ReadAll(c.Request().Body)
			c.Request().Body = io.NopCloser(bytes.NewReader(body))
		}

		err := next(c)

		s.logger.Infow("request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"latency", time.Since(start),
			"body", string(censorBody(body)),
		)
		return err
	}
}

// censoredFields never reach the logs in clear text.
var censoredFields = []string{"confirmation_code"}

func censorBody(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return b
	}
	changed := false
	for _, f := range censoredFields {
		if _, ok := m[f]; ok {
			m[f] = "$censored"
			changed = true
		}
	}
	if !changed {
		return b
	}
	out, err := json.Marshal(m)
	if err != nil {
		return b
	}
	return out
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetActor(c echo.Context) policy.Actor {
	actor, ok := c.Get(actorKey).(policy.Actor)
	if !ok {
		return policy.Anonymous
	}
	return actor
}

// GetAndParseParam reads a numeric path parameter. A value the route pattern
// cannot resolve to an id is an unresolved path, not a bad request.
func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	value := c.Param(name)
	if value == "" {
		return 0, apperr.Newf(apperr.KindNotFound, "missing path param %q", name)
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, apperr.Newf(apperr.KindNotFound, "invalid path param %q", name)
	}
	return parsed, nil
}

func GetPage(c echo.Context) service.Page {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return service.Page{Number: page, Size: size}
}
