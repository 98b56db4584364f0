package folio

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (a *App) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	if err := a.Store.Ping(ctx); err != nil {
		return &PersistenceError{Message: "Database unavailable.", Err: err}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return &PersistenceError{Message: "Redis unavailable.", Err: err}
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleAbout(c echo.Context) error {
	about, err := a.Store.GetAbout(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presentAbout(about))
}

func (a *App) handleExperience(c echo.Context) error {
	items, err := a.Cache.ListExperiences(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presentList(items, presentExperience))
}

func (a *App) handleSkills(c echo.Context) error {
	items, err := a.Cache.ListSkills(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presentList(items, presentSkill))
}

func (a *App) handleProjects(c echo.Context) error {
	items, err := a.Cache.ListProjects(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presentList(items, presentProject))
}

func (a *App) handlePosts(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, presentList(posts, presentPost))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	out, err := presentPostDetail(ctx, post)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// httpErrorHandler turns every error a handler returns into a JSON body.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		ve *ValidationError
		rl *RateLimitError
		pe *PersistenceError
		he *echo.HTTPError
	)
	code := http.StatusInternalServerError
	body := errorResponse{Message: "Server error."}

	switch {
	case errors.As(err, &ve):
		code = http.StatusUnprocessableEntity
		body = errorResponse{Message: "The given data was invalid.", Errors: ve.Fields}
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
		body.Message = "Not found."
	case errors.Is(err, ErrConflict):
		code = http.StatusConflict
		body.Message = "The record conflicts with an existing one."
		if a.Config.Debug {
			body.Error = err.Error()
		}
	case errors.As(err, &rl):
		code = http.StatusTooManyRequests
		body.Message = rl.Message
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	case errors.As(err, &pe):
		body.Message = pe.Message
		if a.Config.Debug {
			body.Error = pe.Err.Error()
		}
	case errors.As(err, &he):
		code = he.Code
		body.Message = fmt.Sprint(he.Message)
		if he.Internal != nil && a.Config.Debug {
			body.Error = he.Internal.Error()
		}
	default:
		if a.Config.Debug {
			body.Error = err.Error()
		}
	}

	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
