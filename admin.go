package folio

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/eringen/folio/ratelimit"
)

const (
	loginAction  = "admin-login"
	maxAdminBody = 1 << 20
)

func (a *App) handleAdminSession(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": IsAdmin(c),
		"csrf_token":    CsrfToken(c),
	})
}

// handleAdminLogin counts only failed attempts against the client's quota;
// a successful login clears it.
func (a *App) handleAdminLogin(c echo.Context) error {
	ctx := c.Request().Context()
	key := ratelimit.Key(loginAction, c.RealIP())
	limited, err := a.loginLimiter.TooManyAttempts(ctx, key)
	if err != nil {
		return err
	}
	if limited {
		retry, _ := a.loginLimiter.AvailableIn(ctx, key)
		return &RateLimitError{Message: "Too many login attempts. Try again later.", RetryAfter: retry}
	}

	var req struct {
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		ve := &ValidationError{}
		ve.Add("password", "The password field is required.")
		return ve
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Config.AdminPassword)) != 1 {
		if _, err := a.loginLimiter.Hit(ctx, key); err != nil {
			return err
		}
		c.Logger().Warnf("admin: failed login from %s", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password.")
	}
	if err := a.loginLimiter.Clear(ctx, key); err != nil {
		return err
	}
	if err := setAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"authenticated": true})
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// decodeAdmin checks the raw request body against the named schema and
// then decodes it into dst.
func decodeAdmin(c echo.Context, schema string, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxAdminBody))
	if err != nil {
		return err
	}
	if err := validateDocument(schema, gojsonschema.NewBytesLoader(body)); err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		ve := &ValidationError{}
		ve.Add("body", "The request body must be a valid JSON object.")
		return ve
	}
	return nil
}

// --- About ---

func (a *App) handleAdminGetAbout(c echo.Context) error {
	about, err := a.Store.GetAbout(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, about)
}

func (a *App) handleAdminCreateAbout(c echo.Context) error {
	var in About
	if err := decodeAdmin(c, schemaAbout, &in); err != nil {
		return err
	}
	about, err := a.Store.CreateAbout(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, about)
}

func (a *App) handleAdminUpdateAbout(c echo.Context) error {
	var in About
	if err := decodeAdmin(c, schemaAbout, &in); err != nil {
		return err
	}
	about, err := a.Store.UpdateAbout(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, about)
}

// --- Collections ---

// adminResource describes one editable collection. prepare, when set,
// normalizes a decoded record before it is written; id is 0 on create.
type adminResource[T any] struct {
	schema  string
	list    func(ctx context.Context) ([]T, error)
	get     func(ctx context.Context, id int64) (T, error)
	create  func(ctx context.Context, v T) (T, error)
	update  func(ctx context.Context, id int64, v T) (T, error)
	remove  func(ctx context.Context, id int64) error
	prepare func(ctx context.Context, id int64, v *T) error
}

// mountResource registers list/create/get/update/delete routes under path.
// Every write invalidates the public content cache.
func mountResource[T any](a *App, g *echo.Group, path string, r adminResource[T]) {
	decode := func(c echo.Context, id int64) (T, error) {
		var v T
		if err := decodeAdmin(c, r.schema, &v); err != nil {
			return v, err
		}
		if r.prepare != nil {
			if err := r.prepare(c.Request().Context(), id, &v); err != nil {
				return v, err
			}
		}
		return v, nil
	}

	g.GET(path, func(c echo.Context) error {
		items, err := r.list(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, listResponse[T]{Data: items})
	})
	g.POST(path, func(c echo.Context) error {
		v, err := decode(c, 0)
		if err != nil {
			return err
		}
		created, err := r.create(c.Request().Context(), v)
		if err != nil {
			return err
		}
		a.Cache.Invalidate()
		return c.JSON(http.StatusCreated, created)
	})
	g.GET(path+"/:id", func(c echo.Context) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		v, err := r.get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, v)
	})
	g.PUT(path+"/:id", func(c echo.Context) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		v, err := decode(c, id)
		if err != nil {
			return err
		}
		updated, err := r.update(c.Request().Context(), id, v)
		if err != nil {
			return err
		}
		a.Cache.Invalidate()
		return c.JSON(http.StatusOK, updated)
	})
	g.DELETE(path+"/:id", func(c echo.Context) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		if err := r.remove(c.Request().Context(), id); err != nil {
			return err
		}
		a.Cache.Invalidate()
		return c.NoContent(http.StatusNoContent)
	})
}

func (a *App) mountAdminResources(g *echo.Group) {
	s := a.Store

	mountResource(a, g, "/experience", adminResource[Experience]{
		schema: schemaExperience,
		list: func(ctx context.Context) ([]Experience, error) {
			return s.ListExperiences(ctx, ExperienceOrdering)
		},
		get:    s.GetExperience,
		create: s.CreateExperience,
		update: func(ctx context.Context, id int64, e Experience) (Experience, error) {
			e.ID = id
			return s.UpdateExperience(ctx, e)
		},
		remove: s.DeleteExperience,
	})

	mountResource(a, g, "/skills", adminResource[Skill]{
		schema: schemaSkill,
		list: func(ctx context.Context) ([]Skill, error) {
			return s.ListSkills(ctx, SkillOrdering)
		},
		get:    s.GetSkill,
		create: s.CreateSkill,
		update: func(ctx context.Context, id int64, sk Skill) (Skill, error) {
			sk.ID = id
			return s.UpdateSkill(ctx, sk)
		},
		remove: s.DeleteSkill,
	})

	mountResource(a, g, "/projects", adminResource[Project]{
		schema: schemaProject,
		list: func(ctx context.Context) ([]Project, error) {
			return s.ListProjects(ctx, ProjectOrdering)
		},
		get:    s.GetProject,
		create: s.CreateProject,
		update: func(ctx context.Context, id int64, p Project) (Project, error) {
			p.ID = id
			return s.UpdateProject(ctx, p)
		},
		remove: s.DeleteProject,
	})

	mountResource(a, g, "/posts", adminResource[Post]{
		schema: schemaPost,
		list:   s.ListAllPosts,
		get:    s.GetPostAny,
		create: s.CreatePost,
		update: func(ctx context.Context, id int64, p Post) (Post, error) {
			p.ID = id
			return s.UpdatePost(ctx, p)
		},
		remove:  s.DeletePost,
		prepare: a.preparePost,
	})
}

// preparePost keeps the stored publication date of an already published
// post when an update leaves published_at out.
func (a *App) preparePost(ctx context.Context, id int64, p *Post) error {
	if id != 0 && p.PublishedAt == nil && p.Status == StatusPublished {
		current, err := a.Store.GetPostAny(ctx, id)
		if err != nil {
			return err
		}
		p.PublishedAt = current.PublishedAt
	}
	return normalizePost(p, a.Store.now())
}

// normalizePost derives a missing slug from the title, defaults the status
// to draft, and stamps published_at with now when a post is published
// without one.
func normalizePost(p *Post, now time.Time) error {
	p.Title = strings.TrimSpace(p.Title)
	p.Slug = strings.TrimSpace(p.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Slug == "" {
		ve := &ValidationError{}
		ve.Add("slug", "The slug field is required. Add a title or slug.")
		return ve
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Status == StatusPublished && p.PublishedAt == nil {
		t := now.UTC().Truncate(time.Second)
		p.PublishedAt = &t
	}
	return nil
}

// --- Messages ---

func (a *App) handleAdminListMessages(c echo.Context) error {
	msgs, err := a.Store.ListContactMessages(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[ContactMessage]{Data: msgs})
}

func (a *App) handleAdminMarkMessageRead(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.MarkContactMessageRead(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleAdminDeleteMessage(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteContactMessage(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
