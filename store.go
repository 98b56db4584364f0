package folio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store wraps a SQLite database and provides CRUD and ordered reads for
// every content type.
type Store struct {
	db  *sql.DB
	q   querier
	now func() time.Time
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed while the admin writes; the busy timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, q: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a Store bound to one transaction. The transaction
// commits if fn returns nil and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS about (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    singleton INTEGER NOT NULL DEFAULT 1 UNIQUE CHECK (singleton = 1),
    full_name TEXT NOT NULL,
    title TEXT NOT NULL,
    bio TEXT NOT NULL DEFAULT '',
    profile_image TEXT NOT NULL DEFAULT '',
    cv_link TEXT NOT NULL DEFAULT '',
    social_links TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS experiences (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    company_name TEXT NOT NULL,
    role TEXT NOT NULL,
    period TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    technologies TEXT NOT NULL DEFAULT '[]',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_experiences_order ON experiences(sort_order);

CREATE TABLE IF NOT EXISTS skills (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category TEXT NOT NULL,
    icon TEXT NOT NULL DEFAULT '',
    icon_url TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    sub_skills TEXT NOT NULL DEFAULT '[]',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_skills_order ON skills(category, sort_order);

CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    thumbnail TEXT NOT NULL DEFAULT '',
    tech_stack TEXT NOT NULL DEFAULT '[]',
    github_link TEXT NOT NULL DEFAULT '',
    live_link TEXT NOT NULL DEFAULT '',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_order ON projects(sort_order);

CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    thumbnail TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft' CHECK (status IN ('draft', 'published', 'archived')),
    published_at TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(status, published_at);

CREATE TABLE IF NOT EXISTS contact_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    subject TEXT NOT NULL,
    message TEXT NOT NULL,
    is_read INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
`)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func queryList[T any](ctx context.Context, db querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// --- About ---

const aboutColumns = `id, full_name, title, bio, profile_image, cv_link, social_links, created_at, updated_at`

func scanAbout(row scanner) (About, error) {
	var a About
	var links, created, updated string
	if err := row.Scan(&a.ID, &a.FullName, &a.Title, &a.Bio, &a.ProfileImage, &a.CVLink, &links, &created, &updated); err != nil {
		return About{}, err
	}
	if err := json.Unmarshal([]byte(links), &a.SocialLinks); err != nil {
		return About{}, fmt.Errorf("decode social_links: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = parseTime(created), parseTime(updated)
	return a, nil
}

// GetAbout returns the profile, or ErrNotFound when none has been created.
func (s *Store) GetAbout(ctx context.Context) (About, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+aboutColumns+` FROM about ORDER BY id LIMIT 1`)
	a, err := scanAbout(row)
	if err != nil {
		return About{}, notFound("get about", err)
	}
	return a, nil
}

// CreateAbout stores the profile. A second profile is rejected with ErrConflict.
func (s *Store) CreateAbout(ctx context.Context, a About) (About, error) {
	now := s.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO about (full_name, title, bio, profile_image, cv_link, social_links, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.FullName, a.Title, a.Bio, a.ProfileImage, a.CVLink, encodeList(a.SocialLinks), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return About{}, fmt.Errorf("create about: a profile already exists: %w", ErrConflict)
		}
		return About{}, fmt.Errorf("create about: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return a, err
}

// UpdateAbout replaces the editable fields of the existing profile. An empty
// profile_image or cv_link keeps the stored value; SetMedia changes those.
func (s *Store) UpdateAbout(ctx context.Context, a About) (About, error) {
	current, err := s.GetAbout(ctx)
	if err != nil {
		return About{}, err
	}
	a.ID, a.CreatedAt, a.UpdatedAt = current.ID, current.CreatedAt, s.now().UTC()
	if a.ProfileImage == "" {
		a.ProfileImage = current.ProfileImage
	}
	if a.CVLink == "" {
		a.CVLink = current.CVLink
	}
	_, err = s.q.ExecContext(ctx,
		`UPDATE about SET full_name = ?, title = ?, bio = ?, profile_image = ?, cv_link = ?, social_links = ?, updated_at = ? WHERE id = ?`,
		a.FullName, a.Title, a.Bio, a.ProfileImage, a.CVLink, encodeList(a.SocialLinks), formatTime(a.UpdatedAt), a.ID)
	if err != nil {
		return About{}, fmt.Errorf("update about: %w", err)
	}
	return a, nil
}

// --- Experience ---

const experienceColumns = `id, company_name, role, period, description, technologies, sort_order, created_at, updated_at`

func scanExperience(row scanner) (Experience, error) {
	var e Experience
	var techs, created, updated string
	if err := row.Scan(&e.ID, &e.CompanyName, &e.Role, &e.Period, &e.Description, &techs, &e.Order, &created, &updated); err != nil {
		return Experience{}, err
	}
	if err := json.Unmarshal([]byte(techs), &e.Technologies); err != nil {
		return Experience{}, fmt.Errorf("decode technologies: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = parseTime(created), parseTime(updated)
	return e, nil
}

// ListExperiences returns every experience sorted by ord.
func (s *Store) ListExperiences(ctx context.Context, ord Ordering) ([]Experience, error) {
	order, err := ord.clause("experiences")
	if err != nil {
		return nil, err
	}
	out, err := queryList(ctx, s.q, scanExperience, `SELECT `+experienceColumns+` FROM experiences`+order)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	return out, nil
}

// GetExperience returns one experience by id.
func (s *Store) GetExperience(ctx context.Context, id int64) (Experience, error) {
	e, err := scanExperience(s.q.QueryRowContext(ctx, `SELECT `+experienceColumns+` FROM experiences WHERE id = ?`, id))
	if err != nil {
		return Experience{}, notFound("get experience", err)
	}
	return e, nil
}

// CreateExperience inserts e and returns it with its id and timestamps set.
func (s *Store) CreateExperience(ctx context.Context, e Experience) (Experience, error) {
	now := s.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO experiences (company_name, role, period, description, technologies, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CompanyName, e.Role, e.Period, e.Description, encodeList(e.Technologies), e.Order, formatTime(now), formatTime(now))
	if err != nil {
		return Experience{}, fmt.Errorf("create experience: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return e, err
}

// UpdateExperience replaces the editable fields of experience e.ID.
func (s *Store) UpdateExperience(ctx context.Context, e Experience) (Experience, error) {
	e.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE experiences SET company_name = ?, role = ?, period = ?, description = ?, technologies = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		e.CompanyName, e.Role, e.Period, e.Description, encodeList(e.Technologies), e.Order, formatTime(e.UpdatedAt), e.ID)
	if err := affected("update experience", res, err); err != nil {
		return Experience{}, err
	}
	return s.GetExperience(ctx, e.ID)
}

// DeleteExperience removes an experience by id.
func (s *Store) DeleteExperience(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM experiences WHERE id = ?`, id)
	return affected("delete experience", res, err)
}

// --- Skill ---

const skillColumns = `id, category, icon, icon_url, description, sub_skills, sort_order, created_at, updated_at`

func scanSkill(row scanner) (Skill, error) {
	var sk Skill
	var subs, created, updated string
	if err := row.Scan(&sk.ID, &sk.Category, &sk.Icon, &sk.IconURL, &sk.Description, &subs, &sk.Order, &created, &updated); err != nil {
		return Skill{}, err
	}
	if err := json.Unmarshal([]byte(subs), &sk.SubSkills); err != nil {
		return Skill{}, fmt.Errorf("decode sub_skills: %w", err)
	}
	sk.CreatedAt, sk.UpdatedAt = parseTime(created), parseTime(updated)
	return sk, nil
}

// ListSkills returns every skill sorted by ord.
func (s *Store) ListSkills(ctx context.Context, ord Ordering) ([]Skill, error) {
	order, err := ord.clause("skills")
	if err != nil {
		return nil, err
	}
	out, err := queryList(ctx, s.q, scanSkill, `SELECT `+skillColumns+` FROM skills`+order)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return out, nil
}

// GetSkill returns one skill by id.
func (s *Store) GetSkill(ctx context.Context, id int64) (Skill, error) {
	sk, err := scanSkill(s.q.QueryRowContext(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = ?`, id))
	if err != nil {
		return Skill{}, notFound("get skill", err)
	}
	return sk, nil
}

// CreateSkill inserts sk and returns it with its id and timestamps set.
func (s *Store) CreateSkill(ctx context.Context, sk Skill) (Skill, error) {
	now := s.now().UTC()
	sk.CreatedAt, sk.UpdatedAt = now, now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO skills (category, icon, icon_url, description, sub_skills, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sk.Category, sk.Icon, sk.IconURL, sk.Description, encodeList(sk.SubSkills), sk.Order, formatTime(now), formatTime(now))
	if err != nil {
		return Skill{}, fmt.Errorf("create skill: %w", err)
	}
	sk.ID, err = res.LastInsertId()
	return sk, err
}

// UpdateSkill replaces the editable fields of skill sk.ID. The uploaded
// icon is kept unless sk carries a new one.
func (s *Store) UpdateSkill(ctx context.Context, sk Skill) (Skill, error) {
	sk.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE skills SET category = ?, icon = ?, icon_url = COALESCE(NULLIF(?, ''), icon_url), description = ?, sub_skills = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		sk.Category, sk.Icon, sk.IconURL, sk.Description, encodeList(sk.SubSkills), sk.Order, formatTime(sk.UpdatedAt), sk.ID)
	if err := affected("update skill", res, err); err != nil {
		return Skill{}, err
	}
	return s.GetSkill(ctx, sk.ID)
}

// DeleteSkill removes a skill by id.
func (s *Store) DeleteSkill(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
	return affected("delete skill", res, err)
}

// --- Project ---

const projectColumns = `id, title, description, thumbnail, tech_stack, github_link, live_link, sort_order, created_at, updated_at`

func scanProject(row scanner) (Project, error) {
	var p Project
	var stack, created, updated string
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Thumbnail, &stack, &p.GithubLink, &p.LiveLink, &p.Order, &created, &updated); err != nil {
		return Project{}, err
	}
	if err := json.Unmarshal([]byte(stack), &p.TechStack); err != nil {
		return Project{}, fmt.Errorf("decode tech_stack: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return p, nil
}

// ListProjects returns every project sorted by ord.
func (s *Store) ListProjects(ctx context.Context, ord Ordering) ([]Project, error) {
	order, err := ord.clause("projects")
	if err != nil {
		return nil, err
	}
	out, err := queryList(ctx, s.q, scanProject, `SELECT `+projectColumns+` FROM projects`+order)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// GetProject returns one project by id.
func (s *Store) GetProject(ctx context.Context, id int64) (Project, error) {
	p, err := scanProject(s.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return Project{}, notFound("get project", err)
	}
	return p, nil
}

// CreateProject inserts p and returns it with its id and timestamps set.
func (s *Store) CreateProject(ctx context.Context, p Project) (Project, error) {
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO projects (title, description, thumbnail, tech_stack, github_link, live_link, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Thumbnail, encodeList(p.TechStack), p.GithubLink, p.LiveLink, p.Order, formatTime(now), formatTime(now))
	if err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// UpdateProject replaces the editable fields of project p.ID. An empty
// thumbnail keeps the stored one.
func (s *Store) UpdateProject(ctx context.Context, p Project) (Project, error) {
	p.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, thumbnail = COALESCE(NULLIF(?, ''), thumbnail), tech_stack = ?, github_link = ?, live_link = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Description, p.Thumbnail, encodeList(p.TechStack), p.GithubLink, p.LiveLink, p.Order, formatTime(p.UpdatedAt), p.ID)
	if err := affected("update project", res, err); err != nil {
		return Project{}, err
	}
	return s.GetProject(ctx, p.ID)
}

// DeleteProject removes a project by id.
func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return affected("delete project", res, err)
}

// --- Post ---

const postColumns = `id, title, slug, content, thumbnail, status, published_at, created_at, updated_at`

// visiblePost is the publishing rule every public post query carries.
const visiblePost = `status = 'published' AND published_at IS NOT NULL`

func scanPost(row scanner) (Post, error) {
	var p Post
	var status, created, updated string
	var published sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Thumbnail, &status, &published, &created, &updated); err != nil {
		return Post{}, err
	}
	p.Status = PostStatus(status)
	if published.Valid {
		t := parseTime(published.String)
		p.PublishedAt = &t
	}
	p.CreatedAt, p.UpdatedAt = parseTime(created), parseTime(updated)
	return p, nil
}

// ListPosts returns published posts sorted by ord. Drafts, archived posts
// and posts without a publish date are never returned.
func (s *Store) ListPosts(ctx context.Context, ord Ordering) ([]Post, error) {
	order, err := ord.clause("posts")
	if err != nil {
		return nil, err
	}
	out, err := queryList(ctx, s.q, scanPost, `SELECT `+postColumns+` FROM posts WHERE `+visiblePost+order)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(ctx context.Context, slug string) (Post, error) {
	p, err := scanPost(s.q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ? AND `+visiblePost, slug))
	if err != nil {
		return Post{}, notFound("get post", err)
	}
	return p, nil
}

// ListAllPosts returns every post regardless of status (for admin), newest first.
func (s *Store) ListAllPosts(ctx context.Context) ([]Post, error) {
	out, err := queryList(ctx, s.q, scanPost, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all posts: %w", err)
	}
	return out, nil
}

// GetPostAny returns a post by id regardless of status (for admin).
func (s *Store) GetPostAny(ctx context.Context, id int64) (Post, error) {
	p, err := scanPost(s.q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err != nil {
		return Post{}, notFound("get post", err)
	}
	return p, nil
}

// CreatePost inserts p. A duplicate slug is rejected with ErrConflict.
func (s *Store) CreatePost(ctx context.Context, p Post) (Post, error) {
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO posts (title, slug, content, thumbnail, status, published_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Slug, p.Content, p.Thumbnail, string(p.Status), nullTime(p.PublishedAt), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return Post{}, fmt.Errorf("create post: slug %q is taken: %w", p.Slug, ErrConflict)
		}
		return Post{}, fmt.Errorf("create post: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// UpdatePost replaces the editable fields of post p.ID. An empty thumbnail
// keeps the stored one.
func (s *Store) UpdatePost(ctx context.Context, p Post) (Post, error) {
	p.UpdatedAt = s.now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE posts SET title = ?, slug = ?, content = ?, thumbnail = COALESCE(NULLIF(?, ''), thumbnail), status = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.Content, p.Thumbnail, string(p.Status), nullTime(p.PublishedAt), formatTime(p.UpdatedAt), p.ID)
	if err != nil && isUniqueViolation(err) {
		return Post{}, fmt.Errorf("update post: slug %q is taken: %w", p.Slug, ErrConflict)
	}
	if err := affected("update post", res, err); err != nil {
		return Post{}, err
	}
	return s.GetPostAny(ctx, p.ID)
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	return affected("delete post", res, err)
}

// SetMedia points f's column of row id at url. An empty url clears it.
func (s *Store) SetMedia(ctx context.Context, f MediaField, id int64, url string) error {
	known, ok := mediaFields[f.Table+"/"+f.Column]
	if !ok || known.Table != f.Table {
		return fmt.Errorf("set media: unknown column %s.%s", f.Table, f.Column)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE `+f.Table+` SET `+f.Column+` = ?, updated_at = ? WHERE id = ?`,
		url, formatTime(s.now().UTC()), id)
	return affected("set "+f.Table+"."+f.Column, res, err)
}

// --- Contact messages ---

const contactColumns = `id, name, email, subject, message, is_read, created_at`

func scanContactMessage(row scanner) (ContactMessage, error) {
	var m ContactMessage
	var read int
	var created string
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &read, &created); err != nil {
		return ContactMessage{}, err
	}
	m.IsRead = read == 1
	m.CreatedAt = parseTime(created)
	return m, nil
}

// CreateContactMessage stores an incoming message as unread.
func (s *Store) CreateContactMessage(ctx context.Context, m ContactMessage) (ContactMessage, error) {
	m.CreatedAt = s.now().UTC()
	m.IsRead = false
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, is_read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		m.Name, m.Email, m.Subject, m.Message, formatTime(m.CreatedAt))
	if err != nil {
		return ContactMessage{}, fmt.Errorf("create contact message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return m, err
}

// ListContactMessages returns every message in the order received.
func (s *Store) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	out, err := queryList(ctx, s.q, scanContactMessage, `SELECT `+contactColumns+` FROM contact_messages ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return out, nil
}

// MarkContactMessageRead flags a message as read.
func (s *Store) MarkContactMessageRead(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE contact_messages SET is_read = 1 WHERE id = ?`, id)
	return affected("mark message read", res, err)
}

// DeleteContactMessage removes a message by id.
func (s *Store) DeleteContactMessage(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id)
	return affected("delete contact message", res, err)
}

// --- helpers ---

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand may use plain RFC 3339.
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// encodeList stores a slice as a JSON array, keeping order and duplicates.
func encodeList(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func affected(op string, res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
