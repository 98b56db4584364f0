package folio

import "time"

// SocialLink is one entry of the About profile's link list.
type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// About is the site owner's profile. At most one exists.
type About struct {
	ID           int64        `json:"id"`
	FullName     string       `json:"full_name"`
	Title        string       `json:"title"`
	Bio          string       `json:"bio"`
	ProfileImage string       `json:"profile_image"`
	CVLink       string       `json:"cv_link"`
	SocialLinks  []SocialLink `json:"social_links"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Experience is a position in the work history.
type Experience struct {
	ID           int64     `json:"id"`
	CompanyName  string    `json:"company_name"`
	Role         string    `json:"role"`
	Period       string    `json:"period"` // e.g. "2023.07 - Now"
	Description  string    `json:"description"`
	Technologies []string  `json:"technologies"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Skill is a skill category with its sub-skills.
type Skill struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Icon        string    `json:"icon"` // icon name or SVG path
	IconURL     string    `json:"icon_url"`
	Description string    `json:"description"`
	SubSkills   []string  `json:"sub_skills"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Project is a portfolio project.
type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	TechStack   []string  `json:"tech_stack"`
	GithubLink  string    `json:"github_link"`
	LiveLink    string    `json:"live_link"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PostStatus is the publishing state of a Post.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Post is a blog post written in markdown.
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Thumbnail   string     `json:"thumbnail"`
	Status      PostStatus `json:"status"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Visible reports whether the post may be shown publicly.
func (p Post) Visible() bool {
	return p.Status == StatusPublished && p.PublishedAt != nil
}

// ContactMessage is a message submitted through the public contact form.
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
