package folio

import (
	"context"
	"time"

	"github.com/eringen/folio/markdown"
)

// excerptLength bounds the plain-text description shown in post lists.
const excerptLength = 160

type listResponse[T any] struct {
	Data []T `json:"data"`
}

type aboutResponse struct {
	FullName     string       `json:"full_name"`
	Title        string       `json:"title"`
	Bio          string       `json:"bio"`
	ProfileImage *string      `json:"profile_image"`
	CVLink       *string      `json:"cv_link"`
	SocialLinks  []SocialLink `json:"social_links"`
}

func presentAbout(a About) aboutResponse {
	links := a.SocialLinks
	if links == nil {
		links = []SocialLink{}
	}
	return aboutResponse{
		FullName:     a.FullName,
		Title:        a.Title,
		Bio:          a.Bio,
		ProfileImage: optional(a.ProfileImage),
		CVLink:       optional(a.CVLink),
		SocialLinks:  links,
	}
}

type experienceResponse struct {
	ID           int64    `json:"id"`
	CompanyName  string   `json:"company_name"`
	Role         string   `json:"role"`
	Period       string   `json:"period"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Order        int      `json:"order"`
}

func presentExperience(e Experience) experienceResponse {
	return experienceResponse{
		ID:           e.ID,
		CompanyName:  e.CompanyName,
		Role:         e.Role,
		Period:       e.Period,
		Description:  e.Description,
		Technologies: nonNil(e.Technologies),
		Order:        e.Order,
	}
}

type skillResponse struct {
	ID          int64    `json:"id"`
	Category    string   `json:"category"`
	Icon        string   `json:"icon"`
	IconURL     *string  `json:"icon_url"`
	Description string   `json:"description"`
	SubSkills   []string `json:"sub_skills"`
	Order       int      `json:"order"`
}

func presentSkill(s Skill) skillResponse {
	return skillResponse{
		ID:          s.ID,
		Category:    s.Category,
		Icon:        s.Icon,
		IconURL:     optional(s.IconURL),
		Description: s.Description,
		SubSkills:   nonNil(s.SubSkills),
		Order:       s.Order,
	}
}

type projectResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Thumbnail   *string  `json:"thumbnail"`
	TechStack   []string `json:"tech_stack"`
	GithubLink  *string  `json:"github_link"`
	LiveLink    *string  `json:"live_link"`
	Order       int      `json:"order"`
}

func presentProject(p Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Thumbnail:   optional(p.Thumbnail),
		TechStack:   nonNil(p.TechStack),
		GithubLink:  optional(p.GithubLink),
		LiveLink:    optional(p.LiveLink),
		Order:       p.Order,
	}
}

type postResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type postDetailResponse struct {
	postResponse
	ReadingTime int    `json:"reading_time"`
	ContentHTML string `json:"content_html"`
}

// presentPost expects a visible post; PublishedAt is always set for those.
func presentPost(p Post) postResponse {
	var published time.Time
	if p.PublishedAt != nil {
		published = *p.PublishedAt
	}
	return postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: markdown.Excerpt(p.Content, excerptLength),
		Content:     p.Content,
		Thumbnail:   p.Thumbnail,
		PublishedAt: published,
		CreatedAt:   p.CreatedAt,
	}
}

func presentPostDetail(ctx context.Context, p Post) (postDetailResponse, error) {
	html, err := renderMarkdown(ctx, p.Content)
	if err != nil {
		return postDetailResponse{}, err
	}
	return postDetailResponse{
		postResponse: presentPost(p),
		ReadingTime:  markdown.ReadingTime(p.Content),
		ContentHTML:  html,
	}, nil
}

func presentList[T, R any](items []T, fn func(T) R) listResponse[R] {
	out := make([]R, 0, len(items))
	for _, it := range items {
		out = append(out, fn(it))
	}
	return listResponse[R]{Data: out}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
