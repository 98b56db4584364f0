package folio

import (
	"context"
	"sync"
	"time"
)

// cachedList is one TTL-cached list loaded through load.
type cachedList[T any] struct {
	mu      sync.RWMutex
	items   []T
	fetched time.Time
	ttl     time.Duration
	load    func(context.Context) ([]T, error)
}

func (c *cachedList[T]) valid() bool {
	return c.items != nil && time.Since(c.fetched) < c.ttl
}

// get returns the cached items, reloading them when stale. It tries a read
// lock first and only takes the write lock if a reload is needed.
func (c *cachedList[T]) get(ctx context.Context) ([]T, error) {
	c.mu.RLock()
	if c.valid() {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.items, nil
	}
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.items = items
	c.fetched = time.Now()
	return items, nil
}

func (c *cachedList[T]) invalidate() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// ContentCache is an in-memory TTL cache of the public lists. Admin writes
// call Invalidate so edits show up immediately.
type ContentCache struct {
	experiences cachedList[Experience]
	skills      cachedList[Skill]
	projects    cachedList[Project]
	posts       cachedList[Post]
}

// NewContentCache creates a ContentCache backed by the given Store, always
// reading with the default public orderings.
func NewContentCache(s *Store, ttl time.Duration) *ContentCache {
	c := &ContentCache{}
	c.experiences = cachedList[Experience]{ttl: ttl, load: func(ctx context.Context) ([]Experience, error) {
		return s.ListExperiences(ctx, ExperienceOrdering)
	}}
	c.skills = cachedList[Skill]{ttl: ttl, load: func(ctx context.Context) ([]Skill, error) {
		return s.ListSkills(ctx, SkillOrdering)
	}}
	c.projects = cachedList[Project]{ttl: ttl, load: func(ctx context.Context) ([]Project, error) {
		return s.ListProjects(ctx, ProjectOrdering)
	}}
	c.posts = cachedList[Post]{ttl: ttl, load: func(ctx context.Context) ([]Post, error) {
		return s.ListPosts(ctx, PostOrdering)
	}}
	return c
}

// Invalidate clears every list so the next read triggers a fresh load.
func (c *ContentCache) Invalidate() {
	c.experiences.invalidate()
	c.skills.invalidate()
	c.projects.invalidate()
	c.posts.invalidate()
}

// ListExperiences returns experiences ordered by order, then insertion.
func (c *ContentCache) ListExperiences(ctx context.Context) ([]Experience, error) {
	return c.experiences.get(ctx)
}

// ListSkills returns skills ordered by category, order, then insertion.
func (c *ContentCache) ListSkills(ctx context.Context) ([]Skill, error) {
	return c.skills.get(ctx)
}

// ListProjects returns projects ordered by order, then insertion.
func (c *ContentCache) ListProjects(ctx context.Context) ([]Project, error) {
	return c.projects.get(ctx)
}

// ListPosts returns published posts, newest first.
func (c *ContentCache) ListPosts(ctx context.Context) ([]Post, error) {
	return c.posts.get(ctx)
}

// GetPost returns a single published post by slug from the cache.
func (c *ContentCache) GetPost(ctx context.Context, slug string) (Post, error) {
	posts, err := c.posts.get(ctx)
	if err != nil {
		return Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}
