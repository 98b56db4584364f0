package folio

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const seedJSON = `{
  "about": {"full_name": "Jane Doe", "title": "Engineer", "social_links": [{"platform": "github", "url": "https://github.com/jane"}]},
  "experience": [
    {"company_name": "Acme", "role": "Engineer", "period": "2021 - Now", "technologies": ["Go"], "order": 1}
  ],
  "skills": [
    {"category": "Backend", "sub_skills": ["Go", "SQL"], "order": 1},
    {"category": "Frontend", "sub_skills": ["HTML"]}
  ],
  "projects": [{"title": "Folio", "tech_stack": ["Go", "SQLite"]}],
  "posts": [
    {"title": "Hello World", "content": "Hi.", "status": "published", "published_at": "2024-01-05T10:00:00Z"},
    {"title": "Draft", "content": "Later."}
  ]
}`

func TestSeedImportsEverything(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	rep, err := Seed(ctx, s, strings.NewReader(seedJSON))
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if rep.About != "created" || rep.Experience != 1 || rep.Skills != 2 || rep.Projects != 1 || rep.Posts != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	about, err := s.GetAbout(ctx)
	if err != nil || about.FullName != "Jane Doe" {
		t.Fatalf("GetAbout = %+v, %v", about, err)
	}
	post, err := s.GetPost(ctx, "hello-world")
	if err != nil {
		t.Fatalf("seeded post not visible: %v", err)
	}
	if post.PublishedAt.Day() != 5 {
		t.Errorf("published_at = %v", post.PublishedAt)
	}
	if _, err := s.GetPost(ctx, "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("draft should stay hidden, got %v", err)
	}
}

func TestSeedTwiceUpdatesAboutAndSkipsPosts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if _, err := Seed(ctx, s, strings.NewReader(seedJSON)); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	rep, err := Seed(ctx, s, strings.NewReader(seedJSON))
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if rep.About != "updated" {
		t.Errorf("About = %q, want updated", rep.About)
	}
	if rep.Posts != 0 || len(rep.SkippedPosts) != 2 {
		t.Errorf("posts = %d skipped = %v, want 0 and 2", rep.Posts, rep.SkippedPosts)
	}
}

func TestSeedRejectsInvalidFileAtomically(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	bad := `{
	  "experience": [{"company_name": "Acme", "role": "Engineer", "period": "2021"}],
	  "projects": [{"description": "no title"}]
	}`
	_, err := Seed(ctx, s, strings.NewReader(bad))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Seed = %v, want ValidationError", err)
	}
	if len(ve.Fields["projects[0].title"]) == 0 {
		t.Errorf("expected projects[0].title error, got %v", ve.Fields)
	}

	list, _ := s.ListExperiences(ctx, ExperienceOrdering)
	if len(list) != 0 {
		t.Fatalf("invalid seed wrote %d experiences", len(list))
	}
}

func TestSeedRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	if _, err := s.db.Exec(`CREATE TRIGGER posts_fail BEFORE INSERT ON posts BEGIN SELECT RAISE(ABORT, 'disk full'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	rep, err := Seed(ctx, s, strings.NewReader(seedJSON))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Seed = %v, want the insert failure", err)
	}
	if rep.Experience != 0 || rep.About != "" {
		t.Errorf("report = %+v, want nothing counted", rep)
	}

	if _, err := s.GetAbout(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAbout = %v, want ErrNotFound after rollback", err)
	}
	exps, _ := s.ListExperiences(ctx, ExperienceOrdering)
	skills, _ := s.ListSkills(ctx, SkillOrdering)
	projects, _ := s.ListProjects(ctx, ProjectOrdering)
	if len(exps)+len(skills)+len(projects) != 0 {
		t.Fatalf("rollback left %d experiences, %d skills, %d projects", len(exps), len(skills), len(projects))
	}
}

func TestWithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	err := s.WithTx(ctx, func(tx *Store) error {
		_, err := tx.CreateProject(ctx, Project{Title: "Kept"})
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	list, _ := s.ListProjects(ctx, ProjectOrdering)
	if len(list) != 1 || list[0].Title != "Kept" {
		t.Fatalf("projects = %+v, want the committed one", list)
	}
}

func TestSeedMalformedJSON(t *testing.T) {
	if _, err := Seed(context.Background(), setupTestStore(t), strings.NewReader("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
