package folio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/xeipuuv/gojsonschema"
)

// SeedData is the content file accepted by Seed. Every section is optional.
type SeedData struct {
	About      json.RawMessage   `json:"about"`
	Experience []json.RawMessage `json:"experience"`
	Skills     []json.RawMessage `json:"skills"`
	Projects   []json.RawMessage `json:"projects"`
	Posts      []json.RawMessage `json:"posts"`
}

// SeedReport counts what Seed wrote.
type SeedReport struct {
	About        string // "created", "updated" or ""
	Experience   int
	Skills       int
	Projects     int
	Posts        int
	SkippedPosts []string // slugs that already existed
}

// Seed validates every record in r against its schema and, only if all of
// them pass, writes them to s in a single transaction. An existing About profile is updated rather
// than duplicated; posts whose slug is taken are skipped.
func Seed(ctx context.Context, s *Store, r io.Reader) (SeedReport, error) {
	var rep SeedReport
	var data SeedData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return rep, fmt.Errorf("seed: decode: %w", err)
	}

	var about *About
	if len(data.About) > 0 && string(data.About) != "null" {
		about = &About{}
		if err := seedRecord(schemaAbout, "about", data.About, about); err != nil {
			return rep, err
		}
	}
	experience, err := seedSection[Experience](schemaExperience, "experience", data.Experience)
	if err != nil {
		return rep, err
	}
	skills, err := seedSection[Skill](schemaSkill, "skills", data.Skills)
	if err != nil {
		return rep, err
	}
	projects, err := seedSection[Project](schemaProject, "projects", data.Projects)
	if err != nil {
		return rep, err
	}
	posts, err := seedSection[Post](schemaPost, "posts", data.Posts)
	if err != nil {
		return rep, err
	}
	for i := range posts {
		if err := normalizePost(&posts[i], s.now()); err != nil {
			return rep, prefixed(fmt.Sprintf("posts[%d]", i), err)
		}
	}

	err = s.WithTx(ctx, func(tx *Store) error {
		if about != nil {
			if _, err := tx.CreateAbout(ctx, *about); err == nil {
				rep.About = "created"
			} else if errors.Is(err, ErrConflict) {
				if _, err := tx.UpdateAbout(ctx, *about); err != nil {
					return err
				}
				rep.About = "updated"
			} else {
				return err
			}
		}
		for _, e := range experience {
			if _, err := tx.CreateExperience(ctx, e); err != nil {
				return err
			}
			rep.Experience++
		}
		for _, sk := range skills {
			if _, err := tx.CreateSkill(ctx, sk); err != nil {
				return err
			}
			rep.Skills++
		}
		for _, p := range projects {
			if _, err := tx.CreateProject(ctx, p); err != nil {
				return err
			}
			rep.Projects++
		}
		for _, p := range posts {
			if _, err := tx.CreatePost(ctx, p); err != nil {
				if errors.Is(err, ErrConflict) {
					rep.SkippedPosts = append(rep.SkippedPosts, p.Slug)
					continue
				}
				return err
			}
			rep.Posts++
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("seed: %w", err)
	}
	return rep, nil
}

func seedSection[T any](schema, section string, raw []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := seedRecord(schema, fmt.Sprintf("%s[%d]", section, i), item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func seedRecord(schema, where string, raw json.RawMessage, dst any) error {
	if err := validateDocument(schema, gojsonschema.NewBytesLoader(raw)); err != nil {
		return prefixed(where, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("seed: %s: %w", where, err)
	}
	return nil
}

// prefixed qualifies validation field names with the record they belong to.
func prefixed(where string, err error) error {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("seed: %s: %w", where, err)
	}
	out := &ValidationError{}
	for field, msgs := range ve.Fields {
		for _, m := range msgs {
			out.Add(where+"."+field, m)
		}
	}
	return out
}
