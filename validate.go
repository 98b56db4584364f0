package folio

import (
	"fmt"
	"net/mail"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema names, one per file under schema/.
const (
	schemaAbout      = "about"
	schemaExperience = "experience"
	schemaSkill      = "skill"
	schemaProject    = "project"
	schemaPost       = "post"
	schemaContact    = "contact"
)

var schemas = mustLoadSchemas()

// addrOnlyEmail accepts a bare address only. The library default goes
// through mail.ParseAddress, which also takes "Name <addr>" forms.
type addrOnlyEmail struct{}

func (addrOnlyEmail) IsFormat(input any) bool {
	s, ok := input.(string)
	if !ok {
		return true
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func mustLoadSchemas() map[string]*gojsonschema.Schema {
	gojsonschema.FormatCheckers.Add("email", addrOnlyEmail{})

	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		panic("folio: read schemas: " + err.Error())
	}
	out := make(map[string]*gojsonschema.Schema, len(entries))
	for _, e := range entries {
		data, err := schemaFS.ReadFile(path.Join("schema", e.Name()))
		if err != nil {
			panic("folio: read schema " + e.Name() + ": " + err.Error())
		}
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			panic("folio: compile schema " + e.Name() + ": " + err.Error())
		}
		out[strings.TrimSuffix(e.Name(), ".json")] = s
	}
	return out
}

// validateDocument checks doc against the named schema and converts every
// failure into a per-field message.
func validateDocument(name string, doc gojsonschema.JSONLoader) error {
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("validate: unknown schema %q", name)
	}
	res, err := s.Validate(doc)
	if err != nil {
		ve := &ValidationError{}
		ve.Add("body", "The request body must be a valid JSON object.")
		return ve
	}
	if res.Valid() {
		return nil
	}
	ve := &ValidationError{}
	for _, e := range res.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if p, ok := e.Details()["property"].(string); ok {
				if field == "(root)" {
					field = p
				} else {
					field += "." + p
				}
			}
		}
		if field == "(root)" {
			field = "body"
		}
		ve.Add(field, fieldMessage(field, e))
	}
	return ve
}

func fieldMessage(field string, e gojsonschema.ResultError) string {
	label := strings.ReplaceAll(field, "_", " ")
	switch e.Type() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "string_gte":
		return fmt.Sprintf("The %s field is required.", label)
	case "string_lte":
		return fmt.Sprintf("The %s field must not be greater than %v characters.", label, e.Details()["max"])
	case "format":
		if e.Details()["format"] == "email" {
			return fmt.Sprintf("The %s field must be a valid email address.", label)
		}
	case "enum":
		return fmt.Sprintf("The selected %s is invalid.", label)
	}
	return e.Description()
}
