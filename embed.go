package folio

import "embed"

// schemaFS holds the JSON schemas that admin payloads, contact submissions
// and seed files are validated against.
//
//go:embed schema/*.json
var schemaFS embed.FS
