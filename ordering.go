package folio

import (
	"fmt"
	"strings"
)

// OrderBy is one sort key of an Ordering.
type OrderBy struct {
	Column string
	Desc   bool
}

// Ordering is the explicit sort applied by the Store's list operations.
// Every ordering is completed with "id ASC", so equal keys keep insertion order.
type Ordering []OrderBy

// Default orderings for the public lists.
var (
	ExperienceOrdering = Ordering{{Column: "sort_order"}}
	SkillOrdering      = Ordering{{Column: "category"}, {Column: "sort_order"}}
	ProjectOrdering    = Ordering{{Column: "sort_order"}}
	PostOrdering       = Ordering{{Column: "published_at", Desc: true}}
)

var sortableColumns = map[string]map[string]bool{
	"experiences": {"sort_order": true, "company_name": true, "created_at": true},
	"skills":      {"category": true, "sort_order": true, "created_at": true},
	"projects":    {"sort_order": true, "title": true, "created_at": true},
	"posts":       {"published_at": true, "title": true, "created_at": true},
}

// clause renders o as an ORDER BY clause for table. Unknown columns are
// rejected so the ordering can never carry arbitrary SQL.
func (o Ordering) clause(table string) (string, error) {
	allowed := sortableColumns[table]
	parts := make([]string, 0, len(o)+1)
	for _, ob := range o {
		if !allowed[ob.Column] {
			return "", fmt.Errorf("order %s by %q: unsupported column", table, ob.Column)
		}
		dir := "ASC"
		if ob.Desc {
			dir = "DESC"
		}
		parts = append(parts, ob.Column+" "+dir)
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}
