package folio

import (
	"bytes"
	"context"

	"github.com/eringen/folio/markdown"
)

// renderMarkdown renders a post body to HTML through the markdown component.
func renderMarkdown(ctx context.Context, md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Markdown(md).Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
