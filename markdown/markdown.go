// Package markdown renders the markdown subset used in post bodies and
// derives plain-text facts from it (excerpt, word count, reading time).
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
)

// WordsPerMinute is the reading speed behind ReadingTime.
const WordsPerMinute = 200

var (
	reHeading     = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	reOrderedItem = regexp.MustCompile(`^\d+[.)]\s+(.*)$`)
	reBulletItem  = regexp.MustCompile(`^[-*+]\s+(.*)$`)
	reRule        = regexp.MustCompile(`^(\*\s*){3,}$|^(-\s*){3,}$|^(_\s*){3,}$`)

	reImage  = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	reLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	reCode   = regexp.MustCompile("`([^`]+)`")
	reStrong = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	reEm     = regexp.MustCompile(`\*([^*]+)\*|\b_([^_]+)_\b`)
)

// Markdown returns a templ.Component that renders md as HTML.
func Markdown(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderMarkdown(&buf, md)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

type blockKind int

const (
	blockNone blockKind = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockCode
)

// RenderMarkdown writes the HTML representation of md to buf.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	open := blockNone
	closeBlock := func() {
		switch open {
		case blockPara:
			buf.WriteString("</p>\n")
		case blockList:
			buf.WriteString("</ul>\n")
		case blockOrdered:
			buf.WriteString("</ol>\n")
		case blockQuote:
			buf.WriteString("</p></blockquote>\n")
		case blockCode:
			buf.WriteString("</code></pre>\n")
		}
		open = blockNone
	}

	for _, raw := range strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if open == blockCode {
				closeBlock()
				continue
			}
			closeBlock()
			lang := strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
			if lang != "" {
				buf.WriteString(`<pre><code class="language-` + html.EscapeString(lang) + `">`)
			} else {
				buf.WriteString("<pre><code>")
			}
			open = blockCode
			continue
		}
		if open == blockCode {
			buf.WriteString(html.EscapeString(raw))
			buf.WriteByte('\n')
			continue
		}

		switch {
		case trimmed == "":
			closeBlock()
		case reRule.MatchString(trimmed):
			closeBlock()
			buf.WriteString("<hr>\n")
		case reHeading.MatchString(trimmed):
			closeBlock()
			m := reHeading.FindStringSubmatch(trimmed)
			level := string('0' + byte(len(m[1])))
			buf.WriteString("<h" + level + ">" + FormatInline(m[2]) + "</h" + level + ">\n")
		case reBulletItem.MatchString(trimmed):
			if open != blockList {
				closeBlock()
				buf.WriteString("<ul>\n")
				open = blockList
			}
			buf.WriteString("<li>" + FormatInline(reBulletItem.FindStringSubmatch(trimmed)[1]) + "</li>\n")
		case reOrderedItem.MatchString(trimmed):
			if open != blockOrdered {
				closeBlock()
				buf.WriteString("<ol>\n")
				open = blockOrdered
			}
			buf.WriteString("<li>" + FormatInline(reOrderedItem.FindStringSubmatch(trimmed)[1]) + "</li>\n")
		case strings.HasPrefix(trimmed, ">"):
			text := FormatInline(strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
			if open == blockQuote {
				buf.WriteString(" " + text)
				continue
			}
			closeBlock()
			buf.WriteString("<blockquote><p>" + text)
			open = blockQuote
		default:
			if open == blockPara {
				buf.WriteString(" " + FormatInline(trimmed))
				continue
			}
			closeBlock()
			buf.WriteString("<p>" + FormatInline(trimmed))
			open = blockPara
		}
	}
	closeBlock()
}

// FormatInline escapes s and applies inline markup: code spans, images,
// links, strong and emphasis. Code spans are protected from further markup.
func FormatInline(s string) string {
	s = html.EscapeString(s)

	var spans []string
	s = reCode.ReplaceAllStringFunc(s, func(m string) string {
		spans = append(spans, "<code>"+reCode.FindStringSubmatch(m)[1]+"</code>")
		return "\x00" + string(rune('0'+len(spans)-1)) + "\x00"
	})

	s = reImage.ReplaceAllStringFunc(s, func(m string) string {
		sm := reImage.FindStringSubmatch(m)
		return `<img src="` + SafeURL(html.UnescapeString(sm[2])) + `" alt="` + sm[1] + `" loading="lazy">`
	})
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		sm := reLink.FindStringSubmatch(m)
		return `<a href="` + SafeURL(html.UnescapeString(sm[2])) + `">` + sm[1] + `</a>`
	})
	s = reStrong.ReplaceAllStringFunc(s, func(m string) string {
		sm := reStrong.FindStringSubmatch(m)
		return "<strong>" + sm[1] + sm[2] + "</strong>"
	})
	s = reEm.ReplaceAllStringFunc(s, func(m string) string {
		sm := reEm.FindStringSubmatch(m)
		return "<em>" + sm[1] + sm[2] + "</em>"
	})

	for i, span := range spans {
		s = strings.Replace(s, "\x00"+string(rune('0'+i))+"\x00", span, 1)
	}
	return s
}

// SafeURL returns raw escaped for an attribute when it is a relative URL or
// uses http, https or mailto; anything else becomes "#".
func SafeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return html.EscapeString(u.String())
	}
	return "#"
}

// PlainText strips markup from md, leaving the readable words.
func PlainText(md string) string {
	var b strings.Builder
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inCode = !inCode
			continue
		}
		if !inCode {
			switch {
			case reRule.MatchString(trimmed):
				continue
			case reHeading.MatchString(trimmed):
				trimmed = reHeading.FindStringSubmatch(trimmed)[2]
			case reBulletItem.MatchString(trimmed):
				trimmed = reBulletItem.FindStringSubmatch(trimmed)[1]
			case reOrderedItem.MatchString(trimmed):
				trimmed = reOrderedItem.FindStringSubmatch(trimmed)[1]
			case strings.HasPrefix(trimmed, ">"):
				trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, ">"))
			}
			trimmed = reImage.ReplaceAllString(trimmed, "$1")
			trimmed = reLink.ReplaceAllString(trimmed, "$1")
			trimmed = reCode.ReplaceAllString(trimmed, "$1")
			trimmed = reStrong.ReplaceAllString(trimmed, "$1$2")
			trimmed = reEm.ReplaceAllString(trimmed, "$1$2")
		}
		if trimmed == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(trimmed)
	}
	return b.String()
}

// WordCount counts whitespace-separated words in the plain text of md.
func WordCount(md string) int {
	return len(strings.Fields(PlainText(md)))
}

// ReadingTime is WordCount / WordsPerMinute rounded up, in minutes.
func ReadingTime(md string) int {
	words := WordCount(md)
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// Excerpt returns at most max runes of md's plain text, cut at a word
// boundary and suffixed with an ellipsis when shortened.
func Excerpt(md string, max int) string {
	text := PlainText(md)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
