package internal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
	"strconv"
	"strings"
)

//go:embed templates/tutorial.html.tmpl
var templateFS embed.FS

var tutorialHTML = template.Must(template.New("tutorial.html.tmpl").Funcs(template.FuncMap{
	"join":    strings.Join,
	"clipSrc": ClipArchivePath,
	"seconds": formatClipSeconds,
}).ParseFS(templateFS, "templates/tutorial.html.tmpl"))

// ClipArchivePath is the path of a clip relative to index.html inside an
// exported bundle.
func ClipArchivePath(fileURL string) string {
	return "clips/" + path.Base(fileURL)
}

// RenderHTML renders a standalone HTML page. Clip sources point at
// clips/<file>, matching the layout written by WriteZip.
func RenderHTML(t Tutorial) ([]byte, error) {
	var buf bytes.Buffer
	if err := tutorialHTML.Execute(&buf, t); err != nil {
		return nil, fmt.Errorf("rendering tutorial html: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderMarkdownSource renders the tutorial as Markdown; clip links use
// their public URL.
func RenderMarkdownSource(t Tutorial) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", t.Title)
	if len(t.Tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n\n", strings.Join(t.Tags, ", "))
	}
	if t.DurationEstimate != "" {
		fmt.Fprintf(&sb, "**Read time:** %s\n\n", t.DurationEstimate)
	}
	if t.Introduction != "" {
		fmt.Fprintf(&sb, "%s\n\n", t.Introduction)
	}

	sb.WriteString("## Steps\n\n")
	for _, s := range t.Steps {
		fmt.Fprintf(&sb, "%d. %s\n\n", s.Index, s.Text)
		if s.VideoClip != nil && s.VideoClip.FileURL != "" {
			fmt.Fprintf(&sb, "   [Video clip: %ss - %ss](%s)\n\n",
				formatClipSeconds(s.VideoClip.Start), formatClipSeconds(s.VideoClip.End), s.VideoClip.FileURL)
		}
	}

	if len(t.Tips) > 0 {
		sb.WriteString("## Tips\n\n")
		for _, tip := range t.Tips {
			fmt.Fprintf(&sb, "- %s\n", tip)
		}
		sb.WriteString("\n")
	}

	if len(t.Examples) > 0 {
		sb.WriteString("## Examples\n\n")
		for _, ex := range t.Examples {
			fmt.Fprintf(&sb, "- %s\n", ex)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(t.Summary)
	sb.WriteString("\n")

	return sb.String()
}

func formatClipSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
