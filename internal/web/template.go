package web

import (
	"html/template"
	"io"
	"strings"

	"github.com/russross/blackfriday/v2"
)

const layout = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }} - imgreader</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; color: #222; }
img { max-width: 200px; vertical-align: middle; margin-right: .5rem; border-radius: 4px; }
blockquote { margin: .25rem 0 1rem 1rem; padding-left: .75rem; border-left: 3px solid #ccc; color: #555; }
code { background: #f3f3f3; padding: 0 .25rem; }
</style>
</head>
<body>
{{ markdown .Content }}
</body>
</html>
`

var (
	// TemplateFuncMap contains the functions available to the layout
	TemplateFuncMap = template.FuncMap{
		"markdown": func(text string) template.HTML {
			return template.HTML(blackfriday.Run([]byte(text), blackfriday.WithRenderer(renderer())))
		},
	}

	pageTemplate = template.Must(template.New("layout").Funcs(TemplateFuncMap).Parse(layout))
)

// renderer drops raw HTML: evaluation text comes from a model.
func renderer() blackfriday.Renderer {
	return blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
		Flags: blackfriday.CommonHTMLFlags | blackfriday.SkipHTML,
	})
}

// TemplateContent is one rendered page: a title and a markdown body
type TemplateContent struct {
	Title   string
	Content string
}

func ExecTemplate(w io.Writer, content TemplateContent) error {
	return pageTemplate.Execute(w, content)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"!", `\!`,
)

// escapeMarkdown keeps user supplied names from being read as markup.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// quote renders text as a markdown block quote.
func quote(text string) string {
	return "> " + strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n> ")
}

func stringOr(str, or string) string {
	if str != "" {
		return str
	}
	return or
}
