package http

import (
	"html/template"

	"github.com/GriffinCanCode/snippetlab/internal/catalog"
)

const viewTemplateName = "view"

// Rendered snippet output is inserted pre-serialized; everything else is
// escaped by html/template.
const viewPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Snippet.Title}}</title>
</head>
<body>
<header>
<h1>{{.Snippet.Title}}</h1>
<p class="meta">{{.Snippet.ID}} · {{.Snippet.Category}}</p>
{{with .Snippet.Description}}<p class="description">{{.}}</p>{{end}}
</header>
<main class="result {{.Kind}}">{{.Body}}</main>
</body>
</html>
`

type viewData struct {
	Snippet catalog.Snippet
	Kind    string
	Body    template.HTML
}

// ViewTemplate returns the template the router must be configured with for
// the view endpoint.
func ViewTemplate() *template.Template {
	return template.Must(template.New(viewTemplateName).Parse(viewPage))
}
