package server

import (
	"html/template"
	"io"
	"os"

	"github.com/ghindex/ghindex/internal/index"
)

// indexTemplate renders the root simple-index page: one link per
// repository short name.
const indexTemplate = `<!doctype html>
<html>
    <head>
        <title>Simple index</title>
        <style>
        html, body, a { margin: 0; padding: 0; border: 0; font-size: 100%; font: inherit; vertical-align: baseline; }
        body { line-height: 1; margin: .5rem}
        a { display: block; padding: .5rem 1rem; border: 1px solid #ccc; margin: .5rem; }
        a:hover { background: #eee; }
        </style>
    </head>
    <body>
{{- range .Names}}
        <a href="{{.}}/">{{.}}</a>
{{- end}}
    </body>
</html>
`

// repositoryTemplate renders one repository's release links.
const repositoryTemplate = `<!doctype html>
<html>
    <head>
        <title>{{.RepositoryName}}</title>
        <style>
        html, body, a { margin: 0; padding: 0; border: 0; font-size: 100%; font: inherit; vertical-align: baseline; }
        body { line-height: 1; margin: .5rem}
        a { display: block; padding: .5rem 1rem; border: 1px solid #ccc; margin: .5rem; }
        a:hover { background: #eee; }
        </style>
    </head>
    <body>
{{- range .Links}}
        <a href="{{.URL}}">{{.Name}}</a>
{{- end}}
    </body>
</html>
`

// Renderer holds the parsed index and repository templates. Deployments
// can override either template with a file via config.
type Renderer struct {
	index      *template.Template
	repository *template.Template
}

// NewRenderer parses the built-in templates, replacing them with the given
// files when paths are set.
func NewRenderer(indexPath, repositoryPath string) (*Renderer, error) {
	idx, err := loadTemplate("index", indexPath, indexTemplate)
	if err != nil {
		return nil, err
	}
	repo, err := loadTemplate("repository", repositoryPath, repositoryTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{index: idx, repository: repo}, nil
}

func loadTemplate(name, path, builtin string) (*template.Template, error) {
	text := builtin
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text = string(data)
	}
	return template.New(name).Parse(text)
}

// Index renders the root page.
func (r *Renderer) Index(w io.Writer, names []string) error {
	return r.index.Execute(w, struct{ Names []string }{Names: names})
}

// Repository renders one repository's release listing.
func (r *Renderer) Repository(w io.Writer, name string, links []index.Link) error {
	return r.repository.Execute(w, struct {
		RepositoryName string
		Links          []index.Link
	}{RepositoryName: name, Links: links})
}
