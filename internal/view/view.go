// Package view renders the HTMX fragments the dashboard swaps into its
// pages: select options, the upload list, the delete modal and badges.
//
// Full pages are html/template files rendered by the handler package. The
// fragments here are html/template files too, embedded in the binary and
// exposed as templ components so handlers can return them on their own or
// embed them in a page through the "component" template function.
package view

import (
	"context"
	"embed"
	"html/template"

	"github.com/a-h/templ"
	twmerge "github.com/Oudwins/tailwind-merge-go"
)

//go:embed fragments/*.html
var fragmentFS embed.FS

var fragments = template.Must(template.New("").Funcs(template.FuncMap{
	"classes":   classes,
	"humanSize": humanSize,
}).ParseFS(fragmentFS, "fragments/*.html"))

// fragment binds the named template to data.
func fragment(name string, data any) templ.Component {
	return templ.FromGoHTML(fragments.Lookup(name), data)
}

// classes merges Tailwind class lists; later lists win on conflicts.
func classes(base string, extra ...string) string {
	return twmerge.Merge(append([]string{base}, extra...)...)
}

// HTML renders c for use inside an html/template page.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	return templ.ToGoHTML(ctx, c)
}
