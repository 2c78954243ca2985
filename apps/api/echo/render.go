package echoapi

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
)

type formField struct {
	Label string
	Type  string
	Name  string
	Value string
	Error string
}

var funcMap = template.FuncMap{
	"field": func(label, typ, name, value string, errs map[string]string) formField {
		return formField{Label: label, Type: typ, Name: name, Value: value, Error: errs[name]}
	},
	"csrf": func() string { return "" }, // bound to the request's token on render
}

// templateRenderer renders the console pages, each one layered on top of `_layout.gohtml`.
type templateRenderer struct {
	pages map[string]*template.Template // {name: page}
}

var _ echo.Renderer = (*templateRenderer)(nil)

func newTemplateRenderer(fsys fs.FS, dir string) (*templateRenderer, error) {
	fps, err := fs.Glob(fsys, path.Join(dir, "*.gohtml"))
	if err != nil {
		return nil, errors.Wrap(err, "listing console templates")
	}

	r := &templateRenderer{pages: make(map[string]*template.Template)}
	for _, fp := range fps {
		fname := path.Base(fp)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		tmpl, err := template.New(fname).Funcs(funcMap).ParseFS(fsys, path.Join(dir, "_layout.gohtml"), fp)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", fp)
		}
		r.pages[strings.TrimSuffix(fname, ".gohtml")] = tmpl
	}
	return r, nil
}

func (r *templateRenderer) Render(w io.Writer, name string, data interface{}, ctx echo.Context) error {
	page, ok := r.pages[name]
	if !ok {
		// the templates are embedded: a missing page is a broken build
		return core.NewShutdownError(fmt.Sprintf("console template %q not found", name))
	}

	var csrfToken string
	if ctx != nil {
		csrfToken, _ = ctx.Get(contextCSRFKey).(string)
	}
	// pages are never executed themselves, so they can always be cloned
	tmpl, err := page.Clone()
	if err != nil {
		return errors.Wrapf(err, "cloning %s", name)
	}
	tmpl.Funcs(template.FuncMap{"csrf": func() string { return csrfToken }})
	return tmpl.ExecuteTemplate(w, "layout", data)
}
