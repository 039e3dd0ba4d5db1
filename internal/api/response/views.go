package response

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cfi/selfservice/internal/api/web"
	"github.com/cfi/selfservice/internal/model"
)

// User is the signed-in user shown in the navigation bar.
type User struct {
	Name  string
	Email string
	Admin bool
}

// Page is the data every template is executed with.
type Page struct {
	Title         string
	User          *User
	Flashes       []string
	Notifications []model.AccessRequest
	Error         string
	Data          any
}

// ErrorData is the Data of the error page.
type ErrorData struct {
	Message string
}

var funcs = template.FuncMap{
	"lower": strings.ToLower,
	"pages": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
}

// Views renders the embedded page templates, each wrapped in the layout.
type Views struct {
	pages map[string]*template.Template
}

// NewViews parses every page under templates/pages. The templates are
// embedded, so a parse failure is a programming error and panics.
func NewViews() *Views {
	files, err := fs.Glob(web.Templates, "templates/pages/*.html")
	if err != nil {
		panic(err)
	}

	v := &Views{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		v.pages[name] = template.Must(
			template.New(name).Funcs(funcs).ParseFS(web.Templates, "templates/layout.html", f),
		)
	}
	return v
}

// Has reports whether a page template called name exists.
func (v *Views) Has(name string) bool {
	_, ok := v.pages[name]
	return ok
}

// Render executes page name into a buffer and writes it with status.
func (v *Views) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) {
	t, ok := v.pages[name]
	if !ok {
		zerolog.Ctx(r.Context()).Error().Str("template", name).Msg("unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("render template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Error renders the error page without navigation.
func (v *Views) Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	v.Render(w, r, status, "error", Page{
		Title: ErrorTitle(status),
		Data:  ErrorData{Message: message},
	})
}
