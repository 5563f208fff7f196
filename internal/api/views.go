package api

import (
	"html/template"
	"net/http"

	"creative-funding/internal/guard"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} | Creative Score Hub</title></head>
<body>
<main>
<h1>{{.Title}}</h1>
{{if .Email}}<p>Signed in as {{.Email}}</p>{{end}}
{{template "body" .}}
</main>
</body>
</html>{{end}}

{{define "body"}}{{end}}
`))

var (
	loginPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
<form id="signin" data-endpoint="/api/auth/signin">
<input type="email" name="email" required>
<input type="password" name="password" required>
<input type="hidden" name="next" value="{{.Next}}">
<button type="submit">Sign in</button>
</form>{{end}}`))

	dashboardPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
<section data-source="/api/applications"></section>
<section data-source="/api/credit-score"></section>
{{if .AdminAccess}}<a href="/admin">Review applications</a>{{end}}{{end}}`))

	adminPage = template.Must(template.Must(pages.Clone()).Parse(`{{define "body"}}
<section data-source="/api/admin/stats"></section>
<section data-source="/api/admin/applications"></section>{{end}}`))
)

type pageData struct {
	Title       string
	Email       string
	Next        string
	AdminAccess bool
}

func (s *Server) render(w http.ResponseWriter, page *template.Template, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.ExecuteTemplate(w, "layout", data); err != nil {
		s.logger.Error("Page render failed", map[string]interface{}{"title": data.Title, "error": err.Error()})
	}
}

func (s *Server) handleLoginView(w http.ResponseWriter, r *http.Request) {
	s.render(w, loginPage, pageData{
		Title: "Sign in",
		Next:  guard.ResumeDestination(r.URL.Query().Get("next")),
	})
}

func (s *Server) handleDashboardView(w http.ResponseWriter, r *http.Request) {
	state := guard.StateFromContext(r.Context())
	s.render(w, dashboardPage, pageData{
		Title:       "Dashboard",
		Email:       state.Identity.Email,
		AdminAccess: state.Access.HasAdminAccess,
	})
}

func (s *Server) handleAdminView(w http.ResponseWriter, r *http.Request) {
	state := guard.StateFromContext(r.Context())
	s.render(w, adminPage, pageData{
		Title:       "Review Dashboard",
		Email:       state.Identity.Email,
		AdminAccess: true,
	})
}
