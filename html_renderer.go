package tideline

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

// HtmlRenderer executes a template with the *PageResult[T] as its data.
type HtmlRenderer[T any] struct {
	Logger   zerolog.Logger
	Template *template.Template
}

func (renderer HtmlRenderer[T]) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	message, status := errorStatus(err)
	if status == http.StatusInternalServerError {
		renderer.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("page request failed")
		message = "Internal server error"
	}

	w.WriteHeader(status)
	w.Write([]byte(message))
}

func (renderer HtmlRenderer[T]) RenderPage(w http.ResponseWriter, r *http.Request, page *PageResult[T]) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Template.Execute(w, page); err != nil {
		renderer.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("page render failed")
	}
}

// Html parses a template file and panics when it cannot.
func Html[T any](templatePath string) HtmlRenderer[T] {
	tmpl, err := template.ParseFiles(templatePath)
	if err != nil {
		panic("tideline: " + err.Error())
	}
	return HtmlRenderer[T]{Template: tmpl}
}

func ListHtml[T any](paginator *Paginator[T], templatePath string, defaultLimit int) http.HandlerFunc {
	renderer := Html[T](templatePath)
	renderer.Logger = paginator.Config.Logger
	return List[T](paginator, renderer, defaultLimit)
}
