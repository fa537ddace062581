package tideline

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

type PageRenderer[T any] interface {
	RenderError(http.ResponseWriter, *http.Request, error)
	RenderPage(http.ResponseWriter, *http.Request, *PageResult[T])
}

type JsonRenderer[T any] struct {
	Logger zerolog.Logger
}

func (renderer JsonRenderer[T]) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	message, status := errorStatus(err)
	if status == http.StatusInternalServerError {
		renderer.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("page request failed")
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	responseJson(w, map[string]any{"error": message})
}

func (renderer JsonRenderer[T]) RenderPage(w http.ResponseWriter, r *http.Request, page *PageResult[T]) {
	w.Header().Set("Content-Type", "application/json")
	responseJson(w, page)
}

func Json[T any]() JsonRenderer[T] {
	return JsonRenderer[T]{}
}

// List serves pages read from the request's query string.
func List[T any](paginator *Paginator[T], renderer PageRenderer[T], defaultLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			renderer.RenderError(w, r, ErrorMethodNotAllowed{AllowedMethod: http.MethodGet})
			return
		}
		args, err := PageArgsFromQuery(r.URL.Query(), defaultLimit)
		if err != nil {
			renderer.RenderError(w, r, err)
			return
		}
		request, err := args.Request()
		if err != nil {
			renderer.RenderError(w, r, err)
			return
		}
		page, err := paginator.Resolve(r.Context(), request).Collect()
		if err != nil {
			renderer.RenderError(w, r, err)
			return
		}
		renderer.RenderPage(w, r, page)
	}
}

func ListJson[T any](paginator *Paginator[T], defaultLimit int) http.HandlerFunc {
	return List[T](paginator, JsonRenderer[T]{Logger: paginator.Config.Logger}, defaultLimit)
}

type ErrorMethodNotAllowed struct {
	AllowedMethod string
}

func (err ErrorMethodNotAllowed) Error() string {
	if err.AllowedMethod != "" {
		return "Method not allowed. Must be " + err.AllowedMethod
	}
	return "Method not allowed"
}

func (err ErrorMethodNotAllowed) Status() int {
	return http.StatusMethodNotAllowed
}

func errorStatus(err error) (string, int) {
	var ev ErrorWithStatus
	if errors.As(err, &ev) {
		return ev.Error(), ev.Status()
	}
	return err.Error(), http.StatusInternalServerError
}

func responseJson(w http.ResponseWriter, data any) {
	if err := (&JSONStreamer{Value: data}).Write(w).Error; err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
