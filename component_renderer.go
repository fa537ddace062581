package tideline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
)

// ComponentRenderer renders pages as HTML through templ components.
type ComponentRenderer[T any] struct {
	Component func(*PageResult[T]) templ.Component
	Logger    zerolog.Logger
}

func (renderer ComponentRenderer[T]) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	message, status := errorStatus(err)
	if status == http.StatusInternalServerError {
		renderer.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("page request failed")
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

func (renderer ComponentRenderer[T]) RenderPage(w http.ResponseWriter, r *http.Request, page *PageResult[T]) {
	if renderer.Component == nil {
		renderer.RenderError(w, r, fmt.Errorf("tideline: ComponentRenderer has no component"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderer.Component(page).Render(r.Context(), w); err != nil {
		renderer.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("page render failed")
	}
}

func Component[T any](component func(*PageResult[T]) templ.Component) ComponentRenderer[T] {
	return ComponentRenderer[T]{Component: component}
}

func ListComponent[T any](paginator *Paginator[T], component func(*PageResult[T]) templ.Component, defaultLimit int) http.HandlerFunc {
	return List[T](paginator, ComponentRenderer[T]{Component: component, Logger: paginator.Config.Logger}, defaultLimit)
}

// FeedComponent renders the nodes of a page as list items followed by the
// controls a feed needs: a "show new" button when newer rows exist and a
// "load more" link when older rows exist. The data attributes carry the
// offsets and anchor the client sends back.
func FeedComponent[T any](page *PageResult[T], item func(T) templ.Component, moreHref func(PageInfo) string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		anchor := templ.EscapeString(page.Info.NextAnchor.String())
		if _, err := fmt.Fprintf(w, `<ol class="feed" data-anchor="%s">`, anchor); err != nil {
			return err
		}
		if page.Info.HasNew {
			if _, err := fmt.Fprintf(w, `<li class="feed-new"><button type="button" data-count-new="%d">%d new</button></li>`, page.Info.CountNew, page.Info.CountNew); err != nil {
				return err
			}
		}
		for _, node := range page.Nodes {
			if _, err := io.WriteString(w, "<li>"); err != nil {
				return err
			}
			if err := item(node).Render(ctx, w); err != nil {
				return err
			}
			if _, err := io.WriteString(w, "</li>"); err != nil {
				return err
			}
		}
		if page.Info.HasMore && moreHref != nil {
			href := templ.EscapeString(string(templ.URL(moreHref(page.Info))))
			if _, err := fmt.Fprintf(w, `<li class="feed-more"><a href="%s" data-offset="%d">Load more</a></li>`, href, page.Info.MoreOffset); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ol>")
		return err
	})
}
