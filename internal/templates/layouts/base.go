package layouts

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/rezvo/bookinggrid/internal/models"
)

const htmxScript = "https://unpkg.com/htmx.org@2.0.4"

// Base wraps a page body with the document shell, the htmx script and the
// modal host that draft and detail fragments are swapped into.
func Base(title string, content templ.Component, resources []models.Resource) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>%s</title><style>%s</style><script src="%s"></script></head><body class="h-screen bg-white text-gray-900"><main class="h-full">`,
			templ.EscapeString(title), getResourceCssVars(resources), htmxScript); err != nil {
			return err
		}
		if err := content.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main><div id="modal"></div></body></html>`)
		return err
	})
}
