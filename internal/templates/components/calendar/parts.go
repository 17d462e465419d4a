package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const closeModalScript = `document.getElementById('modal').innerHTML=''`

// CloseModalButton empties #modal without a round trip.
func CloseModalButton(label string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<button type="button" class="rounded-md px-3 py-1.5 text-sm text-gray-700 hover:bg-gray-100" onclick="%s">%s</button>`,
			esc(closeModalScript), esc(label))
		return err
	})
}

func HiddenInput(name, value string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<input type="hidden" name="%s" value="%s">`, esc(name), esc(value))
		return err
	})
}

// FieldError renders the inline reason for field, or nothing when the field
// is valid.
func FieldError(field string, errs map[string]string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		reason, ok := errs[field]
		if !ok {
			return nil
		}
		_, err := fmt.Fprintf(w, `<span class="mt-1 block text-xs text-red-600" data-field-error="%s">%s</span>`, esc(field), esc(reason))
		return err
	})
}

// writeComponent renders a child component into buf. Writes to a
// bytes.Buffer do not fail, so the error is dropped.
func writeComponent(ctx context.Context, buf *bytes.Buffer, c templ.Component) {
	_ = c.Render(ctx, buf)
}
