package layouts

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/rezvo/bookinggrid/internal/models"
)

func TestGetResourceCssVars(t *testing.T) {
	vars := getResourceCssVars([]models.Resource{
		{ID: "res a", Color: "#10b981"},
		{ID: "res-b", Color: "teal"},
		{ID: "  "},
	})

	for _, want := range []string{
		"--theme-primary:#2563eb;",
		"--resource-unassigned:#6b7280;",
		"--resource-res-a:#10b981;",
		"--resource-res-b:#2563eb;",
	} {
		if !strings.Contains(vars, want) {
			t.Fatalf("expected %q in %q", want, vars)
		}
	}
	if strings.Contains(vars, "--resource-:") {
		t.Fatalf("blank resource id should be skipped: %q", vars)
	}
}

func TestBaseWrapsContent(t *testing.T) {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p id="body">hi</p>`)
		return err
	})

	var buf bytes.Buffer
	if err := Base("Calendar <June>", body, nil).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "<title>Calendar &lt;June&gt;</title>") {
		t.Fatalf("title not escaped: %s", html)
	}
	if !strings.Contains(html, `<main class="h-full"><p id="body">hi</p></main>`) {
		t.Fatalf("content not wrapped: %s", html)
	}
	if !strings.Contains(html, `<div id="modal"></div>`) {
		t.Fatalf("missing modal host: %s", html)
	}
}
