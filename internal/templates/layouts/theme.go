package layouts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rezvo/bookinggrid/internal/models"
)

var cssIdentUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// getResourceCssVars exposes each team member's tint as --resource-<id> so
// chips and legends outside the grid can reuse it.
func getResourceCssVars(resources []models.Resource) string {
	var b strings.Builder
	b.WriteString(":root{")
	fmt.Fprintf(&b, "--theme-primary:%s;--resource-unassigned:%s;", models.DefaultResourceColor, models.UnassignedColumnColor)
	for _, resource := range resources {
		name := cssIdentUnsafe.ReplaceAllString(strings.TrimSpace(resource.ID), "-")
		if name == "" {
			continue
		}
		fmt.Fprintf(&b, "--resource-%s:%s;", name, resource.DisplayColor())
	}
	b.WriteString("}")
	return b.String()
}
