// internal/models/resource.go
package models

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultResourceColor   = "#2563eb"
	UnassignedColumnColor  = "#6b7280"
	maxResourceNameLength  = 100
	maxServiceNameLength   = 120
	defaultServiceDuration = 60
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func IsHexColor(value string) bool {
	return hexColorRegex.MatchString(strings.TrimSpace(value))
}

// Resource is a team member that owns a calendar column.
type Resource struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	AvatarURL string `json:"avatar,omitempty"`
}

// DisplayColor returns the resource tint, falling back to the default when the
// backend sends something that is not a 6-digit hex color.
func (r Resource) DisplayColor() string {
	trimmed := strings.TrimSpace(r.Color)
	if !IsHexColor(trimmed) {
		return DefaultResourceColor
	}
	return trimmed
}

func (r Resource) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("id is required")
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxResourceNameLength {
		return fmt.Errorf("name must be %d characters or fewer", maxResourceNameLength)
	}
	if r.Color != "" && !IsHexColor(r.Color) {
		return fmt.Errorf("color must be a 6-digit hex color like #AABBCC")
	}
	return nil
}

type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           int64  `json:"price"`
}

// DefaultDuration is the duration the draft form proposes for this service.
func (s Service) DefaultDuration() int {
	if s.DurationMinutes <= 0 {
		return defaultServiceDuration
	}
	return s.DurationMinutes
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("id is required")
	}
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxServiceNameLength {
		return fmt.Errorf("name must be %d characters or fewer", maxServiceNameLength)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}
	if s.Price < 0 {
		return fmt.Errorf("price must be 0 or greater")
	}
	return nil
}

// FormatPrice renders an amount in pence as pounds.
func FormatPrice(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s£%d.%02d", sign, pence/100, pence%100)
}
