package calendar

import (
	"sort"
	"strings"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

// Unassigned keys bookings that have no team member.
const Unassigned = "unassigned"

func ResourceKey(b models.Booking) string {
	if !b.IsAssigned() {
		return Unassigned
	}
	return strings.TrimSpace(*b.ResourceID)
}

// Index groups a snapshot's bookings by local calendar date. Every booking is
// kept, duplicates included; within a date bookings are ordered by start,
// then id.
type Index struct {
	loc    *time.Location
	byDate map[string][]models.Booking
	total  int
}

// NewIndex buckets bookings by the date of their start instant as seen in loc.
// A nil loc means time.Local.
func NewIndex(bookings []models.Booking, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}
	idx := &Index{
		loc:    loc,
		byDate: make(map[string][]models.Booking),
		total:  len(bookings),
	}
	for _, booking := range bookings {
		key := DateKey(booking.Start.In(loc))
		idx.byDate[key] = append(idx.byDate[key], booking)
	}
	for _, bucket := range idx.byDate {
		sort.SliceStable(bucket, func(i, j int) bool {
			if !bucket[i].Start.Equal(bucket[j].Start) {
				return bucket[i].Start.Before(bucket[j].Start)
			}
			return bucket[i].ID < bucket[j].ID
		})
	}
	return idx
}

func (idx *Index) Location() *time.Location {
	return idx.loc
}

func (idx *Index) Len() int {
	return idx.total
}

// Keys returns the indexed date keys in ascending order.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.byDate))
	for key := range idx.byDate {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ForDate returns the bookings on date's calendar day. The slice is shared
// with the index and must not be modified.
func (idx *Index) ForDate(date time.Time) []models.Booking {
	return idx.byDate[DateKey(date)]
}

func (idx *Index) ForKey(key string) []models.Booking {
	return idx.byDate[key]
}

func (idx *Index) Count(date time.Time) int {
	return len(idx.byDate[DateKey(date)])
}

// ByResource splits a date's bookings per resource key, keeping start order.
func (idx *Index) ByResource(date time.Time) map[string][]models.Booking {
	bookings := idx.ForDate(date)
	grouped := make(map[string][]models.Booking)
	for _, booking := range bookings {
		key := ResourceKey(booking)
		grouped[key] = append(grouped[key], booking)
	}
	return grouped
}
