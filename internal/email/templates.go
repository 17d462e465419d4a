package email

import (
	"fmt"
	"strings"
	"time"

	"github.com/rezvo/bookinggrid/internal/models"
)

type Message struct {
	Subject string
	Body    string
}

// BookingDetails is what a client email says about one appointment.
type BookingDetails struct {
	BusinessName string
	ClientName   string
	Service      string
	TeamMember   string
	Start        time.Time
	End          time.Time
	Price        int64
}

// DetailsFor resolves display names for booking from snap. Names the
// snapshot does not know are left empty.
func DetailsFor(booking models.Booking, snap models.Snapshot, businessName string, loc *time.Location) BookingDetails {
	if loc == nil {
		loc = time.Local
	}
	details := BookingDetails{
		BusinessName: businessName,
		ClientName:   booking.ClientName,
		Start:        booking.Start.In(loc),
		End:          booking.End().In(loc),
		Price:        booking.Price,
	}
	if service, ok := snap.ServiceByID(booking.ServiceID); ok {
		details.Service = service.Name
	}
	if booking.IsAssigned() {
		if resource, ok := snap.ResourceByID(*booking.ResourceID); ok {
			details.TeamMember = resource.Name
		}
	}
	return details
}

func FormatDateTimeRange(start, end time.Time) (string, string) {
	date := start.Format("Monday, 2 January 2006")
	timeRange := fmt.Sprintf("%s - %s", start.Format("15:04"), end.Format("15:04"))
	return date, timeRange
}

func BuildConfirmationEmail(details BookingDetails) Message {
	return buildBookingEmail("Booking confirmed", "Your appointment is booked.", details)
}

func BuildCancellationEmail(details BookingDetails) Message {
	return buildBookingEmail("Booking cancelled", "Your appointment has been cancelled.", details)
}

func buildBookingEmail(subjectPrefix, headline string, details BookingDetails) Message {
	business := strings.TrimSpace(details.BusinessName)
	if business == "" {
		business = "Rezvo"
	}
	service := strings.TrimSpace(details.Service)
	if service == "" {
		service = "Appointment"
	}
	with := strings.TrimSpace(details.TeamMember)
	if with == "" {
		with = "Any available team member"
	}
	date, timeRange := FormatDateTimeRange(details.Start, details.End)

	lines := []string{}
	if name := strings.TrimSpace(details.ClientName); name != "" {
		lines = append(lines, fmt.Sprintf("Hi %s,", name), "")
	}
	lines = append(lines,
		headline,
		"",
		fmt.Sprintf("Service: %s", service),
		fmt.Sprintf("With: %s", with),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Time: %s", timeRange),
	)
	if details.Price > 0 {
		lines = append(lines, fmt.Sprintf("Price: %s", models.FormatPrice(details.Price)))
	}
	lines = append(lines, "", business)

	return Message{
		Subject: fmt.Sprintf("%s - %s", subjectPrefix, business),
		Body:    strings.Join(lines, "\n"),
	}
}
