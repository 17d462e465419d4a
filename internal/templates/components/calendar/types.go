package calendar

import (
	"fmt"
	"net/url"
	"time"

	engine "github.com/rezvo/bookinggrid/internal/calendar"
	"github.com/rezvo/bookinggrid/internal/draft"
	"github.com/rezvo/bookinggrid/internal/models"
)

type PageData struct {
	Grid engine.Grid
	// Notice is shown above the grid when the data is stale or failed to load.
	Notice   string
	PrevURL  string
	NextURL  string
	TodayURL string
}

// NewPageData builds navigation links around the rendered grid.
func NewPageData(grid engine.Grid, now time.Time, notice string) PageData {
	state := engine.State{Mode: grid.Mode, Anchor: grid.Anchor}
	prev := engine.NewController(state.Mode, state.Anchor)
	prev.Previous()
	next := engine.NewController(state.Mode, state.Anchor)
	next.Next()

	return PageData{
		Grid:     grid,
		Notice:   notice,
		PrevURL:  ViewURL(prev.State()),
		NextURL:  ViewURL(next.State()),
		TodayURL: ViewURL(engine.State{Mode: state.Mode, Anchor: engine.TruncateDate(now)}),
	}
}

func ViewURL(state engine.State) string {
	values := url.Values{}
	values.Set("view", string(state.Mode))
	values.Set("date", engine.DateKey(state.Anchor))
	return "/calendar?" + values.Encode()
}

type DraftFormData struct {
	Form      draft.Form
	Date      time.Time
	Services  []ServiceOption
	Resources []ResourceOption
	Chips     []ChipOption
	Errors    map[string]string
	Message   string
}

type ServiceOption struct {
	ID       string
	Label    string
	Selected bool
}

type ResourceOption struct {
	ID       string
	Name     string
	Selected bool
}

type ChipOption struct {
	Value    string
	Label    string
	Selected bool
}

func NewDraftFormData(form draft.Form, snap models.Snapshot, g engine.Geometry, err error) DraftFormData {
	data := DraftFormData{
		Form:   form,
		Date:   engine.TruncateDate(form.Start),
		Errors: map[string]string{},
	}
	for _, service := range snap.Services {
		data.Services = append(data.Services, ServiceOption{
			ID:       service.ID,
			Label:    fmt.Sprintf("%s (%d min, %s)", service.Name, service.DefaultDuration(), models.FormatPrice(service.Price)),
			Selected: service.ID == form.ServiceID,
		})
	}
	for _, resource := range snap.Resources {
		data.Resources = append(data.Resources, ResourceOption{
			ID:       resource.ID,
			Name:     resource.Name,
			Selected: form.ResourceID != nil && *form.ResourceID == resource.ID,
		})
	}
	for _, chip := range form.SlotChips(g) {
		data.Chips = append(data.Chips, ChipOption{
			Value:    chip.Format("2006-01-02T15:04"),
			Label:    chip.Format("15:04"),
			Selected: chip.Equal(form.Start),
		})
	}

	var verr *draft.ValidationError
	switch {
	case err == nil:
	case asValidation(err, &verr):
		for _, field := range verr.Fields {
			data.Errors[field.Field] = field.Reason
		}
	default:
		data.Message = "We couldn't reach the booking service. Your details are kept, please try again."
	}
	return data
}
