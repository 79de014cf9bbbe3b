package roadmap

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var dashboardTmpl = template.Must(
	template.New("dashboard.html").
		Funcs(template.FuncMap{"resourceList": newResourceList}).
		ParseFS(templateFS, "templates/dashboard.html"),
)

// Meta describes where a rendered roadmap came from. Zero values are omitted.
type Meta struct {
	Model     string
	CreatedAt time.Time
}

type dashboardData struct {
	View      View
	Model     string
	CreatedAt string

	Placeholder        string
	ScheduleFallback   string
	MotivationFallback string
	YouTubeFallback    string
	DocsFallback       string
	PlatformsFallback  string
}

type resourceList struct {
	ID    string
	Label string
	Items []Resource
	Empty string
}

func newResourceList(id, label string, items []Resource, empty string) resourceList {
	return resourceList{ID: id, Label: label, Items: items, Empty: empty}
}

// Render writes the HTML dashboard for raw to w. Missing fields render as
// placeholders; raw is never rejected.
func Render(w io.Writer, raw json.RawMessage, meta Meta) error {
	data := dashboardData{
		View:               Decode(raw),
		Model:              meta.Model,
		Placeholder:        PlaceholderText,
		ScheduleFallback:   PlaceholderSchedule,
		MotivationFallback: PlaceholderMotivation,
		YouTubeFallback:    PlaceholderYouTube,
		DocsFallback:       PlaceholderDocs,
		PlatformsFallback:  PlaceholderPlatforms,
	}
	if !meta.CreatedAt.IsZero() {
		data.CreatedAt = meta.CreatedAt.UTC().Format("2 Jan 2006 15:04 MST")
	}
	if err := dashboardTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering dashboard: %w", err)
	}
	return nil
}
