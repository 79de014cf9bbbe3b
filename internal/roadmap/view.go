package roadmap

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Placeholders shown when the model omitted a field.
const (
	PlaceholderText       = "—"
	PlaceholderSchedule   = "Not specified."
	PlaceholderMotivation = "Keep going."
	PlaceholderYouTube    = "No YouTube resources listed."
	PlaceholderDocs       = "No docs listed."
	PlaceholderPlatforms  = "No platforms listed."
)

var phaseKeys = []string{"phase_1", "phase_2", "phase_3", "phase_4"}

// View is the dashboard's typed reading of a roadmap object. Every field is
// decoded on its own, so a field of the wrong type is treated as absent
// instead of failing the whole document.
type View struct {
	ProfileSummary   string
	CurrentLevel     string
	LevelClass       string
	RecommendedRole  string
	AlternativeRoles []string
	SkillGaps        []string
	Phases           []Phase
	WeeklySchedule   string
	YouTube          []Resource
	Docs             []Resource
	Platforms        []Resource
	Feedback         string
	MotivationTip    string
}

// Phase is one of the four roadmap stages.
type Phase struct {
	Number        int
	Title         string
	Duration      string
	Topics        []string
	WeeklyPlan    string
	PracticalTask string
}

// Resource is a free learning resource link.
type Resource struct {
	Name        string
	Description string
	URL         string
	External    bool
}

// Decode reads raw leniently. Invalid or non-object input yields an empty
// View, which renders as all placeholders.
func Decode(raw json.RawMessage) View {
	obj := object(raw)

	v := View{
		ProfileSummary:   str(obj["profile_summary"]),
		CurrentLevel:     str(obj["current_level"]),
		RecommendedRole:  str(obj["recommended_role"]),
		AlternativeRoles: strs(obj["alternative_roles"]),
		SkillGaps:        strs(obj["skill_gaps"]),
		WeeklySchedule:   str(obj["weekly_schedule"]),
		Feedback:         str(obj["feedback"]),
		MotivationTip:    str(obj["motivation_tip"]),
	}
	v.LevelClass = LevelClass(v.CurrentLevel)

	phases := object(obj["roadmap"])
	for i, key := range phaseKeys {
		p := object(phases[key])
		title := str(p["title"])
		if title == "" {
			title = "Phase " + strconv.Itoa(i+1)
		}
		v.Phases = append(v.Phases, Phase{
			Number:        i + 1,
			Title:         title,
			Duration:      str(p["duration"]),
			Topics:        strs(p["topics"]),
			WeeklyPlan:    str(p["weekly_plan"]),
			PracticalTask: str(p["practical_task"]),
		})
	}

	res := object(obj["free_resources"])
	v.YouTube = resources(res["youtube"])
	v.Docs = resources(res["docs"])
	v.Platforms = resources(res["practice_platforms"])
	return v
}

// LevelClass maps a free-text level such as "Beginner" to its CSS class.
func LevelClass(level string) string {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "begin"):
		return "level-beginner"
	case strings.Contains(l, "inter"):
		return "level-intermediate"
	case strings.Contains(l, "advan"):
		return "level-advanced"
	}
	return ""
}

func object(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	return m
}

func str(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// strs keeps the string elements of an array and drops the rest.
func strs(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func resources(raw json.RawMessage) []Resource {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var out []Resource
	for _, item := range items {
		m := object(item)
		if m == nil {
			continue
		}
		r := Resource{
			Name:        str(m["name"]),
			Description: str(m["topic"]),
			URL:         str(m["url"]),
		}
		if r.Description == "" {
			r.Description = str(m["description"])
		}
		if r.Name == "" {
			r.Name = "Resource"
		}
		if r.URL == "" {
			r.URL = "#"
		}
		r.External = strings.HasPrefix(r.URL, "http")
		out = append(out, r)
	}
	return out
}
