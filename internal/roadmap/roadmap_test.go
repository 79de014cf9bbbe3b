package roadmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const sample = `{
  "profile_summary": "You know HTML and some JS.",
  "current_level": "Beginner",
  "recommended_role": "Frontend Developer",
  "alternative_roles": ["UI Developer", "Web Designer", 7],
  "skill_gaps": ["React", "Git"],
  "roadmap": {
    "phase_1": {"title": "Foundations", "duration": "Weeks 1-4", "topics": ["JS"], "weekly_plan": "Read", "practical_task": "Build a page"},
    "phase_2": {"title": "Core Skills", "duration": "Weeks 5-10", "topics": ["React"]}
  },
  "weekly_schedule": "1h per day",
  "free_resources": {
    "youtube": [{"name": "Fireship", "topic": "Quick tech concepts", "url": "https://youtube.com/@Fireship"}],
    "docs": [{"name": "MDN Web Docs", "description": "Best reference", "url": "https://developer.mozilla.org"}]
  },
  "feedback": "Realistic.",
  "motivation_tip": "Ship something every week."
}`

func TestParse_FencedEqualsUnfenced(t *testing.T) {
	plain, err := Parse(sample)
	require.NoError(t, err)

	for _, wrapped := range []string{
		"```json\n" + sample + "\n```",
		"```\n" + sample + "\n```",
		"  \n```JSON\r\n" + sample + "```  \n",
		"\n\n" + sample + "\n",
	} {
		got, err := Parse(wrapped)
		require.NoError(t, err)
		assert.JSONEq(t, string(plain), string(got))
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, text := range []string{
		"",
		"Sure! Here is your roadmap.",
		"```json\n{\"profile_summary\": \"cut off",
		`["not", "an", "object"]`,
		`{"a": 1} trailing words`,
		`{"a": 1}}`,
		"null",
	} {
		_, err := Parse(text)
		assert.True(t, errors.Is(err, ErrMalformed), "Parse(%q) = %v, want ErrMalformed", text, err)
	}
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{}\n```": "{}",
		"```{}```":         "{}",
		"```json{}```":     "{}",
		"  {}  ":           "{}",
		"```\n{\"a\":1}":   `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, StripFences(in), "StripFences(%q)", in)
	}
}

func TestProfileInput_Validation(t *testing.T) {
	var in ProfileInput
	require.NoError(t, json.Unmarshal([]byte(`{"confidence":"7","skills":" HTML ","desiredJob":"Frontend","weeklyHours":10.5}`), &in))
	p, err := in.Profile()
	require.NoError(t, err)
	assert.Equal(t, Profile{Confidence: 7, Skills: "HTML", DesiredJob: "Frontend", WeeklyHours: 10.5}, p)
	assert.Equal(t, "10.5", p.HoursLabel())

	missing := []ProfileInput{
		{Skills: "x", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "5", Skills: "  ", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "5", Skills: "x", WeeklyHours: "5"},
		{Confidence: "5", Skills: "x", DesiredJob: "y"},
		{Confidence: "5", Skills: "x", DesiredJob: "y", WeeklyHours: "0"},
	}
	for _, in := range missing {
		_, err := in.Profile()
		assert.ErrorIs(t, err, ErrMissingFields, "%+v", in)
	}

	invalid := []ProfileInput{
		{Confidence: "11", Skills: "x", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "0", Skills: "x", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "6.5", Skills: "x", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "high", Skills: "x", DesiredJob: "y", WeeklyHours: "5"},
		{Confidence: "5", Skills: "x", DesiredJob: "y", WeeklyHours: "200"},
		{Confidence: "5", Skills: "x", DesiredJob: "y", WeeklyHours: "-3"},
	}
	for _, in := range invalid {
		_, err := in.Profile()
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr), "%+v: got %v", in, err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := Profile{Confidence: 4, Skills: "Excel, SQL", DesiredJob: "Data Analyst", WeeklyHours: 12}
	got := BuildPrompt(p)

	for _, want := range []string{
		"Confidence Level: 4/10",
		"Current Skills: Excel, SQL",
		"Desired Job Role: Data Analyst",
		"Weekly Hours Available for Learning: 12 hours/week",
		"Location: India",
		"Return ONLY a valid JSON object",
		`"phase_4"`,
		"based on 12 hours per week",
		`"practice_platforms"`,
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, got, "{{")
	assert.Equal(t, got, BuildPrompt(p), "prompt must be deterministic")

	tricky := BuildPrompt(Profile{Confidence: 1, Skills: "{{hours}}", DesiredJob: "x", WeeklyHours: 3})
	assert.Contains(t, tricky, "Current Skills: {{hours}}", "user text is not expanded")
}

func TestDecode_Lenient(t *testing.T) {
	v := Decode(json.RawMessage(sample))

	assert.Equal(t, "level-beginner", v.LevelClass)
	assert.Equal(t, []string{"UI Developer", "Web Designer"}, v.AlternativeRoles, "non-string roles dropped")
	require.Len(t, v.Phases, 4)
	assert.Equal(t, "Foundations", v.Phases[0].Title)
	assert.Equal(t, "Phase 3", v.Phases[2].Title)
	assert.Equal(t, "Quick tech concepts", v.YouTube[0].Description)
	assert.Equal(t, "Best reference", v.Docs[0].Description)
	assert.True(t, v.Docs[0].External)
	assert.Empty(t, v.Platforms)

	wrong := Decode(json.RawMessage(`{"profile_summary": 42, "skill_gaps": "React", "roadmap": []}`))
	assert.Empty(t, wrong.ProfileSummary)
	assert.Empty(t, wrong.SkillGaps)
	assert.Len(t, wrong.Phases, 4)
}

func TestLevelClass(t *testing.T) {
	assert.Equal(t, "level-beginner", LevelClass("Beginner"))
	assert.Equal(t, "level-intermediate", LevelClass("Upper Intermediate"))
	assert.Equal(t, "level-advanced", LevelClass("ADVANCED"))
	assert.Equal(t, "", LevelClass("expert"))
}

func TestRender_EmptyRoadmapShowsPlaceholders(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, json.RawMessage(`{}`), Meta{}))

	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	texts := textByID(doc)

	assert.Equal(t, PlaceholderText, texts["profileSummary"])
	assert.Equal(t, PlaceholderText, texts["statLevel"])
	assert.Equal(t, PlaceholderText, texts["feedbackText"])
	assert.Equal(t, PlaceholderSchedule, texts["scheduleBox"])
	assert.Equal(t, PlaceholderMotivation, texts["motivationText"])
	assert.Contains(t, texts["resYoutube"], PlaceholderYouTube)
	assert.Contains(t, texts["resDocs"], PlaceholderDocs)
	assert.Contains(t, texts["resPractice"], PlaceholderPlatforms)
	for i := 1; i <= 4; i++ {
		assert.Contains(t, texts["phasesGrid"], "Phase "+string(rune('0'+i)))
	}
}

func TestRender_FilledRoadmap(t *testing.T) {
	raw, err := Parse(sample)
	require.NoError(t, err)

	var buf bytes.Buffer
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, Render(&buf, raw, Meta{Model: "google/gemma-3-4b-it:free", CreatedAt: created}))

	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	texts := textByID(doc)

	assert.Equal(t, "You know HTML and some JS.", texts["profileSummary"])
	assert.Equal(t, "google/gemma-3-4b-it:free", texts["model"])
	assert.Contains(t, texts["phasesGrid"], "Build a page")
	assert.Contains(t, texts["resYoutube"], "Fireship")
	assert.Contains(t, texts["resPractice"], PlaceholderPlatforms)
	assert.Equal(t, "stat-value level-beginner", attr(findByID(doc, "statLevel"), "class"))
}

func TestRender_EscapesModelText(t *testing.T) {
	var buf bytes.Buffer
	raw := json.RawMessage(`{"profile_summary":"<script>alert(1)</script>","free_resources":{"docs":[{"name":"x","url":"javascript:alert(1)"}]}}`)
	require.NoError(t, Render(&buf, raw, Meta{}))

	out := buf.String()
	assert.NotContains(t, out, "<script>alert(1)</script>")
	assert.NotContains(t, out, `href="javascript:`)
}

func TestCheck(t *testing.T) {
	complete := `{
	  "profile_summary": "s", "current_level": "Beginner", "recommended_role": "r",
	  "alternative_roles": ["a"], "skill_gaps": ["g"],
	  "roadmap": {
	    "phase_1": {"title": "t", "duration": "d", "topics": []},
	    "phase_2": {"title": "t", "duration": "d", "topics": []},
	    "phase_3": {"title": "t", "duration": "d", "topics": []},
	    "phase_4": {"title": "t", "duration": "d", "topics": []}
	  },
	  "weekly_schedule": "w", "free_resources": {}, "feedback": "f", "motivation_tip": "m"
	}`
	assert.Empty(t, Check(json.RawMessage(complete)))

	notes := Check(json.RawMessage(`{"profile_summary": 3}`))
	require.NotEmpty(t, notes)
	joined := strings.Join(notes, "\n")
	assert.Contains(t, joined, "motivation_tip")
}

func textByID(n *html.Node) map[string]string {
	out := make(map[string]string)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				out[id] = strings.TrimSpace(textOf(n))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && attr(n, "id") == id {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textOf(c))
	}
	return b.String()
}
