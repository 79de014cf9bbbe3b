package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/skillbridge/internal/advisor"
	"github.com/kalambet/skillbridge/internal/config"
	"github.com/kalambet/skillbridge/internal/proxy"
	"github.com/kalambet/skillbridge/internal/resume"
	"github.com/kalambet/skillbridge/internal/roadmap"
)

// --- analyze ---

type analyzeOutput struct {
	Success bool            `json:"success"`
	ID      string          `json:"id"`
	Model   string          `json:"model"`
	Data    json.RawMessage `json:"data"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Generate a career roadmap for a skill profile",
	Long: `Generate a career roadmap for a skill profile.

By default the fallback loop runs in-process. With --remote the profile is
posted to a running "skillbridge serve" instead.

Examples:
  skillbridge analyze --confidence 3 --skills "HTML, CSS, a little JS" --job "Frontend Developer" --hours 10
  skillbridge analyze --confidence 6 --skills-file ./resume.pdf --job "Data Analyst" --hours 8 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := profileInput(cmd)
		if err != nil {
			return err
		}
		p, err := in.Profile()
		if err != nil {
			return errors.New(advisor.UserMessage(err))
		}

		remote, _ := cmd.Flags().GetBool("remote")
		asJSON, _ := cmd.Flags().GetBool("json")

		var out analyzeOutput
		if remote {
			out, err = analyzeRemote(cmd.Context(), in)
		} else {
			out, err = analyzeLocal(cmd.Context(), p)
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		printSuccess("Roadmap %s generated by %s", out.ID, out.Model)
		printRoadmap(cmd.OutOrStdout(), out.Data)
		return nil
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.Int("confidence", 0, "self-rated confidence, 1 to 10")
	f.String("skills", "", "current skills, free text")
	f.String("skills-file", "", "read skills from a .pdf, .txt or .md file")
	f.String("job", "", "desired job role")
	f.Float64("hours", 0, "hours per week available for learning")
	f.Bool("json", false, "print the response envelope as JSON")
	f.Bool("remote", false, "send the profile to a running skillbridge serve")
	analyzeCmd.MarkFlagsMutuallyExclusive("skills", "skills-file")
}

// profileInput maps flags onto the same wire form the browser posts. Unset
// numeric flags stay empty so validation reports them as missing.
func profileInput(cmd *cobra.Command) (roadmap.ProfileInput, error) {
	f := cmd.Flags()
	var in roadmap.ProfileInput

	if f.Changed("confidence") {
		c, _ := f.GetInt("confidence")
		in.Confidence = json.Number(strconv.Itoa(c))
	}
	if f.Changed("hours") {
		h, _ := f.GetFloat64("hours")
		in.WeeklyHours = json.Number(strconv.FormatFloat(h, 'f', -1, 64))
	}
	in.Skills, _ = f.GetString("skills")
	in.DesiredJob, _ = f.GetString("job")

	if path, _ := f.GetString("skills-file"); path != "" {
		text, err := resume.ExtractText(path)
		if err != nil {
			return in, fmt.Errorf("reading skills file: %w", err)
		}
		in.Skills = text
	}
	return in, nil
}

func analyzeLocal(ctx context.Context, p roadmap.Profile) (analyzeOutput, error) {
	cfg, err := config.Load()
	if err != nil {
		return analyzeOutput{}, err
	}
	logger := newLogger(cfg.Log.Level, os.Stderr)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return analyzeOutput{}, err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
	defer cancel()

	printStep("Asking %d candidate models for a %s roadmap", len(a.models), p.DesiredJob)
	res, err := a.advisor.Analyze(ctx, p)
	if err != nil {
		return analyzeOutput{}, fmt.Errorf("%s (%s)", advisor.UserMessage(err), advisor.ErrorClass(err))
	}
	for _, n := range res.Notes {
		printWarning("roadmap shape: %s", n)
	}
	return analyzeOutput{Success: true, ID: res.ID, Model: res.Model, Data: res.Roadmap}, nil
}

func analyzeRemote(ctx context.Context, in roadmap.ProfileInput) (analyzeOutput, error) {
	client, err := newAPIClient()
	if err != nil {
		return analyzeOutput{}, err
	}
	// The server bounds the request itself.
	client.httpClient.Timeout = 0

	printStep("Posting profile to %s/analyze", client.baseURL)
	resp, err := client.post(ctx, "/analyze", in)
	if err != nil {
		return analyzeOutput{}, err
	}
	var out analyzeOutput
	if err := decodeJSON(resp, &out); err != nil {
		return analyzeOutput{}, err
	}
	return out, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// printRoadmap writes a terminal rendering of the dashboard.
func printRoadmap(w io.Writer, raw json.RawMessage) {
	v := roadmap.Decode(raw)

	fmt.Fprintf(w, "\n%s\n\n", orDefault(v.ProfileSummary, roadmap.PlaceholderText))
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Level:"),
		colorize(levelColor(v.LevelClass), orDefault(v.CurrentLevel, roadmap.PlaceholderText)))
	fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Role:"), orDefault(v.RecommendedRole, roadmap.PlaceholderText))
	if len(v.AlternativeRoles) > 0 {
		fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "Also:"), strings.Join(v.AlternativeRoles, ", "))
	}

	if len(v.SkillGaps) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Skill gaps"))
		for _, g := range v.SkillGaps {
			fmt.Fprintf(w, "  - %s\n", g)
		}
	}

	for _, ph := range v.Phases {
		fmt.Fprintf(w, "\n%s (%s)\n",
			colorize(colorCyan, fmt.Sprintf("Phase %d: %s", ph.Number, ph.Title)),
			orDefault(ph.Duration, roadmap.PlaceholderText))
		if len(ph.Topics) > 0 {
			fmt.Fprintf(w, "  Topics: %s\n", strings.Join(ph.Topics, ", "))
		}
		if ph.WeeklyPlan != "" {
			fmt.Fprintf(w, "  Plan:   %s\n", ph.WeeklyPlan)
		}
		if ph.PracticalTask != "" {
			fmt.Fprintf(w, "  Task:   %s\n", ph.PracticalTask)
		}
	}

	fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, "Weekly schedule:"), orDefault(v.WeeklySchedule, roadmap.PlaceholderSchedule))

	printResources(w, "YouTube", v.YouTube, roadmap.PlaceholderYouTube)
	printResources(w, "Docs", v.Docs, roadmap.PlaceholderDocs)
	printResources(w, "Practice", v.Platforms, roadmap.PlaceholderPlatforms)

	fmt.Fprintf(w, "\n%s %s\n", colorize(colorBold, "Feedback:"), orDefault(v.Feedback, roadmap.PlaceholderText))
	fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Tip:"), orDefault(v.MotivationTip, roadmap.PlaceholderMotivation))
}

func printResources(w io.Writer, label string, items []roadmap.Resource, empty string) {
	fmt.Fprintf(w, "\n%s\n", colorize(colorBold, label))
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", empty)
		return
	}
	for _, r := range items {
		line := "  - " + r.Name
		if r.Description != "" {
			line += ": " + r.Description
		}
		if r.External {
			line += " <" + r.URL + ">"
		}
		fmt.Fprintln(w, line)
	}
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the free models OpenRouter (and a local Ollama) currently offer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		all, err := newOpenRouterClient(cfg).ListModels(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printModels(w, proxy.FreeModels(all), cfg.CandidateModels())

		if cfg.Ollama.BaseURL == "" {
			return nil
		}
		local, err := newOllamaClient(cfg).ListModels(ctx)
		if err != nil {
			printWarning("ollama at %s not reachable: %v", cfg.Ollama.BaseURL, err)
			return nil
		}
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, "Local (ollama)"))
		for _, name := range local {
			fmt.Fprintf(w, "     ollama:%s\n", name)
		}
		return nil
	},
}

// printModels lists free models, marking configured candidates with their
// fallback priority, and warns about candidates the upstream no longer lists.
func printModels(w io.Writer, free []proxy.Model, candidates []string) {
	slices.SortFunc(free, func(a, b proxy.Model) int { return strings.Compare(a.ID, b.ID) })

	offered := make(map[string]bool, len(free))
	for _, m := range free {
		offered[m.ID] = true
		if i := slices.Index(candidates, m.ID); i >= 0 {
			fmt.Fprintf(w, "%s  %s\n", colorize(colorGreen, fmt.Sprintf("[%d]", i+1)), m.ID)
			continue
		}
		fmt.Fprintf(w, "     %s\n", m.ID)
	}

	for _, c := range candidates {
		if proxy.ProviderOf(c) == "openrouter" && !offered[c] {
			printWarning("configured candidate %s is not in the upstream free list", c)
		}
	}
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored analyses on a running server",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", strconv.Itoa(limit))
		if offset > 0 {
			q.Set("offset", strconv.Itoa(offset))
		}
		resp, err := client.get(cmd.Context(), "/roadmaps?"+q.Encode())
		if err != nil {
			return err
		}

		var analyses []struct {
			ID         string    `json:"id"`
			CreatedAt  time.Time `json:"created_at"`
			DesiredJob string    `json:"desired_job"`
			Model      string    `json:"model"`
			Status     string    `json:"status"`
			ErrorClass string    `json:"error_class"`
		}
		if err := decodeJSON(resp, &analyses); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(analyses) == 0 {
			fmt.Fprintln(w, "No analyses found.")
			return nil
		}

		for _, a := range analyses {
			id := a.ID
			if len(id) > 8 {
				id = id[:8]
			}
			status := colorize(colorGreen, a.Status)
			detail := a.Model
			if a.ErrorClass != "" {
				status = colorize(colorRed, a.Status)
				detail = a.ErrorClass
			}
			fmt.Fprintf(w, "%s  %s  %s  %-30s  %s\n",
				colorize(colorCyan, id),
				a.CreatedAt.Local().Format("2006-01-02 15:04"),
				status,
				a.DesiredJob,
				detail,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/roadmaps/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var record json.RawMessage
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(record)
		}

		var rec struct {
			ID         string          `json:"id"`
			Status     string          `json:"status"`
			Model      string          `json:"model"`
			ErrorClass string          `json:"error_class"`
			Roadmap    json.RawMessage `json:"roadmap"`
		}
		if err := json.Unmarshal(record, &rec); err != nil {
			return fmt.Errorf("decoding analysis: %w", err)
		}
		if rec.ErrorClass != "" {
			printWarning("analysis %s failed (%s)", rec.ID, rec.ErrorClass)
			return nil
		}
		printSuccess("Roadmap %s generated by %s", rec.ID, rec.Model)
		printRoadmap(cmd.OutOrStdout(), rec.Roadmap)
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of analyses to list")
	historyListCmd.Flags().Int("offset", 0, "number of analyses to skip")
	historyShowCmd.Flags().Bool("json", false, "print the stored record as JSON")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			if !errors.Is(err, config.ErrMissingAPIKey) {
				return err
			}
			printWarning("%v", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "  %s %s\n", colorize(colorBold, "file:"), config.ConfigFilePath())
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(w, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the JSON config file.\n\nValid keys:\n  " +
		strings.Join(config.ValidKeys(), "\n  "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
