package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"studio/internal/domain"
	"studio/internal/generation"
	"studio/internal/providers/prompt"
)

func (s *Service) runScript(ctx context.Context, jobID string, req ScriptRequest) error {
	if err := s.progress(ctx, jobID, 0, "starting"); err != nil {
		return closedIsDone(err)
	}

	res, err := s.generator.Generate(ctx, domain.KindText, generation.Request{
		OwnerID:     req.OwnerID,
		JobID:       jobID,
		Prompt:      scriptPrompt(req),
		Locale:      req.Locale,
		Credentials: s.credentials(ctx),
	})
	if err != nil {
		return fmt.Errorf("draft script: %w", err)
	}
	if err := s.progress(ctx, jobID, 50, "script drafted"); err != nil {
		return closedIsDone(err)
	}

	var scenes []domain.Scene
	if !res.Placeholder() {
		scenes = ParseScenes(res.Text, req.Scenes)
	}
	if len(scenes) == 0 {
		s.logger.Warn().Str("job_id", jobID).Str("provider", res.Provider).Msg("pipeline: script unusable, writing placeholder scenes")
		scenes = PlaceholderScenes(req.Topic, req.Scenes, req.Locale)
	}

	if err := s.scenes.ReplaceForProject(ctx, req.ProjectID, req.OwnerID, scenes); err != nil {
		return fmt.Errorf("save scenes: %w", err)
	}
	return closedIsDone(s.progress(ctx, jobID, 100, fmt.Sprintf("%d scenes written", len(scenes))))
}

func scriptPrompt(req ScriptRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a narrated video script about %q in exactly %d scenes.\n", req.Topic, req.Scenes)
	if lang := languageName(req.Locale); lang != "" {
		fmt.Fprintf(&b, "Write the titles and narration in %s.\n", lang)
	}
	b.WriteString(`Reply with a JSON array only. Each element must be an object with "title", "narration" and "visual_prompt" string fields.`)
	return b.String()
}

func languageName(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}

type scriptScene struct {
	Title        string `json:"title"`
	Narration    string `json:"narration"`
	VisualPrompt string `json:"visual_prompt"`
}

// ParseScenes reads a model reply as a JSON array of scenes (objects or
// plain strings). Anything else is split into paragraphs. At most limit
// scenes are kept, numbered from 1.
func ParseScenes(raw string, limit int) []domain.Scene {
	items := parseJSONScenes(raw)
	if items == nil {
		items = parseParagraphs(raw)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	scenes := make([]domain.Scene, 0, len(items))
	for i, it := range items {
		title := strings.TrimSpace(it.Title)
		narration := strings.TrimSpace(it.Narration)
		visual := strings.TrimSpace(it.VisualPrompt)
		if narration == "" && visual == "" && title == "" {
			continue
		}
		if title == "" {
			title = fmt.Sprintf("Scene %d", i+1)
		}
		if visual == "" {
			visual = coalesce(narration, title)
		}
		scenes = append(scenes, domain.Scene{
			Sequence:     len(scenes) + 1,
			Title:        title,
			Narration:    narration,
			VisualPrompt: visual,
		})
	}
	return scenes
}

func parseJSONScenes(raw string) []scriptScene {
	fragment := prompt.ExtractJSONFragment(raw)
	if !strings.HasPrefix(fragment, "[") {
		return nil
	}
	var objects []scriptScene
	if err := json.Unmarshal([]byte(fragment), &objects); err == nil {
		return objects
	}
	var lines []string
	if err := json.Unmarshal([]byte(fragment), &lines); err == nil {
		out := make([]scriptScene, 0, len(lines))
		for _, l := range lines {
			out = append(out, scriptScene{Narration: l})
		}
		return out
	}
	return nil
}

func parseParagraphs(raw string) []scriptScene {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "\r\n", "\n")
	if normalized == "" {
		return nil
	}
	var out []scriptScene
	for _, para := range strings.Split(normalized, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out = append(out, scriptScene{Narration: strings.Join(strings.Fields(para), " ")})
	}
	return out
}

// PlaceholderScenes builds n deterministic scenes from the topic, used when
// no text provider produced a usable script.
func PlaceholderScenes(topic string, n int, locale string) []domain.Scene {
	if n <= 0 {
		n = defaultScriptScenes
	}
	tag := language.English
	if t, err := language.Parse(strings.TrimSpace(locale)); err == nil {
		tag = t
	}
	title := cases.Title(tag).String(strings.TrimSpace(topic))
	scenes := make([]domain.Scene, n)
	for i := range scenes {
		scenes[i] = domain.Scene{
			Sequence:     i + 1,
			Title:        fmt.Sprintf("%s (%d/%d)", title, i+1, n),
			Narration:    fmt.Sprintf("Part %d of %d about %s.", i+1, n, strings.TrimSpace(topic)),
			VisualPrompt: fmt.Sprintf("Illustration of %s, part %d of %d", strings.TrimSpace(topic), i+1, n),
		}
	}
	return scenes
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
