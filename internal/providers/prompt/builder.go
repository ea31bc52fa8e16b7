package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"mediastudio/internal/domain"
)

const (
	// ScriptTemperature matches the creative setting used for every script.
	ScriptTemperature = 0.7
	tokensPerMinute   = 200
	defaultLocale     = "en"
)

// Script is a fully assembled text generation prompt.
type Script struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// BuildScript assembles the script prompt for a job. Podcast scripts read as
// natural conversation; video scripts are organised into visual sections.
func BuildScript(kind domain.JobKind, in domain.Inputs) Script {
	style, length := styleAndLength(kind, in)
	var lines []string

	switch kind {
	case domain.JobKindPodcast:
		lines = append(lines, fmt.Sprintf("Create a podcast script about %s.", in.Source))
		lines = append(lines, fmt.Sprintf("Style: %s. Length: %d minutes.", style, length))
		lines = append(lines, "Include sections for introduction, main content, and conclusion.")
		lines = append(lines, "Format: natural conversational style with clear section breaks separated by a blank line.")
	default:
		lines = append(lines, fmt.Sprintf("Create a video script about %s.", in.Source))
		lines = append(lines, fmt.Sprintf("Style: %s. Length: %d minutes.", style, length))
		lines = append(lines, "Include sections for introduction, main points, and conclusion.")
		lines = append(lines, "Format: clear, engaging, suitable for video presentation. Separate each scene with a blank line.")
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		lines = append(lines, fmt.Sprintf("Working title: %q.", title))
	}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		lines = append(lines, fmt.Sprintf("Audience notes: %s.", desc))
	}
	if tags := cleanTags(in.Tags); len(tags) > 0 {
		lines = append(lines, "Keywords to weave in: "+strings.Join(tags, ", ")+".")
	}
	if name := LanguageName(in.Locale); name != "" && name != "English" {
		lines = append(lines, fmt.Sprintf("Write the script in %s.", name))
	}

	return Script{
		System:      "You are a professional scriptwriter. Respond with the script text only.",
		Prompt:      strings.Join(lines, "\n"),
		Temperature: ScriptTemperature,
		MaxTokens:   length * tokensPerMinute,
	}
}

// BuildScene describes one storyboard frame for the image generator.
func BuildScene(section, style string) string {
	var lines []string
	lines = append(lines, "Create a high-quality video scene visualization for: "+strings.TrimSpace(section))
	if style = strings.TrimSpace(style); style != "" {
		lines = append(lines, fmt.Sprintf("Style: professional, cinematic, %s tone, suitable for video content.", style))
	} else {
		lines = append(lines, "Style: professional, cinematic, suitable for video content.")
	}
	lines = append(lines, "Do not render any text or captions in the image.")
	return strings.Join(lines, "\n")
}

// BuildThumbnail describes the cover image of a video.
func BuildThumbnail(in domain.Inputs) string {
	subject := strings.TrimSpace(in.Title)
	if subject == "" {
		subject = in.Source
	}
	title := cases.Title(language.Und).String(subject)
	var lines []string
	lines = append(lines, fmt.Sprintf("Create a compelling thumbnail for a video titled %q.", title))
	if topic := strings.TrimSpace(in.Source); topic != "" && topic != subject {
		lines = append(lines, "Topic: "+firstSentence(topic))
	}
	lines = append(lines, "Style: eye-catching, professional, suitable for YouTube.")
	return strings.Join(lines, "\n")
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// SplitSections breaks a script into paragraph sections separated by blank
// lines, dropping empty sections and keeping at most limit of them.
func SplitSections(script string, limit int) []string {
	normalized := strings.ReplaceAll(script, "\r\n", "\n")
	var sections []string
	for _, part := range blankLine.Split(normalized, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sections = append(sections, part)
		if limit > 0 && len(sections) == limit {
			break
		}
	}
	return sections
}

// LanguageName resolves a locale such as "id" or "pt-BR" to its English name.
func LanguageName(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = defaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return display.English.Languages().Name(language.Make(base.String()))
}

func styleAndLength(kind domain.JobKind, in domain.Inputs) (string, int) {
	style, length := "", 0
	switch kind {
	case domain.JobKindPodcast:
		style = "conversational"
		if in.Podcast != nil {
			style = coalesce(in.Podcast.Style, style)
			length = in.Podcast.LengthMinutes
		}
	default:
		style = "educational"
		if in.Video != nil {
			style = coalesce(in.Video.Style, style)
			length = in.Video.LengthMinutes
		}
	}
	if length <= 0 {
		length = 5
	}
	return style, length
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, ".!?\n"); idx > 0 {
		s = s[:idx]
	}
	if r := []rune(s); len(r) > 160 {
		s = string(r[:160])
	}
	return s
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
