package match

import (
	"regexp"
	"strconv"
	"strings"
)

// pattern is one numeric/technical extractor. Contextual patterns are shapes
// that occur in ordinary prose too (a bare "16:9", a bare "35mm"), so they
// only match near a cue word or on a whitelisted literal.
type pattern struct {
	re         *regexp.Regexp
	role       string
	name       string
	confidence float64
	contextual bool
}

// contextWindow is how many bytes around a contextual match are scanned for
// a cue word.
const contextWindow = 40

// commonAspectRatios are accepted without a nearby cue.
var commonAspectRatios = map[string]bool{
	"16:9": true,
	"9:16": true,
	"4:3":  true,
	"3:4":  true,
	"21:9": true,
	"1:1":  true,
}

// commonFocalLengths (mm) are accepted without a nearby cue — these read as
// lens specs even with no surrounding lens talk.
var commonFocalLengths = map[string]bool{
	"14": true, "16": true, "24": true, "28": true, "35": true,
	"50": true, "85": true, "105": true, "135": true, "200": true,
}

var aspectCueRE = regexp.MustCompile(`(?i)\b(?:aspect|ratio|format|frame)\b`)
var lensCueRE = regexp.MustCompile(`(?i)\b(?:lens|focal|prime|zoom|shot on|shoot)\b`)

func initPatterns() []*pattern {
	return []*pattern{
		// Frame rates: "24fps", "60 fps", "120FPS"
		{
			re:         regexp.MustCompile(`(?i)\b(\d{1,3})\s*fps\b`),
			role:       "technical.framerate",
			name:       "framerate",
			confidence: 0.95,
		},
		// Durations: "8 seconds", "10 sec", "0.5s", "2 minutes"
		{
			re:         regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:seconds?|secs?|minutes?|mins?)\b`),
			role:       "technical.duration",
			name:       "duration",
			confidence: 0.9,
		},
		// Resolutions: "4K", "8K", "1080p", "2160p"
		{
			re:         regexp.MustCompile(`(?i)\b(?:[48]K|\d{3,4}p)\b`),
			role:       "technical.resolution",
			name:       "resolution",
			confidence: 0.95,
		},
		// Aspect ratios: "16:9", "2.39:1" — bare digit:digit shapes also match
		// timestamps and scores, hence the context check.
		{
			re:         regexp.MustCompile(`\b(\d{1,2}(?:\.\d{1,2})?:\d{1,2})\b`),
			role:       "technical.aspect_ratio",
			name:       "aspect_ratio",
			confidence: 0.85,
			contextual: true,
		},
		// Lens focal lengths: "35mm", "85 mm"
		{
			re:         regexp.MustCompile(`(?i)\b(\d{1,3})\s*mm\b`),
			role:       "camera.lens",
			name:       "focal_length",
			confidence: 0.9,
			contextual: true,
		},
		// Apertures: "f/1.8", "f/2.8"
		{
			re:         regexp.MustCompile(`(?i)\bf/(\d{1,2}(?:\.\d)?)\b`),
			role:       "camera.aperture",
			name:       "aperture",
			confidence: 0.95,
		},
		// Color temperatures: "3200K", "5600 K"
		{
			re:         regexp.MustCompile(`\b(\d{4,5})\s*K\b`),
			role:       "color.temperature",
			name:       "color_temperature",
			confidence: 0.9,
		},
	}
}

// acceptContext decides whether a contextual match stands on its own (a
// whitelisted literal) or is vouched for by nearby cue text.
func acceptContext(p *pattern, text string, start, end int, value string) bool {
	switch p.name {
	case "aspect_ratio":
		if commonAspectRatios[value] || strings.Contains(value, ".") {
			return true
		}
		return cueNearby(aspectCueRE, text, start, end)
	case "focal_length":
		if commonFocalLengths[value] {
			return true
		}
		return cueNearby(lensCueRE, text, start, end)
	default:
		return true
	}
}

// acceptValue applies per-pattern range sanity checks on the captured value.
func acceptValue(p *pattern, value string) bool {
	switch p.name {
	case "framerate":
		n, err := strconv.Atoi(value)
		return err == nil && n >= 8 && n <= 240
	case "color_temperature":
		n, err := strconv.Atoi(value)
		return err == nil && n >= 1000 && n <= 12000
	default:
		return true
	}
}

// cueNearby scans a window around [start,end) for the cue expression.
func cueNearby(cue *regexp.Regexp, text string, start, end int) bool {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return cue.MatchString(text[lo:hi])
}
