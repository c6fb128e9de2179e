package persona

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxReplyLen caps a reply; overlong text is cut back to the last
	// sentence boundary inside the window.
	MaxReplyLen = 900
	softenOdds  = 0.25
)

// Leading discourse markers that make a reply sound like an essay.
var openerPattern = regexp.MustCompile(`(?i)^(В итоге|Таким образом|Итак|In conclusion|Thus|So)[,:]?\s+`)

// Intensifiers softened with probability softenOdds.
var softeners = [][2]string{
	{"очень", "довольно"},
	{"very", "fairly"},
}

// Humanize post-processes generated text so it reads like a chat message
// rather than model output. The random source is injected for testability.
func Humanize(text string, rng *rand.Rand) string {
	text = strings.TrimSpace(text)
	text = openerPattern.ReplaceAllString(text, "")

	if rng.Float64() < softenOdds {
		for _, pair := range softeners {
			if strings.Contains(text, pair[0]) {
				text = strings.Replace(text, pair[0], pair[1], 1)
				break
			}
		}
	}

	if utf8.RuneCountInString(text) > MaxReplyLen {
		cut := string([]rune(text)[:MaxReplyLen])
		if i := strings.LastIndex(cut, "."); i >= 0 {
			cut = cut[:i+1]
		}
		text = cut
	}
	return text
}
