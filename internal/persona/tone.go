// Package persona holds the stateless text policies of the bot: emotional
// tone detection, reply post-processing and the prompt template.
package persona

import "strings"

// Tone labels, ordered by detection priority.
const (
	ToneLively     = "энергично и живо"
	ToneSupportive = "спокойно и поддерживающе"
	ToneConfident  = "спокойно и уверенно"
	ToneNeutral    = "нейтрально"
)

// Keyword tiers. The sets are tunable policy; the tier order is not.
var (
	livelyMarkers      = []string{"!", "круто", "ахах", "лол", "haha", "lol"}
	confusionMarkers   = []string{"почему", "не работает", "ошибка", "why", "doesn't work", "error"}
	frustrationMarkers = []string{"бесит", "задолбало", "ужас", "annoyed", "fed up", "awful"}
)

// ClassifyTone maps an utterance to a coarse emotional label. Matching is
// case-insensitive and the first tier that matches wins.
func ClassifyTone(text string) string {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, livelyMarkers):
		return ToneLively
	case containsAny(t, confusionMarkers):
		return ToneSupportive
	case containsAny(t, frustrationMarkers):
		return ToneConfident
	default:
		return ToneNeutral
	}
}

func containsAny(t string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}
