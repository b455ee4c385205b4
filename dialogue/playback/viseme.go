package playback

import "github.com/rockhound/narrator/dialogue"

// VisemeAt returns the value of the last event whose time is at or before
// elapsedMs, or the closed viseme if none is. Events are few and ordered, and
// playback only moves forward, so scanning from the end usually stops after
// one or two comparisons.
func VisemeAt(events []dialogue.VisemeEvent, elapsedMs float64) int {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Time <= elapsedMs {
			return events[i].Value
		}
	}
	return dialogue.VisemeClosed
}
