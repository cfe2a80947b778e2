package schedule

import (
	"time"

	"github.com/lazypower/cadence/internal/timeofday"
)

// Slot is the anchor occurrence picked by the Next-Slot Rule.
type Slot struct {
	Anchor          string    `json:"anchor"`
	At              time.Time `json:"at"`
	AnchorTimeOfDay string    `json:"anchor_time_of_day"`
}

// NextSlot picks the earliest upcoming anchor occurrence strictly after now.
// Anchors are visited in priority order and a later anchor only wins with a
// strictly earlier time, so ties keep priority order. Anchors missing from the
// map or holding an unparseable value are ignored.
func NextSlot(anchors map[string]string, now time.Time) (*Slot, bool) {
	var best *Slot
	for _, name := range AnchorOrder {
		raw, ok := anchors[name]
		if !ok {
			continue
		}
		tod, ok := timeofday.Parse(raw)
		if !ok {
			continue
		}
		at := timeofday.NextOccurrence(now, tod)
		if best == nil || at.Before(best.At) {
			best = &Slot{Anchor: name, At: at, AnchorTimeOfDay: tod.String()}
		}
	}
	return best, best != nil
}
