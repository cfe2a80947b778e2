// Package tier maps reminder categories to notification intensity profiles.
package tier

import (
	"sort"
	"strings"
	"sync"

	"github.com/lazypower/cadence/internal/notify"
	"github.com/lazypower/cadence/internal/reminder"
)

// Tier identifiers.
const (
	T1 = "T1"
	T2 = "T2"
	T3 = "T3"
)

// Profile describes how interruptive a notification should be.
type Profile struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Sound                string  `json:"sound"`
	Vibration            []int64 `json:"vibration,omitempty"`
	Priority             string  `json:"priority"`
	FullScreenIntent     bool    `json:"full_screen_intent"`
	AndroidChannelID     string  `json:"android_channel_id"`
	IOSInterruptionLevel string  `json:"ios_interruption_level"`
}

var profiles = map[string]Profile{
	T1: {
		ID:                   T1,
		Name:                 "critical",
		Sound:                "alarm.wav",
		Vibration:            []int64{0, 800, 300, 800, 300, 800},
		Priority:             "max",
		FullScreenIntent:     true,
		AndroidChannelID:     "reminders-critical",
		IOSInterruptionLevel: "critical",
	},
	T2: {
		ID:                   T2,
		Name:                 "important",
		Sound:                "chime.wav",
		Vibration:            []int64{0, 400, 200, 400},
		Priority:             "high",
		AndroidChannelID:     "reminders-important",
		IOSInterruptionLevel: "time-sensitive",
	},
	T3: {
		ID:                   T3,
		Name:                 "standard",
		Sound:                "default",
		Priority:             "low",
		AndroidChannelID:     "reminders-standard",
		IOSInterruptionLevel: "passive",
	},
}

// Profiles returns every built-in profile ordered by id.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, id := range []string{T1, T2, T3} {
		out = append(out, Lookup(id))
	}
	return out
}

// Lookup returns the profile for a tier id. Unknown ids get T3.
func Lookup(id string) Profile {
	p, ok := profiles[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		p = profiles[T3]
	}
	p.Vibration = append([]int64(nil), p.Vibration...)
	return p
}

// ValidID reports whether id names a built-in tier.
func ValidID(id string) bool {
	_, ok := profiles[strings.ToUpper(strings.TrimSpace(id))]
	return ok
}

// DefaultMapping returns the built-in category to tier mapping.
func DefaultMapping() map[string]string {
	return map[string]string{
		string(reminder.CategoryMedications):    T1,
		string(reminder.CategoryAppointments):   T2,
		string(reminder.CategoryImportantDates): T3,
		string(reminder.CategoryOther):          T3,
	}
}

// Registry resolves categories to tier profiles. It is built once by the
// composition root and passed to the components that need it.
type Registry struct {
	mu      sync.RWMutex
	mapping map[string]string
}

// NewRegistry creates a registry with the default mapping and applies
// overrides. Invalid overrides are ignored.
func NewRegistry(overrides map[string]string) *Registry {
	r := &Registry{mapping: DefaultMapping()}
	r.Merge(overrides)
	return r
}

// Merge applies category to tier overrides. Keys whose value is not a valid
// tier id are skipped and returned sorted.
func (r *Registry) Merge(overrides map[string]string) (rejected []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for category, id := range overrides {
		key := strings.ToLower(strings.TrimSpace(category))
		if key == "" || !ValidID(id) {
			rejected = append(rejected, category)
			continue
		}
		r.mapping[key] = strings.ToUpper(strings.TrimSpace(id))
	}
	sort.Strings(rejected)
	return rejected
}

// Mapping returns a copy of the current category to tier mapping.
func (r *Registry) Mapping() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.mapping))
	for k, v := range r.mapping {
		out[k] = v
	}
	return out
}

// TierForCategory returns the tier id for a category, T3 when unmapped.
func (r *Registry) TierForCategory(category string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.mapping[strings.ToLower(strings.TrimSpace(category))]; ok {
		return id
	}
	return T3
}

// Resolve accepts a tier id or a category and always returns a profile.
func (r *Registry) Resolve(categoryOrTierID string) Profile {
	if ValidID(categoryOrTierID) {
		return Lookup(categoryOrTierID)
	}
	return Lookup(r.TierForCategory(categoryOrTierID))
}

// IsCritical reports whether the category resolves to T1.
func (r *Registry) IsCritical(category string) bool {
	return r.Resolve(category).ID == T1
}

// Attach returns a copy of content decorated with the profile. A sound
// already set on content is kept.
func Attach(content notify.Content, p Profile) notify.Content {
	out := content.Clone()
	out.TierID = p.ID
	out.Priority = p.Priority
	out.Vibration = append([]int64(nil), p.Vibration...)
	out.FullScreenIntent = p.FullScreenIntent
	out.AndroidChannelID = p.AndroidChannelID
	out.IOSInterruptionLevel = p.IOSInterruptionLevel
	if out.Sound == "" {
		out.Sound = p.Sound
	}
	return out
}
