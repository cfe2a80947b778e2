package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/cadence/internal/notify"
)

func TestDefaultMapping(t *testing.T) {
	r := NewRegistry(nil)
	tests := map[string]string{
		"medications":     T1,
		"appointments":    T2,
		"important_dates": T3,
		"other":           T3,
		"groceries":       T3,
		"":                T3,
	}
	for category, want := range tests {
		assert.Equal(t, want, r.Resolve(category).ID, "category %q", category)
	}
}

func TestResolveAcceptsTierID(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, T2, r.Resolve("T2").ID)
	assert.Equal(t, T1, r.Resolve("t1").ID)
}

func TestMergeRejectsInvalidTiers(t *testing.T) {
	r := NewRegistry(nil)
	rejected := r.Merge(map[string]string{
		"important_dates": "T2",
		"other":           "T9",
		"appointments":    "",
	})
	assert.Equal(t, []string{"appointments", "other"}, rejected)
	assert.Equal(t, T2, r.TierForCategory("important_dates"))
	assert.Equal(t, T3, r.TierForCategory("other"))
	assert.Equal(t, T2, r.TierForCategory("appointments"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := NewRegistry(map[string]string{"other": "T1"})
	b := NewRegistry(nil)
	assert.True(t, a.IsCritical("other"))
	assert.False(t, b.IsCritical("other"))
}

func TestAttachDoesNotMutateInput(t *testing.T) {
	in := notify.Content{Title: "Pills", Data: map[string]any{"reminder_id": "r1"}}
	out := Attach(in, Lookup(T1))

	assert.Empty(t, in.TierID)
	assert.Nil(t, in.Vibration)
	assert.Equal(t, T1, out.TierID)
	assert.Equal(t, "max", out.Priority)
	assert.True(t, out.FullScreenIntent)
	assert.Equal(t, "critical", out.IOSInterruptionLevel)
	assert.Equal(t, "alarm.wav", out.Sound)

	out.Data["extra"] = true
	_, leaked := in.Data["extra"]
	assert.False(t, leaked)
}

func TestAttachKeepsExplicitSound(t *testing.T) {
	out := Attach(notify.Content{Sound: "custom.caf"}, Lookup(T1))
	assert.Equal(t, "custom.caf", out.Sound)
}

func TestLookupReturnsCopy(t *testing.T) {
	p := Lookup(T1)
	require.NotEmpty(t, p.Vibration)
	p.Vibration[0] = 42
	assert.Equal(t, int64(0), Lookup(T1).Vibration[0])
}
