package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/lazypower/cadence/internal/schedule"
	"github.com/lazypower/cadence/internal/store"
	"github.com/lazypower/cadence/internal/timeofday"
)

// AnchorStore owns the four routine anchor times.
type AnchorStore struct {
	repo      AnchorRepository
	scheduler *Scheduler
	logger    *zap.Logger
}

// AnchorUpdate is the outcome of SetAnchor: the full anchor map after the
// change and the reschedule sweep it triggered.
type AnchorUpdate struct {
	Anchors map[string]string `json:"anchors"`
	Sweep   *AnchorSweep      `json:"sweep,omitempty"`
}

// Anchors returns persisted anchor times merged over the defaults. A
// persisted value that does not parse falls back to the default.
func (a *AnchorStore) Anchors(ctx context.Context) (map[string]string, error) {
	stored, err := a.repo.LoadAnchors(ctx)
	if err != nil {
		return nil, fmt.Errorf("anchors: %w", err)
	}
	return mergeAnchors(schedule.DefaultAnchors(), stored), nil
}

// TimeOf returns the parsed time of day of one anchor.
func (a *AnchorStore) TimeOf(ctx context.Context, name string) (timeofday.TimeOfDay, error) {
	canon, ok := schedule.CanonicalAnchor(name)
	if !ok {
		return timeofday.TimeOfDay{}, invalid("anchor", "unknown routine anchor %q", name)
	}
	anchors, err := a.Anchors(ctx)
	if err != nil {
		return timeofday.TimeOfDay{}, err
	}
	tod, _ := timeofday.Parse(anchors[canon])
	return tod, nil
}

// SetAnchor validates and persists one anchor time, then reschedules every
// future reminder bound to it before returning.
func (a *AnchorStore) SetAnchor(ctx context.Context, name, timeOfDay string) (*AnchorUpdate, error) {
	canon, ok := schedule.CanonicalAnchor(name)
	if !ok {
		return nil, invalid("anchor", "unknown routine anchor %q, want one of Breakfast, Lunch, Dinner, Bedtime", name)
	}
	norm, ok := timeofday.Normalize(timeOfDay)
	if !ok {
		return nil, invalid("time_of_day", "invalid time of day %q", timeOfDay)
	}

	anchors, err := a.Anchors(ctx)
	if err != nil {
		return nil, err
	}
	anchors[canon] = norm
	if err := a.repo.SaveAnchors(ctx, anchors); err != nil {
		return nil, fmt.Errorf("set anchor %s: %w", canon, err)
	}
	a.logger.Info("anchor updated", zap.String("anchor", canon), zap.String("time_of_day", norm))

	sweep, err := a.scheduler.RescheduleForAnchor(ctx, canon, norm)
	if err != nil {
		return nil, fmt.Errorf("reschedule %s reminders: %w", canon, err)
	}
	return &AnchorUpdate{Anchors: anchors, Sweep: sweep}, nil
}

// Initialize migrates anchors from the legacy settings key, then makes sure
// all four anchors are persisted. Running it again changes nothing. Legacy
// migration problems are reported as diagnostics.
func (a *AnchorStore) Initialize(ctx context.Context) ([]Diagnostic, error) {
	stored, err := a.repo.LoadAnchors(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize anchors: %w", err)
	}

	var diags []Diagnostic
	legacy, err := a.loadLegacy(ctx)
	if err != nil {
		diags = append(diags, Diagnostic{Step: StepLegacyMigration, Err: err})
		a.logger.Warn("legacy anchor migration", zap.Error(err))
	}

	// Current rows win over legacy values.
	merged := mergeAnchors(mergeAnchors(schedule.DefaultAnchors(), legacy), stored)
	if !maps.Equal(merged, stored) {
		if err := a.repo.SaveAnchors(ctx, merged); err != nil {
			return diags, fmt.Errorf("initialize anchors: %w", err)
		}
	}

	if legacy != nil {
		if err := a.repo.DeleteSetting(ctx, store.LegacyAnchorsKey); err != nil {
			diags = append(diags, Diagnostic{Step: StepLegacyMigration, Err: err})
		} else {
			a.logger.Info("migrated legacy anchors", zap.Int("count", len(legacy)))
		}
	}
	return diags, nil
}

// loadLegacy returns the legacy anchor object, or nil when there is none.
func (a *AnchorStore) loadLegacy(ctx context.Context) (map[string]string, error) {
	raw, ok, err := a.repo.GetSetting(ctx, store.LegacyAnchorsKey)
	if err != nil || !ok {
		return nil, err
	}
	var legacy map[string]string
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy anchors: %w", err)
	}
	if legacy == nil {
		legacy = map[string]string{}
	}
	return legacy, nil
}

// mergeAnchors overlays valid entries of src onto dst, canonicalising names
// and normalising times. Unknown names and unparseable times are dropped.
func mergeAnchors(dst, src map[string]string) map[string]string {
	for name, raw := range src {
		canon, ok := schedule.CanonicalAnchor(name)
		if !ok {
			continue
		}
		if norm, ok := timeofday.Normalize(raw); ok {
			dst[canon] = norm
		}
	}
	return dst
}
