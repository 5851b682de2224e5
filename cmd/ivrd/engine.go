package main

import (
	"fmt"
	"time"

	"aicc-ivr-backend/config"
	"aicc-ivr-backend/internal/hours"
)

// buildHours wires the business hours engine from config over cal and
// returns it with the human-readable window shown to callers.
func buildHours(cfg config.HoursConfig, cacheCfg config.CacheConfig, cal hours.HolidayCalendar) (*hours.Service, string, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, "", fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	h := hours.OperatingHours{OpenHour: cfg.OpenHour, CloseHour: cfg.CloseHour, Weekdays: cfg.Weekdays}
	evaluator, err := hours.NewEvaluator(h, cal, loc)
	if err != nil {
		return nil, "", err
	}

	var cache *hours.DecisionCache
	if !cacheCfg.Disabled {
		cache = hours.NewDecisionCache(evaluator, loc, cacheCfg.Capacity, time.Duration(cacheCfg.TTLSeconds)*time.Second, nil)
		if rc, ok := cal.(*hours.ReloadableCalendar); ok {
			rc.OnReplace(cache.Purge)
		}
	}

	label := cfg.ZoneLabel
	if label == "" {
		label = cfg.Timezone
	}
	return hours.NewService(hours.NewNormalizer(loc, nil), evaluator, cache), hours.Describe(h, label), nil
}
