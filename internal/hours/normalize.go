package hours

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrInvalidTimestamp is returned when a caller-supplied timestamp cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		DateLayout,
	}
)

// Instant is one moment seen from two zones. Local is rendered in the
// zone the caller asked for; Canonical is the same moment in the operating
// zone, which is the only zone rules are evaluated in.
type Instant struct {
	Local     time.Time
	Canonical time.Time
}

// Normalizer converts caller timestamps and zone names into Instants.
type Normalizer struct {
	canonical *time.Location
	now       func() time.Time
}

// NewNormalizer creates a Normalizer for the canonical operating zone.
// A nil now defaults to time.Now.
func NewNormalizer(canonical *time.Location, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{canonical: canonical, now: now}
}

// Canonical returns the operating zone.
func (n *Normalizer) Canonical() *time.Location {
	return n.canonical
}

// errLocalZone rejects "Local", which names the host's zone rather than an
// IANA zone.
var errLocalZone = errors.New(`"Local" is not a zone name`)

// Location resolves a zone name. Empty or unknown names fall back to the
// canonical zone; unknown names are logged to the request logger in ctx.
func (n *Normalizer) Location(ctx context.Context, zone string) *time.Location {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		return n.canonical
	}
	loc, err := loadZone(zone)
	if err != nil {
		logger := zerolog.Ctx(ctx)
		if logger.GetLevel() == zerolog.Disabled {
			logger = &log.Logger
		}
		logger.Warn().Err(err).Str("timezone", zone).Str("fallback", n.canonical.String()).Msg("unknown timezone, using canonical zone")
		return n.canonical
	}
	return loc
}

func loadZone(zone string) (*time.Location, error) {
	if strings.EqualFold(zone, "Local") {
		return nil, errLocalZone
	}
	return time.LoadLocation(zone)
}

// Normalize interprets atTime in the requested zone. An empty atTime means now.
// Timestamps carrying an offset keep it; naive ones are local to the zone.
func (n *Normalizer) Normalize(ctx context.Context, atTime, zone string) (Instant, error) {
	loc := n.Location(ctx, zone)

	atTime = strings.TrimSpace(atTime)
	if atTime == "" {
		now := n.now()
		return Instant{Local: now.In(loc), Canonical: now.In(n.canonical)}, nil
	}

	t, err := parseTimestamp(atTime, loc)
	if err != nil {
		return Instant{}, err
	}
	return Instant{Local: t.In(loc), Canonical: t.In(n.canonical)}, nil
}

func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
