package hours

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TimestampLayout renders zone-qualified ISO-8601 timestamps (+00:00, never Z).
const TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

const (
	MessageOpen   = "현재 업무시간입니다"
	MessageClosed = "현재 업무시간이 아닙니다"
)

// ErrEvaluation wraps any fault raised while evaluating a normalized instant.
var ErrEvaluation = errors.New("business hours evaluation failed")

var tracer = otel.Tracer("aicc-ivr-backend/hours")

// Query is an inbound business-hours question. Both fields are optional.
type Query struct {
	Timezone  string
	CheckTime string
}

// Decision is the answer to a Query. NextOpenAt is nil only on error.
// NextOpenFound is false when NextOpenAt is the unvalidated fallback.
type Decision struct {
	IsOpen        bool
	EvaluatedAt   time.Time
	NextOpenAt    *time.Time
	NextOpenFound bool
	Message       string
}

// Service answers Queries with the normalizer, evaluator and optional cache.
type Service struct {
	normalizer *Normalizer
	evaluator  *Evaluator
	checker    OpenChecker
}

// NewService wires the engine. cache may be nil.
func NewService(n *Normalizer, e *Evaluator, cache *DecisionCache) *Service {
	s := &Service{normalizer: n, evaluator: e, checker: e}
	if cache != nil {
		s.checker = cache
	}
	return s
}

// Evaluator exposes the underlying rules.
func (s *Service) Evaluator() *Evaluator {
	return s.evaluator
}

// Decide returns ErrInvalidTimestamp for unparsable input and ErrEvaluation
// for anything that goes wrong past normalization.
func (s *Service) Decide(ctx context.Context, q Query) (d Decision, err error) {
	ctx, span := tracer.Start(ctx, "hours.Decide")
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			d, err = Decision{}, fmt.Errorf("%w: %v", ErrEvaluation, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	inst, err := s.normalizer.Normalize(ctx, q.CheckTime, q.Timezone)
	if err != nil {
		return Decision{}, err
	}

	open := s.checker.IsOpen(inst.Canonical)
	next, found := s.evaluator.NextOpenAt(inst.Canonical)

	d = Decision{
		IsOpen:        open,
		EvaluatedAt:   inst.Local,
		NextOpenAt:    &next,
		NextOpenFound: found,
		Message:       MessageClosed,
	}
	if open {
		d.Message = MessageOpen
	}

	span.SetAttributes(
		attribute.Bool("hours.open", open),
		attribute.String("hours.evaluated_at", FormatTimestamp(inst.Canonical)),
		attribute.Bool("hours.next_open_found", found),
	)
	return d, nil
}

// FormatTimestamp renders t with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

var weekdayNames = [7]string{"월", "화", "수", "목", "금", "토", "일"}

// Describe renders a human-readable window such as "평일 09:00-18:00 (Asia/Seoul)".
func Describe(h OperatingHours, zoneLabel string) string {
	var days [7]bool
	for _, d := range h.Weekdays {
		if d >= 0 && d < 7 {
			days[d] = true
		}
	}

	var label string
	switch days {
	case [7]bool{true, true, true, true, true, false, false}:
		label = "평일"
	case [7]bool{true, true, true, true, true, true, true}:
		label = "매일"
	default:
		names := make([]string, 0, 7)
		for i, open := range days {
			if open {
				names = append(names, weekdayNames[i])
			}
		}
		label = strings.Join(names, ",")
	}
	return fmt.Sprintf("%s %02d:00-%02d:00 (%s)", label, h.OpenHour, h.CloseHour, zoneLabel)
}
