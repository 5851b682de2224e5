// Package refresh keeps the holiday calendar in sync with the database and
// an optional remote feed, and purges call records past retention.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"aicc-ivr-backend/config"
	"aicc-ivr-backend/internal/hours"
	"aicc-ivr-backend/internal/model"
	"aicc-ivr-backend/internal/store"
)

// SourceFeed marks holidays written by the feed sync.
const SourceFeed = "feed"

// Service rebuilds the active calendar from config and database holidays.
type Service struct {
	cfg        config.RefreshConfig
	configured []string
	holidays   store.HolidayStore
	calls      store.CallStore
	calendar   *hours.ReloadableCalendar
	client     *http.Client
	now        func() time.Time
}

// NewService creates a refresher. configured are the holidays from the
// config file; they are always part of the calendar.
func NewService(cfg config.RefreshConfig, configured []string, holidays store.HolidayStore, calls store.CallStore, calendar *hours.ReloadableCalendar) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn().Err(err).Str("proxy", cfg.HTTPProxy).Msg("invalid proxy URL, holiday feed will not use a proxy")
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:        cfg,
		configured: configured,
		holidays:   holidays,
		calls:      calls,
		calendar:   calendar,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		now: time.Now,
	}
}

// Run refreshes once immediately and then every configured interval.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Info().Msg("holiday refresh is disabled, not starting")
		return
	}
	log.Info().Dur("interval", s.cfg.Interval).Msg("starting holiday refresh")

	if err := s.RefreshOnce(ctx); err != nil {
		log.Error().Err(err).Msg("holiday refresh failed")
	}

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("holiday refresh shutting down")
			return
		case <-timer.C:
			if err := s.RefreshOnce(ctx); err != nil {
				log.Error().Err(err).Msg("holiday refresh failed")
			}
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RefreshOnce syncs the feed, reloads the calendar and purges expired calls.
// A failing step does not stop the later ones.
func (s *Service) RefreshOnce(ctx context.Context) error {
	var errs []error

	if s.cfg.FeedURL != "" {
		if err := s.SyncFeed(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.Reload(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.calls != nil {
		n, err := s.calls.PurgeExpiredCalls(ctx, s.now().UTC())
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			log.Info().Int64("count", n).Msg("purged expired call records")
		}
	}
	return errors.Join(errs...)
}

// Reload installs config holidays plus every stored holiday as the active calendar.
func (s *Service) Reload(ctx context.Context) error {
	stored, err := s.holidays.ListHolidays(ctx)
	if err != nil {
		return fmt.Errorf("reload calendar: %w", err)
	}

	dates := make([]string, 0, len(s.configured)+len(stored))
	dates = append(dates, s.configured...)
	for _, h := range stored {
		dates = append(dates, h.Date)
	}
	next, err := hours.NewStaticCalendar(dates)
	if err != nil {
		return fmt.Errorf("reload calendar: %w", err)
	}
	s.calendar.Replace(next)
	log.Debug().Int("holidays", next.Len()).Msg("holiday calendar reloaded")
	return nil
}

// SyncFeed fetches the feed and upserts its valid entries.
func (s *Service) SyncFeed(ctx context.Context) error {
	feed, err := s.fetchFeed(ctx)
	if err != nil {
		return fmt.Errorf("sync holiday feed: %w", err)
	}

	now := s.now().UTC()
	holidays := make([]model.Holiday, 0, len(feed.Holidays))
	for _, h := range feed.Holidays {
		date := strings.TrimSpace(h.Date)
		if _, err := time.Parse(hours.DateLayout, date); err != nil {
			log.Warn().Str("date", h.Date).Msg("skipping malformed feed holiday")
			continue
		}
		holidays = append(holidays, model.Holiday{
			Date:      date,
			Name:      h.Name,
			Source:    SourceFeed,
			UpdatedAt: now,
		})
	}
	if err := s.holidays.UpsertHolidays(ctx, holidays); err != nil {
		return fmt.Errorf("sync holiday feed: %w", err)
	}
	log.Info().Int("count", len(holidays)).Msg("holiday feed synced")
	return nil
}

func (s *Service) fetchFeed(ctx context.Context) (*FeedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.FeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var feed FeedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed: %w", err)
	}
	return &feed, nil
}
