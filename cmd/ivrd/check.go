package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aicc-ivr-backend/internal/hours"
)

var (
	checkAt string
	checkTZ string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Print the business hours decision for an instant",
	Long: `check evaluates one instant against the configured hours and the holidays
listed in the config file, without touching the database.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		cal, err := hours.NewStaticCalendar(cfg.Hours.Holidays)
		if err != nil {
			return err
		}
		svc, window, err := buildHours(cfg.Hours, cfg.Cache, cal)
		if err != nil {
			return err
		}

		d, err := svc.Decide(cmd.Context(), hours.Query{Timezone: checkTZ, CheckTime: checkAt})
		if err != nil {
			return fmt.Errorf("check %q: %w", checkAt, err)
		}

		out := struct {
			IsBusinessHours bool   `json:"is_business_hours"`
			CurrentTime     string `json:"current_time"`
			BusinessHours   string `json:"business_hours"`
			NextBusinessDay string `json:"next_business_day"`
			NextFound       bool   `json:"next_business_day_found"`
			Message         string `json:"message"`
		}{
			IsBusinessHours: d.IsOpen,
			CurrentTime:     hours.FormatTimestamp(d.EvaluatedAt),
			BusinessHours:   window,
			NextBusinessDay: hours.FormatTimestamp(*d.NextOpenAt),
			NextFound:       d.NextOpenFound,
			Message:         d.Message,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkAt, "at", "", "instant to check, ISO-8601 (default: now)")
	checkCmd.Flags().StringVar(&checkTZ, "tz", "", "zone for naive --at values and for rendering (default: configured zone)")
}
