package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	templatesCmd := &cobra.Command{Use: "templates", Short: "Recurring template operations"}

	// create
	var title, rrule, clock, tz string
	var lead, duration int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a recurring task template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if title == "" || rrule == "" || clock == "" || tz == "" {
				return fmt.Errorf("--title, --rrule, --time and --tz required")
			}
			payload := map[string]interface{}{
				"title":           title,
				"rrule":           rrule,
				"localTime":       clock,
				"timeZone":        tz,
				"durationMinutes": duration,
			}
			if cmd.Flags().Changed("lead") {
				payload["notifyLeadMinutes"] = lead
			}
			return call(httpClient().R().SetBody(payload), http.MethodPost,
				fmt.Sprintf("/api/users/%s/templates", userFlag))
		},
	}
	createCmd.Flags().StringVar(&title, "title", "", "Template title (required)")
	createCmd.Flags().StringVar(&rrule, "rrule", "", "RFC 5545 recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO (required)")
	createCmd.Flags().StringVar(&clock, "time", "", "Local time HH:MM for each occurrence (required)")
	createCmd.Flags().StringVar(&tz, "tz", "", "IANA time zone (required)")
	createCmd.Flags().IntVar(&lead, "lead", 0, "Notify lead minutes")
	createCmd.Flags().IntVar(&duration, "duration", 0, "Duration minutes")
	templatesCmd.AddCommand(createCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return call(httpClient().R(), http.MethodGet,
				fmt.Sprintf("/api/users/%s/templates", userFlag))
		},
	}
	templatesCmd.AddCommand(listCmd)

	// materialize
	var from, to string
	materializeCmd := &cobra.Command{
		Use:   "materialize TEMPLATE_ID",
		Short: "Expand a template into task instances for a date window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if from == "" || to == "" {
				return fmt.Errorf("--from and --to required")
			}
			req := httpClient().R().
				SetQueryParam("from", from).
				SetQueryParam("to", to)
			return call(req, http.MethodPost,
				fmt.Sprintf("/api/users/%s/templates/%s/materialize", userFlag, args[0]))
		},
	}
	materializeCmd.Flags().StringVar(&from, "from", "", "Window start YYYY-MM-DD (required)")
	materializeCmd.Flags().StringVar(&to, "to", "", "Window end YYYY-MM-DD, inclusive (required)")
	templatesCmd.AddCommand(materializeCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete TEMPLATE_ID",
		Short: "Delete a template (materialized tasks survive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return call(httpClient().R(), http.MethodDelete,
				fmt.Sprintf("/api/users/%s/templates/%s", userFlag, args[0]))
		},
	}
	templatesCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(templatesCmd)
}
