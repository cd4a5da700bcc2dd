package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func init() {
	tasksCmd := &cobra.Command{Use: "tasks", Short: "Task operations"}

	// create
	var title, notes, date, clock, tz string
	var lead, duration int
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task, optionally scheduled",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			if title == "" {
				return fmt.Errorf("--title required")
			}
			sched := map[string]interface{}{}
			if date != "" {
				sched["localDate"] = date
			}
			if clock != "" {
				sched["localTime"] = clock
			}
			if tz != "" {
				sched["timeZone"] = tz
			}
			if cmd.Flags().Changed("lead") {
				sched["notifyLeadMinutes"] = lead
			}
			if duration > 0 {
				sched["durationMinutes"] = duration
			}
			payload := map[string]interface{}{"title": title}
			if notes != "" {
				payload["notes"] = notes
			}
			if len(sched) > 0 {
				payload["schedule"] = sched
			}
			return call(httpClient().R().SetBody(payload), http.MethodPost,
				fmt.Sprintf("/api/users/%s/tasks", userFlag))
		},
	}
	createCmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	createCmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	createCmd.Flags().StringVar(&date, "date", "", "Local date YYYY-MM-DD")
	createCmd.Flags().StringVar(&clock, "time", "", "Local time HH:MM")
	createCmd.Flags().StringVar(&tz, "tz", "", "IANA time zone")
	createCmd.Flags().IntVar(&lead, "lead", 0, "Notify lead minutes")
	createCmd.Flags().IntVar(&duration, "duration", 0, "Duration minutes")
	tasksCmd.AddCommand(createCmd)

	// list
	var status, from, to string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			req := httpClient().R()
			if status != "" {
				req.SetQueryParam("status", status)
			}
			if from != "" {
				req.SetQueryParam("from", from)
			}
			if to != "" {
				req.SetQueryParam("to", to)
			}
			return call(req, http.MethodGet, fmt.Sprintf("/api/users/%s/tasks", userFlag))
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, DONE)")
	listCmd.Flags().StringVar(&from, "from", "", "Local date lower bound YYYY-MM-DD")
	listCmd.Flags().StringVar(&to, "to", "", "Local date upper bound YYYY-MM-DD")
	tasksCmd.AddCommand(listCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get TASK_ID",
		Short: "Get task by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return call(httpClient().R(), http.MethodGet,
				fmt.Sprintf("/api/users/%s/tasks/%s", userFlag, args[0]))
		},
	}
	tasksCmd.AddCommand(getCmd)

	// reschedule
	var sDate, sTime, sTz string
	var sLead int
	var clear bool
	schedCmd := &cobra.Command{
		Use:   "reschedule TASK_ID",
		Short: "Edit a task's schedule fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			patch := map[string]interface{}{}
			if clear {
				patch["clear"] = true
			}
			if cmd.Flags().Changed("date") {
				patch["localDate"] = sDate
			}
			if cmd.Flags().Changed("time") {
				patch["localTime"] = sTime
			}
			if cmd.Flags().Changed("tz") {
				patch["timeZone"] = sTz
			}
			if cmd.Flags().Changed("lead") {
				patch["notifyLeadMinutes"] = sLead
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to change")
			}
			return call(httpClient().R().SetBody(patch), http.MethodPatch,
				fmt.Sprintf("/api/users/%s/tasks/%s/schedule", userFlag, args[0]))
		},
	}
	schedCmd.Flags().StringVar(&sDate, "date", "", "Local date YYYY-MM-DD (empty clears)")
	schedCmd.Flags().StringVar(&sTime, "time", "", "Local time HH:MM (empty clears)")
	schedCmd.Flags().StringVar(&sTz, "tz", "", "IANA time zone")
	schedCmd.Flags().IntVar(&sLead, "lead", 0, "Notify lead minutes (-1 disables)")
	schedCmd.Flags().BoolVar(&clear, "clear", false, "Clear the whole schedule")
	tasksCmd.AddCommand(schedCmd)

	// done
	doneCmd := &cobra.Command{
		Use:   "done TASK_ID",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return call(httpClient().R().SetBody(map[string]string{"status": "DONE"}), http.MethodPatch,
				fmt.Sprintf("/api/users/%s/tasks/%s", userFlag, args[0]))
		},
	}
	tasksCmd.AddCommand(doneCmd)

	// delete
	deleteCmd := &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return call(httpClient().R(), http.MethodDelete,
				fmt.Sprintf("/api/users/%s/tasks/%s", userFlag, args[0]))
		},
	}
	tasksCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(tasksCmd)
}
