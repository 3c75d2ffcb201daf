package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/hr"
)

type runOutput struct {
	Command    string           `json:"command"`
	DurationMS int64            `json:"duration_ms"`
	Result     api.RunResultDTO `json:"result"`
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate payslips for every employee for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				m   hr.Date
				err error
			)
			if month == "" {
				m = api.PreviousMonth(time.Now())
			} else if m, err = api.ParseMonth(month); err != nil {
				return err
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			start := time.Now()
			res, err := s.services.Runner.RunForAll(cmd.Context(), m, s.actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), runOutput{
				Command:    "payroll run",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     api.ToRunResultDTO(res),
			})
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month to pay, YYYY-MM (default previous month)")
	return cmd
}
