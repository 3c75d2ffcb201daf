package main

import (
	"github.com/spf13/cobra"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/hr"
)

func newPayslipsCmd(opts *rootOptions) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "payslips",
		Short: "List an employee's payslips, newest period first",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := s.services.Engine.RecordsForEmployee(cmd.Context(), hr.EmployeeID(employeeID), s.actor)
			if err != nil {
				return err
			}
			out := make([]api.PayrollRecordDTO, 0, len(recs))
			for _, r := range recs {
				out = append(out, api.ToRecordDTO(r))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&employeeID, "employee", "", "Employee ID (required)")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}
