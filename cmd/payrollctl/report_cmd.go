package main

import (
	"github.com/spf13/cobra"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/hr"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Payroll reports",
	}
	cmd.AddCommand(newDepartmentReportCmd(opts), newTrendReportCmd(opts))
	return cmd
}

func newDepartmentReportCmd(opts *rootOptions) *cobra.Command {
	var deptID, from, to string

	cmd := &cobra.Command{
		Use:   "department",
		Short: "Gross pay and benefit deductions for a department over a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := hr.ParseDate(from)
			if err != nil {
				return err
			}
			end, err := hr.ParseDate(to)
			if err != nil {
				return err
			}

			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := s.services.Reports.DepartmentExpenditure(cmd.Context(),
				hr.DepartmentID(deptID), hr.Period{Start: start, End: end}, s.actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), api.ToDepartmentReportDTO(rep))
		},
	}

	cmd.Flags().StringVar(&deptID, "id", "", "Department ID (required)")
	cmd.Flags().StringVar(&from, "from", "", "Period start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "Period end, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTrendReportCmd(opts *rootOptions) *cobra.Command {
	var employeeID string

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Gross pay per period for one employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			trend, err := s.services.Reports.SalaryTrend(cmd.Context(), hr.EmployeeID(employeeID), s.actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), api.ToSalaryTrendDTO(trend))
		},
	}

	cmd.Flags().StringVar(&employeeID, "employee", "", "Employee ID (required)")
	_ = cmd.MarkFlagRequired("employee")
	return cmd
}
