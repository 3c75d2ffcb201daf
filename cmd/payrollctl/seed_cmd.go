package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aldenpython/payrollsystem/factory"
)

type seedOutput struct {
	File         string `json:"file"`
	Departments  int    `json:"departments"`
	Employees    int    `json:"employees"`
	TaxRates     int    `json:"tax_rates"`
	BenefitPlans int    `json:"benefit_plans"`
	Enrollments  int    `json:"enrollments"`
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load departments, employees, tax rates and benefit plans from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := factory.LoadSeedFile(file)
			if err != nil {
				return err
			}
			s, err := opts.open()
			if err != nil {
				return err
			}
			defer s.Close()

			recs, err := seed.Apply(cmd.Context(), s.store, time.Now())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), seedOutput{
				File:         file,
				Departments:  len(recs.Departments),
				Employees:    len(recs.Employees),
				TaxRates:     len(recs.TaxRates),
				BenefitPlans: len(recs.Plans),
				Enrollments:  len(recs.Selections),
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Seed JSON file (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
