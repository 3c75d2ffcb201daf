// Package reports aggregates stored payroll records into department
// expenditure and per-employee salary trend views. Reports read the store
// directly and never write.
package reports

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

type DepartmentReport struct {
	DepartmentID          hr.DepartmentID
	DepartmentName        string
	Period                hr.Period
	EmployeesProcessed    int
	TotalGross            decimal.Decimal
	TotalBenefitsDeducted decimal.Decimal
	// BenefitDistribution sums benefit deductions by their description.
	BenefitDistribution map[string]decimal.Decimal
}

type SalaryPoint struct {
	Period hr.Period
	Gross  decimal.Decimal
}

type SalaryTrend struct {
	EmployeeID   hr.EmployeeID
	EmployeeName string
	Points       []SalaryPoint // ordered by period end
}

type Aggregator struct {
	Store     hr.Store
	Directory hr.Directory
	Logger    *zap.Logger
}

func NewAggregator(store hr.Store, dir hr.Directory, logger ...*zap.Logger) *Aggregator {
	l := zap.L().Named("reports.aggregator")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Aggregator{Store: store, Directory: dir, Logger: l}
}

// DepartmentExpenditure totals gross pay and benefit deductions for every
// record whose period intersects the requested one, over employees currently
// in the department.
func (a *Aggregator) DepartmentExpenditure(ctx context.Context, deptID hr.DepartmentID, period hr.Period, actor hr.Actor) (DepartmentReport, error) {
	if err := hr.Authorize(actor, hr.CapViewReports); err != nil {
		return DepartmentReport{}, err
	}
	if err := period.Validate(); err != nil {
		return DepartmentReport{}, err
	}

	dept, err := a.Directory.DepartmentByID(ctx, deptID)
	if err != nil {
		return DepartmentReport{}, hr.Persistence("load department", err)
	}
	if dept == nil {
		return DepartmentReport{}, hr.NotFound("department", deptID)
	}

	report := DepartmentReport{
		DepartmentID:          dept.ID,
		DepartmentName:        dept.Name,
		Period:                period,
		TotalGross:            decimal.Zero,
		TotalBenefitsDeducted: decimal.Zero,
		BenefitDistribution:   make(map[string]decimal.Decimal),
	}

	employees, err := a.Directory.AllEmployees(ctx)
	if err != nil {
		return DepartmentReport{}, hr.Persistence("list employees", err)
	}
	members := make(map[hr.EmployeeID]bool)
	for _, e := range employees {
		if e.DepartmentID == deptID {
			members[e.ID] = true
		}
	}
	if len(members) == 0 {
		a.Logger.Debug("no employees in department", zap.String("department_id", string(deptID)))
		return report, nil
	}

	records, err := a.Store.ListPayrollRecords(ctx, hr.PayrollFilter{Overlaps: &period})
	if err != nil {
		return DepartmentReport{}, hr.Persistence("list payroll records", err)
	}

	plans, err := a.Store.ListBenefitPlans(ctx)
	if err != nil {
		return DepartmentReport{}, hr.Persistence("list benefit plans", err)
	}
	planNames := make([]string, 0, len(plans))
	for _, p := range plans {
		planNames = append(planNames, strings.ToLower(p.Name))
	}

	processed := make(map[hr.EmployeeID]bool)
	for _, rec := range records {
		if !members[rec.EmployeeID] {
			continue
		}
		processed[rec.EmployeeID] = true
		report.TotalGross = report.TotalGross.Add(rec.GrossPay())

		for _, d := range rec.Deductions {
			if !isBenefitDeduction(d.Description, planNames) {
				continue
			}
			report.TotalBenefitsDeducted = report.TotalBenefitsDeducted.Add(d.Amount)
			report.BenefitDistribution[d.Description] = report.BenefitDistribution[d.Description].Add(d.Amount)
		}
	}
	report.EmployeesProcessed = len(processed)
	return report, nil
}

// isBenefitDeduction matches a deduction to a plan when its description
// contains the plan name, ignoring case.
func isBenefitDeduction(description string, lowerPlanNames []string) bool {
	desc := strings.ToLower(description)
	for _, name := range lowerPlanNames {
		if name != "" && strings.Contains(desc, name) {
			return true
		}
	}
	return false
}

// SalaryTrend lists gross pay per stored period. Employees may view their
// own trend.
func (a *Aggregator) SalaryTrend(ctx context.Context, id hr.EmployeeID, actor hr.Actor) (SalaryTrend, error) {
	if err := hr.AuthorizeSelf(actor, id, hr.CapViewReports); err != nil {
		return SalaryTrend{}, err
	}

	emp, err := a.Directory.EmployeeByID(ctx, id)
	if err != nil {
		return SalaryTrend{}, hr.Persistence("load employee", err)
	}
	if emp == nil {
		return SalaryTrend{}, hr.NotFound("employee", id)
	}

	records, err := a.Store.ListPayrollRecords(ctx, hr.PayrollFilter{EmployeeID: id})
	if err != nil {
		return SalaryTrend{}, hr.Persistence("list payroll records", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Period.End.Before(records[j].Period.End)
	})

	trend := SalaryTrend{EmployeeID: emp.ID, EmployeeName: emp.FullName, Points: make([]SalaryPoint, 0, len(records))}
	for _, rec := range records {
		trend.Points = append(trend.Points, SalaryPoint{Period: rec.Period, Gross: rec.GrossPay()})
	}
	return trend, nil
}
