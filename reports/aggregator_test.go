package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/hr/store"
	"github.com/aldenpython/payrollsystem/reports"
)

var (
	admin = hr.Actor{Username: "root", Role: hr.RoleAdmin}
	alice = hr.Actor{Username: "alice", Role: hr.RoleEmployee, EmployeeID: "e1"}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seed(t *testing.T) (*reports.Aggregator, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.SaveDepartment(ctx, hr.Department{ID: "eng", Name: "Engineering"}))
	require.NoError(t, mem.SaveDepartment(ctx, hr.Department{ID: "ops", Name: "Operations"}))
	for _, e := range []hr.Employee{
		{ID: "e1", FullName: "Alice", DepartmentID: "eng", Salary: d("5000")},
		{ID: "e2", FullName: "Bob", DepartmentID: "eng", Salary: d("4000")},
		{ID: "e3", FullName: "Carol", DepartmentID: "ops", Salary: d("3000")},
	} {
		require.NoError(t, mem.SaveEmployee(ctx, e))
	}
	require.NoError(t, mem.SaveBenefitPlan(ctx, hr.BenefitPlan{ID: "p1", Name: "Health", Active: true}))

	record := func(id hr.RecordID, emp hr.EmployeeID, month time.Month, base string, deductions ...hr.Deduction) hr.PayrollRecord {
		return hr.PayrollRecord{
			ID:         id,
			EmployeeID: emp,
			Period:     hr.MonthPeriod(2025, month),
			BaseSalary: d(base),
			Bonuses:    []hr.Bonus{{Description: "Bonus", Amount: d("100")}},
			Deductions: deductions,
		}
	}
	require.NoError(t, mem.AppendPayrollRecords(ctx, []hr.PayrollRecord{
		record("r1", "e1", time.March, "5000",
			hr.Deduction{Description: "Income Tax", Amount: d("510")},
			hr.Deduction{Description: "Health Contribution", Amount: d("200")}),
		record("r2", "e2", time.March, "4000",
			hr.Deduction{Description: "HEALTH Contribution", Amount: d("150")}),
		record("r3", "e3", time.March, "3000",
			hr.Deduction{Description: "Health Contribution", Amount: d("99")}),
		record("r4", "e1", time.January, "4800"),
		record("r5", "e1", time.February, "4900"),
	}))

	return reports.NewAggregator(mem, mem, zap.NewNop()), mem
}

func TestDepartmentExpenditure(t *testing.T) {
	// GIVEN: A window that intersects only the March records
	agg, _ := seed(t)
	period := hr.Period{Start: hr.NewDate(2025, time.March, 15), End: hr.NewDate(2025, time.April, 15)}

	// WHEN
	report, err := agg.DepartmentExpenditure(context.Background(), "eng", period, admin)
	require.NoError(t, err)

	// THEN: Only eng members count, tax is not a benefit, plan match ignores case

	assert.Equal(t, "Engineering", report.DepartmentName)
	assert.Equal(t, 2, report.EmployeesProcessed)
	assert.True(t, d("9200").Equal(report.TotalGross), "gross %s", report.TotalGross)
	assert.True(t, d("350").Equal(report.TotalBenefitsDeducted))
	require.Len(t, report.BenefitDistribution, 2)
	assert.True(t, d("200").Equal(report.BenefitDistribution["Health Contribution"]))
	assert.True(t, d("150").Equal(report.BenefitDistribution["HEALTH Contribution"]))
}

func TestDepartmentExpenditure_DistinctEmployees(t *testing.T) {
	// GIVEN: A quarter holding three of Alice's records and one of Bob's
	agg, _ := seed(t)
	q1 := hr.Period{Start: hr.NewDate(2025, time.January, 1), End: hr.NewDate(2025, time.March, 31)}
	report, err := agg.DepartmentExpenditure(context.Background(), "eng", q1, admin)
	require.NoError(t, err)

	assert.Equal(t, 2, report.EmployeesProcessed)
	assert.True(t, d("19100").Equal(report.TotalGross), "gross %s", report.TotalGross)
}

func TestDepartmentExpenditure_Errors(t *testing.T) {
	agg, _ := seed(t)
	ctx := context.Background()
	march := hr.MonthPeriod(2025, time.March)

	_, err := agg.DepartmentExpenditure(ctx, "eng", march, alice)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)

	_, err = agg.DepartmentExpenditure(ctx, "legal", march, admin)
	assert.ErrorIs(t, err, hr.ErrNotFound)
}

func TestDepartmentExpenditure_EmptyDepartment(t *testing.T) {
	agg, mem := seed(t)
	require.NoError(t, mem.SaveDepartment(context.Background(), hr.Department{ID: "legal", Name: "Legal"}))

	report, err := agg.DepartmentExpenditure(context.Background(), "legal", hr.MonthPeriod(2025, time.March), admin)

	require.NoError(t, err)
	assert.Zero(t, report.EmployeesProcessed)
	assert.True(t, report.TotalGross.IsZero())
}

func TestSalaryTrend(t *testing.T) {
	agg, _ := seed(t)

	// WHEN: Alice views her own trend
	trend, err := agg.SalaryTrend(context.Background(), "e1", alice)
	require.NoError(t, err)

	// THEN: Points ascend by period end

	assert.Equal(t, "Alice", trend.EmployeeName)
	require.Len(t, trend.Points, 3)
	assert.Equal(t, time.January, trend.Points[0].Period.End.Month())
	assert.Equal(t, time.March, trend.Points[2].Period.End.Month())
	assert.True(t, d("4900").Equal(trend.Points[0].Gross))
}

func TestSalaryTrend_OthersNeedReportRights(t *testing.T) {
	agg, _ := seed(t)

	_, err := agg.SalaryTrend(context.Background(), "e2", alice)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)

	_, err = agg.SalaryTrend(context.Background(), "e9", admin)
	assert.ErrorIs(t, err, hr.ErrNotFound)
}
