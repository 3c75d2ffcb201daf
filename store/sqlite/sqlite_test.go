package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/leave"
	"github.com/aldenpython/payrollsystem/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestEmployee_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	end := hr.NewDate(2024, time.December, 31)
	emp := hr.Employee{
		ID:           "e1",
		Username:     "eve",
		FullName:     "Eve Adams",
		Position:     "Lead",
		DepartmentID: "ops",
		Salary:       d("5250.75"),
		JoinedOn:     hr.NewDate(2023, time.June, 1),
		LeaveBalance: 12,
		JobHistory: []hr.JobRecord{
			{Position: "Engineer", DepartmentID: "eng", DepartmentName: "Engineering", Start: hr.NewDate(2023, time.June, 1), End: &end},
			{Position: "Lead", DepartmentID: "ops", DepartmentName: "Operations", Start: hr.NewDate(2025, time.January, 1)},
		},
	}

	require.NoError(t, s.SaveEmployee(ctx, emp))
	got, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.True(t, emp.Salary.Equal(got.Salary))
	assert.True(t, emp.JoinedOn.Equal(got.JoinedOn))
	require.Len(t, got.JobHistory, 2)
	require.NotNil(t, got.JobHistory[0].End)
	assert.True(t, end.Equal(*got.JobHistory[0].End))
	assert.True(t, got.JobHistory[1].IsCurrent())

	// Upsert keeps one row
	emp.LeaveBalance = 2
	require.NoError(t, s.SaveEmployee(ctx, emp))
	all, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].LeaveBalance)

	missing, err := s.GetEmployee(ctx, "nobody")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func record(id hr.RecordID, emp hr.EmployeeID, p hr.Period) hr.PayrollRecord {
	hours := d("160")
	return hr.PayrollRecord{
		ID:          id,
		EmployeeID:  emp,
		Period:      p,
		HoursWorked: &hours,
		BaseSalary:  d("5000"),
		Bonuses:     []hr.Bonus{{Description: "Performance", Amount: d("500")}},
		Deductions: []hr.Deduction{
			{Description: "Income Tax", Amount: d("550")},
			{Description: "Health Contribution", Amount: d("200")},
		},
		CreatedAt: time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestPayrollRecords_RoundTripAndFilter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	march, april := hr.MonthPeriod(2025, time.March), hr.MonthPeriod(2025, time.April)

	require.NoError(t, s.AppendPayrollRecords(ctx, []hr.PayrollRecord{
		record("r1", "e1", march),
		record("r2", "e2", march),
		record("r3", "e1", april),
	}))

	got, err := s.FindPayrollRecord(ctx, "e1", march)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hr.RecordID("r1"), got.ID)
	assert.True(t, d("4750").Equal(got.NetPay()))
	assert.Equal(t, "Income Tax", got.Deductions[0].Description)
	require.NotNil(t, got.HoursWorked)

	byEmployee, err := s.ListPayrollRecords(ctx, hr.PayrollFilter{EmployeeID: "e1"})
	require.NoError(t, err)
	assert.Len(t, byEmployee, 2)

	window := hr.Period{Start: hr.NewDate(2025, time.March, 31), End: hr.NewDate(2025, time.March, 31)}
	overlapping, err := s.ListPayrollRecords(ctx, hr.PayrollFilter{Overlaps: &window})
	require.NoError(t, err)
	assert.Len(t, overlapping, 2)
}

func TestAppendPayrollRecords_DuplicateRejectsBatch(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	march := hr.MonthPeriod(2025, time.March)
	require.NoError(t, s.AppendPayrollRecords(ctx, []hr.PayrollRecord{record("r1", "e1", march)}))

	// WHEN: A batch whose second record collides
	err := s.AppendPayrollRecords(ctx, []hr.PayrollRecord{
		record("r2", "e2", march),
		record("r3", "e1", march),
	})

	// THEN: Nothing from the batch is stored
	var dup *hr.DuplicatePeriodError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, hr.EmployeeID("e1"), dup.EmployeeID)

	all, err := s.ListPayrollRecords(ctx, hr.PayrollFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAppendPayrollRecords_IDCollisionIsNotDuplicatePeriod(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendPayrollRecords(ctx, []hr.PayrollRecord{record("r1", "e1", hr.MonthPeriod(2025, time.March))}))

	// WHEN: Same record id, different period
	err := s.AppendPayrollRecords(ctx, []hr.PayrollRecord{record("r1", "e1", hr.MonthPeriod(2025, time.April))})

	// THEN: A storage failure, not a skippable duplicate
	require.Error(t, err)
	assert.NotErrorIs(t, err, hr.ErrDuplicatePeriod)
	var dup *hr.DuplicatePeriodError
	assert.False(t, errors.As(err, &dup))

	all, err := s.ListPayrollRecords(ctx, hr.PayrollFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWithTx_RollsBack(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx hr.Store) error {
		require.NoError(t, tx.SaveDepartment(ctx, hr.Department{ID: "eng", Name: "Engineering"}))
		dept, err := tx.GetDepartment(ctx, "eng")
		require.NoError(t, err)
		require.NotNil(t, dept, "write visible inside the transaction")
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	dept, err := s.GetDepartment(ctx, "eng")
	require.NoError(t, err)
	assert.Nil(t, dept)
}

func TestTaxRatesAndBenefits_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	floor := d("1000")

	require.NoError(t, s.SaveTaxRate(ctx, hr.TaxRate{ID: "t1", Name: "Old", Percentage: d("0.2")}))
	require.NoError(t, s.SaveTaxRate(ctx, hr.TaxRate{ID: "t2", Name: "New", Percentage: d("0.1"), ThresholdMin: &floor, Active: true}))
	rates, err := s.ListTaxRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, hr.TaxRateID("t1"), rates[0].ID, "creation order")
	assert.True(t, rates[1].Active)
	require.NotNil(t, rates[1].ThresholdMin)
	assert.Nil(t, rates[1].ThresholdMax)

	require.NoError(t, s.SaveBenefitPlan(ctx, hr.BenefitPlan{ID: "p1", Name: "Health", EmployeeContribution: d("200"), EmployerContribution: d("300"), Active: true}))
	enrolled := time.Date(2025, time.March, 1, 9, 30, 0, 0, time.UTC)
	sel := hr.BenefitSelection{ID: "s1", EmployeeID: "e1", PlanID: "p1", EnrolledAt: enrolled, Active: true}
	require.NoError(t, s.SaveBenefitSelection(ctx, sel))

	closed, err := sel.Deactivate(enrolled.Add(48 * time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.SaveBenefitSelection(ctx, closed))

	sels, err := s.ListBenefitSelections(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, sels, 1)
	assert.False(t, sels[0].Active)
	require.NotNil(t, sels[0].UnenrolledAt)
	assert.True(t, enrolled.Equal(sels[0].EnrolledAt))
}

func TestLeaveRequests_Filter(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	p := hr.Period{Start: hr.NewDate(2025, time.March, 10), End: hr.NewDate(2025, time.March, 12)}

	require.NoError(t, s.SaveLeaveRequest(ctx, hr.LeaveRequest{ID: "l1", EmployeeID: "e1", Period: p, Reason: "trip", Status: hr.LeavePending, RequestedAt: now}))
	require.NoError(t, s.SaveLeaveRequest(ctx, hr.LeaveRequest{ID: "l2", EmployeeID: "e2", Period: p, Reason: "trip", Status: hr.LeaveApproved, RequestedAt: now, ActionedAt: &now, ActionedBy: "hana"}))

	pending, err := s.ListLeaveRequests(ctx, hr.LeaveFilter{Status: hr.LeavePending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, hr.RequestID("l1"), pending[0].ID)
	assert.Equal(t, 3, pending[0].DurationDays())

	approved, err := s.GetLeaveRequest(ctx, "l2")
	require.NoError(t, err)
	require.NotNil(t, approved.ActionedAt)
	assert.Equal(t, "hana", approved.ActionedBy)
}

func TestCorruptRowsAreSkipped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s, err := sqlite.New(":memory:", zap.New(core))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.SaveTaxRate(ctx, hr.TaxRate{ID: "good", Name: "Good", Percentage: d("0.1")}))
	require.NoError(t, s.SaveTaxRate(ctx, hr.TaxRate{ID: "bad", Name: "Bad", Percentage: d("0.1")}))
	require.NoError(t, s.CorruptForTest(ctx, "UPDATE tax_rates SET percentage = 'lots' WHERE id = 'bad'"))

	rates, err := s.ListTaxRates(ctx)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.Equal(t, hr.TaxRateID("good"), rates[0].ID)
	assert.Equal(t, 1, logs.FilterMessage("skipping undecodable row").Len())
}

func TestAuditLog(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	audit := hr.NewAuditor(s, zap.NewNop())

	audit.Record(ctx, "hana", hr.AuditTaxRateCreated, "first", "tax_rate", "t1")
	audit.Record(ctx, "hana", hr.AuditTaxRateActivated, "second", "tax_rate", "t1")

	entries, err := s.AuditEntries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, hr.AuditTaxRateActivated, entries[0].Action)
}

// Leave approval runs through WithTx on a single connection; concurrent
// approvals against one balance must not both debit it.
func TestLeaveApproval_ConcurrentOnSQLite(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveEmployee(ctx, hr.Employee{ID: "e1", Username: "eve", Salary: d("1"), JoinedOn: hr.NewDate(2024, 1, 1), LeaveBalance: 5}))

	ledger := leave.NewLedger(s, nil, zap.NewNop())
	ledger.Now = func() time.Time { return now }
	eve := hr.Actor{Username: "eve", Role: hr.RoleEmployee, EmployeeID: "e1"}
	manager := hr.Actor{Username: "hana", Role: hr.RoleHRManager}

	var ids []hr.RequestID
	for _, start := range []int{10, 20} {
		req, err := ledger.Request(ctx, "e1", hr.Period{
			Start: hr.NewDate(2025, time.March, start),
			End:   hr.NewDate(2025, time.March, start+2),
		}, "trip", eve)
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id hr.RequestID) {
			defer wg.Done()
			_, errs[i] = ledger.Approve(ctx, id, manager)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, hr.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 1, succeeded)

	emp, err := s.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 2, emp.LeaveBalance)
}
