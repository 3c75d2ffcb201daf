/*
engine.go - Payroll calculation engine

PURPOSE:
  Turns an employee, a pay period and optional ad-hoc adjustments into a
  PayrollRecord. The calculation itself is pure: it reads the directory,
  the active tax rate and the employee's benefit selections, and produces a
  record without writing anything. GenerateAndSave adds the role gate and
  the duplicate-period guard and persists the result.

CALCULATION ORDER:
  1. Resolve the employee (NotFound if absent)
  2. Base salary = current salary, no pro-ration by period length or hours
  3. Ad-hoc bonuses
  4. Tax on gross pay from step 3, as a deduction named after the rate
  5. "<plan name> Contribution" per active selection whose plan is active
  6. Ad-hoc deductions
  7. Return; gross, deductions and net are derived from the record

  Order matters: tax is computed on the gross after bonuses and before any
  deduction is applied.

DUPLICATE PERIOD GUARD:
  At most one record per (employee, period start, period end). A duplicate
  is not an error: GenerateAndSave returns the freshly computed record with
  saved=false and writes nothing.

SEE ALSO:
  - batch.go: Runs the engine over every employee for one month
  - tax/resolver.go: Active rate and tax owed
  - benefits/ledger.go: Active selections
*/
package payroll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/tax"
)

// TaxPolicy resolves the rate applied to gross pay.
type TaxPolicy interface {
	ActiveRate(ctx context.Context) (*hr.TaxRate, error)
}

// BenefitSource provides the contributions deducted from pay.
type BenefitSource interface {
	ActiveSelectionsFor(ctx context.Context, employeeID hr.EmployeeID) ([]hr.BenefitSelection, error)
	PlanByID(ctx context.Context, id hr.PlanID) (*hr.BenefitPlan, error)
}

// CalculationInput is everything one payslip depends on besides stored state.
type CalculationInput struct {
	EmployeeID  hr.EmployeeID
	Period      hr.Period
	Bonuses     []hr.Bonus
	Deductions  []hr.Deduction
	HoursWorked *decimal.Decimal // recorded for reference only
}

func (in CalculationInput) Validate() error {
	if in.EmployeeID == "" {
		return &hr.ValidationError{Field: "employee_id", Reason: "is required"}
	}
	if err := in.Period.Validate(); err != nil {
		return err
	}
	for _, b := range in.Bonuses {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	for _, d := range in.Deductions {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	if in.HoursWorked != nil && in.HoursWorked.IsNegative() {
		return &hr.ValidationError{Field: "hours_worked", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Directory hr.Directory
	Records   hr.PayrollStore
	Taxes     TaxPolicy
	Benefits  BenefitSource
	Audit     *hr.Auditor // optional
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewEngine(dir hr.Directory, records hr.PayrollStore, taxes TaxPolicy, benefits BenefitSource, audit *hr.Auditor, logger ...*zap.Logger) *Engine {
	l := zap.L().Named("payroll.engine")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Engine{
		Directory: dir,
		Records:   records,
		Taxes:     taxes,
		Benefits:  benefits,
		Audit:     audit,
		Logger:    l,
		Now:       time.Now,
	}
}

// Calculate assembles a payroll record without persisting it.
func (e *Engine) Calculate(ctx context.Context, in CalculationInput) (hr.PayrollRecord, error) {
	if err := in.Validate(); err != nil {
		return hr.PayrollRecord{}, err
	}

	// 1. Employee
	emp, err := e.Directory.EmployeeByID(ctx, in.EmployeeID)
	if err != nil {
		return hr.PayrollRecord{}, hr.Persistence("load employee", err)
	}
	if emp == nil {
		return hr.PayrollRecord{}, hr.NotFound("employee", in.EmployeeID)
	}

	// 2. Base salary, never pro-rated
	rec := hr.PayrollRecord{
		ID:          hr.RecordID(hr.NewID()),
		EmployeeID:  emp.ID,
		Period:      in.Period,
		HoursWorked: in.HoursWorked,
		BaseSalary:  emp.Salary,
		CreatedAt:   e.Now(),
	}

	// 3. Ad-hoc bonuses
	rec.Bonuses = append(rec.Bonuses, in.Bonuses...)

	// 4. Tax on gross
	rate, err := e.Taxes.ActiveRate(ctx)
	if err != nil {
		return hr.PayrollRecord{}, hr.Persistence("resolve tax rate", err)
	}
	if rate == nil {
		e.Logger.Warn("no active tax rate, tax will be zero", zap.String("employee_id", string(emp.ID)))
	} else if owed := tax.Owed(rate, rec.GrossPay()); owed.IsPositive() {
		rec.Deductions = append(rec.Deductions, hr.Deduction{Description: rate.Name, Amount: owed})
	}

	// 5. Benefit contributions
	selections, err := e.Benefits.ActiveSelectionsFor(ctx, emp.ID)
	if err != nil {
		return hr.PayrollRecord{}, hr.Persistence("load benefit selections", err)
	}
	for _, sel := range selections {
		plan, err := e.Benefits.PlanByID(ctx, sel.PlanID)
		if err != nil {
			return hr.PayrollRecord{}, hr.Persistence("load benefit plan", err)
		}
		if plan == nil || !plan.Active {
			continue
		}
		rec.Deductions = append(rec.Deductions, hr.Deduction{
			Description: plan.Name + " Contribution",
			Amount:      plan.EmployeeContribution,
		})
	}

	// 6. Ad-hoc deductions
	rec.Deductions = append(rec.Deductions, in.Deductions...)

	return rec, nil
}

// GenerateAndSave calculates and persists a payslip. A record that already
// exists for the same employee and period is returned with saved=false and
// no error.
func (e *Engine) GenerateAndSave(ctx context.Context, in CalculationInput, actor hr.Actor) (bool, hr.PayrollRecord, error) {
	if err := hr.Authorize(actor, hr.CapGeneratePayroll); err != nil {
		e.Audit.Record(ctx, actor.Username, hr.AuditPayslipFailed,
			fmt.Sprintf("Permission denied for employee %s.", in.EmployeeID), "Payroll", string(in.EmployeeID))
		return false, hr.PayrollRecord{}, err
	}

	e.Logger.Debug("generating payslip",
		zap.String("employee_id", string(in.EmployeeID)),
		zap.String("period", in.Period.String()),
	)

	rec, err := e.Calculate(ctx, in)
	if err != nil {
		e.Logger.Warn("payslip calculation failed", zap.String("employee_id", string(in.EmployeeID)), zap.Error(err))
		e.Audit.Record(ctx, actor.Username, hr.AuditPayslipFailed,
			fmt.Sprintf("Calculation failed for employee %s: %v", in.EmployeeID, err), "Payroll", string(in.EmployeeID))
		return false, hr.PayrollRecord{}, err
	}

	existing, err := e.Records.FindPayrollRecord(ctx, rec.EmployeeID, rec.Period)
	if err != nil {
		e.Logger.Error("failed to check existing payslip", zap.String("employee_id", string(rec.EmployeeID)), zap.Error(err))
		return false, rec, hr.Persistence("find payroll record", err)
	}
	if existing != nil {
		e.skipped(ctx, actor, rec, sourceSingle)
		return false, rec, nil
	}

	if err := e.Records.AppendPayrollRecords(ctx, []hr.PayrollRecord{rec}); err != nil {
		// Lost a race with a concurrent writer for the same period.
		if errors.Is(err, hr.ErrDuplicatePeriod) {
			e.skipped(ctx, actor, rec, sourceSingle)
			return false, rec, nil
		}
		e.Logger.Error("failed to save payslip", zap.String("employee_id", string(rec.EmployeeID)), zap.Error(err))
		e.Audit.Record(ctx, actor.Username, hr.AuditPayslipFailed,
			fmt.Sprintf("Saving payslip for employee %s failed: %v", rec.EmployeeID, err), "PayrollRecord", string(rec.ID))
		return false, rec, hr.Persistence("append payroll record", err)
	}

	recordsGenerated.WithLabelValues(sourceSingle).Inc()
	e.Audit.Record(ctx, actor.Username, hr.AuditPayslipGenerated,
		fmt.Sprintf("Payslip generated for employee %s, period %s. Net pay: %s.",
			rec.EmployeeID, rec.Period, rec.NetPay().StringFixed(2)),
		"PayrollRecord", string(rec.ID))
	e.Logger.Info("payslip saved",
		zap.String("employee_id", string(rec.EmployeeID)),
		zap.String("record_id", string(rec.ID)),
		zap.String("net_pay", rec.NetPay().StringFixed(2)),
	)
	return true, rec, nil
}

func (e *Engine) skipped(ctx context.Context, actor hr.Actor, rec hr.PayrollRecord, source string) {
	recordsSkipped.WithLabelValues(source).Inc()
	action := hr.AuditPayslipSkipped
	if source == sourceBatch {
		action = hr.AuditBatchSkipped
	}
	e.Audit.Record(ctx, actor.Username, action,
		fmt.Sprintf("Duplicate record for employee %s, period %s. Net pay: %s.",
			rec.EmployeeID, rec.Period, rec.NetPay().StringFixed(2)),
		"PayrollRecord", string(rec.ID))
	e.Logger.Warn("payroll record already exists for period, not saved",
		zap.String("employee_id", string(rec.EmployeeID)),
		zap.String("period", rec.Period.String()),
	)
}

// =============================================================================
// QUERIES
// =============================================================================

// RecordsForEmployee returns the employee's payslips, latest period end
// first. Employees may read their own.
func (e *Engine) RecordsForEmployee(ctx context.Context, id hr.EmployeeID, actor hr.Actor) ([]hr.PayrollRecord, error) {
	if err := hr.AuthorizeSelf(actor, id, hr.CapViewPayroll); err != nil {
		return nil, err
	}
	records, err := e.Records.ListPayrollRecords(ctx, hr.PayrollFilter{EmployeeID: id})
	if err != nil {
		return nil, hr.Persistence("list payroll records", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Period.End.After(records[j].Period.End)
	})
	return records, nil
}

func (e *Engine) RecordByID(ctx context.Context, id hr.RecordID, actor hr.Actor) (hr.PayrollRecord, error) {
	rec, err := e.Records.GetPayrollRecord(ctx, id)
	if err != nil {
		return hr.PayrollRecord{}, hr.Persistence("get payroll record", err)
	}
	if rec == nil {
		return hr.PayrollRecord{}, hr.NotFound("payroll record", id)
	}
	if err := hr.AuthorizeSelf(actor, rec.EmployeeID, hr.CapViewPayroll); err != nil {
		return hr.PayrollRecord{}, err
	}
	return *rec, nil
}
