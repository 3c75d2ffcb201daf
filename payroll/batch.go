package payroll

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// =============================================================================
// BATCH RUNNER - One month, every employee, one write
// =============================================================================

type OutcomeStatus string

const (
	OutcomeGenerated OutcomeStatus = "generated"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Outcome is what happened to one employee in a batch run.
type Outcome struct {
	EmployeeID hr.EmployeeID
	Status     OutcomeStatus
	RecordID   hr.RecordID // empty when failed
	NetPay     string      // formatted, empty when failed
	Err        error       // set when failed
}

type RunResult struct {
	Period          hr.Period
	Succeeded       int
	SkippedOrFailed int
	Outcomes        []Outcome
}

type Runner struct {
	Engine *Engine
}

func NewRunner(engine *Engine) *Runner {
	return &Runner{Engine: engine}
}

// RunForAll generates payslips for every employee for the calendar month
// containing month. A single employee's failure or duplicate is counted and
// the loop continues. New records are written in one atomic append at the
// end; if that write fails nothing is saved and the run returns the error.
func (r *Runner) RunForAll(ctx context.Context, month hr.Date, actor hr.Actor) (RunResult, error) {
	e := r.Engine
	period := hr.MonthPeriod(month.Year(), month.Month())
	label := fmt.Sprintf("%04d-%02d", month.Year(), int(month.Month()))
	result := RunResult{Period: period}

	if err := hr.Authorize(actor, hr.CapRunPayroll); err != nil {
		e.Audit.Record(ctx, actor.Username, hr.AuditBatchFailed, "Permission denied.", "System", label)
		batchRuns.WithLabelValues("denied").Inc()
		return result, err
	}

	e.Logger.Info("batch payroll started", zap.String("month", label), zap.String("actor", actor.Username))
	e.Audit.Record(ctx, actor.Username, hr.AuditBatchStarted,
		fmt.Sprintf("Batch payroll initiated for %s.", label), "System", label)

	employees, err := e.Directory.AllEmployees(ctx)
	if err != nil {
		batchRuns.WithLabelValues("failed").Inc()
		return result, hr.Persistence("list employees", err)
	}

	var fresh []hr.PayrollRecord
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			batchRuns.WithLabelValues("cancelled").Inc()
			return RunResult{Period: period}, err
		}

		rec, err := e.Calculate(ctx, CalculationInput{EmployeeID: emp.ID, Period: period})
		if err != nil {
			e.Logger.Warn("batch payslip calculation failed", zap.String("employee_id", string(emp.ID)), zap.Error(err))
			result.SkippedOrFailed++
			result.Outcomes = append(result.Outcomes, Outcome{EmployeeID: emp.ID, Status: OutcomeFailed, Err: err})
			continue
		}

		existing, err := e.Records.FindPayrollRecord(ctx, emp.ID, period)
		if err != nil {
			e.Logger.Error("failed to check existing payslip", zap.String("employee_id", string(emp.ID)), zap.Error(err))
			result.SkippedOrFailed++
			result.Outcomes = append(result.Outcomes, Outcome{
				EmployeeID: emp.ID,
				Status:     OutcomeFailed,
				Err:        hr.Persistence("find payroll record", err),
			})
			continue
		}
		if existing != nil {
			e.skipped(ctx, actor, rec, sourceBatch)
			result.SkippedOrFailed++
			result.Outcomes = append(result.Outcomes, Outcome{
				EmployeeID: emp.ID,
				Status:     OutcomeSkipped,
				RecordID:   existing.ID,
				NetPay:     existing.NetPay().StringFixed(2),
			})
			continue
		}

		fresh = append(fresh, rec)
		result.Succeeded++
		result.Outcomes = append(result.Outcomes, Outcome{
			EmployeeID: emp.ID,
			Status:     OutcomeGenerated,
			RecordID:   rec.ID,
			NetPay:     rec.NetPay().StringFixed(2),
		})
	}

	if len(fresh) > 0 {
		if err := e.Records.AppendPayrollRecords(ctx, fresh); err != nil {
			e.Logger.Error("batch payroll write failed, nothing saved", zap.String("month", label), zap.Error(err))
			e.Audit.Record(ctx, actor.Username, hr.AuditBatchFailed,
				fmt.Sprintf("Saving %d payslips for %s failed: %v", len(fresh), label, err), "System", label)
			batchRuns.WithLabelValues("failed").Inc()
			return RunResult{Period: period}, hr.Persistence("append payroll records", err)
		}
		for _, rec := range fresh {
			e.Audit.Record(ctx, actor.Username, hr.AuditBatchPayslip,
				fmt.Sprintf("Payslip generated for employee %s in batch for %s. Net pay: %s.",
					rec.EmployeeID, label, rec.NetPay().StringFixed(2)),
				"PayrollRecord", string(rec.ID))
		}
		recordsGenerated.WithLabelValues(sourceBatch).Add(float64(len(fresh)))
	}

	e.Audit.Record(ctx, actor.Username, hr.AuditBatchCompleted,
		fmt.Sprintf("Batch payroll for %s finished. Success: %d, Failed/Skipped: %d.",
			label, result.Succeeded, result.SkippedOrFailed),
		"System", label)
	e.Logger.Info("batch payroll completed",
		zap.String("month", label),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("skipped_or_failed", result.SkippedOrFailed),
	)
	batchRuns.WithLabelValues("completed").Inc()
	return result, nil
}
