// Package benefits tracks benefit plans and which employees are enrolled in
// them. The payroll engine reads active selections to build contribution
// deductions.
package benefits

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

type Ledger struct {
	Store  hr.Store
	Audit  *hr.Auditor // optional
	Logger *zap.Logger
	Now    func() time.Time
}

func NewLedger(store hr.Store, audit *hr.Auditor, logger ...*zap.Logger) *Ledger {
	l := zap.L().Named("benefits.ledger")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Ledger{Store: store, Audit: audit, Logger: l, Now: time.Now}
}

// =============================================================================
// PLANS
// =============================================================================

func (l *Ledger) CreatePlan(ctx context.Context, plan hr.BenefitPlan, actor hr.Actor) (hr.BenefitPlan, error) {
	if err := hr.Authorize(actor, hr.CapManageBenefits); err != nil {
		return hr.BenefitPlan{}, err
	}
	if err := plan.Validate(); err != nil {
		return hr.BenefitPlan{}, err
	}
	if plan.ID == "" {
		plan.ID = hr.PlanID(hr.NewID())
	}
	if err := l.Store.SaveBenefitPlan(ctx, plan); err != nil {
		l.Logger.Error("failed to save benefit plan", zap.String("name", plan.Name), zap.Error(err))
		return hr.BenefitPlan{}, hr.Persistence("save benefit plan", err)
	}

	l.Audit.Record(ctx, actor.Username, hr.AuditBenefitPlanCreated,
		fmt.Sprintf("Benefit plan %q created.", plan.Name), "BenefitPlan", string(plan.ID))
	return plan, nil
}

func (l *Ledger) ListPlans(ctx context.Context) ([]hr.BenefitPlan, error) {
	plans, err := l.Store.ListBenefitPlans(ctx)
	if err != nil {
		return nil, hr.Persistence("list benefit plans", err)
	}
	return plans, nil
}

// PlanByID returns nil if the plan does not exist.
func (l *Ledger) PlanByID(ctx context.Context, id hr.PlanID) (*hr.BenefitPlan, error) {
	plan, err := l.Store.GetBenefitPlan(ctx, id)
	if err != nil {
		return nil, hr.Persistence("get benefit plan", err)
	}
	return plan, nil
}

// =============================================================================
// SELECTIONS
// =============================================================================

// SelectionsFor returns every selection of the employee, active or not.
func (l *Ledger) SelectionsFor(ctx context.Context, employeeID hr.EmployeeID) ([]hr.BenefitSelection, error) {
	selections, err := l.Store.ListBenefitSelections(ctx, employeeID)
	if err != nil {
		return nil, hr.Persistence("list benefit selections", err)
	}
	return selections, nil
}

func (l *Ledger) ActiveSelectionsFor(ctx context.Context, employeeID hr.EmployeeID) ([]hr.BenefitSelection, error) {
	selections, err := l.SelectionsFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	active := selections[:0]
	for _, s := range selections {
		if s.Active {
			active = append(active, s)
		}
	}
	return active, nil
}

// Enroll always creates a new active selection. It does not check for an
// existing active selection in the same plan; callers filter before offering
// enrollment.
func (l *Ledger) Enroll(ctx context.Context, employeeID hr.EmployeeID, planID hr.PlanID, actor hr.Actor) (hr.BenefitSelection, error) {
	if err := hr.Authorize(actor, hr.CapManageBenefits); err != nil {
		return hr.BenefitSelection{}, err
	}

	plan, err := l.PlanByID(ctx, planID)
	if err != nil {
		return hr.BenefitSelection{}, err
	}
	if plan == nil {
		return hr.BenefitSelection{}, hr.NotFound("benefit plan", planID)
	}

	selection := hr.BenefitSelection{
		ID:         hr.SelectionID(hr.NewID()),
		EmployeeID: employeeID,
		PlanID:     planID,
		EnrolledAt: l.Now(),
		Active:     true,
	}
	if err := l.Store.SaveBenefitSelection(ctx, selection); err != nil {
		l.Logger.Error("failed to save benefit selection",
			zap.String("employee_id", string(employeeID)),
			zap.String("plan_id", string(planID)),
			zap.Error(err),
		)
		return hr.BenefitSelection{}, hr.Persistence("save benefit selection", err)
	}

	l.Audit.Record(ctx, actor.Username, hr.AuditBenefitEnrolled,
		fmt.Sprintf("Employee %s enrolled in %q.", employeeID, plan.Name), "BenefitSelection", string(selection.ID))
	l.Logger.Info("employee enrolled",
		zap.String("employee_id", string(employeeID)),
		zap.String("plan_id", string(planID)),
	)
	return selection, nil
}

// Unenroll deactivates an active selection. A selection that does not exist
// or is already inactive is NotFound.
func (l *Ledger) Unenroll(ctx context.Context, id hr.SelectionID, actor hr.Actor) (hr.BenefitSelection, error) {
	if err := hr.Authorize(actor, hr.CapManageBenefits); err != nil {
		return hr.BenefitSelection{}, err
	}

	selection, err := l.Store.GetBenefitSelection(ctx, id)
	if err != nil {
		return hr.BenefitSelection{}, hr.Persistence("get benefit selection", err)
	}
	if selection == nil || !selection.Active {
		l.Logger.Warn("active selection not found", zap.String("selection_id", string(id)))
		return hr.BenefitSelection{}, hr.NotFound("active benefit selection", id)
	}

	closed, err := selection.Deactivate(l.Now())
	if err != nil {
		return hr.BenefitSelection{}, err
	}
	if err := l.Store.SaveBenefitSelection(ctx, closed); err != nil {
		l.Logger.Error("failed to save benefit selection", zap.String("selection_id", string(id)), zap.Error(err))
		return hr.BenefitSelection{}, hr.Persistence("save benefit selection", err)
	}

	l.Audit.Record(ctx, actor.Username, hr.AuditBenefitUnenrolled,
		fmt.Sprintf("Employee %s unenrolled from plan %s.", closed.EmployeeID, closed.PlanID),
		"BenefitSelection", string(id))
	return closed, nil
}
