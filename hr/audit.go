package hr

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT LOG - Append-only record of who did what when
// =============================================================================

type AuditAction string

const (
	AuditPayslipGenerated    AuditAction = "payslip_generated"
	AuditPayslipSkipped      AuditAction = "payslip_skipped"
	AuditPayslipFailed       AuditAction = "payslip_failed"
	AuditBatchStarted        AuditAction = "batch_payroll_started"
	AuditBatchPayslip        AuditAction = "batch_payslip_generated"
	AuditBatchSkipped        AuditAction = "batch_payslip_skipped"
	AuditBatchCompleted      AuditAction = "batch_payroll_completed"
	AuditBatchFailed         AuditAction = "batch_payroll_failed"
	AuditLeaveRequested      AuditAction = "leave_requested"
	AuditLeaveRequestFailed  AuditAction = "leave_request_failed"
	AuditLeaveApproved       AuditAction = "leave_approved"
	AuditLeaveApprovalFailed AuditAction = "leave_approval_failed"
	AuditLeaveRejected       AuditAction = "leave_rejected"
	AuditLeaveRejectFailed   AuditAction = "leave_rejection_failed"
	AuditLeaveCancelled      AuditAction = "leave_cancelled"
	AuditLeaveCancelFailed   AuditAction = "leave_cancel_failed"
	AuditTaxRateCreated      AuditAction = "tax_rate_created"
	AuditTaxRateActivated    AuditAction = "tax_rate_activated"
	AuditBenefitPlanCreated  AuditAction = "benefit_plan_created"
	AuditBenefitEnrolled     AuditAction = "benefit_enrolled"
	AuditBenefitUnenrolled   AuditAction = "benefit_unenrolled"
	AuditEmployeeHired       AuditAction = "employee_hired"
	AuditSalaryChanged       AuditAction = "salary_changed"
	AuditJobChanged          AuditAction = "job_changed"
	AuditDepartmentCreated   AuditAction = "department_created"
)

type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	Actor      string
	Action     AuditAction
	EntityKind string // optional
	EntityID   string // optional
	Detail     string
}

// AuditSink stores audit entries. Append-only.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// AuditFunc adapts a function to AuditSink.
type AuditFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditFunc) Record(ctx context.Context, entry AuditEntry) error { return f(ctx, entry) }

// Auditor records entries on a sink without ever failing the caller.
// A nil Auditor or one without a sink drops entries silently.
type Auditor struct {
	Sink   AuditSink
	Logger *zap.Logger
	Now    func() time.Time
}

func NewAuditor(sink AuditSink, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.L()
	}
	return &Auditor{Sink: sink, Logger: logger.Named("audit"), Now: time.Now}
}

// Record fills in id and timestamp and hands the entry to the sink. A sink
// failure is logged locally and swallowed.
func (a *Auditor) Record(ctx context.Context, actor string, action AuditAction, detail, entityKind, entityID string) {
	if a == nil || a.Sink == nil {
		return
	}
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	entry := AuditEntry{
		ID:         NewID(),
		Timestamp:  now(),
		Actor:      actor,
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		Detail:     detail,
	}
	if err := a.Sink.Record(ctx, entry); err != nil {
		logger := a.Logger
		if logger == nil {
			logger = zap.L()
		}
		logger.Error("audit record failed",
			zap.String("actor", actor),
			zap.String("action", string(action)),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// =============================================================================
// SINKS
// =============================================================================

// LogSink writes audit entries as structured log lines.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Record(_ context.Context, e AuditEntry) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.L().Named("audit")
	}
	logger.Info(string(e.Action),
		zap.String("audit_id", e.ID),
		zap.Time("at", e.Timestamp),
		zap.String("actor", e.Actor),
		zap.String("entity_kind", e.EntityKind),
		zap.String("entity_id", e.EntityID),
		zap.String("detail", e.Detail),
	)
	return nil
}

// MultiSink records on every sink and returns the first error.
type MultiSink []AuditSink

func (m MultiSink) Record(ctx context.Context, e AuditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
