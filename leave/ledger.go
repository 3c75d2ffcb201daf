/*
ledger.go - Leave request lifecycle against the employee's leave balance

PURPOSE:
  Mediates leave through a request/approve/reject workflow. The balance is
  an integer number of days on the employee record; approval debits it.

STATE MACHINE:
  Pending --approve--> Approved   (balance debited)
  Pending --reject---> Rejected
  Pending --cancel---> Cancelled  (requester only)

  Every transition out of Pending happens exactly once. There is no path
  back and no automatic restoration of balance.

INVARIANTS:
  - Balance never goes negative: approval fails with InsufficientBalance
  - No two Approved requests of one employee share a day: a new request
    that intersects an Approved one fails with Overlap
  - Approval writes the request and the debited employee atomically

CONCURRENCY:
  Approve re-reads the request and the employee inside WithTx, so two
  approvals racing on the same employee cannot both pass a stale balance
  check. Requests submitted before either approval may both be Pending;
  only the balance check decides which of them can later be approved.

SEE ALSO:
  - hr/types.go: LeaveRequest, Employee.WithLeaveDebited
  - metrics.go: transition counters
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// DefaultRejectNotes is stored when a request is rejected without notes.
const DefaultRejectNotes = "Rejected by HR."

type Ledger struct {
	Store  hr.TxStore
	Audit  *hr.Auditor // optional
	Logger *zap.Logger
	Now    func() time.Time
}

func NewLedger(store hr.TxStore, audit *hr.Auditor, logger ...*zap.Logger) *Ledger {
	l := zap.L().Named("leave.ledger")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Ledger{Store: store, Audit: audit, Logger: l, Now: time.Now}
}

// =============================================================================
// REQUEST
// =============================================================================

// Request creates a Pending leave request. Employees may only request leave
// for themselves.
func (l *Ledger) Request(ctx context.Context, employeeID hr.EmployeeID, period hr.Period, reason string, requester hr.Actor) (hr.LeaveRequest, error) {
	fail := func(err error) (hr.LeaveRequest, error) {
		transitions.WithLabelValues("request", resultOf(err)).Inc()
		l.Logger.Warn("leave request rejected",
			zap.String("employee_id", string(employeeID)),
			zap.String("requester", requester.Username),
			zap.Error(err),
		)
		l.Audit.Record(ctx, requester.Username, hr.AuditLeaveRequestFailed,
			fmt.Sprintf("Leave request for employee %s failed: %v", employeeID, err), "LeaveRequest", string(employeeID))
		return hr.LeaveRequest{}, err
	}

	if !requester.Owns(employeeID) {
		return fail(&hr.PermissionError{
			Actor:     requester.Username,
			Role:      requester.Role,
			Operation: "request leave for another employee",
		})
	}

	emp, err := l.Store.GetEmployee(ctx, employeeID)
	if err != nil {
		return fail(hr.Persistence("load employee", err))
	}
	if emp == nil {
		return fail(hr.NotFound("employee", employeeID))
	}

	now := l.Now()
	if err := period.Validate(); err != nil {
		return fail(err)
	}
	if period.Start.Before(hr.DateOf(now)) {
		return fail(&hr.ValidationError{Field: "start", Reason: "must not be in the past"})
	}

	approved, err := l.Store.ListLeaveRequests(ctx, hr.LeaveFilter{EmployeeID: employeeID, Status: hr.LeaveApproved})
	if err != nil {
		return fail(hr.Persistence("list leave requests", err))
	}
	for _, existing := range approved {
		if existing.Period.Overlaps(period) {
			return fail(&hr.OverlapError{
				EmployeeID: employeeID,
				Requested:  period,
				Conflict:   existing.ID,
				Existing:   existing.Period,
			})
		}
	}

	req := hr.LeaveRequest{
		ID:          hr.RequestID(hr.NewID()),
		EmployeeID:  employeeID,
		Period:      period,
		Reason:      strings.TrimSpace(reason),
		Status:      hr.LeavePending,
		RequestedAt: now,
	}
	if err := l.Store.SaveLeaveRequest(ctx, req); err != nil {
		return fail(hr.Persistence("save leave request", err))
	}

	transitions.WithLabelValues("request", "ok").Inc()
	l.Audit.Record(ctx, requester.Username, hr.AuditLeaveRequested,
		fmt.Sprintf("Leave requested for employee %s from %s to %s. Reason: %s.",
			employeeID, period.Start, period.End, req.Reason),
		"LeaveRequest", string(req.ID))
	l.Logger.Info("leave requested",
		zap.String("request_id", string(req.ID)),
		zap.String("employee_id", string(employeeID)),
		zap.Int("days", req.DurationDays()),
	)
	return req, nil
}

// =============================================================================
// APPROVE / REJECT / CANCEL
// =============================================================================

// Approve debits the employee's balance by the request's duration and marks
// the request Approved. Both writes commit together or not at all.
func (l *Ledger) Approve(ctx context.Context, id hr.RequestID, actor hr.Actor) (hr.LeaveRequest, error) {
	if err := hr.Authorize(actor, hr.CapApproveLeave); err != nil {
		return hr.LeaveRequest{}, l.actionFailed(ctx, "approve", hr.AuditLeaveApprovalFailed, id, actor, err)
	}

	var approved hr.LeaveRequest
	var balance int
	err := l.Store.WithTx(ctx, func(tx hr.Store) error {
		req, err := pendingRequest(ctx, tx, id)
		if err != nil {
			return err
		}

		emp, err := tx.GetEmployee(ctx, req.EmployeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return hr.NotFound("employee", req.EmployeeID)
		}

		// Overlapping requests may both be Pending; only one may become Approved.
		approvedLeave, err := tx.ListLeaveRequests(ctx, hr.LeaveFilter{EmployeeID: req.EmployeeID, Status: hr.LeaveApproved})
		if err != nil {
			return err
		}
		for _, existing := range approvedLeave {
			if existing.Period.Overlaps(req.Period) {
				return &hr.OverlapError{
					EmployeeID: req.EmployeeID,
					Requested:  req.Period,
					Conflict:   existing.ID,
					Existing:   existing.Period,
				}
			}
		}

		debited, err := emp.WithLeaveDebited(req.DurationDays())
		if err != nil {
			return err
		}

		approved = actioned(req, hr.LeaveApproved, actor, l.Now(), "")
		if err := tx.SaveEmployee(ctx, debited); err != nil {
			return err
		}
		balance = debited.LeaveBalance
		return tx.SaveLeaveRequest(ctx, approved)
	})
	if err != nil {
		return hr.LeaveRequest{}, l.actionFailed(ctx, "approve", hr.AuditLeaveApprovalFailed, id, actor,
			hr.Persistence("approve leave request", err))
	}

	transitions.WithLabelValues("approve", "ok").Inc()
	l.Audit.Record(ctx, actor.Username, hr.AuditLeaveApproved,
		fmt.Sprintf("Leave request %s for employee %s approved. Days: %d. New balance: %d.",
			id, approved.EmployeeID, approved.DurationDays(), balance),
		"LeaveRequest", string(id))
	l.Logger.Info("leave approved",
		zap.String("request_id", string(id)),
		zap.String("employee_id", string(approved.EmployeeID)),
		zap.Int("balance", balance),
	)
	return approved, nil
}

// Reject marks a Pending request Rejected. The balance is untouched.
func (l *Ledger) Reject(ctx context.Context, id hr.RequestID, actor hr.Actor, notes string) (hr.LeaveRequest, error) {
	if err := hr.Authorize(actor, hr.CapApproveLeave); err != nil {
		return hr.LeaveRequest{}, l.actionFailed(ctx, "reject", hr.AuditLeaveRejectFailed, id, actor, err)
	}
	if strings.TrimSpace(notes) == "" {
		notes = DefaultRejectNotes
	}

	var rejected hr.LeaveRequest
	err := l.Store.WithTx(ctx, func(tx hr.Store) error {
		req, err := pendingRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		rejected = actioned(req, hr.LeaveRejected, actor, l.Now(), notes)
		return tx.SaveLeaveRequest(ctx, rejected)
	})
	if err != nil {
		return hr.LeaveRequest{}, l.actionFailed(ctx, "reject", hr.AuditLeaveRejectFailed, id, actor,
			hr.Persistence("reject leave request", err))
	}

	transitions.WithLabelValues("reject", "ok").Inc()
	l.Audit.Record(ctx, actor.Username, hr.AuditLeaveRejected,
		fmt.Sprintf("Leave request %s for employee %s rejected. Notes: %s", id, rejected.EmployeeID, notes),
		"LeaveRequest", string(id))
	l.Logger.Info("leave rejected", zap.String("request_id", string(id)))
	return rejected, nil
}

// Cancel withdraws a Pending request. Only the requesting employee may
// cancel, and the balance is untouched.
func (l *Ledger) Cancel(ctx context.Context, id hr.RequestID, requester hr.Actor) (hr.LeaveRequest, error) {
	var cancelled hr.LeaveRequest
	err := l.Store.WithTx(ctx, func(tx hr.Store) error {
		req, err := tx.GetLeaveRequest(ctx, id)
		if err != nil {
			return err
		}
		if req == nil {
			return hr.NotFound("leave request", id)
		}
		if !requester.Owns(req.EmployeeID) {
			return &hr.PermissionError{
				Actor:     requester.Username,
				Role:      requester.Role,
				Operation: "cancel another employee's leave",
			}
		}
		if req.Status != hr.LeavePending {
			return alreadyActioned(req)
		}
		cancelled = actioned(*req, hr.LeaveCancelled, requester, l.Now(), "")
		return tx.SaveLeaveRequest(ctx, cancelled)
	})
	if err != nil {
		return hr.LeaveRequest{}, l.actionFailed(ctx, "cancel", hr.AuditLeaveCancelFailed, id, requester,
			hr.Persistence("cancel leave request", err))
	}

	transitions.WithLabelValues("cancel", "ok").Inc()
	l.Audit.Record(ctx, requester.Username, hr.AuditLeaveCancelled,
		fmt.Sprintf("Leave request %s cancelled by the requester.", id), "LeaveRequest", string(id))
	return cancelled, nil
}

func (l *Ledger) actionFailed(ctx context.Context, transition string, action hr.AuditAction, id hr.RequestID, actor hr.Actor, err error) error {
	transitions.WithLabelValues(transition, resultOf(err)).Inc()
	if errors.Is(err, hr.ErrPersistenceFailed) {
		l.Logger.Error("leave "+transition+" failed", zap.String("request_id", string(id)), zap.Error(err))
	} else {
		l.Logger.Warn("leave "+transition+" rejected", zap.String("request_id", string(id)), zap.Error(err))
	}
	l.Audit.Record(ctx, actor.Username, action,
		fmt.Sprintf("Request %s: %v", id, err), "LeaveRequest", string(id))
	return err
}

func pendingRequest(ctx context.Context, tx hr.Store, id hr.RequestID) (hr.LeaveRequest, error) {
	req, err := tx.GetLeaveRequest(ctx, id)
	if err != nil {
		return hr.LeaveRequest{}, err
	}
	if req == nil {
		return hr.LeaveRequest{}, hr.NotFound("leave request", id)
	}
	if req.Status != hr.LeavePending {
		return hr.LeaveRequest{}, alreadyActioned(req)
	}
	return *req, nil
}

func alreadyActioned(req *hr.LeaveRequest) error {
	return &hr.ValidationError{Field: "status", Reason: fmt.Sprintf("request is already %s", req.Status)}
}

func actioned(req hr.LeaveRequest, status hr.LeaveStatus, actor hr.Actor, at time.Time, notes string) hr.LeaveRequest {
	req.Status = status
	req.ActionedAt = &at
	req.ActionedBy = actor.Username
	req.Notes = notes
	return req
}

// =============================================================================
// QUERIES
// =============================================================================

// Pending returns all Pending requests, oldest first.
func (l *Ledger) Pending(ctx context.Context, actor hr.Actor) ([]hr.LeaveRequest, error) {
	if err := hr.Authorize(actor, hr.CapApproveLeave); err != nil {
		return nil, err
	}
	reqs, err := l.Store.ListLeaveRequests(ctx, hr.LeaveFilter{Status: hr.LeavePending})
	if err != nil {
		return nil, hr.Persistence("list leave requests", err)
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].RequestedAt.Before(reqs[j].RequestedAt) })
	return reqs, nil
}

// ForEmployee returns the employee's requests, newest first.
func (l *Ledger) ForEmployee(ctx context.Context, id hr.EmployeeID, actor hr.Actor) ([]hr.LeaveRequest, error) {
	if err := hr.AuthorizeSelf(actor, id, hr.CapApproveLeave); err != nil {
		return nil, err
	}
	reqs, err := l.Store.ListLeaveRequests(ctx, hr.LeaveFilter{EmployeeID: id})
	if err != nil {
		return nil, hr.Persistence("list leave requests", err)
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].RequestedAt.After(reqs[j].RequestedAt) })
	return reqs, nil
}

func (l *Ledger) Balance(ctx context.Context, id hr.EmployeeID, actor hr.Actor) (int, error) {
	if err := hr.AuthorizeSelf(actor, id, hr.CapApproveLeave); err != nil {
		return 0, err
	}
	emp, err := l.Store.GetEmployee(ctx, id)
	if err != nil {
		return 0, hr.Persistence("load employee", err)
	}
	if emp == nil {
		return 0, hr.NotFound("employee", id)
	}
	return emp.LeaveBalance, nil
}
