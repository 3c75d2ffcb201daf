/*
Package directory owns employee and department records.

PURPOSE:
  The payroll engine, the leave ledger and the reports only read the
  directory. Every employee mutation outside of leave debits happens here:
  hiring, salary changes and promotions or transfers.

CONCURRENCY:
  Each mutation re-reads the employee inside WithTx and writes a new
  snapshot, so it serializes with leave approvals debiting the same record.

SEE ALSO:
  - hr/types.go: Employee.WithSalary, Employee.WithJobChange
*/
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// DefaultLeaveBalance is granted to new hires unless stated otherwise.
const DefaultLeaveBalance = 15

type Service struct {
	Store  hr.TxStore
	Audit  *hr.Auditor // optional
	Logger *zap.Logger
	Now    func() time.Time
}

func NewService(store hr.TxStore, audit *hr.Auditor, logger ...*zap.Logger) *Service {
	l := zap.L().Named("directory.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Service{Store: store, Audit: audit, Logger: l, Now: time.Now}
}

var _ hr.Directory = (*Service)(nil)

// =============================================================================
// DIRECTORY (read side)
// =============================================================================

func (s *Service) EmployeeByID(ctx context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	return s.Store.GetEmployee(ctx, id)
}

func (s *Service) DepartmentByID(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	return s.Store.GetDepartment(ctx, id)
}

func (s *Service) AllEmployees(ctx context.Context) ([]hr.Employee, error) {
	return s.Store.ListEmployees(ctx)
}

// Employees lists every employee for a manager.
func (s *Service) Employees(ctx context.Context, actor hr.Actor) ([]hr.Employee, error) {
	if err := hr.Authorize(actor, hr.CapManageDirectory); err != nil {
		return nil, err
	}
	employees, err := s.Store.ListEmployees(ctx)
	if err != nil {
		return nil, hr.Persistence("list employees", err)
	}
	return employees, nil
}

// Employee returns one employee. Employees may look themselves up.
func (s *Service) Employee(ctx context.Context, id hr.EmployeeID, actor hr.Actor) (hr.Employee, error) {
	if err := hr.AuthorizeSelf(actor, id, hr.CapManageDirectory); err != nil {
		return hr.Employee{}, err
	}
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return hr.Employee{}, hr.Persistence("load employee", err)
	}
	if emp == nil {
		return hr.Employee{}, hr.NotFound("employee", id)
	}
	return *emp, nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]hr.Department, error) {
	departments, err := s.Store.ListDepartments(ctx)
	if err != nil {
		return nil, hr.Persistence("list departments", err)
	}
	return departments, nil
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func (s *Service) CreateDepartment(ctx context.Context, name string, actor hr.Actor) (hr.Department, error) {
	if err := hr.Authorize(actor, hr.CapManageDirectory); err != nil {
		return hr.Department{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return hr.Department{}, &hr.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	existing, err := s.Store.ListDepartments(ctx)
	if err != nil {
		return hr.Department{}, hr.Persistence("list departments", err)
	}
	for _, d := range existing {
		if strings.EqualFold(d.Name, name) {
			return hr.Department{}, &hr.ValidationError{Field: "name", Reason: fmt.Sprintf("department %q already exists", d.Name)}
		}
	}

	dept := hr.Department{ID: hr.DepartmentID(hr.NewID()), Name: name}
	if err := s.Store.SaveDepartment(ctx, dept); err != nil {
		s.Logger.Error("save department failed", zap.String("name", name), zap.Error(err))
		return hr.Department{}, hr.Persistence("save department", err)
	}

	s.Audit.Record(ctx, actor.Username, hr.AuditDepartmentCreated,
		fmt.Sprintf("department %q created", name), "department", string(dept.ID))
	s.Logger.Info("department created", zap.String("department_id", string(dept.ID)))
	return dept, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

type HireInput struct {
	ID           hr.EmployeeID // generated when empty
	Username     string
	FullName     string
	Position     string
	DepartmentID hr.DepartmentID
	Salary       decimal.Decimal
	JoinedOn     hr.Date
	LeaveBalance *int // DefaultLeaveBalance when nil
}

func (in HireInput) Validate() error {
	switch {
	case strings.TrimSpace(in.Username) == "":
		return &hr.ValidationError{Field: "username", Reason: "must not be empty"}
	case strings.TrimSpace(in.FullName) == "":
		return &hr.ValidationError{Field: "full_name", Reason: "must not be empty"}
	case strings.TrimSpace(in.Position) == "":
		return &hr.ValidationError{Field: "position", Reason: "must not be empty"}
	case !in.Salary.IsPositive():
		return &hr.ValidationError{Field: "salary", Reason: "must be greater than zero"}
	case in.JoinedOn.IsZero():
		return &hr.ValidationError{Field: "joined_on", Reason: "is required"}
	case in.LeaveBalance != nil && *in.LeaveBalance < 0:
		return &hr.ValidationError{Field: "leave_balance", Reason: "must not be negative"}
	}
	return nil
}

// Hire creates an employee whose job history starts on the joining date.
func (s *Service) Hire(ctx context.Context, in HireInput, actor hr.Actor) (hr.Employee, error) {
	if err := hr.Authorize(actor, hr.CapManageDirectory); err != nil {
		return hr.Employee{}, err
	}
	if err := in.Validate(); err != nil {
		return hr.Employee{}, err
	}

	balance := DefaultLeaveBalance
	if in.LeaveBalance != nil {
		balance = *in.LeaveBalance
	}
	id := in.ID
	if id == "" {
		id = hr.EmployeeID(hr.NewID())
	}

	var hired hr.Employee
	err := s.Store.WithTx(ctx, func(tx hr.Store) error {
		dept, err := tx.GetDepartment(ctx, in.DepartmentID)
		if err != nil {
			return err
		}
		if dept == nil {
			return hr.NotFound("department", in.DepartmentID)
		}
		if existing, err := tx.GetEmployee(ctx, id); err != nil {
			return err
		} else if existing != nil {
			return &hr.ValidationError{Field: "id", Reason: fmt.Sprintf("employee %s already exists", id)}
		}
		all, err := tx.ListEmployees(ctx)
		if err != nil {
			return err
		}
		for _, e := range all {
			if strings.EqualFold(e.Username, in.Username) {
				return &hr.ValidationError{Field: "username", Reason: fmt.Sprintf("%q is taken", in.Username)}
			}
		}

		hired = hr.Employee{
			ID:           id,
			Username:     strings.TrimSpace(in.Username),
			FullName:     strings.TrimSpace(in.FullName),
			Position:     strings.TrimSpace(in.Position),
			DepartmentID: dept.ID,
			Salary:       in.Salary,
			JoinedOn:     in.JoinedOn,
			LeaveBalance: balance,
			JobHistory: []hr.JobRecord{{
				Position:       strings.TrimSpace(in.Position),
				DepartmentID:   dept.ID,
				DepartmentName: dept.Name,
				Start:          in.JoinedOn,
			}},
		}
		return tx.SaveEmployee(ctx, hired)
	})
	if err != nil {
		if hr.IsClientError(err) || hr.IsNotFound(err) {
			s.Logger.Warn("hire rejected", zap.String("username", in.Username), zap.Error(err))
			return hr.Employee{}, err
		}
		s.Logger.Error("hire failed", zap.String("username", in.Username), zap.Error(err))
		return hr.Employee{}, hr.Persistence("hire employee", err)
	}

	s.Audit.Record(ctx, actor.Username, hr.AuditEmployeeHired,
		fmt.Sprintf("%s hired as %s with salary %s and %d leave days", hired.FullName, hired.Position, hired.Salary.StringFixed(2), balance),
		"employee", string(hired.ID))
	s.Logger.Info("employee hired", zap.String("employee_id", string(hired.ID)))
	return hired, nil
}

// ChangeSalary records a new salary. Past payroll records are unaffected.
func (s *Service) ChangeSalary(ctx context.Context, id hr.EmployeeID, salary decimal.Decimal, actor hr.Actor) (hr.Employee, error) {
	if err := hr.Authorize(actor, hr.CapManageDirectory); err != nil {
		return hr.Employee{}, err
	}
	if !salary.IsPositive() {
		return hr.Employee{}, &hr.ValidationError{Field: "salary", Reason: "must be greater than zero"}
	}

	var old decimal.Decimal
	updated, err := s.mutate(ctx, id, func(e hr.Employee) (hr.Employee, error) {
		old = e.Salary
		return e.WithSalary(salary)
	})
	if err != nil {
		return hr.Employee{}, err
	}

	s.Audit.Record(ctx, actor.Username, hr.AuditSalaryChanged,
		fmt.Sprintf("salary changed from %s to %s", old.StringFixed(2), salary.StringFixed(2)),
		"employee", string(id))
	return updated, nil
}

type JobChange struct {
	Position     string
	DepartmentID hr.DepartmentID
	Salary       *decimal.Decimal // unchanged when nil
	Effective    hr.Date
}

// ChangeJob promotes or transfers an employee. The current job closes the
// day before the effective date.
func (s *Service) ChangeJob(ctx context.Context, id hr.EmployeeID, change JobChange, actor hr.Actor) (hr.Employee, error) {
	if err := hr.Authorize(actor, hr.CapManageDirectory); err != nil {
		return hr.Employee{}, err
	}
	if change.Effective.IsZero() {
		return hr.Employee{}, &hr.ValidationError{Field: "effective", Reason: "is required"}
	}
	if change.Salary != nil && !change.Salary.IsPositive() {
		return hr.Employee{}, &hr.ValidationError{Field: "salary", Reason: "must be greater than zero"}
	}

	var before hr.Employee
	var deptName string
	updated, err := s.mutateWith(ctx, id, func(tx hr.Store, e hr.Employee) (hr.Employee, error) {
		dept, err := tx.GetDepartment(ctx, change.DepartmentID)
		if err != nil {
			return hr.Employee{}, err
		}
		if dept == nil {
			return hr.Employee{}, hr.NotFound("department", change.DepartmentID)
		}
		before, deptName = e, dept.Name
		next, err := e.WithJobChange(strings.TrimSpace(change.Position), *dept, change.Effective)
		if err != nil {
			return hr.Employee{}, err
		}
		if change.Salary != nil {
			return next.WithSalary(*change.Salary)
		}
		return next, nil
	})
	if err != nil {
		return hr.Employee{}, err
	}

	s.Audit.Record(ctx, actor.Username, hr.AuditJobChanged,
		fmt.Sprintf("position %q to %q, department %s to %q, salary %s to %s, effective %s",
			before.Position, updated.Position, before.DepartmentID, deptName,
			before.Salary.StringFixed(2), updated.Salary.StringFixed(2), change.Effective),
		"employee", string(id))
	return updated, nil
}

func (s *Service) mutate(ctx context.Context, id hr.EmployeeID, fn func(hr.Employee) (hr.Employee, error)) (hr.Employee, error) {
	return s.mutateWith(ctx, id, func(_ hr.Store, e hr.Employee) (hr.Employee, error) { return fn(e) })
}

// mutateWith loads the employee, applies fn and saves the result in one
// transaction.
func (s *Service) mutateWith(ctx context.Context, id hr.EmployeeID, fn func(hr.Store, hr.Employee) (hr.Employee, error)) (hr.Employee, error) {
	var updated hr.Employee
	err := s.Store.WithTx(ctx, func(tx hr.Store) error {
		emp, err := tx.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if emp == nil {
			return hr.NotFound("employee", id)
		}
		next, err := fn(tx, *emp)
		if err != nil {
			return err
		}
		updated = next
		return tx.SaveEmployee(ctx, next)
	})
	if err != nil {
		if hr.IsClientError(err) || hr.IsNotFound(err) {
			s.Logger.Warn("employee update rejected", zap.String("employee_id", string(id)), zap.Error(err))
			return hr.Employee{}, err
		}
		s.Logger.Error("employee update failed", zap.String("employee_id", string(id)), zap.Error(err))
		return hr.Employee{}, hr.Persistence("save employee", err)
	}
	s.Logger.Info("employee updated", zap.String("employee_id", string(id)))
	return updated, nil
}
