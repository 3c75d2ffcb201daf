/*
store.go - Record store and directory contracts

PURPOSE:
  Defines the interface between the domain components and persistence.
  Each entity kind has its own repository with get/put/list operations;
  the store is responsible for durability. Different implementations can
  use SQLite or in-memory storage.

KEY INTERFACES:
  Directory:       Read-only employee and department lookup
  EmployeeStore:   Employee snapshots (single owner writes them)
  PayrollStore:    Append-only payroll records
  TaxRateStore:    Tax rates
  BenefitStore:    Benefit plans and selections
  LeaveStore:      Leave requests
  TxStore:         All of the above plus atomic multi-entity writes

ABSENCE:
  Lookups return (nil, nil) when the entity does not exist. Errors are
  reserved for store failures.

CORRUPT DATA:
  A store that cannot decode a row skips it and logs a warning. Corruption
  never surfaces into business logic as an error.

ATOMIC WRITES:
  WithTx runs fn against a transactional view. If fn returns an error
  nothing it wrote is kept. Approving leave (request + employee) and
  activating a tax rate (every rate) go through WithTx.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - hr/store/memory.go: In-memory for testing

SEE ALSO:
  - errors.go: PersistenceError
*/
package hr

import "context"

// =============================================================================
// DIRECTORY - Identity resolution
// =============================================================================

type Directory interface {
	EmployeeByID(ctx context.Context, id EmployeeID) (*Employee, error)
	DepartmentByID(ctx context.Context, id DepartmentID) (*Department, error)
	AllEmployees(ctx context.Context) ([]Employee, error)
}

// =============================================================================
// REPOSITORIES
// =============================================================================

type EmployeeStore interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	SaveEmployee(ctx context.Context, e Employee) error
}

type DepartmentStore interface {
	GetDepartment(ctx context.Context, id DepartmentID) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
	SaveDepartment(ctx context.Context, d Department) error
}

// PayrollFilter narrows ListPayrollRecords. Zero values match everything.
type PayrollFilter struct {
	EmployeeID EmployeeID
	Overlaps   *Period
}

func (f PayrollFilter) Match(r PayrollRecord) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Overlaps != nil && !r.Period.Overlaps(*f.Overlaps) {
		return false
	}
	return true
}

// PayrollStore is append-only. There is no update or delete.
type PayrollStore interface {
	// AppendPayrollRecords writes all records or none. A record whose
	// (employee, period) already exists fails the whole call with a
	// DuplicatePeriodError.
	AppendPayrollRecords(ctx context.Context, records []PayrollRecord) error

	FindPayrollRecord(ctx context.Context, employeeID EmployeeID, period Period) (*PayrollRecord, error)
	GetPayrollRecord(ctx context.Context, id RecordID) (*PayrollRecord, error)

	// ListPayrollRecords returns matching records in insertion order.
	ListPayrollRecords(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, error)
}

type TaxRateStore interface {
	// ListTaxRates returns rates in creation order.
	ListTaxRates(ctx context.Context) ([]TaxRate, error)
	GetTaxRate(ctx context.Context, id TaxRateID) (*TaxRate, error)
	SaveTaxRate(ctx context.Context, t TaxRate) error
}

type BenefitStore interface {
	ListBenefitPlans(ctx context.Context) ([]BenefitPlan, error)
	GetBenefitPlan(ctx context.Context, id PlanID) (*BenefitPlan, error)
	SaveBenefitPlan(ctx context.Context, p BenefitPlan) error

	// ListBenefitSelections returns an employee's selections, oldest first.
	ListBenefitSelections(ctx context.Context, employeeID EmployeeID) ([]BenefitSelection, error)
	GetBenefitSelection(ctx context.Context, id SelectionID) (*BenefitSelection, error)
	SaveBenefitSelection(ctx context.Context, s BenefitSelection) error
}

// LeaveFilter narrows ListLeaveRequests. Zero values match everything.
type LeaveFilter struct {
	EmployeeID EmployeeID
	Status     LeaveStatus
}

func (f LeaveFilter) Match(r LeaveRequest) bool {
	if f.EmployeeID != "" && r.EmployeeID != f.EmployeeID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

type LeaveStore interface {
	GetLeaveRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)
	// ListLeaveRequests returns matching requests in creation order.
	ListLeaveRequests(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error)
	SaveLeaveRequest(ctx context.Context, r LeaveRequest) error
}

// =============================================================================
// STORE - Everything, plus transactions
// =============================================================================

type Store interface {
	EmployeeStore
	DepartmentStore
	PayrollStore
	TaxRateStore
	BenefitStore
	LeaveStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// StoreDirectory adapts any EmployeeStore+DepartmentStore to Directory.
type StoreDirectory struct {
	Employees   EmployeeStore
	Departments DepartmentStore
}

func (d StoreDirectory) EmployeeByID(ctx context.Context, id EmployeeID) (*Employee, error) {
	return d.Employees.GetEmployee(ctx, id)
}

func (d StoreDirectory) DepartmentByID(ctx context.Context, id DepartmentID) (*Department, error) {
	return d.Departments.GetDepartment(ctx, id)
}

func (d StoreDirectory) AllEmployees(ctx context.Context) ([]Employee, error) {
	return d.Employees.ListEmployees(ctx)
}
