/*
Package hr provides the core domain model for payroll and leave management.

PURPOSE:
  This package contains the entities, errors, authorization gate, calendar
  types and collaborator contracts shared by every domain component. The
  payroll engine, the leave ledger, the tax resolver and the benefit ledger
  all speak in these types and never in storage-specific ones.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee: identity, salary, leave balance and append-only job history
  - PayrollRecord: immutable result of one payroll calculation
  - Bonus / Deduction: ad-hoc and computed adjustments to a record
  - TaxRate / BenefitPlan / BenefitSelection: inputs to deductions
  - LeaveRequest: a request against the employee's leave balance

DESIGN PRINCIPLES:
  1. Immutability: PayrollRecords are never modified, corrections are new records
  2. Precision: money uses decimal.Decimal, never float64
  3. Snapshots: Employee changes return a new value instead of mutating in place
  4. Derived totals: GrossPay, TotalDeductions and NetPay are computed, not stored

SEE ALSO:
  - errors.go: Error kinds surfaced by every operation
  - store.go: Record store and directory contracts
  - auth.go: Capability-based authorization gate
*/
package hr

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type DepartmentID string
type RecordID string
type TaxRateID string
type PlanID string
type SelectionID string
type RequestID string

// NewID returns a fresh random identifier.
func NewID() string { return uuid.NewString() }

// =============================================================================
// DIRECTORY ENTITIES
// =============================================================================

type Department struct {
	ID   DepartmentID
	Name string
}

// JobRecord is one entry of an employee's job history. End is nil for the
// current job.
type JobRecord struct {
	Position       string
	DepartmentID   DepartmentID
	DepartmentName string
	Start          Date
	End            *Date
}

func (j JobRecord) IsCurrent() bool { return j.End == nil }

type Employee struct {
	ID           EmployeeID
	Username     string
	FullName     string
	Position     string
	DepartmentID DepartmentID
	Salary       decimal.Decimal
	JoinedOn     Date
	LeaveBalance int
	JobHistory   []JobRecord
}

// clone copies the employee including its job history so snapshots never
// share a backing array.
func (e Employee) clone() Employee {
	c := e
	c.JobHistory = append([]JobRecord(nil), e.JobHistory...)
	return c
}

// WithSalary returns a snapshot with the given salary.
func (e Employee) WithSalary(salary decimal.Decimal) (Employee, error) {
	if salary.IsNegative() {
		return Employee{}, &ValidationError{Field: "salary", Reason: "must not be negative"}
	}
	c := e.clone()
	c.Salary = salary
	return c, nil
}

// WithLeaveDebited returns a snapshot whose leave balance is reduced by days.
func (e Employee) WithLeaveDebited(days int) (Employee, error) {
	if days < 0 {
		return Employee{}, &ValidationError{Field: "days", Reason: "must not be negative"}
	}
	if e.LeaveBalance < days {
		return Employee{}, &InsufficientBalanceError{
			EmployeeID: e.ID,
			Available:  e.LeaveBalance,
			Requested:  days,
		}
	}
	c := e.clone()
	c.LeaveBalance -= days
	return c, nil
}

// WithJobChange returns a snapshot that closes the current job on the day
// before start and appends the new position.
func (e Employee) WithJobChange(position string, dept Department, start Date) (Employee, error) {
	if strings.TrimSpace(position) == "" {
		return Employee{}, &ValidationError{Field: "position", Reason: "must not be empty"}
	}
	c := e.clone()
	for i := range c.JobHistory {
		if c.JobHistory[i].IsCurrent() {
			if start.Before(c.JobHistory[i].Start) || start.Equal(c.JobHistory[i].Start) {
				return Employee{}, &ValidationError{Field: "start", Reason: "must be after the current job's start"}
			}
			end := start.AddDays(-1)
			c.JobHistory[i].End = &end
		}
	}
	c.JobHistory = append(c.JobHistory, JobRecord{
		Position:       position,
		DepartmentID:   dept.ID,
		DepartmentName: dept.Name,
		Start:          start,
	})
	c.Position = position
	c.DepartmentID = dept.ID
	return c, nil
}

// =============================================================================
// BONUS / DEDUCTION
// =============================================================================

type Bonus struct {
	Description string
	Amount      decimal.Decimal
}

type Deduction struct {
	Description string
	Amount      decimal.Decimal
}

func NewBonus(description string, amount decimal.Decimal) (Bonus, error) {
	b := Bonus{Description: description, Amount: amount}
	return b, b.Validate()
}

func (b Bonus) Validate() error {
	if strings.TrimSpace(b.Description) == "" {
		return &ValidationError{Field: "bonus.description", Reason: "must not be empty"}
	}
	if !b.Amount.IsPositive() {
		return &ValidationError{Field: "bonus.amount", Reason: "must be greater than zero"}
	}
	return nil
}

func NewDeduction(description string, amount decimal.Decimal) (Deduction, error) {
	d := Deduction{Description: description, Amount: amount}
	return d, d.Validate()
}

func (d Deduction) Validate() error {
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "deduction.description", Reason: "must not be empty"}
	}
	if d.Amount.IsNegative() {
		return &ValidationError{Field: "deduction.amount", Reason: "must not be negative"}
	}
	return nil
}

// =============================================================================
// PAYROLL RECORD - Immutable once built
// =============================================================================

type PayrollRecord struct {
	ID          RecordID
	EmployeeID  EmployeeID
	Period      Period
	HoursWorked *decimal.Decimal // reference only, never used in pay
	BaseSalary  decimal.Decimal
	Bonuses     []Bonus
	Deductions  []Deduction
	CreatedAt   time.Time
}

func (r PayrollRecord) TotalBonuses() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Bonuses {
		total = total.Add(b.Amount)
	}
	return total
}

func (r PayrollRecord) GrossPay() decimal.Decimal { return r.BaseSalary.Add(r.TotalBonuses()) }

func (r PayrollRecord) TotalDeductions() decimal.Decimal {
	total := decimal.Zero
	for _, d := range r.Deductions {
		total = total.Add(d.Amount)
	}
	return total
}

func (r PayrollRecord) NetPay() decimal.Decimal { return r.GrossPay().Sub(r.TotalDeductions()) }

// SamePeriod reports whether r covers exactly the given employee and period.
func (r PayrollRecord) SamePeriod(employeeID EmployeeID, p Period) bool {
	return r.EmployeeID == employeeID && r.Period.Equal(p)
}

// =============================================================================
// TAX RATE
// =============================================================================

type TaxRate struct {
	ID           TaxRateID
	Name         string
	Percentage   decimal.Decimal // 0.20 means 20%
	ThresholdMin *decimal.Decimal
	ThresholdMax *decimal.Decimal
	Active       bool
}

func (t TaxRate) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if t.Percentage.IsNegative() || t.Percentage.GreaterThan(decimal.NewFromInt(1)) {
		return &ValidationError{Field: "percentage", Reason: "must be between 0 and 1"}
	}
	if t.ThresholdMin != nil && t.ThresholdMin.IsNegative() {
		return &ValidationError{Field: "threshold_min", Reason: "must not be negative"}
	}
	if t.ThresholdMax != nil && t.ThresholdMax.IsNegative() {
		return &ValidationError{Field: "threshold_max", Reason: "must not be negative"}
	}
	if t.ThresholdMin != nil && t.ThresholdMax != nil && t.ThresholdMax.LessThan(*t.ThresholdMin) {
		return &ValidationError{Field: "threshold_max", Reason: "must not be less than threshold_min"}
	}
	return nil
}

// =============================================================================
// BENEFITS
// =============================================================================

type BenefitPlan struct {
	ID                   PlanID
	Name                 string
	Description          string
	EmployeeContribution decimal.Decimal // monthly, deducted from pay
	EmployerContribution decimal.Decimal // monthly, informational
	Active               bool
}

func (p BenefitPlan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if p.EmployeeContribution.IsNegative() {
		return &ValidationError{Field: "employee_contribution", Reason: "must not be negative"}
	}
	if p.EmployerContribution.IsNegative() {
		return &ValidationError{Field: "employer_contribution", Reason: "must not be negative"}
	}
	return nil
}

type BenefitSelection struct {
	ID           SelectionID
	EmployeeID   EmployeeID
	PlanID       PlanID
	EnrolledAt   time.Time
	UnenrolledAt *time.Time
	Active       bool
}

// Deactivate returns the selection closed at the given time.
func (s BenefitSelection) Deactivate(at time.Time) (BenefitSelection, error) {
	if at.Before(s.EnrolledAt) {
		return BenefitSelection{}, &ValidationError{Field: "unenrolled_at", Reason: "must not be before enrollment"}
	}
	c := s
	c.Active = false
	c.UnenrolledAt = &at
	return c, nil
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

func (s LeaveStatus) IsTerminal() bool { return s != LeavePending }

type LeaveRequest struct {
	ID          RequestID
	EmployeeID  EmployeeID
	Period      Period
	Reason      string
	Status      LeaveStatus
	RequestedAt time.Time
	ActionedAt  *time.Time
	ActionedBy  string
	Notes       string
}

// DurationDays is the inclusive number of calendar days requested.
func (r LeaveRequest) DurationDays() int { return r.Period.Days() }
