/*
Package factory converts JSON seed documents into directory, tax and benefit
records.

PURPOSE:
  Lets an operator bootstrap a store without code changes: departments,
  employees, tax rates, benefit plans and enrollments are described in one
  JSON document and written atomically.

JSON SCHEMA:
  {
    "departments": [{"id": "eng", "name": "Engineering"}],
    "employees": [{
      "id": "e1", "username": "eve", "full_name": "Eve Adams",
      "position": "Engineer", "department_id": "eng",
      "salary": "5000", "joined_on": "2024-01-08", "leave_balance": 15
    }],
    "tax_rates": [{"id": "t1", "name": "Income Tax", "percentage": "0.10", "active": true}],
    "benefit_plans": [{
      "id": "health", "name": "Health", "employee_contribution": "200",
      "employer_contribution": "300", "active": true
    }],
    "enrollments": [{"employee_id": "e1", "plan_id": "health"}]
  }

  Money is a decimal string or number. Dates are YYYY-MM-DD. Missing ids are
  generated. leave_balance defaults to 15.

USAGE:
  seed, err := factory.ParseSeed(data)
  err = seed.Apply(ctx, store, time.Now())

SEE ALSO:
  - cmd/server/main.go: PAYROLL_SEED_FILE
  - cmd/payrollctl: seed --file
*/
package factory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldenpython/payrollsystem/directory"
	"github.com/aldenpython/payrollsystem/hr"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type Seed struct {
	Departments  []DepartmentJSON  `json:"departments,omitempty"`
	Employees    []EmployeeJSON    `json:"employees,omitempty"`
	TaxRates     []TaxRateJSON     `json:"tax_rates,omitempty"`
	BenefitPlans []BenefitPlanJSON `json:"benefit_plans,omitempty"`
	Enrollments  []EnrollmentJSON  `json:"enrollments,omitempty"`
}

type DepartmentJSON struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type EmployeeJSON struct {
	ID           string          `json:"id,omitempty"`
	Username     string          `json:"username"`
	FullName     string          `json:"full_name"`
	Position     string          `json:"position"`
	DepartmentID string          `json:"department_id"`
	Salary       decimal.Decimal `json:"salary"`
	JoinedOn     hr.Date         `json:"joined_on"`
	LeaveBalance *int            `json:"leave_balance,omitempty"`
}

type TaxRateJSON struct {
	ID           string           `json:"id,omitempty"`
	Name         string           `json:"name"`
	Percentage   decimal.Decimal  `json:"percentage"`
	ThresholdMin *decimal.Decimal `json:"threshold_min,omitempty"`
	ThresholdMax *decimal.Decimal `json:"threshold_max,omitempty"`
	Active       bool             `json:"active"`
}

type BenefitPlanJSON struct {
	ID                   string          `json:"id,omitempty"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	Active               bool            `json:"active"`
}

type EnrollmentJSON struct {
	EmployeeID string `json:"employee_id"`
	PlanID     string `json:"plan_id"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSeed decodes a seed document. Unknown fields are rejected.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse seed JSON: %w", err)
	}
	return &s, nil
}

// LoadSeedFile reads and parses a seed document from disk.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// DefaultSeed is applied to an empty store so the directory has somewhere
// to hire into.
func DefaultSeed() *Seed {
	return &Seed{Departments: []DepartmentJSON{
		{ID: "hr", Name: "Human Resources"},
		{ID: "tech", Name: "Technology"},
		{ID: "finance", Name: "Finance"},
		{ID: "marketing", Name: "Marketing"},
	}}
}

// EnsureDefaults applies DefaultSeed when the store has no departments. It
// reports whether anything was written.
func EnsureDefaults(ctx context.Context, store hr.TxStore, now time.Time) (bool, error) {
	depts, err := store.ListDepartments(ctx)
	if err != nil {
		return false, hr.Persistence("list departments", err)
	}
	if len(depts) > 0 {
		return false, nil
	}
	if _, err := DefaultSeed().Apply(ctx, store, now); err != nil {
		return false, err
	}
	return true, nil
}

// =============================================================================
// BUILDING
// =============================================================================

// Records is a validated seed, ready to be written.
type Records struct {
	Departments []hr.Department
	Employees   []hr.Employee
	TaxRates    []hr.TaxRate
	Plans       []hr.BenefitPlan
	Selections  []hr.BenefitSelection
}

// Build validates the seed and converts it to domain values. References
// are resolved against the seed itself and against existing, which may be
// nil.
func (s *Seed) Build(ctx context.Context, existing hr.Store, now time.Time) (*Records, error) {
	out := &Records{}
	depts := make(map[hr.DepartmentID]hr.Department)
	plans := make(map[hr.PlanID]bool)
	employees := make(map[hr.EmployeeID]bool)

	for _, dj := range s.Departments {
		d := hr.Department{ID: hr.DepartmentID(orNewID(dj.ID)), Name: dj.Name}
		if d.Name == "" {
			return nil, &hr.ValidationError{Field: "departments.name", Reason: "must not be empty"}
		}
		depts[d.ID] = d
		out.Departments = append(out.Departments, d)
	}

	for _, ej := range s.Employees {
		deptID := hr.DepartmentID(ej.DepartmentID)
		dept, ok := depts[deptID]
		if !ok && existing != nil {
			found, err := existing.GetDepartment(ctx, deptID)
			if err != nil {
				return nil, err
			}
			if found != nil {
				dept, ok = *found, true
			}
		}
		if !ok {
			return nil, hr.NotFound("department", deptID)
		}

		in := directory.HireInput{
			ID:           hr.EmployeeID(orNewID(ej.ID)),
			Username:     ej.Username,
			FullName:     ej.FullName,
			Position:     ej.Position,
			DepartmentID: deptID,
			Salary:       ej.Salary,
			JoinedOn:     ej.JoinedOn,
			LeaveBalance: ej.LeaveBalance,
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("employee %q: %w", ej.Username, err)
		}
		balance := directory.DefaultLeaveBalance
		if ej.LeaveBalance != nil {
			balance = *ej.LeaveBalance
		}
		employees[in.ID] = true
		out.Employees = append(out.Employees, hr.Employee{
			ID:           in.ID,
			Username:     in.Username,
			FullName:     in.FullName,
			Position:     in.Position,
			DepartmentID: dept.ID,
			Salary:       in.Salary,
			JoinedOn:     in.JoinedOn,
			LeaveBalance: balance,
			JobHistory: []hr.JobRecord{{
				Position:       in.Position,
				DepartmentID:   dept.ID,
				DepartmentName: dept.Name,
				Start:          in.JoinedOn,
			}},
		})
	}

	active := 0
	for _, tj := range s.TaxRates {
		t := hr.TaxRate{
			ID:           hr.TaxRateID(orNewID(tj.ID)),
			Name:         tj.Name,
			Percentage:   tj.Percentage,
			ThresholdMin: tj.ThresholdMin,
			ThresholdMax: tj.ThresholdMax,
			Active:       tj.Active,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tax rate %q: %w", tj.Name, err)
		}
		if t.Active {
			active++
		}
		out.TaxRates = append(out.TaxRates, t)
	}
	if active > 1 {
		return nil, &hr.ValidationError{Field: "tax_rates", Reason: "at most one rate may be active"}
	}

	for _, pj := range s.BenefitPlans {
		p := hr.BenefitPlan{
			ID:                   hr.PlanID(orNewID(pj.ID)),
			Name:                 pj.Name,
			Description:          pj.Description,
			EmployeeContribution: pj.EmployeeContribution,
			EmployerContribution: pj.EmployerContribution,
			Active:               pj.Active,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("benefit plan %q: %w", pj.Name, err)
		}
		plans[p.ID] = true
		out.Plans = append(out.Plans, p)
	}

	for _, en := range s.Enrollments {
		empID, planID := hr.EmployeeID(en.EmployeeID), hr.PlanID(en.PlanID)
		if !employees[empID] && !exists(ctx, existing, empID) {
			return nil, hr.NotFound("employee", empID)
		}
		if !plans[planID] && !planExists(ctx, existing, planID) {
			return nil, hr.NotFound("benefit plan", planID)
		}
		out.Selections = append(out.Selections, hr.BenefitSelection{
			ID:         hr.SelectionID(hr.NewID()),
			EmployeeID: empID,
			PlanID:     planID,
			EnrolledAt: now,
			Active:     true,
		})
	}

	return out, nil
}

// Apply builds the seed and writes it in one transaction. Activating a seeded
// tax rate deactivates every rate already in the store.
func (s *Seed) Apply(ctx context.Context, store hr.TxStore, now time.Time) (*Records, error) {
	recs, err := s.Build(ctx, store, now)
	if err != nil {
		return nil, err
	}
	err = store.WithTx(ctx, func(tx hr.Store) error {
		for _, d := range recs.Departments {
			if err := tx.SaveDepartment(ctx, d); err != nil {
				return err
			}
		}
		for _, e := range recs.Employees {
			if err := tx.SaveEmployee(ctx, e); err != nil {
				return err
			}
		}
		if len(recs.TaxRates) > 0 {
			if err := deactivateExisting(ctx, tx, recs.TaxRates); err != nil {
				return err
			}
		}
		for _, t := range recs.TaxRates {
			if err := tx.SaveTaxRate(ctx, t); err != nil {
				return err
			}
		}
		for _, p := range recs.Plans {
			if err := tx.SaveBenefitPlan(ctx, p); err != nil {
				return err
			}
		}
		for _, sel := range recs.Selections {
			if err := tx.SaveBenefitSelection(ctx, sel); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, hr.Persistence("apply seed", err)
	}
	return recs, nil
}

func deactivateExisting(ctx context.Context, tx hr.Store, seeded []hr.TaxRate) error {
	anyActive := false
	for _, t := range seeded {
		anyActive = anyActive || t.Active
	}
	if !anyActive {
		return nil
	}
	rates, err := tx.ListTaxRates(ctx)
	if err != nil {
		return err
	}
	for _, r := range rates {
		if r.Active {
			r.Active = false
			if err := tx.SaveTaxRate(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func orNewID(id string) string {
	if id == "" {
		return hr.NewID()
	}
	return id
}

func exists(ctx context.Context, store hr.Store, id hr.EmployeeID) bool {
	if store == nil {
		return false
	}
	e, err := store.GetEmployee(ctx, id)
	return err == nil && e != nil
}

func planExists(ctx context.Context, store hr.Store, id hr.PlanID) bool {
	if store == nil {
		return false
	}
	p, err := store.GetBenefitPlan(ctx, id)
	return err == nil && p != nil
}
