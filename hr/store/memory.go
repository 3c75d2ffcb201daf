// Package store provides in-memory hr.Store implementations.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aldenpython/payrollsystem/hr"
)

// =============================================================================
// TABLE - Insertion-ordered map
// =============================================================================

type table[K comparable, V any] struct {
	rows  map[K]V
	order []K
}

func newTable[K comparable, V any]() table[K, V] {
	return table[K, V]{rows: make(map[K]V)}
}

func (t *table[K, V]) get(k K) *V {
	v, ok := t.rows[k]
	if !ok {
		return nil
	}
	return &v
}

func (t *table[K, V]) put(k K, v V) {
	if _, ok := t.rows[k]; !ok {
		t.order = append(t.order, k)
	}
	t.rows[k] = v
}

func (t *table[K, V]) list(match func(V) bool) []V {
	result := make([]V, 0, len(t.order))
	for _, k := range t.order {
		if v := t.rows[k]; match == nil || match(v) {
			result = append(result, v)
		}
	}
	return result
}

func (t table[K, V]) clone() table[K, V] {
	c := table[K, V]{rows: make(map[K]V, len(t.rows)), order: append([]K(nil), t.order...)}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

// =============================================================================
// TABLES - Unlocked store state, also used as the transactional view
// =============================================================================

type periodKey struct {
	employee hr.EmployeeID
	start    string
	end      string
}

func keyOf(employeeID hr.EmployeeID, p hr.Period) periodKey {
	return periodKey{employee: employeeID, start: p.Start.String(), end: p.End.String()}
}

type tables struct {
	employees   table[hr.EmployeeID, hr.Employee]
	departments table[hr.DepartmentID, hr.Department]
	records     table[hr.RecordID, hr.PayrollRecord]
	periods     map[periodKey]hr.RecordID
	taxRates    table[hr.TaxRateID, hr.TaxRate]
	plans       table[hr.PlanID, hr.BenefitPlan]
	selections  table[hr.SelectionID, hr.BenefitSelection]
	leave       table[hr.RequestID, hr.LeaveRequest]
	audit       []hr.AuditEntry

	// failures is shared with the parent so injected faults reach the
	// transactional view.
	failures map[string]*fault
}

type fault struct {
	skip int
	err  error
}

func newTables() *tables {
	return &tables{
		employees:   newTable[hr.EmployeeID, hr.Employee](),
		departments: newTable[hr.DepartmentID, hr.Department](),
		records:     newTable[hr.RecordID, hr.PayrollRecord](),
		periods:     make(map[periodKey]hr.RecordID),
		taxRates:    newTable[hr.TaxRateID, hr.TaxRate](),
		plans:       newTable[hr.PlanID, hr.BenefitPlan](),
		selections:  newTable[hr.SelectionID, hr.BenefitSelection](),
		leave:       newTable[hr.RequestID, hr.LeaveRequest](),
		failures:    make(map[string]*fault),
	}
}

func (t *tables) clone() *tables {
	periods := make(map[periodKey]hr.RecordID, len(t.periods))
	for k, v := range t.periods {
		periods[k] = v
	}
	return &tables{
		employees:   t.employees.clone(),
		departments: t.departments.clone(),
		records:     t.records.clone(),
		periods:     periods,
		taxRates:    t.taxRates.clone(),
		plans:       t.plans.clone(),
		selections:  t.selections.clone(),
		leave:       t.leave.clone(),
		audit:       append([]hr.AuditEntry(nil), t.audit...),
		failures:    t.failures,
	}
}

// fail consumes an injected failure for op, if any.
func (t *tables) fail(op string) error {
	f, ok := t.failures[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(t.failures, op)
	return hr.Persistence(op, f.err)
}

func (t *tables) GetEmployee(_ context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	if err := t.fail("GetEmployee"); err != nil {
		return nil, err
	}
	return t.employees.get(id), nil
}

func (t *tables) ListEmployees(_ context.Context) ([]hr.Employee, error) {
	if err := t.fail("ListEmployees"); err != nil {
		return nil, err
	}
	return t.employees.list(nil), nil
}

func (t *tables) SaveEmployee(_ context.Context, e hr.Employee) error {
	if err := t.fail("SaveEmployee"); err != nil {
		return err
	}
	t.employees.put(e.ID, e)
	return nil
}

func (t *tables) GetDepartment(_ context.Context, id hr.DepartmentID) (*hr.Department, error) {
	if err := t.fail("GetDepartment"); err != nil {
		return nil, err
	}
	return t.departments.get(id), nil
}

func (t *tables) ListDepartments(_ context.Context) ([]hr.Department, error) {
	if err := t.fail("ListDepartments"); err != nil {
		return nil, err
	}
	return t.departments.list(nil), nil
}

func (t *tables) SaveDepartment(_ context.Context, d hr.Department) error {
	if err := t.fail("SaveDepartment"); err != nil {
		return err
	}
	t.departments.put(d.ID, d)
	return nil
}

func (t *tables) AppendPayrollRecords(_ context.Context, records []hr.PayrollRecord) error {
	if err := t.fail("AppendPayrollRecords"); err != nil {
		return err
	}

	// Check every key before writing anything (atomic check)
	seen := make(map[periodKey]bool, len(records))
	for _, r := range records {
		k := keyOf(r.EmployeeID, r.Period)
		if _, exists := t.periods[k]; exists || seen[k] {
			return &hr.DuplicatePeriodError{EmployeeID: r.EmployeeID, Period: r.Period}
		}
		if _, exists := t.records.rows[r.ID]; exists {
			return hr.Persistence("AppendPayrollRecords", fmt.Errorf("record id %s already used", r.ID))
		}
		seen[k] = true
	}

	for _, r := range records {
		t.records.put(r.ID, r)
		t.periods[keyOf(r.EmployeeID, r.Period)] = r.ID
	}
	return nil
}

func (t *tables) FindPayrollRecord(_ context.Context, employeeID hr.EmployeeID, period hr.Period) (*hr.PayrollRecord, error) {
	if err := t.fail("FindPayrollRecord"); err != nil {
		return nil, err
	}
	id, ok := t.periods[keyOf(employeeID, period)]
	if !ok {
		return nil, nil
	}
	return t.records.get(id), nil
}

func (t *tables) GetPayrollRecord(_ context.Context, id hr.RecordID) (*hr.PayrollRecord, error) {
	if err := t.fail("GetPayrollRecord"); err != nil {
		return nil, err
	}
	return t.records.get(id), nil
}

func (t *tables) ListPayrollRecords(_ context.Context, filter hr.PayrollFilter) ([]hr.PayrollRecord, error) {
	if err := t.fail("ListPayrollRecords"); err != nil {
		return nil, err
	}
	return t.records.list(filter.Match), nil
}

func (t *tables) ListTaxRates(_ context.Context) ([]hr.TaxRate, error) {
	if err := t.fail("ListTaxRates"); err != nil {
		return nil, err
	}
	return t.taxRates.list(nil), nil
}

func (t *tables) GetTaxRate(_ context.Context, id hr.TaxRateID) (*hr.TaxRate, error) {
	if err := t.fail("GetTaxRate"); err != nil {
		return nil, err
	}
	return t.taxRates.get(id), nil
}

func (t *tables) SaveTaxRate(_ context.Context, r hr.TaxRate) error {
	if err := t.fail("SaveTaxRate"); err != nil {
		return err
	}
	t.taxRates.put(r.ID, r)
	return nil
}

func (t *tables) ListBenefitPlans(_ context.Context) ([]hr.BenefitPlan, error) {
	if err := t.fail("ListBenefitPlans"); err != nil {
		return nil, err
	}
	return t.plans.list(nil), nil
}

func (t *tables) GetBenefitPlan(_ context.Context, id hr.PlanID) (*hr.BenefitPlan, error) {
	if err := t.fail("GetBenefitPlan"); err != nil {
		return nil, err
	}
	return t.plans.get(id), nil
}

func (t *tables) SaveBenefitPlan(_ context.Context, p hr.BenefitPlan) error {
	if err := t.fail("SaveBenefitPlan"); err != nil {
		return err
	}
	t.plans.put(p.ID, p)
	return nil
}

func (t *tables) ListBenefitSelections(_ context.Context, employeeID hr.EmployeeID) ([]hr.BenefitSelection, error) {
	if err := t.fail("ListBenefitSelections"); err != nil {
		return nil, err
	}
	return t.selections.list(func(s hr.BenefitSelection) bool { return s.EmployeeID == employeeID }), nil
}

func (t *tables) GetBenefitSelection(_ context.Context, id hr.SelectionID) (*hr.BenefitSelection, error) {
	if err := t.fail("GetBenefitSelection"); err != nil {
		return nil, err
	}
	return t.selections.get(id), nil
}

func (t *tables) SaveBenefitSelection(_ context.Context, s hr.BenefitSelection) error {
	if err := t.fail("SaveBenefitSelection"); err != nil {
		return err
	}
	t.selections.put(s.ID, s)
	return nil
}

func (t *tables) GetLeaveRequest(_ context.Context, id hr.RequestID) (*hr.LeaveRequest, error) {
	if err := t.fail("GetLeaveRequest"); err != nil {
		return nil, err
	}
	return t.leave.get(id), nil
}

func (t *tables) ListLeaveRequests(_ context.Context, filter hr.LeaveFilter) ([]hr.LeaveRequest, error) {
	if err := t.fail("ListLeaveRequests"); err != nil {
		return nil, err
	}
	return t.leave.list(filter.Match), nil
}

func (t *tables) SaveLeaveRequest(_ context.Context, r hr.LeaveRequest) error {
	if err := t.fail("SaveLeaveRequest"); err != nil {
		return err
	}
	t.leave.put(r.ID, r)
	return nil
}

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements hr.TxStore, hr.AuditSink and hr.Directory.
type Memory struct {
	mu sync.RWMutex
	t  *tables
}

func NewMemory() *Memory {
	return &Memory{t: newTables()}
}

// FailNext makes the next call to op fail with a persistence error wrapping
// err. op is the method name, e.g. "AppendPayrollRecords".
func (m *Memory) FailNext(op string, err error) {
	m.FailAfter(op, 0, err)
}

// FailAfter lets skip calls to op succeed, then fails the one after.
func (m *Memory) FailAfter(op string, skip int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t.failures[op] = &fault{skip: skip, err: err}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(hr.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.t.clone()
	if err := fn(m.t); err != nil {
		m.t = snapshot
		return err
	}
	return nil
}

func (m *Memory) read(fn func(*tables)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m.t)
}

func (m *Memory) write(fn func(*tables)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.t)
}

// Reads that may consume an injected failure mutate the failure map, so
// every method takes the write lock.

func (m *Memory) GetEmployee(ctx context.Context, id hr.EmployeeID) (e *hr.Employee, err error) {
	m.write(func(t *tables) { e, err = t.GetEmployee(ctx, id) })
	return
}

func (m *Memory) ListEmployees(ctx context.Context) (es []hr.Employee, err error) {
	m.write(func(t *tables) { es, err = t.ListEmployees(ctx) })
	return
}

func (m *Memory) SaveEmployee(ctx context.Context, e hr.Employee) (err error) {
	m.write(func(t *tables) { err = t.SaveEmployee(ctx, e) })
	return
}

func (m *Memory) GetDepartment(ctx context.Context, id hr.DepartmentID) (d *hr.Department, err error) {
	m.write(func(t *tables) { d, err = t.GetDepartment(ctx, id) })
	return
}

func (m *Memory) ListDepartments(ctx context.Context) (ds []hr.Department, err error) {
	m.write(func(t *tables) { ds, err = t.ListDepartments(ctx) })
	return
}

func (m *Memory) SaveDepartment(ctx context.Context, d hr.Department) (err error) {
	m.write(func(t *tables) { err = t.SaveDepartment(ctx, d) })
	return
}

func (m *Memory) AppendPayrollRecords(ctx context.Context, records []hr.PayrollRecord) (err error) {
	m.write(func(t *tables) { err = t.AppendPayrollRecords(ctx, records) })
	return
}

func (m *Memory) FindPayrollRecord(ctx context.Context, employeeID hr.EmployeeID, period hr.Period) (r *hr.PayrollRecord, err error) {
	m.write(func(t *tables) { r, err = t.FindPayrollRecord(ctx, employeeID, period) })
	return
}

func (m *Memory) GetPayrollRecord(ctx context.Context, id hr.RecordID) (r *hr.PayrollRecord, err error) {
	m.write(func(t *tables) { r, err = t.GetPayrollRecord(ctx, id) })
	return
}

func (m *Memory) ListPayrollRecords(ctx context.Context, filter hr.PayrollFilter) (rs []hr.PayrollRecord, err error) {
	m.write(func(t *tables) { rs, err = t.ListPayrollRecords(ctx, filter) })
	return
}

func (m *Memory) ListTaxRates(ctx context.Context) (rs []hr.TaxRate, err error) {
	m.write(func(t *tables) { rs, err = t.ListTaxRates(ctx) })
	return
}

func (m *Memory) GetTaxRate(ctx context.Context, id hr.TaxRateID) (r *hr.TaxRate, err error) {
	m.write(func(t *tables) { r, err = t.GetTaxRate(ctx, id) })
	return
}

func (m *Memory) SaveTaxRate(ctx context.Context, r hr.TaxRate) (err error) {
	m.write(func(t *tables) { err = t.SaveTaxRate(ctx, r) })
	return
}

func (m *Memory) ListBenefitPlans(ctx context.Context) (ps []hr.BenefitPlan, err error) {
	m.write(func(t *tables) { ps, err = t.ListBenefitPlans(ctx) })
	return
}

func (m *Memory) GetBenefitPlan(ctx context.Context, id hr.PlanID) (p *hr.BenefitPlan, err error) {
	m.write(func(t *tables) { p, err = t.GetBenefitPlan(ctx, id) })
	return
}

func (m *Memory) SaveBenefitPlan(ctx context.Context, p hr.BenefitPlan) (err error) {
	m.write(func(t *tables) { err = t.SaveBenefitPlan(ctx, p) })
	return
}

func (m *Memory) ListBenefitSelections(ctx context.Context, employeeID hr.EmployeeID) (ss []hr.BenefitSelection, err error) {
	m.write(func(t *tables) { ss, err = t.ListBenefitSelections(ctx, employeeID) })
	return
}

func (m *Memory) GetBenefitSelection(ctx context.Context, id hr.SelectionID) (s *hr.BenefitSelection, err error) {
	m.write(func(t *tables) { s, err = t.GetBenefitSelection(ctx, id) })
	return
}

func (m *Memory) SaveBenefitSelection(ctx context.Context, s hr.BenefitSelection) (err error) {
	m.write(func(t *tables) { err = t.SaveBenefitSelection(ctx, s) })
	return
}

func (m *Memory) GetLeaveRequest(ctx context.Context, id hr.RequestID) (r *hr.LeaveRequest, err error) {
	m.write(func(t *tables) { r, err = t.GetLeaveRequest(ctx, id) })
	return
}

func (m *Memory) ListLeaveRequests(ctx context.Context, filter hr.LeaveFilter) (rs []hr.LeaveRequest, err error) {
	m.write(func(t *tables) { rs, err = t.ListLeaveRequests(ctx, filter) })
	return
}

func (m *Memory) SaveLeaveRequest(ctx context.Context, r hr.LeaveRequest) (err error) {
	m.write(func(t *tables) { err = t.SaveLeaveRequest(ctx, r) })
	return
}

// =============================================================================
// DIRECTORY & AUDIT
// =============================================================================

func (m *Memory) EmployeeByID(ctx context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	return m.GetEmployee(ctx, id)
}

func (m *Memory) DepartmentByID(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	return m.GetDepartment(ctx, id)
}

func (m *Memory) AllEmployees(ctx context.Context) ([]hr.Employee, error) {
	return m.ListEmployees(ctx)
}

// Record appends an audit entry.
func (m *Memory) Record(_ context.Context, entry hr.AuditEntry) (err error) {
	m.write(func(t *tables) {
		if err = t.fail("Record"); err != nil {
			return
		}
		t.audit = append(t.audit, entry)
	})
	return
}

// AuditEntries returns a copy of the audit log in append order.
func (m *Memory) AuditEntries() []hr.AuditEntry {
	var result []hr.AuditEntry
	m.read(func(t *tables) { result = append(result, t.audit...) })
	return result
}

var (
	_ hr.TxStore   = (*Memory)(nil)
	_ hr.Directory = (*Memory)(nil)
	_ hr.AuditSink = (*Memory)(nil)
)
