/*
Package sqlite provides a SQLite-backed implementation of the record store.

PURPOSE:
  Implements hr.TxStore, hr.Directory and hr.AuditSink using SQLite. Every
  repository method is written once against an executor that is either the
  database or an open sql.Tx, so the transactional view runs the same SQL.

APPEND-ONLY ENFORCEMENT:
  - payroll_records has no UPDATE or DELETE path
  - UNIQUE(employee_id, period_start, period_end) rejects a second record
    for the same span; the violation surfaces as hr.DuplicatePeriodError
  - audit_log is insert-only

KEY TABLES:
  employees:          Employee snapshots, job history as JSON
  departments:        Department names
  payroll_records:    Immutable payroll results, bonuses/deductions as JSON
  tax_rates:          Tax rates, at most one active
  benefit_plans:      Benefit plans
  benefit_selections: Employee enrollments
  leave_requests:     Leave requests and their outcome
  audit_log:          Who did what when

CONCURRENCY:
  The pool is limited to one connection. WithTx holds it for the duration
  of fn, so concurrent callers queue behind the transaction instead of
  observing partial writes. This also keeps ":memory:" databases shared.

CORRUPT DATA:
  A row that fails to decode is skipped and logged at warn level.

USAGE:
  store, err := sqlite.New("./data/payroll.db", logger)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - hr/store.go: Interface definitions
  - hr/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// Store implements hr.TxStore, hr.Directory and hr.AuditSink.
type Store struct {
	*queries
	db *sql.DB
}

var (
	_ hr.TxStore   = (*Store)(nil)
	_ hr.Directory = (*Store)(nil)
	_ hr.AuditSink = (*Store)(nil)
)

// New opens the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string, logger ...*zap.Logger) (*Store, error) {
	l := zap.L().Named("store.sqlite")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}

	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	if dbPath != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: &queries{db: db, logger: l}, db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		full_name TEXT NOT NULL,
		position TEXT NOT NULL,
		department_id TEXT NOT NULL,
		salary TEXT NOT NULL,
		joined_on TEXT NOT NULL,
		leave_balance INTEGER NOT NULL,
		job_history_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department_id);

	-- Payroll records (append-only)
	CREATE TABLE IF NOT EXISTS payroll_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		hours_worked TEXT,
		base_salary TEXT NOT NULL,
		bonuses_json TEXT NOT NULL,
		deductions_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, period_start, period_end)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_employee_end
		ON payroll_records(employee_id, period_end);

	CREATE TABLE IF NOT EXISTS tax_rates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		percentage TEXT NOT NULL,
		threshold_min TEXT,
		threshold_max TEXT,
		active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS benefit_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		employee_contribution TEXT NOT NULL,
		employer_contribution TEXT NOT NULL,
		active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS benefit_selections (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		enrolled_at TEXT NOT NULL,
		unenrolled_at TEXT,
		active INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_selections_employee
		ON benefit_selections(employee_id);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		actioned_at TEXT,
		actioned_by TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_leave_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_leave_status
		ON leave_requests(status);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		entity_kind TEXT NOT NULL DEFAULT '',
		entity_id TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (hr.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(hr.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx, logger: s.logger}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// AppendPayrollRecords inserts all records in one transaction.
func (s *Store) AppendPayrollRecords(ctx context.Context, records []hr.PayrollRecord) error {
	return s.WithTx(ctx, func(tx hr.Store) error {
		return tx.AppendPayrollRecords(ctx, records)
	})
}

// =============================================================================
// DIRECTORY (hr.Directory interface)
// =============================================================================

func (s *Store) EmployeeByID(ctx context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	return s.GetEmployee(ctx, id)
}

func (s *Store) DepartmentByID(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	return s.GetDepartment(ctx, id)
}

func (s *Store) AllEmployees(ctx context.Context) ([]hr.Employee, error) {
	return s.ListEmployees(ctx)
}

// =============================================================================
// AUDIT LOG (hr.AuditSink interface)
// =============================================================================

func (s *Store) Record(ctx context.Context, e hr.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, at, actor, action, entity_kind, entity_id, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, formatTime(e.Timestamp), e.Actor, string(e.Action), e.EntityKind, e.EntityID, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns the most recent entries, newest first. A limit of
// zero or less returns everything.
func (s *Store) AuditEntries(ctx context.Context, limit int) ([]hr.AuditEntry, error) {
	query := `SELECT id, at, actor, action, entity_kind, entity_id, detail
		FROM audit_log ORDER BY rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []hr.AuditEntry
	for rows.Next() {
		var (
			e      hr.AuditEntry
			at     string
			action string
		)
		if err := rows.Scan(&e.ID, &at, &e.Actor, &action, &e.EntityKind, &e.EntityID, &e.Detail); err != nil {
			s.corrupt("audit_log", err)
			continue
		}
		e.Action = hr.AuditAction(action)
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// QUERIES - hr.Store over a database or a transaction
// =============================================================================

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type queries struct {
	db     executor
	logger *zap.Logger
}

func (q *queries) corrupt(table string, err error) {
	q.logger.Warn("skipping undecodable row", zap.String("table", table), zap.Error(err))
}

// collect runs query and decodes each row with scan, skipping rows that
// fail to decode.
func collect[T any](ctx context.Context, q *queries, table string, scan func(*sql.Rows) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			q.corrupt(table, err)
			continue
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return out, nil
}

func first[T any](items []T, err error) (*T, error) {
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

// =============================================================================
// EMPLOYEES & DEPARTMENTS
// =============================================================================

type jobJSON struct {
	Position       string   `json:"position"`
	DepartmentID   string   `json:"department_id"`
	DepartmentName string   `json:"department_name"`
	Start          hr.Date  `json:"start"`
	End            *hr.Date `json:"end,omitempty"`
}

const employeeColumns = `id, username, full_name, position, department_id, salary, joined_on, leave_balance, job_history_json`

func (q *queries) SaveEmployee(ctx context.Context, e hr.Employee) error {
	jobs := make([]jobJSON, 0, len(e.JobHistory))
	for _, j := range e.JobHistory {
		jobs = append(jobs, jobJSON{
			Position:       j.Position,
			DepartmentID:   string(j.DepartmentID),
			DepartmentName: j.DepartmentName,
			Start:          j.Start,
			End:            j.End,
		})
	}
	history, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("failed to encode job history: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO employees (`+employeeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			full_name = excluded.full_name,
			position = excluded.position,
			department_id = excluded.department_id,
			salary = excluded.salary,
			joined_on = excluded.joined_on,
			leave_balance = excluded.leave_balance,
			job_history_json = excluded.job_history_json`,
		string(e.ID), e.Username, e.FullName, e.Position, string(e.DepartmentID),
		e.Salary.String(), e.JoinedOn.String(), e.LeaveBalance, string(history),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (q *queries) GetEmployee(ctx context.Context, id hr.EmployeeID) (*hr.Employee, error) {
	return first[hr.Employee](collect(ctx, q, "employees", scanEmployee,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, string(id)))
}

func (q *queries) ListEmployees(ctx context.Context) ([]hr.Employee, error) {
	return collect(ctx, q, "employees", scanEmployee,
		`SELECT `+employeeColumns+` FROM employees ORDER BY rowid`)
}

func scanEmployee(rows *sql.Rows) (hr.Employee, error) {
	var (
		e                            hr.Employee
		id, dept, salary, joined, js string
	)
	if err := rows.Scan(&id, &e.Username, &e.FullName, &e.Position, &dept, &salary, &joined, &e.LeaveBalance, &js); err != nil {
		return e, err
	}
	e.ID, e.DepartmentID = hr.EmployeeID(id), hr.DepartmentID(dept)

	var err error
	if e.Salary, err = decimal.NewFromString(salary); err != nil {
		return e, fmt.Errorf("employee %s salary: %w", id, err)
	}
	if e.JoinedOn, err = hr.ParseDate(joined); err != nil {
		return e, fmt.Errorf("employee %s joined_on: %w", id, err)
	}
	var jobs []jobJSON
	if err := json.Unmarshal([]byte(js), &jobs); err != nil {
		return e, fmt.Errorf("employee %s job history: %w", id, err)
	}
	for _, j := range jobs {
		e.JobHistory = append(e.JobHistory, hr.JobRecord{
			Position:       j.Position,
			DepartmentID:   hr.DepartmentID(j.DepartmentID),
			DepartmentName: j.DepartmentName,
			Start:          j.Start,
			End:            j.End,
		})
	}
	return e, nil
}

func (q *queries) SaveDepartment(ctx context.Context, d hr.Department) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO departments (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		string(d.ID), d.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to save department: %w", err)
	}
	return nil
}

func (q *queries) GetDepartment(ctx context.Context, id hr.DepartmentID) (*hr.Department, error) {
	return first[hr.Department](collect(ctx, q, "departments", scanDepartment,
		`SELECT id, name FROM departments WHERE id = ?`, string(id)))
}

func (q *queries) ListDepartments(ctx context.Context) ([]hr.Department, error) {
	return collect(ctx, q, "departments", scanDepartment,
		`SELECT id, name FROM departments ORDER BY rowid`)
}

func scanDepartment(rows *sql.Rows) (hr.Department, error) {
	var d hr.Department
	var id string
	err := rows.Scan(&id, &d.Name)
	d.ID = hr.DepartmentID(id)
	return d, err
}

// =============================================================================
// PAYROLL RECORDS (append-only)
// =============================================================================

type adjustmentJSON struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

const recordColumns = `id, employee_id, period_start, period_end, hours_worked, base_salary, bonuses_json, deductions_json, created_at`

// AppendPayrollRecords inserts records on the current executor. The Store
// wraps it in a transaction; inside WithTx it joins the caller's.
func (q *queries) AppendPayrollRecords(ctx context.Context, records []hr.PayrollRecord) error {
	for _, r := range records {
		bonuses := make([]adjustmentJSON, 0, len(r.Bonuses))
		for _, b := range r.Bonuses {
			bonuses = append(bonuses, adjustmentJSON{Description: b.Description, Amount: b.Amount})
		}
		deductions := make([]adjustmentJSON, 0, len(r.Deductions))
		for _, d := range r.Deductions {
			deductions = append(deductions, adjustmentJSON{Description: d.Description, Amount: d.Amount})
		}
		bj, err := json.Marshal(bonuses)
		if err != nil {
			return fmt.Errorf("failed to encode bonuses: %w", err)
		}
		dj, err := json.Marshal(deductions)
		if err != nil {
			return fmt.Errorf("failed to encode deductions: %w", err)
		}
		var hours sql.NullString
		if r.HoursWorked != nil {
			hours = sql.NullString{String: r.HoursWorked.String(), Valid: true}
		}

		_, err = q.db.ExecContext(ctx, `INSERT INTO payroll_records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(r.ID), string(r.EmployeeID), r.Period.Start.String(), r.Period.End.String(),
			hours, r.BaseSalary.String(), string(bj), string(dj), formatTime(r.CreatedAt),
		)
		if err != nil {
			if isDuplicatePeriodError(err) {
				return &hr.DuplicatePeriodError{EmployeeID: r.EmployeeID, Period: r.Period}
			}
			return fmt.Errorf("failed to append payroll record: %w", err)
		}
	}
	return nil
}

func (q *queries) FindPayrollRecord(ctx context.Context, employeeID hr.EmployeeID, period hr.Period) (*hr.PayrollRecord, error) {
	return first[hr.PayrollRecord](collect(ctx, q, "payroll_records", scanRecord,
		`SELECT `+recordColumns+` FROM payroll_records
		 WHERE employee_id = ? AND period_start = ? AND period_end = ?`,
		string(employeeID), period.Start.String(), period.End.String()))
}

func (q *queries) GetPayrollRecord(ctx context.Context, id hr.RecordID) (*hr.PayrollRecord, error) {
	return first[hr.PayrollRecord](collect(ctx, q, "payroll_records", scanRecord,
		`SELECT `+recordColumns+` FROM payroll_records WHERE id = ?`, string(id)))
}

func (q *queries) ListPayrollRecords(ctx context.Context, filter hr.PayrollFilter) ([]hr.PayrollRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, string(filter.EmployeeID))
	}
	if filter.Overlaps != nil {
		// ISO dates compare correctly as text
		where = append(where, "period_end >= ? AND period_start <= ?")
		args = append(args, filter.Overlaps.Start.String(), filter.Overlaps.End.String())
	}
	query := `SELECT ` + recordColumns + ` FROM payroll_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	return collect(ctx, q, "payroll_records", scanRecord, query, args...)
}

func scanRecord(rows *sql.Rows) (hr.PayrollRecord, error) {
	var (
		r                                 hr.PayrollRecord
		id, emp, start, end, base, bj, dj string
		created                           string
		hours                             sql.NullString
	)
	if err := rows.Scan(&id, &emp, &start, &end, &hours, &base, &bj, &dj, &created); err != nil {
		return r, err
	}
	r.ID, r.EmployeeID = hr.RecordID(id), hr.EmployeeID(emp)

	var err error
	if r.Period, err = parsePeriod(start, end); err != nil {
		return r, fmt.Errorf("payroll record %s: %w", id, err)
	}
	if r.BaseSalary, err = decimal.NewFromString(base); err != nil {
		return r, fmt.Errorf("payroll record %s base salary: %w", id, err)
	}
	if hours.Valid {
		h, err := decimal.NewFromString(hours.String)
		if err != nil {
			return r, fmt.Errorf("payroll record %s hours: %w", id, err)
		}
		r.HoursWorked = &h
	}

	var bonuses, deductions []adjustmentJSON
	if err := json.Unmarshal([]byte(bj), &bonuses); err != nil {
		return r, fmt.Errorf("payroll record %s bonuses: %w", id, err)
	}
	if err := json.Unmarshal([]byte(dj), &deductions); err != nil {
		return r, fmt.Errorf("payroll record %s deductions: %w", id, err)
	}
	for _, b := range bonuses {
		r.Bonuses = append(r.Bonuses, hr.Bonus{Description: b.Description, Amount: b.Amount})
	}
	for _, d := range deductions {
		r.Deductions = append(r.Deductions, hr.Deduction{Description: d.Description, Amount: d.Amount})
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return r, nil
}

// =============================================================================
// TAX RATES
// =============================================================================

const taxColumns = `id, name, percentage, threshold_min, threshold_max, active`

func (q *queries) SaveTaxRate(ctx context.Context, t hr.TaxRate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tax_rates (`+taxColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			percentage = excluded.percentage,
			threshold_min = excluded.threshold_min,
			threshold_max = excluded.threshold_max,
			active = excluded.active`,
		string(t.ID), t.Name, t.Percentage.String(),
		nullDecimal(t.ThresholdMin), nullDecimal(t.ThresholdMax), t.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save tax rate: %w", err)
	}
	return nil
}

func (q *queries) GetTaxRate(ctx context.Context, id hr.TaxRateID) (*hr.TaxRate, error) {
	return first[hr.TaxRate](collect(ctx, q, "tax_rates", scanTaxRate,
		`SELECT `+taxColumns+` FROM tax_rates WHERE id = ?`, string(id)))
}

func (q *queries) ListTaxRates(ctx context.Context) ([]hr.TaxRate, error) {
	return collect(ctx, q, "tax_rates", scanTaxRate,
		`SELECT `+taxColumns+` FROM tax_rates ORDER BY rowid`)
}

func scanTaxRate(rows *sql.Rows) (hr.TaxRate, error) {
	var (
		t       hr.TaxRate
		id, pct string
		lo, hi  sql.NullString
	)
	if err := rows.Scan(&id, &t.Name, &pct, &lo, &hi, &t.Active); err != nil {
		return t, err
	}
	t.ID = hr.TaxRateID(id)

	var err error
	if t.Percentage, err = decimal.NewFromString(pct); err != nil {
		return t, fmt.Errorf("tax rate %s percentage: %w", id, err)
	}
	if t.ThresholdMin, err = parseNullDecimal(lo); err != nil {
		return t, fmt.Errorf("tax rate %s threshold_min: %w", id, err)
	}
	if t.ThresholdMax, err = parseNullDecimal(hi); err != nil {
		return t, fmt.Errorf("tax rate %s threshold_max: %w", id, err)
	}
	return t, nil
}

// =============================================================================
// BENEFITS
// =============================================================================

const planColumns = `id, name, description, employee_contribution, employer_contribution, active`

func (q *queries) SaveBenefitPlan(ctx context.Context, p hr.BenefitPlan) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO benefit_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			employee_contribution = excluded.employee_contribution,
			employer_contribution = excluded.employer_contribution,
			active = excluded.active`,
		string(p.ID), p.Name, p.Description,
		p.EmployeeContribution.String(), p.EmployerContribution.String(), p.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save benefit plan: %w", err)
	}
	return nil
}

func (q *queries) GetBenefitPlan(ctx context.Context, id hr.PlanID) (*hr.BenefitPlan, error) {
	return first[hr.BenefitPlan](collect(ctx, q, "benefit_plans", scanPlan,
		`SELECT `+planColumns+` FROM benefit_plans WHERE id = ?`, string(id)))
}

func (q *queries) ListBenefitPlans(ctx context.Context) ([]hr.BenefitPlan, error) {
	return collect(ctx, q, "benefit_plans", scanPlan,
		`SELECT `+planColumns+` FROM benefit_plans ORDER BY rowid`)
}

func scanPlan(rows *sql.Rows) (hr.BenefitPlan, error) {
	var (
		p          hr.BenefitPlan
		id, ee, er string
	)
	if err := rows.Scan(&id, &p.Name, &p.Description, &ee, &er, &p.Active); err != nil {
		return p, err
	}
	p.ID = hr.PlanID(id)

	var err error
	if p.EmployeeContribution, err = decimal.NewFromString(ee); err != nil {
		return p, fmt.Errorf("benefit plan %s employee contribution: %w", id, err)
	}
	if p.EmployerContribution, err = decimal.NewFromString(er); err != nil {
		return p, fmt.Errorf("benefit plan %s employer contribution: %w", id, err)
	}
	return p, nil
}

const selectionColumns = `id, employee_id, plan_id, enrolled_at, unenrolled_at, active`

func (q *queries) SaveBenefitSelection(ctx context.Context, s hr.BenefitSelection) error {
	var unenrolled sql.NullString
	if s.UnenrolledAt != nil {
		unenrolled = sql.NullString{String: formatTime(*s.UnenrolledAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO benefit_selections (`+selectionColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			unenrolled_at = excluded.unenrolled_at,
			active = excluded.active`,
		string(s.ID), string(s.EmployeeID), string(s.PlanID), formatTime(s.EnrolledAt), unenrolled, s.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to save benefit selection: %w", err)
	}
	return nil
}

func (q *queries) GetBenefitSelection(ctx context.Context, id hr.SelectionID) (*hr.BenefitSelection, error) {
	return first[hr.BenefitSelection](collect(ctx, q, "benefit_selections", scanSelection,
		`SELECT `+selectionColumns+` FROM benefit_selections WHERE id = ?`, string(id)))
}

func (q *queries) ListBenefitSelections(ctx context.Context, employeeID hr.EmployeeID) ([]hr.BenefitSelection, error) {
	return collect(ctx, q, "benefit_selections", scanSelection,
		`SELECT `+selectionColumns+` FROM benefit_selections WHERE employee_id = ? ORDER BY rowid`,
		string(employeeID))
}

func scanSelection(rows *sql.Rows) (hr.BenefitSelection, error) {
	var (
		s                       hr.BenefitSelection
		id, emp, plan, enrolled string
		unenrolled              sql.NullString
	)
	if err := rows.Scan(&id, &emp, &plan, &enrolled, &unenrolled, &s.Active); err != nil {
		return s, err
	}
	s.ID, s.EmployeeID, s.PlanID = hr.SelectionID(id), hr.EmployeeID(emp), hr.PlanID(plan)

	var err error
	if s.EnrolledAt, err = time.Parse(time.RFC3339Nano, enrolled); err != nil {
		return s, fmt.Errorf("selection %s enrolled_at: %w", id, err)
	}
	if s.UnenrolledAt, err = parseNullTime(unenrolled); err != nil {
		return s, fmt.Errorf("selection %s unenrolled_at: %w", id, err)
	}
	return s, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const leaveColumns = `id, employee_id, start_date, end_date, reason, status, requested_at, actioned_at, actioned_by, notes`

func (q *queries) SaveLeaveRequest(ctx context.Context, r hr.LeaveRequest) error {
	var actioned sql.NullString
	if r.ActionedAt != nil {
		actioned = sql.NullString{String: formatTime(*r.ActionedAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO leave_requests (`+leaveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			actioned_at = excluded.actioned_at,
			actioned_by = excluded.actioned_by,
			notes = excluded.notes`,
		string(r.ID), string(r.EmployeeID), r.Period.Start.String(), r.Period.End.String(),
		r.Reason, string(r.Status), formatTime(r.RequestedAt), actioned, r.ActionedBy, r.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to save leave request: %w", err)
	}
	return nil
}

func (q *queries) GetLeaveRequest(ctx context.Context, id hr.RequestID) (*hr.LeaveRequest, error) {
	return first[hr.LeaveRequest](collect(ctx, q, "leave_requests", scanLeave,
		`SELECT `+leaveColumns+` FROM leave_requests WHERE id = ?`, string(id)))
}

func (q *queries) ListLeaveRequests(ctx context.Context, filter hr.LeaveFilter) ([]hr.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if filter.EmployeeID != "" {
		where = append(where, "employee_id = ?")
		args = append(args, string(filter.EmployeeID))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	query := `SELECT ` + leaveColumns + ` FROM leave_requests`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"
	return collect(ctx, q, "leave_requests", scanLeave, query, args...)
}

func scanLeave(rows *sql.Rows) (hr.LeaveRequest, error) {
	var (
		r                                    hr.LeaveRequest
		id, emp, start, end, status, created string
		actioned                             sql.NullString
	)
	if err := rows.Scan(&id, &emp, &start, &end, &r.Reason, &status, &created, &actioned, &r.ActionedBy, &r.Notes); err != nil {
		return r, err
	}
	r.ID, r.EmployeeID, r.Status = hr.RequestID(id), hr.EmployeeID(emp), hr.LeaveStatus(status)

	var err error
	if r.Period, err = parsePeriod(start, end); err != nil {
		return r, fmt.Errorf("leave request %s: %w", id, err)
	}
	if r.RequestedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return r, fmt.Errorf("leave request %s requested_at: %w", id, err)
	}
	if r.ActionedAt, err = parseNullTime(actioned); err != nil {
		return r, fmt.Errorf("leave request %s actioned_at: %w", id, err)
	}
	return r, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parsePeriod(start, end string) (hr.Period, error) {
	s, err := hr.ParseDate(start)
	if err != nil {
		return hr.Period{}, err
	}
	e, err := hr.ParseDate(end)
	if err != nil {
		return hr.Period{}, err
	}
	return hr.NewPeriod(s, e)
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// isDuplicatePeriodError reports whether err is the (employee, period)
// uniqueness violation. A primary-key collision on the record id is not.
func isDuplicatePeriodError(err error) bool {
	if err == nil {
		return false
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode != sqlite3.ErrConstraintUnique {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "period_start")
}
