/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types in hr/
  carry no JSON tags; every response goes through a *DTO here so the wire
  contract can change without touching the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Directory:  EmployeeDTO, JobDTO, DepartmentDTO, HireRequest, SalaryRequest,
              JobChangeRequest, CreateDepartmentRequest
  Payroll:    PayslipRequest, PayrollRecordDTO, RunRequest, RunResultDTO
  Tax:        TaxRateRequest, TaxRateDTO
  Benefits:   BenefitPlanRequest, BenefitPlanDTO, EnrollRequest, SelectionDTO
  Leave:      LeaveRequestBody, RejectRequest, LeaveDTO, BalanceDTO
  Reports:    DepartmentReportDTO, SalaryTrendDTO

VALIDATION:
  Request bodies carry go-playground/validator tags for shape checks
  (required, lengths, date layout). Business rules stay in the domain
  packages and surface as hr errors.

SEE ALSO:
  - handlers.go: Uses these types
  - errors.go: Maps validator and domain errors to status codes
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/payroll"
	"github.com/aldenpython/payrollsystem/reports"
)

// =============================================================================
// DIRECTORY
// =============================================================================

type PeriodDTO struct {
	Start hr.Date `json:"start"`
	End   hr.Date `json:"end"`
}

type JobDTO struct {
	Position       string   `json:"position"`
	DepartmentID   string   `json:"department_id"`
	DepartmentName string   `json:"department_name"`
	Start          hr.Date  `json:"start"`
	End            *hr.Date `json:"end,omitempty"`
}

type EmployeeDTO struct {
	ID           string          `json:"id"`
	Username     string          `json:"username"`
	FullName     string          `json:"full_name"`
	Position     string          `json:"position"`
	DepartmentID string          `json:"department_id"`
	Salary       decimal.Decimal `json:"salary"`
	JoinedOn     hr.Date         `json:"joined_on"`
	LeaveBalance int             `json:"leave_balance"`
	JobHistory   []JobDTO        `json:"job_history"`
}

type DepartmentDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type HireRequest struct {
	ID           string          `json:"id,omitempty"`
	Username     string          `json:"username" validate:"required,max=64"`
	FullName     string          `json:"full_name" validate:"required,max=128"`
	Position     string          `json:"position" validate:"required"`
	DepartmentID string          `json:"department_id" validate:"required"`
	Salary       decimal.Decimal `json:"salary"`
	JoinedOn     string          `json:"joined_on" validate:"required,datetime=2006-01-02"`
	LeaveBalance *int            `json:"leave_balance,omitempty" validate:"omitempty,min=0"`
}

type SalaryRequest struct {
	Salary decimal.Decimal `json:"salary"`
}

type JobChangeRequest struct {
	Position     string           `json:"position" validate:"required"`
	DepartmentID string           `json:"department_id" validate:"required"`
	Salary       *decimal.Decimal `json:"salary,omitempty"`
	Effective    string           `json:"effective" validate:"required,datetime=2006-01-02"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type AdjustmentDTO struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayslipRequest is the body of both the preview and the generate endpoints.
type PayslipRequest struct {
	EmployeeID  string           `json:"employee_id" validate:"required"`
	PeriodStart string           `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string           `json:"period_end" validate:"required,datetime=2006-01-02"`
	Bonuses     []AdjustmentDTO  `json:"bonuses,omitempty" validate:"dive"`
	Deductions  []AdjustmentDTO  `json:"deductions,omitempty" validate:"dive"`
	HoursWorked *decimal.Decimal `json:"hours_worked,omitempty"`
}

type PayrollRecordDTO struct {
	ID              string           `json:"id,omitempty"`
	EmployeeID      string           `json:"employee_id"`
	Period          PeriodDTO        `json:"period"`
	HoursWorked     *decimal.Decimal `json:"hours_worked,omitempty"`
	BaseSalary      decimal.Decimal  `json:"base_salary"`
	Bonuses         []AdjustmentDTO  `json:"bonuses"`
	Deductions      []AdjustmentDTO  `json:"deductions"`
	GrossPay        decimal.Decimal  `json:"gross_pay"`
	TotalDeductions decimal.Decimal  `json:"total_deductions"`
	NetPay          decimal.Decimal  `json:"net_pay"`
	CreatedAt       *time.Time       `json:"created_at,omitempty"`
}

type GenerateResponse struct {
	Saved  bool             `json:"saved"`
	Record PayrollRecordDTO `json:"record"`
}

type RunRequest struct {
	Month string `json:"month" validate:"required,datetime=2006-01"`
}

type OutcomeDTO struct {
	EmployeeID string `json:"employee_id"`
	Status     string `json:"status"`
	RecordID   string `json:"record_id,omitempty"`
	NetPay     string `json:"net_pay,omitempty"`
	Error      string `json:"error,omitempty"`
}

type RunResultDTO struct {
	Period          PeriodDTO    `json:"period"`
	Succeeded       int          `json:"succeeded"`
	SkippedOrFailed int          `json:"skipped_or_failed"`
	Outcomes        []OutcomeDTO `json:"outcomes"`
}

// =============================================================================
// TAX
// =============================================================================

type TaxRateRequest struct {
	Name         string           `json:"name" validate:"required,max=128"`
	Percentage   decimal.Decimal  `json:"percentage"`
	ThresholdMin *decimal.Decimal `json:"threshold_min,omitempty"`
	ThresholdMax *decimal.Decimal `json:"threshold_max,omitempty"`
	Active       bool             `json:"active"`
}

type TaxRateDTO struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Percentage   decimal.Decimal  `json:"percentage"`
	ThresholdMin *decimal.Decimal `json:"threshold_min,omitempty"`
	ThresholdMax *decimal.Decimal `json:"threshold_max,omitempty"`
	Active       bool             `json:"active"`
}

// =============================================================================
// BENEFITS
// =============================================================================

type BenefitPlanRequest struct {
	Name                 string          `json:"name" validate:"required,max=128"`
	Description          string          `json:"description"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	Active               *bool           `json:"active,omitempty"`
}

type BenefitPlanDTO struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	EmployeeContribution decimal.Decimal `json:"employee_contribution"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	Active               bool            `json:"active"`
}

type EnrollRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

type SelectionDTO struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	PlanID       string     `json:"plan_id"`
	EnrolledAt   time.Time  `json:"enrolled_at"`
	UnenrolledAt *time.Time `json:"unenrolled_at,omitempty"`
	Active       bool       `json:"active"`
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveRequestBody struct {
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Reason    string `json:"reason" validate:"max=512"`
}

type RejectRequest struct {
	Notes string `json:"notes" validate:"max=512"`
}

type LeaveDTO struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employee_id"`
	StartDate   hr.Date    `json:"start_date"`
	EndDate     hr.Date    `json:"end_date"`
	Days        int        `json:"days"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	ActionedAt  *time.Time `json:"actioned_at,omitempty"`
	ActionedBy  string     `json:"actioned_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Days       int    `json:"days"`
}

// =============================================================================
// REPORTS
// =============================================================================

type DepartmentReportDTO struct {
	DepartmentID          string                     `json:"department_id"`
	DepartmentName        string                     `json:"department_name"`
	Period                PeriodDTO                  `json:"period"`
	EmployeesProcessed    int                        `json:"employees_processed"`
	TotalGross            decimal.Decimal            `json:"total_gross"`
	TotalBenefitsDeducted decimal.Decimal            `json:"total_benefits_deducted"`
	BenefitDistribution   map[string]decimal.Decimal `json:"benefit_distribution"`
}

type SalaryPointDTO struct {
	Period PeriodDTO       `json:"period"`
	Gross  decimal.Decimal `json:"gross"`
}

type SalaryTrendDTO struct {
	EmployeeID   string           `json:"employee_id"`
	EmployeeName string           `json:"employee_name"`
	Points       []SalaryPointDTO `json:"points"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func ToPeriodDTO(p hr.Period) PeriodDTO { return PeriodDTO{Start: p.Start, End: p.End} }

func ToEmployeeDTO(e hr.Employee) EmployeeDTO {
	jobs := make([]JobDTO, 0, len(e.JobHistory))
	for _, j := range e.JobHistory {
		jobs = append(jobs, JobDTO{
			Position:       j.Position,
			DepartmentID:   string(j.DepartmentID),
			DepartmentName: j.DepartmentName,
			Start:          j.Start,
			End:            j.End,
		})
	}
	return EmployeeDTO{
		ID:           string(e.ID),
		Username:     e.Username,
		FullName:     e.FullName,
		Position:     e.Position,
		DepartmentID: string(e.DepartmentID),
		Salary:       e.Salary,
		JoinedOn:     e.JoinedOn,
		LeaveBalance: e.LeaveBalance,
		JobHistory:   jobs,
	}
}

func ToDepartmentDTO(d hr.Department) DepartmentDTO {
	return DepartmentDTO{ID: string(d.ID), Name: d.Name}
}

func ToRecordDTO(r hr.PayrollRecord) PayrollRecordDTO {
	dto := PayrollRecordDTO{
		ID:              string(r.ID),
		EmployeeID:      string(r.EmployeeID),
		Period:          ToPeriodDTO(r.Period),
		HoursWorked:     r.HoursWorked,
		BaseSalary:      r.BaseSalary,
		Bonuses:         make([]AdjustmentDTO, 0, len(r.Bonuses)),
		Deductions:      make([]AdjustmentDTO, 0, len(r.Deductions)),
		GrossPay:        r.GrossPay(),
		TotalDeductions: r.TotalDeductions(),
		NetPay:          r.NetPay(),
	}
	for _, b := range r.Bonuses {
		dto.Bonuses = append(dto.Bonuses, AdjustmentDTO{Description: b.Description, Amount: b.Amount})
	}
	for _, d := range r.Deductions {
		dto.Deductions = append(dto.Deductions, AdjustmentDTO{Description: d.Description, Amount: d.Amount})
	}
	if !r.CreatedAt.IsZero() {
		created := r.CreatedAt
		dto.CreatedAt = &created
	}
	return dto
}

func ToRunResultDTO(res payroll.RunResult) RunResultDTO {
	dto := RunResultDTO{
		Period:          ToPeriodDTO(res.Period),
		Succeeded:       res.Succeeded,
		SkippedOrFailed: res.SkippedOrFailed,
		Outcomes:        make([]OutcomeDTO, 0, len(res.Outcomes)),
	}
	for _, o := range res.Outcomes {
		out := OutcomeDTO{
			EmployeeID: string(o.EmployeeID),
			Status:     string(o.Status),
			RecordID:   string(o.RecordID),
			NetPay:     o.NetPay,
		}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		dto.Outcomes = append(dto.Outcomes, out)
	}
	return dto
}

func ToTaxRateDTO(t hr.TaxRate) TaxRateDTO {
	return TaxRateDTO{
		ID:           string(t.ID),
		Name:         t.Name,
		Percentage:   t.Percentage,
		ThresholdMin: t.ThresholdMin,
		ThresholdMax: t.ThresholdMax,
		Active:       t.Active,
	}
}

func ToPlanDTO(p hr.BenefitPlan) BenefitPlanDTO {
	return BenefitPlanDTO{
		ID:                   string(p.ID),
		Name:                 p.Name,
		Description:          p.Description,
		EmployeeContribution: p.EmployeeContribution,
		EmployerContribution: p.EmployerContribution,
		Active:               p.Active,
	}
}

func ToSelectionDTO(s hr.BenefitSelection) SelectionDTO {
	return SelectionDTO{
		ID:           string(s.ID),
		EmployeeID:   string(s.EmployeeID),
		PlanID:       string(s.PlanID),
		EnrolledAt:   s.EnrolledAt,
		UnenrolledAt: s.UnenrolledAt,
		Active:       s.Active,
	}
}

func ToLeaveDTO(r hr.LeaveRequest) LeaveDTO {
	return LeaveDTO{
		ID:          string(r.ID),
		EmployeeID:  string(r.EmployeeID),
		StartDate:   r.Period.Start,
		EndDate:     r.Period.End,
		Days:        r.DurationDays(),
		Reason:      r.Reason,
		Status:      string(r.Status),
		RequestedAt: r.RequestedAt,
		ActionedAt:  r.ActionedAt,
		ActionedBy:  r.ActionedBy,
		Notes:       r.Notes,
	}
}

func ToDepartmentReportDTO(r reports.DepartmentReport) DepartmentReportDTO {
	dist := r.BenefitDistribution
	if dist == nil {
		dist = map[string]decimal.Decimal{}
	}
	return DepartmentReportDTO{
		DepartmentID:          string(r.DepartmentID),
		DepartmentName:        r.DepartmentName,
		Period:                ToPeriodDTO(r.Period),
		EmployeesProcessed:    r.EmployeesProcessed,
		TotalGross:            r.TotalGross,
		TotalBenefitsDeducted: r.TotalBenefitsDeducted,
		BenefitDistribution:   dist,
	}
}

func ToSalaryTrendDTO(t reports.SalaryTrend) SalaryTrendDTO {
	dto := SalaryTrendDTO{
		EmployeeID:   string(t.EmployeeID),
		EmployeeName: t.EmployeeName,
		Points:       make([]SalaryPointDTO, 0, len(t.Points)),
	}
	for _, p := range t.Points {
		dto.Points = append(dto.Points, SalaryPointDTO{Period: ToPeriodDTO(p.Period), Gross: p.Gross})
	}
	return dto
}

func mapSlice[T, D any](in []T, fn func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
