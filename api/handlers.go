/*
handlers.go - HTTP API handlers for the payroll and leave engine

PURPOSE:
  Exposes the domain services via REST. Handlers parse the request, build
  the caller's hr.Actor from headers, delegate to a service and serialize
  the result. They hold no business rules of their own.

ENDPOINTS:
  Employees:
    GET    /api/employees                       List employees
    POST   /api/employees                       Hire
    GET    /api/employees/{id}                  Employee details
    PUT    /api/employees/{id}/salary           Change salary
    POST   /api/employees/{id}/job              Change position/department
    GET    /api/employees/{id}/payslips         Payslip history, newest first
    GET    /api/employees/{id}/leave            Leave requests, newest first
    POST   /api/employees/{id}/leave            Request leave
    GET    /api/employees/{id}/leave/balance    Leave balance in days
    GET    /api/employees/{id}/benefits         Benefit selections
    POST   /api/employees/{id}/benefits         Enroll in a plan
    GET    /api/employees/{id}/salary-trend     Gross pay per period

  Departments:
    GET    /api/departments                     List departments
    POST   /api/departments                     Create department
    GET    /api/departments/{id}/expenditure    Report (?from=&to=)

  Payroll:
    POST   /api/payroll/preview                 Calculate without saving
    POST   /api/payroll/payslips                Generate and save one payslip
    GET    /api/payroll/payslips/{id}           One payslip
    POST   /api/payroll/runs                    Batch run for a month

  Tax rates:
    GET    /api/tax-rates                       List
    POST   /api/tax-rates                       Create
    GET    /api/tax-rates/active                The active rate
    POST   /api/tax-rates/{id}/activate         Make the only active rate

  Benefits:
    GET    /api/benefit-plans                   List plans
    POST   /api/benefit-plans                   Create plan
    GET    /api/benefit-plans/{id}              One plan
    DELETE /api/benefit-selections/{id}         Unenroll

  Leave:
    GET    /api/leave/pending                   Pending requests, oldest first
    POST   /api/leave/{id}/approve
    POST   /api/leave/{id}/reject
    POST   /api/leave/{id}/cancel

ACTOR:
  X-Actor (username), X-Role (admin|hr_manager|employee) and optionally
  X-Employee-ID identify the caller. Requests without a valid actor get 401.
  Authentication itself is out of scope; the headers are trusted.

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/benefits"
	"github.com/aldenpython/payrollsystem/directory"
	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/leave"
	"github.com/aldenpython/payrollsystem/payroll"
	"github.com/aldenpython/payrollsystem/reports"
	"github.com/aldenpython/payrollsystem/tax"
)

// =============================================================================
// SERVICES
// =============================================================================

// Services is every domain component wired over one store. The HTTP handler,
// the scheduler and payrollctl all build on it.
type Services struct {
	Store     hr.TxStore
	Audit     *hr.Auditor
	Directory *directory.Service
	Taxes     *tax.Resolver
	Benefits  *benefits.Ledger
	Engine    *payroll.Engine
	Runner    *payroll.Runner
	Leave     *leave.Ledger
	Reports   *reports.Aggregator
}

func NewServices(store hr.TxStore, audit *hr.Auditor, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.L()
	}
	dir := directory.NewService(store, audit, logger.Named("directory"))
	taxes := tax.NewResolver(store, audit, logger.Named("tax"))
	ben := benefits.NewLedger(store, audit, logger.Named("benefits"))
	engine := payroll.NewEngine(dir, store, taxes, ben, audit, logger.Named("payroll"))
	return &Services{
		Store:     store,
		Audit:     audit,
		Directory: dir,
		Taxes:     taxes,
		Benefits:  ben,
		Engine:    engine,
		Runner:    payroll.NewRunner(engine),
		Leave:     leave.NewLedger(store, audit, logger.Named("leave")),
		Reports:   reports.NewAggregator(store, dir, logger.Named("reports")),
	}
}

// =============================================================================
// HANDLER
// =============================================================================

type Handler struct {
	*Services
	Logger *zap.Logger

	validate *validator.Validate
}

func NewHandler(svc *Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.L().Named("api")
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonTagName)
	return &Handler{Services: svc, Logger: logger, validate: v}
}

// =============================================================================
// ACTOR
// =============================================================================

type actorKey struct{}

// RequireActor builds the hr.Actor from request headers and stores it in the
// request context.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get("X-Actor"))
		role := hr.Role(strings.TrimSpace(r.Header.Get("X-Role")))
		if username == "" || !role.Valid() {
			writeError(w, http.StatusUnauthorized, "missing or invalid actor",
				&hr.ValidationError{Field: "X-Actor/X-Role", Reason: "are required"})
			return
		}
		actor := hr.Actor{
			Username:   username,
			Role:       role,
			EmployeeID: hr.EmployeeID(strings.TrimSpace(r.Header.Get("X-Employee-ID"))),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(r *http.Request) hr.Actor {
	a, _ := r.Context().Value(actorKey{}).(hr.Actor)
	return a
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// decode reads a JSON body into v and runs struct validation.
func (h *Handler) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &hr.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// parseDate accepts an empty string as the zero date so the domain layer
// reports missing values in its own order.
func parseDate(s string) (hr.Date, error) {
	if s == "" {
		return hr.Date{}, nil
	}
	return hr.ParseDate(s)
}

func parsePeriod(start, end string) (hr.Period, error) {
	s, err := parseDate(start)
	if err != nil {
		return hr.Period{}, err
	}
	e, err := parseDate(end)
	if err != nil {
		return hr.Period{}, err
	}
	return hr.Period{Start: s, End: e}, nil
}

// ParseMonth parses YYYY-MM into the first day of that month.
func ParseMonth(s string) (hr.Date, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return hr.Date{}, &hr.ValidationError{Field: "month", Reason: "must use layout YYYY-MM"}
	}
	return hr.DateOf(t), nil
}

func employeeParam(r *http.Request) hr.EmployeeID { return hr.EmployeeID(chi.URLParam(r, "id")) }

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees handles GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	emps, err := h.Directory.Employees(r.Context(), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(emps, ToEmployeeDTO))
}

// HireEmployee handles POST /api/employees
func (h *Handler) HireEmployee(w http.ResponseWriter, r *http.Request) {
	var req HireRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	joined, err := hr.ParseDate(req.JoinedOn)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	emp, err := h.Directory.Hire(r.Context(), directory.HireInput{
		ID:           hr.EmployeeID(req.ID),
		Username:     req.Username,
		FullName:     req.FullName,
		Position:     req.Position,
		DepartmentID: hr.DepartmentID(req.DepartmentID),
		Salary:       req.Salary,
		JoinedOn:     joined,
		LeaveBalance: req.LeaveBalance,
	}, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToEmployeeDTO(emp))
}

// GetEmployee handles GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.Employee(r.Context(), employeeParam(r), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToEmployeeDTO(emp))
}

// ChangeSalary handles PUT /api/employees/{id}/salary
func (h *Handler) ChangeSalary(w http.ResponseWriter, r *http.Request) {
	var req SalaryRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	emp, err := h.Directory.ChangeSalary(r.Context(), employeeParam(r), req.Salary, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToEmployeeDTO(emp))
}

// ChangeJob handles POST /api/employees/{id}/job
func (h *Handler) ChangeJob(w http.ResponseWriter, r *http.Request) {
	var req JobChangeRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	effective, err := hr.ParseDate(req.Effective)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	emp, err := h.Directory.ChangeJob(r.Context(), employeeParam(r), directory.JobChange{
		Position:     req.Position,
		DepartmentID: hr.DepartmentID(req.DepartmentID),
		Salary:       req.Salary,
		Effective:    effective,
	}, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToEmployeeDTO(emp))
}

// =============================================================================
// DEPARTMENT HANDLERS
// =============================================================================

// ListDepartments handles GET /api/departments
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.Directory.ListDepartments(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(depts, ToDepartmentDTO))
}

// CreateDepartment handles POST /api/departments
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req CreateDepartmentRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	dept, err := h.Directory.CreateDepartment(r.Context(), req.Name, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToDepartmentDTO(dept))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

func (h *Handler) calculationInput(req PayslipRequest) (payroll.CalculationInput, error) {
	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return payroll.CalculationInput{}, err
	}
	in := payroll.CalculationInput{
		EmployeeID:  hr.EmployeeID(req.EmployeeID),
		Period:      period,
		HoursWorked: req.HoursWorked,
	}
	for _, b := range req.Bonuses {
		in.Bonuses = append(in.Bonuses, hr.Bonus{Description: b.Description, Amount: b.Amount})
	}
	for _, d := range req.Deductions {
		in.Deductions = append(in.Deductions, hr.Deduction{Description: d.Description, Amount: d.Amount})
	}
	return in, nil
}

// PreviewPayslip handles POST /api/payroll/preview
// Nothing is saved or audited.
func (h *Handler) PreviewPayslip(w http.ResponseWriter, r *http.Request) {
	var req PayslipRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := hr.Authorize(actorFrom(r), hr.CapGeneratePayroll); err != nil {
		h.respondError(w, r, err)
		return
	}
	in, err := h.calculationInput(req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rec, err := h.Engine.Calculate(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToRecordDTO(rec))
}

// GeneratePayslip handles POST /api/payroll/payslips
// A payslip that already exists for the period answers 200 with saved=false.
func (h *Handler) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	var req PayslipRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	in, err := h.calculationInput(req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	saved, rec, err := h.Engine.GenerateAndSave(r.Context(), in, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if saved {
		status = http.StatusCreated
	}
	writeJSON(w, status, GenerateResponse{Saved: saved, Record: ToRecordDTO(rec)})
}

// GetPayslip handles GET /api/payroll/payslips/{id}
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Engine.RecordByID(r.Context(), hr.RecordID(chi.URLParam(r, "id")), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToRecordDTO(rec))
}

// ListPayslips handles GET /api/employees/{id}/payslips
func (h *Handler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	recs, err := h.Engine.RecordsForEmployee(r.Context(), employeeParam(r), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(recs, ToRecordDTO))
}

// RunPayroll handles POST /api/payroll/runs
func (h *Handler) RunPayroll(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	month, err := ParseMonth(req.Month)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	res, err := h.Runner.RunForAll(r.Context(), month, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToRunResultDTO(res))
}

// =============================================================================
// TAX RATE HANDLERS
// =============================================================================

// ListTaxRates handles GET /api/tax-rates
func (h *Handler) ListTaxRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Taxes.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rates, ToTaxRateDTO))
}

// ActiveTaxRate handles GET /api/tax-rates/active
func (h *Handler) ActiveTaxRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.Taxes.ActiveRate(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if rate == nil {
		h.respondError(w, r, hr.NotFound("tax rate", "active"))
		return
	}
	writeJSON(w, http.StatusOK, ToTaxRateDTO(*rate))
}

// CreateTaxRate handles POST /api/tax-rates
func (h *Handler) CreateTaxRate(w http.ResponseWriter, r *http.Request) {
	var req TaxRateRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	rate, err := h.Taxes.Create(r.Context(), hr.TaxRate{
		Name:         req.Name,
		Percentage:   req.Percentage,
		ThresholdMin: req.ThresholdMin,
		ThresholdMax: req.ThresholdMax,
		Active:       req.Active,
	}, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToTaxRateDTO(rate))
}

// ActivateTaxRate handles POST /api/tax-rates/{id}/activate
func (h *Handler) ActivateTaxRate(w http.ResponseWriter, r *http.Request) {
	id := hr.TaxRateID(chi.URLParam(r, "id"))
	if err := h.Taxes.SetActive(r.Context(), id, actorFrom(r)); err != nil {
		h.respondError(w, r, err)
		return
	}
	rate, err := h.Taxes.ActiveRate(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if rate == nil {
		h.respondError(w, r, hr.NotFound("tax rate", id))
		return
	}
	writeJSON(w, http.StatusOK, ToTaxRateDTO(*rate))
}

// =============================================================================
// BENEFIT HANDLERS
// =============================================================================

// ListBenefitPlans handles GET /api/benefit-plans
func (h *Handler) ListBenefitPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Benefits.ListPlans(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(plans, ToPlanDTO))
}

// GetBenefitPlan handles GET /api/benefit-plans/{id}
func (h *Handler) GetBenefitPlan(w http.ResponseWriter, r *http.Request) {
	id := hr.PlanID(chi.URLParam(r, "id"))
	plan, err := h.Benefits.PlanByID(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if plan == nil {
		h.respondError(w, r, hr.NotFound("benefit plan", id))
		return
	}
	writeJSON(w, http.StatusOK, ToPlanDTO(*plan))
}

// CreateBenefitPlan handles POST /api/benefit-plans
// Plans are active unless the body says otherwise.
func (h *Handler) CreateBenefitPlan(w http.ResponseWriter, r *http.Request) {
	var req BenefitPlanRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	plan, err := h.Benefits.CreatePlan(r.Context(), hr.BenefitPlan{
		Name:                 req.Name,
		Description:          req.Description,
		EmployeeContribution: req.EmployeeContribution,
		EmployerContribution: req.EmployerContribution,
		Active:               active,
	}, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToPlanDTO(plan))
}

// ListSelections handles GET /api/employees/{id}/benefits
// ?active=true limits the result to current enrollments.
func (h *Handler) ListSelections(w http.ResponseWriter, r *http.Request) {
	id := employeeParam(r)
	if err := hr.AuthorizeSelf(actorFrom(r), id, hr.CapManageBenefits); err != nil {
		h.respondError(w, r, err)
		return
	}
	var (
		sels []hr.BenefitSelection
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		sels, err = h.Benefits.ActiveSelectionsFor(r.Context(), id)
	} else {
		sels, err = h.Benefits.SelectionsFor(r.Context(), id)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(sels, ToSelectionDTO))
}

// Enroll handles POST /api/employees/{id}/benefits
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	sel, err := h.Benefits.Enroll(r.Context(), employeeParam(r), hr.PlanID(req.PlanID), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToSelectionDTO(sel))
}

// Unenroll handles DELETE /api/benefit-selections/{id}
func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	sel, err := h.Benefits.Unenroll(r.Context(), hr.SelectionID(chi.URLParam(r, "id")), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToSelectionDTO(sel))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// RequestLeave handles POST /api/employees/{id}/leave
func (h *Handler) RequestLeave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequestBody
	if err := h.decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	period, err := parsePeriod(req.StartDate, req.EndDate)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	lr, err := h.Leave.Request(r.Context(), employeeParam(r), period, req.Reason, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToLeaveDTO(lr))
}

// ListLeave handles GET /api/employees/{id}/leave
func (h *Handler) ListLeave(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Leave.ForEmployee(r.Context(), employeeParam(r), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reqs, ToLeaveDTO))
}

// LeaveBalance handles GET /api/employees/{id}/leave/balance
func (h *Handler) LeaveBalance(w http.ResponseWriter, r *http.Request) {
	id := employeeParam(r)
	days, err := h.Leave.Balance(r.Context(), id, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{EmployeeID: string(id), Days: days})
}

// ListPendingLeave handles GET /api/leave/pending
func (h *Handler) ListPendingLeave(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Leave.Pending(r.Context(), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(reqs, ToLeaveDTO))
}

// ApproveLeave handles POST /api/leave/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Leave.Approve(r.Context(), hr.RequestID(chi.URLParam(r, "id")), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToLeaveDTO(lr))
}

// RejectLeave handles POST /api/leave/{id}/reject
// The body is optional.
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	lr, err := h.Leave.Reject(r.Context(), hr.RequestID(chi.URLParam(r, "id")), actorFrom(r), req.Notes)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToLeaveDTO(lr))
}

// CancelLeave handles POST /api/leave/{id}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	lr, err := h.Leave.Cancel(r.Context(), hr.RequestID(chi.URLParam(r, "id")), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToLeaveDTO(lr))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// DepartmentExpenditure handles GET /api/departments/{id}/expenditure?from=&to=
func (h *Handler) DepartmentExpenditure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := parsePeriod(q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	rep, err := h.Reports.DepartmentExpenditure(r.Context(),
		hr.DepartmentID(chi.URLParam(r, "id")), period, actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToDepartmentReportDTO(rep))
}

// SalaryTrend handles GET /api/employees/{id}/salary-trend
func (h *Handler) SalaryTrend(w http.ResponseWriter, r *http.Request) {
	trend, err := h.Reports.SalaryTrend(r.Context(), employeeParam(r), actorFrom(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToSalaryTrendDTO(trend))
}
