/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests, origins from config
  5. RequireActor (under /api only): caller identity from headers

ROUTE GROUPS:
  /api/employees/*       Directory, payslips, leave and benefits per employee
  /api/departments/*     Departments and expenditure reports
  /api/payroll/*         Preview, generate, batch runs
  /api/tax-rates/*       Tax rate management
  /api/benefit-plans/*   Benefit plans
  /api/leave/*           Leave approval queue
  /metrics               Prometheus exposition
  /healthz               Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Actor", "X-Role", "X-Employee-ID"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireActor)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.HireEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Put("/{id}/salary", h.ChangeSalary)
			r.Post("/{id}/job", h.ChangeJob)
			r.Get("/{id}/payslips", h.ListPayslips)
			r.Get("/{id}/leave", h.ListLeave)
			r.Post("/{id}/leave", h.RequestLeave)
			r.Get("/{id}/leave/balance", h.LeaveBalance)
			r.Get("/{id}/benefits", h.ListSelections)
			r.Post("/{id}/benefits", h.Enroll)
			r.Get("/{id}/salary-trend", h.SalaryTrend)
		})

		r.Route("/departments", func(r chi.Router) {
			r.Get("/", h.ListDepartments)
			r.Post("/", h.CreateDepartment)
			r.Get("/{id}/expenditure", h.DepartmentExpenditure)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Post("/preview", h.PreviewPayslip)
			r.Post("/payslips", h.GeneratePayslip)
			r.Get("/payslips/{id}", h.GetPayslip)
			r.Post("/runs", h.RunPayroll)
		})

		r.Route("/tax-rates", func(r chi.Router) {
			r.Get("/", h.ListTaxRates)
			r.Post("/", h.CreateTaxRate)
			r.Get("/active", h.ActiveTaxRate)
			r.Post("/{id}/activate", h.ActivateTaxRate)
		})

		r.Route("/benefit-plans", func(r chi.Router) {
			r.Get("/", h.ListBenefitPlans)
			r.Post("/", h.CreateBenefitPlan)
			r.Get("/{id}", h.GetBenefitPlan)
		})
		r.Delete("/benefit-selections/{id}", h.Unenroll)

		r.Route("/leave", func(r chi.Router) {
			r.Get("/pending", h.ListPendingLeave)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
			r.Post("/{id}/cancel", h.CancelLeave)
		})
	})

	return r
}
