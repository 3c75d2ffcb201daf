package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldenpython/payrollsystem/factory"
	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/hr/store"
)

const seedJSON = `{
  "departments": [{"id": "eng", "name": "Engineering"}],
  "employees": [
    {"id": "e1", "username": "eve", "full_name": "Eve Adams", "position": "Engineer",
     "department_id": "eng", "salary": "5000", "joined_on": "2024-01-08"},
    {"id": "e2", "username": "bob", "full_name": "Bob Stone", "position": "Analyst",
     "department_id": "eng", "salary": 4200.50, "joined_on": "2023-06-01", "leave_balance": 3}
  ],
  "tax_rates": [{"id": "t1", "name": "Income Tax", "percentage": "0.10", "active": true}],
  "benefit_plans": [{"id": "health", "name": "Health", "employee_contribution": "200",
                     "employer_contribution": "300", "active": true}],
  "enrollments": [{"employee_id": "e1", "plan_id": "health"}]
}`

var now = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestSeed_Apply(t *testing.T) {
	// GIVEN
	seed, err := factory.ParseSeed([]byte(seedJSON))
	require.NoError(t, err)
	mem := store.NewMemory()
	ctx := context.Background()

	// WHEN
	_, err = seed.Apply(ctx, mem, now)
	require.NoError(t, err)

	// THEN
	eve, err := mem.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, eve)
	assert.Equal(t, 15, eve.LeaveBalance)
	assert.Equal(t, "Engineering", eve.JobHistory[0].DepartmentName)

	bob, _ := mem.GetEmployee(ctx, "e2")
	assert.Equal(t, 3, bob.LeaveBalance)
	assert.True(t, decimal.RequireFromString("4200.5").Equal(bob.Salary))

	sels, err := mem.ListBenefitSelections(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, sels, 1)
	assert.True(t, sels[0].Active)
	assert.Equal(t, now, sels[0].EnrolledAt)
}

func TestSeed_ActiveRateReplacesExisting(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.SaveTaxRate(ctx, hr.TaxRate{ID: "old", Name: "Old", Active: true}))

	seed, err := factory.ParseSeed([]byte(seedJSON))
	require.NoError(t, err)
	_, err = seed.Apply(ctx, mem, now)
	require.NoError(t, err)

	old, _ := mem.GetTaxRate(ctx, "old")
	assert.False(t, old.Active)
}

func TestSeed_Rejections(t *testing.T) {
	tests := []struct {
		name string
		json string
		want error
	}{
		{"unknown department", `{"employees": [{"username": "x", "full_name": "X", "position": "P",
			"department_id": "nope", "salary": "1", "joined_on": "2024-01-01"}]}`, hr.ErrNotFound},
		{"two active rates", `{"tax_rates": [{"name": "A", "percentage": "0.1", "active": true},
			{"name": "B", "percentage": "0.2", "active": true}]}`, hr.ErrValidationFailed},
		{"unknown plan", `{"departments": [{"id": "d", "name": "D"}], "employees": [{"id": "e",
			"username": "x", "full_name": "X", "position": "P", "department_id": "d", "salary": "1",
			"joined_on": "2024-01-01"}], "enrollments": [{"employee_id": "e", "plan_id": "none"}]}`, hr.ErrNotFound},
		{"negative contribution", `{"benefit_plans": [{"name": "Gym", "employee_contribution": "-1",
			"employer_contribution": "0"}]}`, hr.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := factory.ParseSeed([]byte(tt.json))
			require.NoError(t, err)

			mem := store.NewMemory()
			_, err = seed.Apply(context.Background(), mem, now)

			assert.ErrorIs(t, err, tt.want)
			emps, _ := mem.ListEmployees(context.Background())
			assert.Empty(t, emps)
		})
	}
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := factory.ParseSeed([]byte(`{"departmens": []}`))
	assert.Error(t, err)
}

func TestDefaultSeed(t *testing.T) {
	mem := store.NewMemory()
	_, err := factory.DefaultSeed().Apply(context.Background(), mem, now)
	require.NoError(t, err)

	depts, _ := mem.ListDepartments(context.Background())
	assert.Len(t, depts, 4)
}

func TestEnsureDefaults(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// WHEN: Applied twice
	wrote, err := factory.EnsureDefaults(ctx, mem, time.Now())
	require.NoError(t, err)
	again, err := factory.EnsureDefaults(ctx, mem, time.Now())
	require.NoError(t, err)

	// THEN: Only the first call writes
	assert.True(t, wrote)
	assert.False(t, again)
	depts, err := mem.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, depts, 4)
}
