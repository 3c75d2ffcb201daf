package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/directory"
	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/hr/store"
)

var (
	manager = hr.Actor{Username: "hana", Role: hr.RoleHRManager}
	worker  = hr.Actor{Username: "eve", Role: hr.RoleEmployee, EmployeeID: "e1"}
)

func newService(t *testing.T) (*directory.Service, *store.Memory, hr.Department) {
	t.Helper()
	mem := store.NewMemory()
	svc := directory.NewService(mem, hr.NewAuditor(mem, zap.NewNop()), zap.NewNop())
	dept, err := svc.CreateDepartment(context.Background(), "Engineering", manager)
	require.NoError(t, err)
	return svc, mem, dept
}

func hireInput(dept hr.DepartmentID) directory.HireInput {
	return directory.HireInput{
		ID:           "e1",
		Username:     "eve",
		FullName:     "Eve Adams",
		Position:     "Engineer",
		DepartmentID: dept,
		Salary:       decimal.NewFromInt(5000),
		JoinedOn:     hr.NewDate(2024, time.January, 8),
	}
}

func TestHire(t *testing.T) {
	svc, mem, dept := newService(t)

	// WHEN
	emp, err := svc.Hire(context.Background(), hireInput(dept.ID), manager)
	require.NoError(t, err)

	// THEN: Default balance, one open job in the department
	assert.Equal(t, directory.DefaultLeaveBalance, emp.LeaveBalance)
	require.Len(t, emp.JobHistory, 1)
	assert.True(t, emp.JobHistory[0].IsCurrent())
	assert.Equal(t, "Engineering", emp.JobHistory[0].DepartmentName)

	stored, err := mem.GetEmployee(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Eve Adams", stored.FullName)

	entries := mem.AuditEntries()
	assert.Equal(t, hr.AuditEmployeeHired, entries[len(entries)-1].Action)
}

func TestHire_Rejections(t *testing.T) {
	svc, _, dept := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(dept.ID), manager)
	require.NoError(t, err)

	negative := -1
	tests := []struct {
		name   string
		mutate func(*directory.HireInput)
		want   error
	}{
		{"duplicate username", func(in *directory.HireInput) { in.ID = "e2"; in.Username = "EVE" }, hr.ErrValidationFailed},
		{"duplicate id", func(in *directory.HireInput) { in.Username = "other" }, hr.ErrValidationFailed},
		{"unknown department", func(in *directory.HireInput) { in.ID = "e3"; in.Username = "x"; in.DepartmentID = "nope" }, hr.ErrNotFound},
		{"zero salary", func(in *directory.HireInput) { in.ID = "e4"; in.Username = "y"; in.Salary = decimal.Zero }, hr.ErrValidationFailed},
		{"negative balance", func(in *directory.HireInput) { in.ID = "e5"; in.Username = "z"; in.LeaveBalance = &negative }, hr.ErrValidationFailed},
		{"blank name", func(in *directory.HireInput) { in.ID = "e6"; in.Username = "w"; in.FullName = " " }, hr.ErrValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := hireInput(dept.ID)
			tt.mutate(&in)
			_, err := svc.Hire(ctx, in, manager)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHire_RequiresManager(t *testing.T) {
	svc, _, dept := newService(t)

	_, err := svc.Hire(context.Background(), hireInput(dept.ID), worker)

	var perm *hr.PermissionError
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, "eve", perm.Actor)
}

func TestChangeSalary(t *testing.T) {
	svc, _, dept := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(dept.ID), manager)
	require.NoError(t, err)

	emp, err := svc.ChangeSalary(ctx, "e1", decimal.NewFromInt(6000), manager)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(6000).Equal(emp.Salary))

	_, err = svc.ChangeSalary(ctx, "e1", decimal.Zero, manager)
	assert.ErrorIs(t, err, hr.ErrValidationFailed)

	_, err = svc.ChangeSalary(ctx, "e9", decimal.NewFromInt(1), manager)
	assert.ErrorIs(t, err, hr.ErrNotFound)
}

func TestChangeJob_ClosesCurrentJob(t *testing.T) {
	// GIVEN: Eve in Engineering since 2024-01-08
	svc, _, eng := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(eng.ID), manager)
	require.NoError(t, err)
	ops, err := svc.CreateDepartment(ctx, "Operations", manager)
	require.NoError(t, err)
	raise := decimal.NewFromInt(7000)

	// WHEN: She moves to Operations on 2025-03-01
	emp, err := svc.ChangeJob(ctx, "e1", directory.JobChange{
		Position:     "Lead",
		DepartmentID: ops.ID,
		Salary:       &raise,
		Effective:    hr.NewDate(2025, time.March, 1),
	}, manager)
	require.NoError(t, err)

	// THEN
	require.Len(t, emp.JobHistory, 2)
	require.NotNil(t, emp.JobHistory[0].End)
	assert.Equal(t, "2025-02-28", emp.JobHistory[0].End.String())
	assert.True(t, emp.JobHistory[1].IsCurrent())
	assert.Equal(t, ops.ID, emp.DepartmentID)
	assert.Equal(t, "Lead", emp.Position)
	assert.True(t, raise.Equal(emp.Salary))
}

func TestChangeJob_Rejections(t *testing.T) {
	svc, mem, eng := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(eng.ID), manager)
	require.NoError(t, err)

	_, err = svc.ChangeJob(ctx, "e1", directory.JobChange{
		Position: "Lead", DepartmentID: "nope", Effective: hr.NewDate(2025, time.March, 1),
	}, manager)
	assert.ErrorIs(t, err, hr.ErrNotFound)

	_, err = svc.ChangeJob(ctx, "e1", directory.JobChange{
		Position: "Lead", DepartmentID: eng.ID, Effective: hr.NewDate(2023, time.March, 1),
	}, manager)
	assert.ErrorIs(t, err, hr.ErrValidationFailed)

	// THEN: Nothing was written
	stored, err := mem.GetEmployee(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, stored.JobHistory, 1)
}

func TestChangeJob_WriteFailureKeepsSnapshot(t *testing.T) {
	svc, mem, eng := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(eng.ID), manager)
	require.NoError(t, err)
	mem.FailNext("SaveEmployee", errors.New("disk full"))

	_, err = svc.ChangeSalary(ctx, "e1", decimal.NewFromInt(9000), manager)

	assert.ErrorIs(t, err, hr.ErrPersistenceFailed)
	stored, _ := mem.GetEmployee(ctx, "e1")
	assert.True(t, decimal.NewFromInt(5000).Equal(stored.Salary))
}

func TestCreateDepartment(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateDepartment(ctx, "engineering", manager)
	assert.ErrorIs(t, err, hr.ErrValidationFailed)

	_, err = svc.CreateDepartment(ctx, "Finance", worker)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)

	depts, err := svc.ListDepartments(ctx)
	require.NoError(t, err)
	assert.Len(t, depts, 1)
}

func TestEmployee_SelfLookup(t *testing.T) {
	svc, _, eng := newService(t)
	ctx := context.Background()
	_, err := svc.Hire(ctx, hireInput(eng.ID), manager)
	require.NoError(t, err)

	emp, err := svc.Employee(ctx, "e1", worker)
	require.NoError(t, err)
	assert.Equal(t, "eve", emp.Username)

	_, err = svc.Employees(ctx, worker)
	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}
