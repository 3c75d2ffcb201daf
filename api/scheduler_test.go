package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/api"
	"github.com/aldenpython/payrollsystem/hr"
)

func TestPreviousMonth(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2025, time.January, 15, 2, 0, 0, 0, time.UTC), "2024-12-01"},
		{time.Date(2025, time.March, 31, 2, 0, 0, 0, time.UTC), "2025-02-01"},
		{time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), "2025-03-01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, api.PreviousMonth(tt.now).String())
	}
}

func TestPayrollScheduler_RunNow(t *testing.T) {
	// GIVEN: The schedule fires on April 1st
	s := newTestServer(t)
	sched := api.NewPayrollScheduler(s.svc.Runner, "", zap.NewNop())
	sched.Now = func() time.Time { return time.Date(2025, time.April, 1, 2, 0, 0, 0, time.UTC) }

	// WHEN
	res, err := sched.RunNow(context.Background())
	require.NoError(t, err)

	// THEN: March is paid as the system actor
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, "2025-03-31", res.Period.End.String())
	last, ok := sched.LastRun()
	require.True(t, ok)
	assert.Equal(t, res.Succeeded, last.Succeeded)

	records, err := s.mem.ListPayrollRecords(context.Background(), hr.PayrollFilter{EmployeeID: "e1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	entries := s.mem.AuditEntries()
	var systemEntries int
	for _, e := range entries {
		if e.Actor == hr.SystemActor.Username {
			systemEntries++
		}
	}
	assert.Positive(t, systemEntries)
}

func TestPayrollScheduler_StartStop(t *testing.T) {
	s := newTestServer(t)

	disabled := api.NewPayrollScheduler(s.svc.Runner, api.DefaultScheduleSpec, zap.NewNop())
	require.NoError(t, disabled.Start())
	assert.True(t, disabled.NextRun().IsZero())
	disabled.Stop()

	bad := api.NewPayrollScheduler(s.svc.Runner, "every month", zap.NewNop())
	bad.Enabled = true
	assert.Error(t, bad.Start())

	good := api.NewPayrollScheduler(s.svc.Runner, api.DefaultScheduleSpec, zap.NewNop())
	good.Enabled = true
	require.NoError(t, good.Start())
	next := good.NextRun()
	assert.Equal(t, 1, next.Day())
	assert.Equal(t, 2, next.Hour())
	good.Stop()
	assert.True(t, good.NextRun().IsZero())
}
