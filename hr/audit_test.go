package hr_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aldenpython/payrollsystem/hr"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Record(ctx context.Context, e hr.AuditEntry) error {
	return m.Called(ctx, e).Error(0)
}

func TestAuditor_FillsEntry(t *testing.T) {
	sink := new(mockSink)
	now := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	sink.On("Record", mock.Anything, mock.MatchedBy(func(e hr.AuditEntry) bool {
		return e.ID != "" && e.Timestamp.Equal(now) && e.Actor == "hana" &&
			e.Action == hr.AuditLeaveApproved && e.EntityID == "r1"
	})).Return(nil).Once()

	a := hr.NewAuditor(sink, zap.NewNop())
	a.Now = func() time.Time { return now }
	a.Record(context.Background(), "hana", hr.AuditLeaveApproved, "approved", "leave_request", "r1")

	sink.AssertExpectations(t)
}

func TestAuditor_SinkFailureIsLoggedNotReturned(t *testing.T) {
	// GIVEN: A sink that always fails
	sink := new(mockSink)
	sink.On("Record", mock.Anything, mock.Anything).Return(errors.New("audit db down"))
	core, logs := observer.New(zap.ErrorLevel)

	// WHEN
	hr.NewAuditor(sink, zap.New(core)).Record(context.Background(), "hana", hr.AuditPayslipGenerated, "", "payroll_record", "p1")

	// THEN
	assert.Equal(t, 1, logs.FilterMessage("audit record failed").Len())
}

func TestAuditor_NilIsSafe(t *testing.T) {
	var a *hr.Auditor
	assert.NotPanics(t, func() {
		a.Record(context.Background(), "x", hr.AuditBatchStarted, "", "", "")
	})
}

func TestMultiSink_RecordsEverywhere(t *testing.T) {
	failing := new(mockSink)
	failing.On("Record", mock.Anything, mock.Anything).Return(errors.New("down"))
	ok := new(mockSink)
	ok.On("Record", mock.Anything, mock.Anything).Return(nil)

	err := hr.MultiSink{failing, ok, hr.LogSink{Logger: zap.NewNop()}}.Record(context.Background(), hr.AuditEntry{Action: hr.AuditLeaveCancelled})

	assert.EqualError(t, err, "down")
	ok.AssertNumberOfCalls(t, "Record", 1)
}
