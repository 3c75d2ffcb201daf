package tax_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
	"github.com/aldenpython/payrollsystem/hr/store"
	"github.com/aldenpython/payrollsystem/tax"
)

var hrManager = hr.Actor{Username: "hana", Role: hr.RoleHRManager}

func newTestResolver(t *testing.T) (*tax.Resolver, *store.Memory) {
	mem := store.NewMemory()
	return tax.NewResolver(mem, hr.NewAuditor(mem, zap.NewNop()), zap.NewNop()), mem
}

func rate(name, pct string, active bool) hr.TaxRate {
	return hr.TaxRate{Name: name, Percentage: decimal.RequireFromString(pct), Active: active}
}

func activeRates(t *testing.T, mem *store.Memory) []hr.TaxRate {
	rates, err := mem.ListTaxRates(context.Background())
	require.NoError(t, err)
	var active []hr.TaxRate
	for _, r := range rates {
		if r.Active {
			active = append(active, r)
		}
	}
	return active
}

// =============================================================================
// TAX OWED
// =============================================================================

func TestOwed(t *testing.T) {
	active := rate("Income Tax", "0.10", true)
	inactive := rate("Old Tax", "0.10", false)

	tests := []struct {
		name   string
		rate   *hr.TaxRate
		amount string
		want   string
	}{
		{"flat rate on positive amount", &active, "5500", "550"},
		{"zero amount", &active, "0", "0"},
		{"negative amount", &active, "-100", "0"},
		{"inactive rate", &inactive, "5500", "0"},
		{"no rate", nil, "5500", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tax.Owed(tt.rate, decimal.RequireFromString(tt.amount))
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestOwed_IgnoresThresholds(t *testing.T) {
	// GIVEN: A rate whose bracket starts well above the amount
	floor := decimal.NewFromInt(100000)
	r := rate("Top Bracket", "0.40", true)
	r.ThresholdMin = &floor

	// THEN: The flat rate still applies to the whole amount
	got := tax.Owed(&r, decimal.NewFromInt(1000))
	assert.True(t, decimal.NewFromInt(400).Equal(got))
}

// =============================================================================
// ACTIVE RATE RESOLUTION
// =============================================================================

func TestActiveRate_NoneActive(t *testing.T) {
	resolver, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Create(ctx, rate("Dormant", "0.2", false), hrManager)
	require.NoError(t, err)

	got, err := resolver.ActiveRate(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestActiveRate_FirstActiveInStoredOrder(t *testing.T) {
	// GIVEN: Two active rates written directly, bypassing the resolver
	resolver, mem := newTestResolver(t)
	ctx := context.Background()

	first := rate("First", "0.1", true)
	first.ID = "r1"
	second := rate("Second", "0.2", true)
	second.ID = "r2"
	require.NoError(t, mem.SaveTaxRate(ctx, first))
	require.NoError(t, mem.SaveTaxRate(ctx, second))

	// THEN: The resolver does not enforce the invariant, it picks the first
	got, err := resolver.ActiveRate(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, hr.TaxRateID("r1"), got.ID)
}

// =============================================================================
// SINGLE ACTIVE RATE
// =============================================================================

func TestSetActive_LeavesExactlyOneActive(t *testing.T) {
	// GIVEN: Rate A active, rate B inactive
	resolver, mem := newTestResolver(t)
	ctx := context.Background()

	a, err := resolver.Create(ctx, rate("A", "0.1", true), hrManager)
	require.NoError(t, err)
	b, err := resolver.Create(ctx, rate("B", "0.2", false), hrManager)
	require.NoError(t, err)

	// WHEN: B is activated
	require.NoError(t, resolver.SetActive(ctx, b.ID, hrManager))

	// THEN: Only B is active
	active := activeRates(t, mem)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	got, err := mem.GetTaxRate(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestCreate_ActiveRateDeactivatesOthers(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Create(ctx, rate("A", "0.1", true), hrManager)
	require.NoError(t, err)
	c, err := resolver.Create(ctx, rate("C", "0.3", true), hrManager)
	require.NoError(t, err)

	active := activeRates(t, mem)
	require.Len(t, active, 1)
	assert.Equal(t, c.ID, active[0].ID)
}

func TestSetActive_UnknownRate(t *testing.T) {
	resolver, _ := newTestResolver(t)

	err := resolver.SetActive(context.Background(), "missing", hrManager)

	assert.ErrorIs(t, err, hr.ErrNotFound)
}

func TestSetActive_RequiresManager(t *testing.T) {
	resolver, _ := newTestResolver(t)
	employee := hr.Actor{Username: "eve", Role: hr.RoleEmployee, EmployeeID: "e1"}

	err := resolver.SetActive(context.Background(), "anything", employee)

	assert.ErrorIs(t, err, hr.ErrPermissionDenied)
}

func TestSetActive_WriteFailureRollsBack(t *testing.T) {
	// GIVEN: A active, B inactive, and the store fails activating B after
	// A was already deactivated
	resolver, mem := newTestResolver(t)
	ctx := context.Background()

	a, err := resolver.Create(ctx, rate("A", "0.1", true), hrManager)
	require.NoError(t, err)
	b, err := resolver.Create(ctx, rate("B", "0.2", false), hrManager)
	require.NoError(t, err)

	mem.FailAfter("SaveTaxRate", 1, errors.New("disk gone"))

	// WHEN
	err = resolver.SetActive(ctx, b.ID, hrManager)

	// THEN: Persistence error, A still the only active rate
	assert.ErrorIs(t, err, hr.ErrPersistenceFailed)
	active := activeRates(t, mem)
	require.Len(t, active, 1)
	assert.Equal(t, a.ID, active[0].ID)
}

func TestCreate_RejectsInvalidPercentage(t *testing.T) {
	resolver, _ := newTestResolver(t)

	_, err := resolver.Create(context.Background(), rate("Bad", "1.5", false), hrManager)

	assert.ErrorIs(t, err, hr.ErrValidationFailed)
}

func TestSetActive_Audited(t *testing.T) {
	resolver, mem := newTestResolver(t)
	ctx := context.Background()

	b, err := resolver.Create(ctx, rate("B", "0.2", false), hrManager)
	require.NoError(t, err)
	require.NoError(t, resolver.SetActive(ctx, b.ID, hrManager))

	entries := mem.AuditEntries()
	require.NotEmpty(t, entries)
	last := entries[len(entries)-1]
	assert.Equal(t, hr.AuditTaxRateActivated, last.Action)
	assert.Equal(t, "hana", last.Actor)
	assert.Equal(t, string(b.ID), last.EntityID)
}
