/*
resolver.go - Tax policy resolver

PURPOSE:
  Answers "which tax rate applies" and "how much tax is owed on an amount".
  Also owns the single-active-rate invariant: activating a rate deactivates
  every other rate in the same transaction.

CALCULATION:
  A single flat rate applies to the whole amount. Threshold fields are
  stored and validated but never consulted here.

  taxOwed(rate, amount) =
      0                        if rate is nil or inactive
      0                        if amount <= 0
      amount * rate.Percentage otherwise

SEE ALSO:
  - payroll/engine.go: applies the tax as a named deduction
  - hr/types.go: TaxRate
*/
package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aldenpython/payrollsystem/hr"
)

// Owed returns the tax owed on amount at the given rate.
func Owed(rate *hr.TaxRate, amount decimal.Decimal) decimal.Decimal {
	if rate == nil || !rate.Active {
		return decimal.Zero
	}
	if !amount.IsPositive() {
		return decimal.Zero
	}
	return amount.Mul(rate.Percentage)
}

type Resolver struct {
	Store  hr.TxStore
	Audit  *hr.Auditor // optional
	Logger *zap.Logger
}

func NewResolver(store hr.TxStore, audit *hr.Auditor, logger ...*zap.Logger) *Resolver {
	l := zap.L().Named("tax.resolver")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &Resolver{Store: store, Audit: audit, Logger: l}
}

// ActiveRate returns the first active rate in stored order, or nil if none is
// active.
func (r *Resolver) ActiveRate(ctx context.Context) (*hr.TaxRate, error) {
	rates, err := r.Store.ListTaxRates(ctx)
	if err != nil {
		return nil, hr.Persistence("list tax rates", err)
	}
	for i := range rates {
		if rates[i].Active {
			return &rates[i], nil
		}
	}
	return nil, nil
}

func (r *Resolver) List(ctx context.Context) ([]hr.TaxRate, error) {
	rates, err := r.Store.ListTaxRates(ctx)
	if err != nil {
		return nil, hr.Persistence("list tax rates", err)
	}
	return rates, nil
}

// Create validates and stores a new rate. A rate created active goes through
// the same path as SetActive so at most one rate is ever active.
func (r *Resolver) Create(ctx context.Context, rate hr.TaxRate, actor hr.Actor) (hr.TaxRate, error) {
	if err := hr.Authorize(actor, hr.CapManageTax); err != nil {
		return hr.TaxRate{}, err
	}
	if err := rate.Validate(); err != nil {
		return hr.TaxRate{}, err
	}
	if rate.ID == "" {
		rate.ID = hr.TaxRateID(hr.NewID())
	}

	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		if rate.Active {
			if err := deactivateAll(ctx, tx, rate.ID); err != nil {
				return err
			}
		}
		return tx.SaveTaxRate(ctx, rate)
	})
	if err != nil {
		r.Logger.Error("failed to create tax rate", zap.String("name", rate.Name), zap.Error(err))
		return hr.TaxRate{}, hr.Persistence("create tax rate", err)
	}

	r.Audit.Record(ctx, actor.Username, hr.AuditTaxRateCreated,
		fmt.Sprintf("Tax rate %q created at %s (active: %t).", rate.Name, rate.Percentage, rate.Active),
		"TaxRate", string(rate.ID))
	r.Logger.Info("tax rate created", zap.String("tax_rate_id", string(rate.ID)), zap.Bool("active", rate.Active))
	return rate, nil
}

// SetActive makes id the only active rate. Every other rate is deactivated
// in the same transaction.
func (r *Resolver) SetActive(ctx context.Context, id hr.TaxRateID, actor hr.Actor) error {
	if err := hr.Authorize(actor, hr.CapManageTax); err != nil {
		return err
	}

	var name string
	err := r.Store.WithTx(ctx, func(tx hr.Store) error {
		target, err := tx.GetTaxRate(ctx, id)
		if err != nil {
			return err
		}
		if target == nil {
			return hr.NotFound("tax rate", id)
		}
		if err := deactivateAll(ctx, tx, id); err != nil {
			return err
		}
		activated := *target
		activated.Active = true
		name = activated.Name
		return tx.SaveTaxRate(ctx, activated)
	})
	if err != nil {
		if hr.IsNotFound(err) {
			r.Logger.Warn("tax rate not found", zap.String("tax_rate_id", string(id)))
			return err
		}
		r.Logger.Error("failed to activate tax rate", zap.String("tax_rate_id", string(id)), zap.Error(err))
		return hr.Persistence("activate tax rate", err)
	}

	r.Audit.Record(ctx, actor.Username, hr.AuditTaxRateActivated,
		fmt.Sprintf("Tax rate %q is now the active rate.", name), "TaxRate", string(id))
	r.Logger.Info("tax rate activated", zap.String("tax_rate_id", string(id)))
	return nil
}

func deactivateAll(ctx context.Context, tx hr.Store, except hr.TaxRateID) error {
	rates, err := tx.ListTaxRates(ctx)
	if err != nil {
		return err
	}
	for _, rate := range rates {
		if rate.ID == except || !rate.Active {
			continue
		}
		rate.Active = false
		if err := tx.SaveTaxRate(ctx, rate); err != nil {
			return err
		}
	}
	return nil
}
