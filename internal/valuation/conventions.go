package valuation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// DaysBetween counts calendar days from a to b, ignoring time of day and zone offsets.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// PremiumQuote says how a market quotes option premiums.
type PremiumQuote uint8

const (
	// PremiumPerUnit is a price per unit of underlying.
	PremiumPerUnit PremiumQuote = iota + 1
	// PremiumPerContract is the total currency amount for one contract,
	// already multiplied by the contract multiplier.
	PremiumPerContract
)

func (q PremiumQuote) String() string {
	if q == PremiumPerContract {
		return "per_contract"
	}
	return "per_unit"
}

// UnitConvention is one row of the display-unit table.
type UnitConvention struct {
	Market         Market
	UnderlyingType UnderlyingType
	// StrikeDivisor rescales displayed strikes above StrikeScaledAbove.
	// Zero means strikes are quoted directly.
	StrikeDivisor     decimal.Decimal
	StrikeScaledAbove decimal.Decimal
	Premium           PremiumQuote
}

type conventionKey struct {
	market     Market
	underlying UnderlyingType
}

var thousand = decimal.NewFromInt(1000)

// VIOP FX strikes are displayed x1000 (44000 means 44.0000 TRY per USD) and
// premiums are the TRY amount for one contract.
var unitConventions = map[conventionKey]UnitConvention{
	{MarketVIOP, UnderlyingFX}: {
		Market: MarketVIOP, UnderlyingType: UnderlyingFX,
		StrikeDivisor: thousand, StrikeScaledAbove: thousand,
		Premium: PremiumPerContract,
	},
	{MarketVIOP, UnderlyingEquity}: {
		Market: MarketVIOP, UnderlyingType: UnderlyingEquity,
		Premium: PremiumPerUnit,
	},
	{MarketOTC, UnderlyingEquity}: {
		Market: MarketOTC, UnderlyingType: UnderlyingEquity,
		Premium: PremiumPerUnit,
	},
	{MarketOTC, UnderlyingFX}: {
		Market: MarketOTC, UnderlyingType: UnderlyingFX,
		Premium: PremiumPerUnit,
	},
}

// LookupUnitConvention returns the convention row for a market and underlying.
func LookupUnitConvention(m Market, u UnderlyingType) (UnitConvention, error) {
	c, ok := unitConventions[conventionKey{m, u}]
	if !ok {
		return UnitConvention{}, fmt.Errorf("no unit convention for %s/%s", m, u)
	}
	return c, nil
}

// UnitConventions lists every row of the table in a stable order.
func UnitConventions() []UnitConvention {
	out := make([]UnitConvention, 0, len(unitConventions))
	for _, m := range []Market{MarketVIOP, MarketOTC} {
		for _, u := range []UnderlyingType{UnderlyingEquity, UnderlyingFX} {
			out = append(out, unitConventions[conventionKey{m, u}])
		}
	}
	return out
}

// ActualStrike converts a displayed strike into quote currency per unit.
func (c UnitConvention) ActualStrike(strike decimal.Decimal) decimal.Decimal {
	if c.StrikeDivisor.IsZero() || !strike.GreaterThan(c.StrikeScaledAbove) {
		return strike
	}
	return strike.Div(c.StrikeDivisor)
}

// PremiumAmounts returns the per-unit premium and the gross premium for the position.
func (c UnitConvention) PremiumAmounts(premiumInput decimal.Decimal, contracts, multiplier int64) (perUnit, gross decimal.Decimal) {
	n := decimal.NewFromInt(contracts)
	mult := decimal.NewFromInt(multiplier)
	switch c.Premium {
	case PremiumPerContract:
		return premiumInput.Div(mult), premiumInput.Mul(n)
	default:
		return premiumInput, premiumInput.Mul(n).Mul(mult)
	}
}

// CommissionBase selects the amount the commission rate applies to.
type CommissionBase string

const (
	CommissionOnNotional     CommissionBase = "notional"
	CommissionOnGrossPremium CommissionBase = "gross_premium"
)

func ParseCommissionBase(s string) (CommissionBase, error) {
	switch CommissionBase(strings.ToLower(strings.TrimSpace(s))) {
	case "", CommissionOnNotional:
		return CommissionOnNotional, nil
	case CommissionOnGrossPremium:
		return CommissionOnGrossPremium, nil
	}
	return "", fmt.Errorf("unknown commission base %q", s)
}

// InterestBase selects the amount nema accrues on.
type InterestBase string

const (
	InterestOnNotional InterestBase = "notional"
	// InterestOnNetPremium accrues only on net premium cash actually received.
	InterestOnNetPremium InterestBase = "net_premium"
)

func ParseInterestBase(s string) (InterestBase, error) {
	switch InterestBase(strings.ToLower(strings.TrimSpace(s))) {
	case "", InterestOnNotional:
		return InterestOnNotional, nil
	case InterestOnNetPremium:
		return InterestOnNetPremium, nil
	}
	return "", fmt.Errorf("unknown interest base %q", s)
}

// Conventions are the broker bases that differ between fee schedules.
type Conventions struct {
	CommissionBase CommissionBase
	InterestBase   InterestBase
}

// DefaultConventions charges commission and accrues interest on notional.
func DefaultConventions() Conventions {
	return Conventions{
		CommissionBase: CommissionOnNotional,
		InterestBase:   InterestOnNotional,
	}
}

// ParseConventions reads both bases, as found in configuration.
func ParseConventions(commissionBase, interestBase string) (Conventions, error) {
	cb, err := ParseCommissionBase(commissionBase)
	if err != nil {
		return Conventions{}, fmt.Errorf("conventions.commission_base: %w", err)
	}
	ib, err := ParseInterestBase(interestBase)
	if err != nil {
		return Conventions{}, fmt.Errorf("conventions.interest_base: %w", err)
	}
	return Conventions{CommissionBase: cb, InterestBase: ib}, nil
}
