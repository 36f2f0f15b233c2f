// Package valuation computes the economics of a single VIOP or OTC option
// position: notional, premium, commission, accrued interest (nema),
// breakevens, settlement P&L and annualized yields.
//
// Compute is pure. It never performs I/O and never fails on validated input;
// figures whose preconditions do not hold are returned as null decimals.
package valuation

import (
	"github.com/shopspring/decimal"
)

var (
	one        = decimal.NewFromInt(1)
	minusOne   = decimal.NewFromInt(-1)
	daysInYear = decimal.NewFromInt(365)
)

// Engine computes trade results under a fixed set of broker conventions.
type Engine struct {
	conv Conventions
}

// NewEngine returns an engine for the given conventions. Empty fields fall
// back to the defaults.
func NewEngine(conv Conventions) *Engine {
	if conv.CommissionBase == "" {
		conv.CommissionBase = CommissionOnNotional
	}
	if conv.InterestBase == "" {
		conv.InterestBase = InterestOnNotional
	}
	return &Engine{conv: conv}
}

// Conventions returns the conventions the engine applies.
func (e *Engine) Conventions() Conventions {
	return e.conv
}

// Compute values a position with the default conventions.
func Compute(in TradeInput) TradeResult {
	return NewEngine(DefaultConventions()).Compute(in)
}

type signs struct {
	premium   decimal.Decimal
	intrinsic decimal.Decimal
}

// Long pays premium and receives intrinsic value; short is the mirror image.
func signsFor(d Direction) signs {
	if d == Long {
		return signs{premium: minusOne, intrinsic: one}
	}
	return signs{premium: one, intrinsic: minusOne}
}

// Compute runs normalization, premium, commission, interest, then breakeven
// and settlement, in that order.
func (e *Engine) Compute(in TradeInput) TradeResult {
	days := DaysBetween(in.ValuationDate, in.ExpiryDate)
	settlementType := in.SettlementType
	if settlementType == 0 {
		settlementType = SettlementCash
	}

	conv, err := LookupUnitConvention(in.Market, in.UnderlyingType)
	if err != nil {
		// unreachable for validated input; direct quotes are the safe reading
		conv = UnitConvention{Market: in.Market, UnderlyingType: in.UnderlyingType, Premium: PremiumPerUnit}
	}

	strike := conv.ActualStrike(in.Strike)
	premiumPerUnit, premiumGross := conv.PremiumAmounts(in.PremiumInput, in.Contracts, in.ContractMultiplier)
	lot := decimal.NewFromInt(in.Contracts).Mul(decimal.NewFromInt(in.ContractMultiplier))
	notional := lot.Mul(strike)

	sg := signsFor(in.Direction)

	commissionBase := notional
	if e.conv.CommissionBase == CommissionOnGrossPremium {
		commissionBase = premiumGross
	}
	commissionRate := in.Fees.CommissionPerMille.Div(thousand)
	bsmv := one.Add(in.Fees.BSMVPercent.Div(hundred))
	commissionTotal := commissionBase.Mul(commissionRate).Mul(bsmv)

	netOptionPremium := sg.premium.Mul(premiumGross).Sub(commissionTotal)

	interestBase := notional
	if e.conv.InterestBase == InterestOnNetPremium {
		interestBase = decimal.Max(netOptionPremium, decimal.Zero)
	}
	interestGross := decimal.Zero
	if days > 0 {
		interestGross = interestBase.
			Mul(in.InterestRatePercent.Div(hundred)).
			Mul(decimal.NewFromInt(int64(days))).
			Div(daysInYear)
	}
	stopaj := in.Fees.StopajPercent.Div(hundred)
	interestNet := interestGross.Mul(one.Sub(stopaj))

	netBefore := interestNet.Add(netOptionPremium)

	res := TradeResult{
		DaysToExpiry:              days,
		SettlementType:            settlementType,
		LotAmount:                 lot,
		ActualStrike:              strike,
		Notional:                  notional,
		PremiumPerUnit:            premiumPerUnit,
		PremiumGross:              premiumGross,
		CommissionBase:            commissionBase,
		CommissionTotal:           commissionTotal,
		InterestGross:             interestGross,
		InterestNet:               interestNet,
		NetOptionPremium:          netOptionPremium,
		NetReturnBeforeSettlement: netBefore,
	}

	res.AnnualEquivNetPercent = Annualize(netBefore, notional, days)
	res.AnnualEquivGrossPercent = grossUp(res.AnnualEquivNetPercent, stopaj)

	if lot.IsPositive() {
		res.BreakevenPrice = valid(breakeven(in.OptionType, strike, netBefore.Abs().Div(lot)))
		res.BreakevenExInterestPrice = valid(breakeven(in.OptionType, strike, netOptionPremium.Abs().Div(lot)))
	}

	if in.SettlementPrice.Valid && lot.IsPositive() {
		intrinsic := intrinsicPerUnit(in.OptionType, in.SettlementPrice.Decimal, strike)
		cashflow := sg.intrinsic.Mul(intrinsic).Mul(lot)
		netAfter := netBefore.Add(cashflow)

		res.SettlementCashflow = valid(cashflow)
		res.NetProfitAfterSettlement = valid(netAfter)
		res.AnnualEquivNetAfterSettlementPercent = Annualize(netAfter, notional, days)
		res.AnnualEquivGrossAfterSettlementPercent = grossUp(res.AnnualEquivNetAfterSettlementPercent, stopaj)
	}

	if in.Spot.Valid {
		intrinsic := intrinsicPerUnit(in.OptionType, in.Spot.Decimal, strike)
		res.SpotIntrinsicPerUnit = valid(intrinsic)
		switch {
		case intrinsic.IsPositive():
			res.Moneyness = InTheMoney
		case in.Spot.Decimal.Equal(strike):
			res.Moneyness = AtTheMoney
		default:
			res.Moneyness = OutOfTheMoney
		}
	}

	return res
}

// Annualize converts amount earned on base over days into a simple annual
// percentage. It is null when base or days is not positive.
func Annualize(amount, base decimal.Decimal, days int) decimal.NullDecimal {
	if !base.IsPositive() || days <= 0 {
		return decimal.NullDecimal{}
	}
	return valid(amount.Div(base).Mul(daysInYear).Div(decimal.NewFromInt(int64(days))).Mul(hundred))
}

// grossUp undoes the stopaj withholding on a net yield.
func grossUp(net decimal.NullDecimal, stopaj decimal.Decimal) decimal.NullDecimal {
	if !net.Valid || !stopaj.LessThan(one) {
		return decimal.NullDecimal{}
	}
	return valid(net.Decimal.Div(one.Sub(stopaj)))
}

// breakeven is the underlying price that offsets perUnit from the strike.
func breakeven(t OptionType, strike, perUnit decimal.Decimal) decimal.Decimal {
	if t == Call {
		return strike.Add(perUnit)
	}
	return strike.Sub(perUnit)
}

func intrinsicPerUnit(t OptionType, price, strike decimal.Decimal) decimal.Decimal {
	if t == Call {
		return decimal.Max(price.Sub(strike), decimal.Zero)
	}
	return decimal.Max(strike.Sub(price), decimal.Zero)
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
