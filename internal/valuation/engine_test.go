package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// assertDec compares decimals by value so that 44 and 44.000 are equal.
func assertDec(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.Truef(t, d(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual)
}

func assertNullDecNear(t *testing.T, expected float64, actual decimal.NullDecimal, field string) {
	t.Helper()
	if assert.Truef(t, actual.Valid, "%s should be set", field) {
		assert.InDeltaf(t, expected, actual.Decimal.InexactFloat64(), 1e-6, "%s", field)
	}
}

func usdTryShortCall() TradeInput {
	return TradeInput{
		Market:              MarketVIOP,
		UnderlyingType:      UnderlyingFX,
		Underlying:          "USDTRY",
		ValuationDate:       date("2025-01-01"),
		ExpiryDate:          date("2025-01-31"),
		Strike:              d("44000"),
		OptionType:          Call,
		Direction:           Short,
		Contracts:           1,
		ContractMultiplier:  1000,
		PremiumInput:        d("410"),
		InterestRatePercent: decimal.Zero,
		Fees:                DefaultFeeSettings(),
	}
}

func TestCompute_ViopFXShortCall(t *testing.T) {
	res := Compute(usdTryShortCall())

	assert.Equal(t, 30, res.DaysToExpiry)
	assertDec(t, "1000", res.LotAmount, "lot_amount")
	assertDec(t, "44", res.ActualStrike, "actual_strike")
	assertDec(t, "0.41", res.PremiumPerUnit, "premium_per_unit")
	assertDec(t, "410", res.PremiumGross, "premium_gross")
	assertDec(t, "44000", res.Notional, "notional")
	assertDec(t, "44000", res.CommissionBase, "commission_base")
	assertDec(t, "231", res.CommissionTotal, "commission_total")
	assertDec(t, "0", res.InterestGross, "interest_gross")
	assertDec(t, "0", res.InterestNet, "interest_net")
	assertDec(t, "179", res.NetOptionPremium, "net_option_premium")
	assertDec(t, "179", res.NetReturnBeforeSettlement, "net_return_before_settlement")

	// 179 / 44000 * 365 / 30 * 100
	assertNullDecNear(t, 4.949621212121, res.AnnualEquivNetPercent, "annual_equiv_net")
	assertNullDecNear(t, 4.949621212121/0.825, res.AnnualEquivGrossPercent, "annual_equiv_gross")

	assertNullDecNear(t, 44.179, res.BreakevenPrice, "breakeven")
	assertNullDecNear(t, 44.179, res.BreakevenExInterestPrice, "breakeven_ex_interest")

	assert.False(t, res.SettlementCashflow.Valid)
	assert.False(t, res.NetProfitAfterSettlement.Valid)
	assert.False(t, res.AnnualEquivNetAfterSettlementPercent.Valid)
	assert.False(t, res.AnnualEquivGrossAfterSettlementPercent.Valid)
	assert.Equal(t, SettlementCash, res.SettlementType)
	assert.Empty(t, res.Moneyness)
}

func TestCompute_ViopEquityLongPut(t *testing.T) {
	in := TradeInput{
		Market:             MarketVIOP,
		UnderlyingType:     UnderlyingEquity,
		Underlying:         "THYAO",
		ValuationDate:      date("2025-03-03"),
		ExpiryDate:         date("2025-04-02"),
		Strike:             d("250"),
		OptionType:         Put,
		Direction:          Long,
		Contracts:          2,
		ContractMultiplier: 100,
		PremiumInput:       d("5.5"),
		Fees:               DefaultFeeSettings(),
	}

	res := Compute(in)

	assertDec(t, "200", res.LotAmount, "lot_amount")
	assertDec(t, "250", res.ActualStrike, "actual_strike")
	assertDec(t, "50000", res.Notional, "notional")
	assertDec(t, "5.5", res.PremiumPerUnit, "premium_per_unit")
	assertDec(t, "1100", res.PremiumGross, "premium_gross")
	// 50000 * 0.005 * 1.05
	assertDec(t, "262.5", res.CommissionTotal, "commission_total")
	// premium leg -1100, commission always a cost
	assertDec(t, "-1362.5", res.NetOptionPremium, "net_option_premium")

	// PUT breakeven sits below the strike by the absolute per-unit amount.
	assertNullDecNear(t, 250-1362.5/200, res.BreakevenExInterestPrice, "breakeven_ex_interest")
}

func TestCompute_SettlementLongCall(t *testing.T) {
	in := TradeInput{
		Market:              MarketOTC,
		UnderlyingType:      UnderlyingEquity,
		ValuationDate:       date("2025-01-01"),
		ExpiryDate:          date("2025-03-01"),
		Strike:              d("40"),
		OptionType:          Call,
		Direction:           Long,
		Contracts:           1,
		ContractMultiplier:  1000,
		PremiumInput:        d("1.2"),
		InterestRatePercent: d("45"),
		SettlementPrice:     decimal.NewNullDecimal(d("45")),
		SettlementType:      SettlementPhysical,
		Fees:                DefaultFeeSettings(),
	}

	res := Compute(in)

	assert.Equal(t, 59, res.DaysToExpiry)
	assert.Equal(t, SettlementPhysical, res.SettlementType)
	require.True(t, res.SettlementCashflow.Valid)
	assertDec(t, "5000", res.SettlementCashflow.Decimal, "settlement_cashflow")
	require.True(t, res.NetProfitAfterSettlement.Valid)
	assert.True(t, res.NetReturnBeforeSettlement.Add(d("5000")).Equal(res.NetProfitAfterSettlement.Decimal))
	assert.True(t, res.AnnualEquivNetAfterSettlementPercent.Valid)
	assert.True(t, res.AnnualEquivGrossAfterSettlementPercent.Valid)
}

func TestCompute_SettlementShortPutPaysIntrinsic(t *testing.T) {
	in := TradeInput{
		Market:             MarketOTC,
		UnderlyingType:     UnderlyingFX,
		ValuationDate:      date("2025-01-01"),
		ExpiryDate:         date("2025-02-01"),
		Strike:             d("36"),
		OptionType:         Put,
		Direction:          Short,
		Contracts:          10,
		ContractMultiplier: 1000,
		PremiumInput:       d("0.3"),
		SettlementPrice:    decimal.NewNullDecimal(d("35.5")),
		Fees:               DefaultFeeSettings(),
	}

	res := Compute(in)

	require.True(t, res.SettlementCashflow.Valid)
	// writer owes (36 - 35.5) * 10000
	assertDec(t, "-5000", res.SettlementCashflow.Decimal, "settlement_cashflow")
}

func TestCompute_OutOfTheMoneySettlementIsZero(t *testing.T) {
	in := usdTryShortCall()
	in.SettlementPrice = decimal.NewNullDecimal(d("43.5"))

	res := Compute(in)

	require.True(t, res.SettlementCashflow.Valid)
	assert.True(t, res.SettlementCashflow.Decimal.IsZero())
	assert.True(t, res.NetProfitAfterSettlement.Decimal.Equal(res.NetReturnBeforeSettlement))
}

func TestCompute_SameDayExpiry(t *testing.T) {
	in := usdTryShortCall()
	in.InterestRatePercent = d("40")
	in.ExpiryDate = in.ValuationDate
	in.SettlementPrice = decimal.NewNullDecimal(d("45"))

	res := Compute(in)

	assert.Equal(t, 0, res.DaysToExpiry)
	assert.True(t, res.InterestGross.IsZero())
	assert.True(t, res.InterestNet.IsZero())
	assert.False(t, res.AnnualEquivNetPercent.Valid)
	assert.False(t, res.AnnualEquivGrossPercent.Valid)
	assert.False(t, res.AnnualEquivNetAfterSettlementPercent.Valid)
	// settlement figures do not depend on the day count
	assert.True(t, res.SettlementCashflow.Valid)
	assert.True(t, res.BreakevenPrice.Valid)
}

func TestCompute_InterestAndStopaj(t *testing.T) {
	in := usdTryShortCall()
	in.InterestRatePercent = d("36.5")
	in.Fees.CommissionPerMille = decimal.Zero

	res := Compute(in)

	// 44000 * 0.365 * 30 / 365 = 1320
	assertDec(t, "1320", res.InterestGross, "interest_gross")
	// 1320 * (1 - 0.175)
	assertDec(t, "1089", res.InterestNet, "interest_net")
	assertDec(t, "1499", res.NetReturnBeforeSettlement, "net_return_before_settlement")
	assertNullDecNear(t, 44+1.499, res.BreakevenPrice, "breakeven")
	assertNullDecNear(t, 44+0.410, res.BreakevenExInterestPrice, "breakeven_ex_interest")
}

func TestCompute_FullStopajHasNoGrossYield(t *testing.T) {
	in := usdTryShortCall()
	in.Fees.StopajPercent = d("100")
	in.InterestRatePercent = d("50")

	res := Compute(in)

	assert.True(t, res.InterestNet.IsZero())
	assert.True(t, res.AnnualEquivNetPercent.Valid)
	assert.False(t, res.AnnualEquivGrossPercent.Valid)
}

func TestCompute_Moneyness(t *testing.T) {
	testCases := []struct {
		name      string
		option    OptionType
		spot      string
		expected  Moneyness
		intrinsic string
	}{
		{name: "call in the money", option: Call, spot: "45", expected: InTheMoney, intrinsic: "1"},
		{name: "call at the money", option: Call, spot: "44", expected: AtTheMoney, intrinsic: "0"},
		{name: "call out of the money", option: Call, spot: "43", expected: OutOfTheMoney, intrinsic: "0"},
		{name: "put in the money", option: Put, spot: "42.5", expected: InTheMoney, intrinsic: "1.5"},
		{name: "put out of the money", option: Put, spot: "46", expected: OutOfTheMoney, intrinsic: "0"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := usdTryShortCall()
			in.OptionType = tc.option
			in.Spot = decimal.NewNullDecimal(d(tc.spot))

			res := Compute(in)

			assert.Equal(t, tc.expected, res.Moneyness)
			require.True(t, res.SpotIntrinsicPerUnit.Valid)
			assertDec(t, tc.intrinsic, res.SpotIntrinsicPerUnit.Decimal, "spot_intrinsic")
		})
	}
}

func TestEngine_CommissionOnGrossPremium(t *testing.T) {
	engine := NewEngine(Conventions{CommissionBase: CommissionOnGrossPremium})

	res := engine.Compute(usdTryShortCall())

	assertDec(t, "410", res.CommissionBase, "commission_base")
	// 410 * 0.005 * 1.05
	assertDec(t, "2.1525", res.CommissionTotal, "commission_total")
	assertDec(t, "407.8475", res.NetOptionPremium, "net_option_premium")
	assert.Equal(t, InterestOnNotional, engine.Conventions().InterestBase)
}

func TestEngine_InterestOnNetPremium(t *testing.T) {
	engine := NewEngine(Conventions{InterestBase: InterestOnNetPremium})

	t.Run("short accrues on premium received", func(t *testing.T) {
		in := usdTryShortCall()
		in.InterestRatePercent = d("36.5")

		res := engine.Compute(in)

		// 179 * 0.365 * 30 / 365
		assertDec(t, "5.37", res.InterestGross, "interest_gross")
	})

	t.Run("long earns nothing on premium paid", func(t *testing.T) {
		in := usdTryShortCall()
		in.Direction = Long
		in.InterestRatePercent = d("36.5")

		res := engine.Compute(in)

		assert.True(t, res.InterestGross.IsZero())
	})
}

func TestAnnualize(t *testing.T) {
	testCases := []struct {
		name     string
		amount   string
		base     string
		days     int
		expected *float64
	}{
		{name: "one month", amount: "100", base: "10000", days: 30, expected: ptr(100.0 / 10000 * 365 / 30 * 100)},
		{name: "negative amount", amount: "-365", base: "1000", days: 365, expected: ptr(-36.5)},
		{name: "zero days", amount: "100", base: "10000", days: 0},
		{name: "negative days", amount: "100", base: "10000", days: -3},
		{name: "zero base", amount: "100", base: "0", days: 30},
		{name: "negative base", amount: "100", base: "-5", days: 30},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Annualize(d(tc.amount), d(tc.base), tc.days)
			if tc.expected == nil {
				assert.False(t, got.Valid)
				return
			}
			assertNullDecNear(t, *tc.expected, got, "annualized")
		})
	}
}

func ptr(f float64) *float64 { return &f }
