package api

import (
	"time"

	"github.com/shopspring/decimal"

	"option-calc-go/internal/models"
	"option-calc-go/internal/valuation"
)

// ==========================================
// Request DTOs
// ==========================================

// CalcRequest is the body of POST /api/calc. Enum fields are parsed after
// binding so that unknown values report the accepted set.
type CalcRequest struct {
	Market         string `json:"market" binding:"required"`          // VIOP | TEZGAHUSTU
	Underlying     string `json:"underlying,omitempty"`                // label only, e.g. USDTRY
	UnderlyingType string `json:"underlying_type" binding:"required"` // EQUITY | FX

	ValuationDate string `json:"valuation_date" binding:"required,datetime=2006-01-02"`
	ExpiryDate    string `json:"expiry_date" binding:"required,datetime=2006-01-02"`

	Spot   *float64 `json:"spot,omitempty" binding:"omitempty,gt=0"`
	Strike float64  `json:"strike" binding:"required,gt=0"`

	OptionType string `json:"option_type" binding:"required"` // CALL | PUT
	Direction  string `json:"direction" binding:"required"`   // LONG | SHORT

	Contracts          int64 `json:"contracts" binding:"required,gt=0"`
	ContractMultiplier int64 `json:"contract_multiplier" binding:"required,gt=0"`

	PremiumInput        *float64 `json:"premium_input" binding:"required,gte=0"`
	InterestRatePercent *float64 `json:"interest_rate_percent" binding:"required,gte=0"`

	SettlementPrice *float64 `json:"settlement_price,omitempty" binding:"omitempty,gt=0"`
	SettlementType  string   `json:"settlement_type,omitempty"` // CASH (default) | PHYSICAL

	Settings   *FeeSettingsRequest `json:"settings,omitempty"`
	FeeProfile string              `json:"fee_profile,omitempty"`
}

// FeeSettingsRequest overrides individual fields of the selected fee profile.
type FeeSettingsRequest struct {
	CommissionPerMille *float64 `json:"commission_per_mille,omitempty" binding:"omitempty,gte=0"`
	BSMVPercent        *float64 `json:"bsmv_percent,omitempty" binding:"omitempty,gte=0"`
	StopajPercent      *float64 `json:"stopaj_percent,omitempty" binding:"omitempty,gte=0,lte=100"`
}

// ResolveFees applies the request overrides on top of profile.
func (r *CalcRequest) ResolveFees(profile *models.FeeProfile) valuation.FeeSettings {
	fees := valuation.DefaultFeeSettings()
	if profile != nil {
		fees = valuation.FeeSettings{
			CommissionPerMille: decimal.NewFromFloat(profile.CommissionPerMille),
			BSMVPercent:        decimal.NewFromFloat(profile.BSMVPercent),
			StopajPercent:      decimal.NewFromFloat(profile.StopajPercent),
		}
	}
	if r.Settings == nil {
		return fees
	}
	if r.Settings.CommissionPerMille != nil {
		fees.CommissionPerMille = decimal.NewFromFloat(*r.Settings.CommissionPerMille)
	}
	if r.Settings.BSMVPercent != nil {
		fees.BSMVPercent = decimal.NewFromFloat(*r.Settings.BSMVPercent)
	}
	if r.Settings.StopajPercent != nil {
		fees.StopajPercent = decimal.NewFromFloat(*r.Settings.StopajPercent)
	}
	return fees
}

// ToTradeInput parses enums and dates and validates the resulting input.
// Every problem found is returned together as valuation.ValidationErrors.
func (r *CalcRequest) ToTradeInput(fees valuation.FeeSettings) (valuation.TradeInput, error) {
	var errs valuation.ValidationErrors
	collect := func(err error) {
		if verr, ok := err.(*valuation.ValidationError); ok {
			errs = append(errs, verr)
		}
	}

	market, err := valuation.ParseMarket(r.Market)
	collect(err)
	underlyingType, err := valuation.ParseUnderlyingType(r.UnderlyingType)
	collect(err)
	optionType, err := valuation.ParseOptionType(r.OptionType)
	collect(err)
	direction, err := valuation.ParseDirection(r.Direction)
	collect(err)
	settlementType, err := valuation.ParseSettlementType(r.SettlementType)
	collect(err)

	valuationDate, err := time.Parse(valuation.DateLayout, r.ValuationDate)
	if err != nil {
		errs = append(errs, valuation.NewValidationError("valuation_date", r.ValuationDate, "must be a YYYY-MM-DD date"))
	}
	expiryDate, err := time.Parse(valuation.DateLayout, r.ExpiryDate)
	if err != nil {
		errs = append(errs, valuation.NewValidationError("expiry_date", r.ExpiryDate, "must be a YYYY-MM-DD date"))
	}

	if len(errs) > 0 {
		return valuation.TradeInput{}, errs
	}

	in := valuation.TradeInput{
		Market:             market,
		UnderlyingType:     underlyingType,
		Underlying:         r.Underlying,
		ValuationDate:      valuationDate,
		ExpiryDate:         expiryDate,
		Strike:             decimal.NewFromFloat(r.Strike),
		OptionType:         optionType,
		Direction:          direction,
		Contracts:          r.Contracts,
		ContractMultiplier: r.ContractMultiplier,
		SettlementType:     settlementType,
		Fees:               fees,
	}
	if r.PremiumInput != nil {
		in.PremiumInput = decimal.NewFromFloat(*r.PremiumInput)
	}
	if r.InterestRatePercent != nil {
		in.InterestRatePercent = decimal.NewFromFloat(*r.InterestRatePercent)
	}
	if r.SettlementPrice != nil {
		in.SettlementPrice = decimal.NewNullDecimal(decimal.NewFromFloat(*r.SettlementPrice))
	}
	if r.Spot != nil {
		in.Spot = decimal.NewNullDecimal(decimal.NewFromFloat(*r.Spot))
	}

	if err := in.Validate(); err != nil {
		return valuation.TradeInput{}, err
	}
	return in, nil
}

// ==========================================
// Response DTOs
// ==========================================

// AppliedFees echoes the fee schedule used for a calculation.
type AppliedFees struct {
	Profile            string  `json:"profile,omitempty"`
	CommissionPerMille float64 `json:"commission_per_mille"`
	BSMVPercent        float64 `json:"bsmv_percent"`
	StopajPercent      float64 `json:"stopaj_percent"`
}

// CalcResponse mirrors valuation.TradeResult. Figures that do not apply are
// serialized as null.
type CalcResponse struct {
	DaysToExpiry   int    `json:"days_to_expiry"`
	SettlementType string `json:"settlement_type"`

	LotAmount      float64 `json:"lot_amount"`
	ActualStrike   float64 `json:"actual_strike"`
	Notional       float64 `json:"notional"`
	PremiumPerUnit float64 `json:"premium_per_unit"`
	PremiumGross   float64 `json:"premium_gross"`

	CommissionBase  float64 `json:"commission_base"`
	CommissionTotal float64 `json:"commission_total"`

	InterestGross float64 `json:"interest_gross"`
	InterestNet   float64 `json:"interest_net"`

	NetOptionPremium          float64 `json:"net_option_premium"`
	NetReturnBeforeSettlement float64 `json:"net_return_before_settlement"`

	AnnualEquivNetPercent   *float64 `json:"annual_equiv_net_percent"`
	AnnualEquivGrossPercent *float64 `json:"annual_equiv_gross_percent"`

	BreakevenPrice           *float64 `json:"breakeven_price"`
	BreakevenExInterestPrice *float64 `json:"breakeven_ex_interest_price"`

	SettlementCashflow                     *float64 `json:"settlement_cashflow"`
	NetProfitAfterSettlement               *float64 `json:"net_profit_after_settlement"`
	AnnualEquivNetAfterSettlementPercent   *float64 `json:"annual_equiv_net_after_settlement_percent"`
	AnnualEquivGrossAfterSettlementPercent *float64 `json:"annual_equiv_gross_after_settlement_percent"`

	SpotIntrinsicPerUnit *float64 `json:"spot_intrinsic_per_unit"`
	Moneyness            *string  `json:"moneyness"`

	Fees AppliedFees `json:"fees"`
}

// NewCalcResponse converts an engine result for the wire.
func NewCalcResponse(res valuation.TradeResult, fees valuation.FeeSettings, profile string) CalcResponse {
	out := CalcResponse{
		DaysToExpiry:   res.DaysToExpiry,
		SettlementType: res.SettlementType.String(),

		LotAmount:      res.LotAmount.InexactFloat64(),
		ActualStrike:   res.ActualStrike.InexactFloat64(),
		Notional:       res.Notional.InexactFloat64(),
		PremiumPerUnit: res.PremiumPerUnit.InexactFloat64(),
		PremiumGross:   res.PremiumGross.InexactFloat64(),

		CommissionBase:  res.CommissionBase.InexactFloat64(),
		CommissionTotal: res.CommissionTotal.InexactFloat64(),

		InterestGross: res.InterestGross.InexactFloat64(),
		InterestNet:   res.InterestNet.InexactFloat64(),

		NetOptionPremium:          res.NetOptionPremium.InexactFloat64(),
		NetReturnBeforeSettlement: res.NetReturnBeforeSettlement.InexactFloat64(),

		AnnualEquivNetPercent:   nullable(res.AnnualEquivNetPercent),
		AnnualEquivGrossPercent: nullable(res.AnnualEquivGrossPercent),

		BreakevenPrice:           nullable(res.BreakevenPrice),
		BreakevenExInterestPrice: nullable(res.BreakevenExInterestPrice),

		SettlementCashflow:                     nullable(res.SettlementCashflow),
		NetProfitAfterSettlement:               nullable(res.NetProfitAfterSettlement),
		AnnualEquivNetAfterSettlementPercent:   nullable(res.AnnualEquivNetAfterSettlementPercent),
		AnnualEquivGrossAfterSettlementPercent: nullable(res.AnnualEquivGrossAfterSettlementPercent),

		SpotIntrinsicPerUnit: nullable(res.SpotIntrinsicPerUnit),

		Fees: AppliedFees{
			Profile:            profile,
			CommissionPerMille: fees.CommissionPerMille.InexactFloat64(),
			BSMVPercent:        fees.BSMVPercent.InexactFloat64(),
			StopajPercent:      fees.StopajPercent.InexactFloat64(),
		},
	}
	if res.Moneyness != "" {
		m := string(res.Moneyness)
		out.Moneyness = &m
	}
	return out
}

func nullable(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is returned for every non-2xx answer.
type ErrorResponse struct {
	Error     string       `json:"error"`
	Fields    []FieldError `json:"fields,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// ConventionsResponse describes the active broker conventions.
type ConventionsResponse struct {
	CommissionBase string               `json:"commission_base"`
	InterestBase   string               `json:"interest_base"`
	Units          []UnitConventionItem `json:"units"`
}

// UnitConventionItem is one row of the display-unit table.
type UnitConventionItem struct {
	Market            string   `json:"market"`
	UnderlyingType    string   `json:"underlying_type"`
	StrikeDivisor     *float64 `json:"strike_divisor"`
	StrikeScaledAbove *float64 `json:"strike_scaled_above"`
	PremiumQuote      string   `json:"premium_quote"`
}

// NewConventionsResponse lists the conventions an engine applies.
func NewConventionsResponse(conv valuation.Conventions) ConventionsResponse {
	out := ConventionsResponse{
		CommissionBase: string(conv.CommissionBase),
		InterestBase:   string(conv.InterestBase),
	}
	for _, u := range valuation.UnitConventions() {
		item := UnitConventionItem{
			Market:         u.Market.String(),
			UnderlyingType: u.UnderlyingType.String(),
			PremiumQuote:   u.Premium.String(),
		}
		if !u.StrikeDivisor.IsZero() {
			item.StrikeDivisor = nullable(decimal.NewNullDecimal(u.StrikeDivisor))
			item.StrikeScaledAbove = nullable(decimal.NewNullDecimal(u.StrikeScaledAbove))
		}
		out.Units = append(out.Units, item)
	}
	return out
}
