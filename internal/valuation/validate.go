package valuation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError reports a single field that violates an input constraint.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ValidationErrors collects every violation found in one input.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

var hundred = decimal.NewFromInt(100)

// Validate checks the structural invariants of the input. Compute assumes
// they hold and is undefined otherwise.
func (in TradeInput) Validate() error {
	var errs ValidationErrors
	add := func(field string, value interface{}, msg string) {
		errs = append(errs, NewValidationError(field, value, msg))
	}

	if in.Market != MarketVIOP && in.Market != MarketOTC {
		add("market", in.Market, "unknown market")
	}
	if in.UnderlyingType != UnderlyingEquity && in.UnderlyingType != UnderlyingFX {
		add("underlying_type", in.UnderlyingType, "unknown underlying type")
	}
	if in.OptionType != Call && in.OptionType != Put {
		add("option_type", in.OptionType, "unknown option type")
	}
	if in.Direction != Long && in.Direction != Short {
		add("direction", in.Direction, "unknown direction")
	}
	if in.SettlementType != 0 && in.SettlementType != SettlementCash && in.SettlementType != SettlementPhysical {
		add("settlement_type", in.SettlementType, "unknown settlement type")
	}

	if in.ValuationDate.IsZero() {
		add("valuation_date", in.ValuationDate, "is required")
	}
	if in.ExpiryDate.IsZero() {
		add("expiry_date", in.ExpiryDate, "is required")
	}
	if !in.ValuationDate.IsZero() && !in.ExpiryDate.IsZero() && DaysBetween(in.ValuationDate, in.ExpiryDate) < 0 {
		add("expiry_date", in.ExpiryDate.Format(DateLayout), "cannot be before valuation_date")
	}

	if !in.Strike.IsPositive() {
		add("strike", in.Strike, "must be greater than 0")
	}
	if in.Contracts <= 0 {
		add("contracts", in.Contracts, "must be greater than 0")
	}
	if in.ContractMultiplier <= 0 {
		add("contract_multiplier", in.ContractMultiplier, "must be greater than 0")
	}
	if in.PremiumInput.IsNegative() {
		add("premium_input", in.PremiumInput, "must be greater than or equal to 0")
	}
	if in.InterestRatePercent.IsNegative() {
		add("interest_rate_percent", in.InterestRatePercent, "must be greater than or equal to 0")
	}
	if in.SettlementPrice.Valid && !in.SettlementPrice.Decimal.IsPositive() {
		add("settlement_price", in.SettlementPrice.Decimal, "must be greater than 0")
	}
	if in.Spot.Valid && !in.Spot.Decimal.IsPositive() {
		add("spot", in.Spot.Decimal, "must be greater than 0")
	}

	if in.Fees.CommissionPerMille.IsNegative() {
		add("settings.commission_per_mille", in.Fees.CommissionPerMille, "must be greater than or equal to 0")
	}
	if in.Fees.BSMVPercent.IsNegative() {
		add("settings.bsmv_percent", in.Fees.BSMVPercent, "must be greater than or equal to 0")
	}
	if in.Fees.StopajPercent.IsNegative() || in.Fees.StopajPercent.GreaterThan(hundred) {
		add("settings.stopaj_percent", in.Fees.StopajPercent, "must be between 0 and 100")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
