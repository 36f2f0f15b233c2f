package valuation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Market is the venue the option trades on.
type Market uint8

const (
	MarketVIOP Market = iota + 1 // Borsa Istanbul derivatives market
	MarketOTC                    // over the counter (tezgahüstü)
)

func (m Market) String() string {
	switch m {
	case MarketVIOP:
		return "VIOP"
	case MarketOTC:
		return "TEZGAHUSTU"
	}
	return "UNKNOWN"
}

// ParseMarket accepts the wire names used by brokers. "OTC" is an alias of TEZGAHUSTU.
func ParseMarket(s string) (Market, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "VIOP":
		return MarketVIOP, nil
	case "TEZGAHUSTU", "OTC":
		return MarketOTC, nil
	}
	return 0, NewValidationError("market", s, "must be one of VIOP, TEZGAHUSTU")
}

// MarshalText implements encoding.TextMarshaler.
func (m Market) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Market) UnmarshalText(b []byte) error {
	v, err := ParseMarket(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// UnderlyingType is the asset class of the option's underlying.
type UnderlyingType uint8

const (
	UnderlyingEquity UnderlyingType = iota + 1
	UnderlyingFX
)

func (u UnderlyingType) String() string {
	switch u {
	case UnderlyingEquity:
		return "EQUITY"
	case UnderlyingFX:
		return "FX"
	}
	return "UNKNOWN"
}

func ParseUnderlyingType(s string) (UnderlyingType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUITY":
		return UnderlyingEquity, nil
	case "FX":
		return UnderlyingFX, nil
	}
	return 0, NewValidationError("underlying_type", s, "must be one of EQUITY, FX")
}

func (u UnderlyingType) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *UnderlyingType) UnmarshalText(b []byte) error {
	v, err := ParseUnderlyingType(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// OptionType is CALL or PUT.
type OptionType uint8

const (
	Call OptionType = iota + 1
	Put
)

func (o OptionType) String() string {
	switch o {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	}
	return "UNKNOWN"
}

func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL":
		return Call, nil
	case "PUT":
		return Put, nil
	}
	return 0, NewValidationError("option_type", s, "must be one of CALL, PUT")
}

func (o OptionType) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *OptionType) UnmarshalText(b []byte) error {
	v, err := ParseOptionType(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Direction is the side of the position: LONG buys the option, SHORT writes it.
type Direction uint8

const (
	Long Direction = iota + 1
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "UNKNOWN"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG":
		return Long, nil
	case "SHORT":
		return Short, nil
	}
	return 0, NewValidationError("direction", s, "must be one of LONG, SHORT")
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Opposite returns the other side of the trade.
func (d Direction) Opposite() Direction {
	if d == Long {
		return Short
	}
	return Long
}

// SettlementType records how the option settles. It never changes the figures:
// physical delivery is valued at its cash equivalent.
type SettlementType uint8

const (
	SettlementCash SettlementType = iota + 1
	SettlementPhysical
)

func (s SettlementType) String() string {
	switch s {
	case SettlementCash:
		return "CASH"
	case SettlementPhysical:
		return "PHYSICAL"
	}
	return "UNKNOWN"
}

// ParseSettlementType defaults an empty string to CASH.
func ParseSettlementType(s string) (SettlementType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CASH", "NAKIT":
		return SettlementCash, nil
	case "PHYSICAL", "FIZIKI":
		return SettlementPhysical, nil
	}
	return 0, NewValidationError("settlement_type", s, "must be one of CASH, PHYSICAL")
}

func (s SettlementType) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *SettlementType) UnmarshalText(b []byte) error {
	v, err := ParseSettlementType(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// FeeSettings are the broker's commission and tax rates.
type FeeSettings struct {
	CommissionPerMille decimal.Decimal
	BSMVPercent        decimal.Decimal // banking and insurance transaction tax, applied on commission
	StopajPercent      decimal.Decimal // withholding tax on interest income
}

// DefaultFeeSettings mirrors the usual retail broker schedule: 5‰ commission,
// 5% BSMV and 17.5% stopaj.
func DefaultFeeSettings() FeeSettings {
	return FeeSettings{
		CommissionPerMille: decimal.NewFromInt(5),
		BSMVPercent:        decimal.NewFromInt(5),
		StopajPercent:      decimal.RequireFromString("17.5"),
	}
}

// TradeInput describes one option position. Strike and premium are in the
// units the broker displays; normalization happens inside Compute.
type TradeInput struct {
	Market         Market
	UnderlyingType UnderlyingType
	Underlying     string

	ValuationDate time.Time
	ExpiryDate    time.Time

	Strike     decimal.Decimal
	OptionType OptionType
	Direction  Direction

	Contracts          int64
	ContractMultiplier int64

	PremiumInput        decimal.Decimal
	InterestRatePercent decimal.Decimal

	SettlementPrice decimal.NullDecimal
	SettlementType  SettlementType
	Spot            decimal.NullDecimal

	Fees FeeSettings
}

// Moneyness classifies the option against the spot price.
type Moneyness string

const (
	InTheMoney    Moneyness = "ITM"
	AtTheMoney    Moneyness = "ATM"
	OutOfTheMoney Moneyness = "OTM"
)

// TradeResult is the itemized outcome of Compute. Null fields mean the
// figure is not applicable for the input, never zero.
type TradeResult struct {
	DaysToExpiry   int
	SettlementType SettlementType

	LotAmount      decimal.Decimal
	ActualStrike   decimal.Decimal
	Notional       decimal.Decimal
	PremiumPerUnit decimal.Decimal
	PremiumGross   decimal.Decimal

	CommissionBase  decimal.Decimal
	CommissionTotal decimal.Decimal

	InterestGross decimal.Decimal
	InterestNet   decimal.Decimal

	NetOptionPremium          decimal.Decimal
	NetReturnBeforeSettlement decimal.Decimal

	AnnualEquivNetPercent   decimal.NullDecimal
	AnnualEquivGrossPercent decimal.NullDecimal

	BreakevenPrice           decimal.NullDecimal
	BreakevenExInterestPrice decimal.NullDecimal

	SettlementCashflow                     decimal.NullDecimal
	NetProfitAfterSettlement               decimal.NullDecimal
	AnnualEquivNetAfterSettlementPercent   decimal.NullDecimal
	AnnualEquivGrossAfterSettlementPercent decimal.NullDecimal

	SpotIntrinsicPerUnit decimal.NullDecimal
	Moneyness            Moneyness // empty when no spot was given
}
