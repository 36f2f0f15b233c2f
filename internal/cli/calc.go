package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"option-calc-go/internal/api"
	"option-calc-go/internal/calcclient"
	"option-calc-go/internal/config"
	"option-calc-go/internal/models"
	"option-calc-go/internal/valuation"
)

// ErrUnknownProfile is returned when --profile names no configured fee profile.
var ErrUnknownProfile = errors.New("unknown fee profile")

func newCalcCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Value an option position",
		Long: `Value a single VIOP or OTC option position.

VIOP FX strikes above 1000 are read as thousandths (44000 means 44.000) and
VIOP FX premiums are entered per contract. All other premiums are per unit.`,
		Example: `  optcalc calc --market VIOP --underlying-type FX --underlying USDTRY \
    --valuation-date 2025-01-01 --expiry 2025-01-31 --strike 44000 \
    --type CALL --direction SHORT --contracts 1 --multiplier 1000 --premium 410
  optcalc calc --market OTC --expiry 2025-03-01 --strike 40 --type CALL \
    --direction LONG --contracts 10 --multiplier 100 --premium 1.2 --rate 45 --settlement-price 45
  optcalc calc ... --remote http://localhost:8080 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			req := calcRequestFromFlags(cmd)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			var resp *api.CalcResponse
			var err error
			if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
				resp, err = app.calcRemote(ctx, remote, req)
			} else {
				resp, err = app.calcLocal(req)
			}
			if err != nil {
				printCalcError(output, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(resp)
			}
			renderCalc(output, req, resp)
			return nil
		},
	}

	f := cmd.Flags()
	f.String("market", "VIOP", "market: VIOP or TEZGAHUSTU (OTC)")
	f.String("underlying-type", "EQUITY", "underlying type: EQUITY or FX")
	f.String("underlying", "", "underlying label, e.g. USDTRY or THYAO")
	f.String("valuation-date", "", "valuation date YYYY-MM-DD (default today)")
	f.String("expiry", "", "expiry date YYYY-MM-DD")
	f.Float64("strike", 0, "strike as quoted")
	f.String("type", "", "option type: CALL or PUT")
	f.String("direction", "", "direction: LONG or SHORT")
	f.Int64("contracts", 1, "number of contracts")
	f.Int64("multiplier", 1, "contract multiplier (units per contract)")
	f.Float64("premium", 0, "premium as quoted")
	f.Float64("rate", 0, "annual interest rate in percent")
	f.Float64("settlement-price", 0, "settlement price of the underlying")
	f.Float64("spot", 0, "current spot price of the underlying")
	f.String("settlement-type", "", "settlement type: CASH or PHYSICAL")
	f.String("profile", "", "fee profile name (default profile when empty)")
	f.Float64("commission", 0, "commission per mille (overrides the profile)")
	f.Float64("bsmv", 0, "BSMV percent (overrides the profile)")
	f.Float64("stopaj", 0, "stopaj percent (overrides the profile)")
	f.String("remote", "", "calculator service base URL; values locally when empty")

	for _, name := range []string{"expiry", "strike", "type", "direction", "premium"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// calcRequestFromFlags builds the same request body the HTTP API accepts.
func calcRequestFromFlags(cmd *cobra.Command) api.CalcRequest {
	f := cmd.Flags()
	str := func(name string) string {
		v, _ := f.GetString(name)
		return strings.TrimSpace(v)
	}
	num := func(name string) float64 {
		v, _ := f.GetFloat64(name)
		return v
	}
	optional := func(name string) *float64 {
		if !f.Changed(name) {
			return nil
		}
		v := num(name)
		return &v
	}

	valuationDate := str("valuation-date")
	if valuationDate == "" {
		valuationDate = time.Now().Format(valuation.DateLayout)
	}

	contracts, _ := f.GetInt64("contracts")
	multiplier, _ := f.GetInt64("multiplier")
	premium := num("premium")
	rate := num("rate")

	req := api.CalcRequest{
		Market:              str("market"),
		Underlying:          str("underlying"),
		UnderlyingType:      str("underlying-type"),
		ValuationDate:       valuationDate,
		ExpiryDate:          str("expiry"),
		Strike:              num("strike"),
		OptionType:          str("type"),
		Direction:           str("direction"),
		Contracts:           contracts,
		ContractMultiplier:  multiplier,
		PremiumInput:        &premium,
		InterestRatePercent: &rate,
		SettlementPrice:     optional("settlement-price"),
		SettlementType:      str("settlement-type"),
		Spot:                optional("spot"),
		FeeProfile:          str("profile"),
	}

	overrides := &api.FeeSettingsRequest{
		CommissionPerMille: optional("commission"),
		BSMVPercent:        optional("bsmv"),
		StopajPercent:      optional("stopaj"),
	}
	if overrides.CommissionPerMille != nil || overrides.BSMVPercent != nil || overrides.StopajPercent != nil {
		req.Settings = overrides
	}

	return req
}

// calcLocal values the request in process with the configured fee profiles.
func (a *App) calcLocal(req api.CalcRequest) (*api.CalcResponse, error) {
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}

	profile, err := ProfileFromConfig(a.Config, req.FeeProfile)
	if err != nil {
		return nil, err
	}

	fees := req.ResolveFees(profile)
	in, err := req.ToTradeInput(fees)
	if err != nil {
		return nil, err
	}

	res := engine.Compute(in)
	a.Logger.Debug("Position valued locally",
		zap.String("market", in.Market.String()),
		zap.String("underlying", in.Underlying),
		zap.Int("days_to_expiry", res.DaysToExpiry),
	)

	resp := api.NewCalcResponse(res, fees, profile.Name)
	return &resp, nil
}

// calcRemote sends the request to a calculator service.
func (a *App) calcRemote(ctx context.Context, baseURL string, req api.CalcRequest) (*api.CalcResponse, error) {
	return a.Client(baseURL).Calculate(ctx, req)
}

// ProfileFromConfig returns the named fee profile, or the default one when name is empty.
func ProfileFromConfig(cfg *config.Config, name string) (*models.FeeProfile, error) {
	profiles := cfg.Profiles()
	if name == "" {
		name = profiles[0].Name
	}
	for i, p := range profiles {
		if p.Name == name {
			return &models.FeeProfile{
				Name:               p.Name,
				CommissionPerMille: p.CommissionPerMille,
				BSMVPercent:        p.BSMVPercent,
				StopajPercent:      p.StopajPercent,
				IsDefault:          i == 0,
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
}

func printCalcError(output *Output, err error) {
	var verrs valuation.ValidationErrors
	var apiErr *calcclient.APIError
	switch {
	case errors.As(err, &verrs):
		output.Error("Invalid position:")
		for _, e := range verrs {
			output.Error("  %s: %s", e.Field, e.Message)
		}
	case errors.As(err, &apiErr) && len(apiErr.Response.Fields) > 0:
		output.Error("Service rejected the position (%s):", apiErr.Response.Error)
		for _, f := range apiErr.Response.Fields {
			output.Error("  %s: %s", f.Field, f.Message)
		}
	default:
		output.Error("Calculation failed: %v", err)
	}
}

func renderCalc(output *Output, req api.CalcRequest, resp *api.CalcResponse) {
	title := fmt.Sprintf("%s %s %s %s", strings.ToUpper(req.Direction), strings.ToUpper(req.OptionType), strings.ToUpper(req.Market), strings.ToUpper(req.UnderlyingType))
	if req.Underlying != "" {
		title += " " + req.Underlying
	}
	output.Bold("%s  %s → %s", title, req.ValuationDate, req.ExpiryDate)

	output.Section("Position")
	output.Row("Days to expiry", fmt.Sprintf("%d", resp.DaysToExpiry))
	output.Row("Settlement type", resp.SettlementType)
	output.Row("Lot amount", formatPrice(resp.LotAmount))
	output.Row("Strike", formatPrice(resp.ActualStrike))
	output.Row("Notional", formatAmount(resp.Notional))
	output.Row("Premium per unit", formatPrice(resp.PremiumPerUnit))
	output.Row("Gross premium", formatAmount(resp.PremiumGross))

	output.Section("Costs and interest")
	output.Row("Commission base", formatAmount(resp.CommissionBase))
	output.Row("Commission incl. BSMV", formatAmount(resp.CommissionTotal))
	output.Row("Interest (gross)", formatAmount(resp.InterestGross))
	output.Row("Interest (net of stopaj)", formatAmount(resp.InterestNet))

	output.Section("Result")
	output.Row("Net option premium", output.Signed(resp.NetOptionPremium))
	output.Row("Net return before settlement", output.Signed(resp.NetReturnBeforeSettlement))
	output.Row("Annual equivalent (net)", output.OptionalPercent(resp.AnnualEquivNetPercent))
	output.Row("Annual equivalent (gross)", output.OptionalPercent(resp.AnnualEquivGrossPercent))
	output.Row("Breakeven", optionalPrice(output, resp.BreakevenPrice))
	output.Row("Breakeven ex interest", optionalPrice(output, resp.BreakevenExInterestPrice))

	if resp.SettlementCashflow != nil {
		output.Section("Settlement")
		output.Row("Settlement cashflow", output.Optional(resp.SettlementCashflow, true))
		output.Row("Net profit after settlement", output.Optional(resp.NetProfitAfterSettlement, true))
		output.Row("Annual equivalent (net)", output.OptionalPercent(resp.AnnualEquivNetAfterSettlementPercent))
		output.Row("Annual equivalent (gross)", output.OptionalPercent(resp.AnnualEquivGrossAfterSettlementPercent))
	}

	if resp.Moneyness != nil {
		output.Section("Spot")
		output.Row("Intrinsic per unit", optionalPrice(output, resp.SpotIntrinsicPerUnit))
		output.Row("Moneyness", *resp.Moneyness)
	}

	fees := resp.Fees
	profile := fees.Profile
	if profile == "" {
		profile = "custom"
	}
	output.Printf("\n")
	output.Dim("Fees: %s (commission %s‰, BSMV %s%%, stopaj %s%%)",
		profile, formatPrice(fees.CommissionPerMille), formatPrice(fees.BSMVPercent), formatPrice(fees.StopajPercent))
}

func optionalPrice(output *Output, v *float64) string {
	if v == nil {
		return output.Optional(nil, false)
	}
	return formatPrice(*v)
}
