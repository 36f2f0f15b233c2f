package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"option-calc-go/internal/api"
	"option-calc-go/internal/models"
)

func newProfilesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List fee profiles",
		Example: `  optcalc profiles
  optcalc profiles --remote http://localhost:8080 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var profiles []models.FeeProfile
			if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()

				var err error
				profiles, err = app.Client(remote).FeeProfiles(ctx)
				if err != nil {
					output.Error("Failed to list fee profiles: %v", err)
					return err
				}
			} else {
				for _, p := range app.Config.Profiles() {
					profile, err := ProfileFromConfig(app.Config, p.Name)
					if err != nil {
						return err
					}
					profiles = append(profiles, *profile)
				}
			}

			if output.IsJSON() {
				return output.JSON(profiles)
			}

			output.Printf("  %-16s %12s %8s %8s\n", "NAME", "COMMISSION‰", "BSMV%", "STOPAJ%")
			for _, p := range profiles {
				name := p.Name
				if p.IsDefault {
					name += " *"
				}
				output.Printf("  %-16s %12s %8s %8s\n", name,
					formatPrice(p.CommissionPerMille), formatPrice(p.BSMVPercent), formatPrice(p.StopajPercent))
			}
			output.Dim("* default profile")
			return nil
		},
	}

	cmd.Flags().String("remote", "", "calculator service base URL; reads the local config when empty")
	return cmd
}

func newConventionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conventions",
		Short: "Show unit and fee conventions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			var conv *api.ConventionsResponse
			if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()

				var err error
				conv, err = app.Client(remote).Conventions(ctx)
				if err != nil {
					output.Error("Failed to get conventions: %v", err)
					return err
				}
			} else {
				engine, err := app.Engine()
				if err != nil {
					output.Error("%v", err)
					return err
				}
				local := api.NewConventionsResponse(engine.Conventions())
				conv = &local
			}

			if output.IsJSON() {
				return output.JSON(conv)
			}

			output.Row("Commission base", conv.CommissionBase)
			output.Row("Interest base", conv.InterestBase)
			output.Printf("\n  %-12s %-8s %-22s %s\n", "MARKET", "TYPE", "STRIKE", "PREMIUM")
			for _, u := range conv.Units {
				strike := "as quoted"
				if u.StrikeDivisor != nil && u.StrikeScaledAbove != nil {
					strike = fmt.Sprintf("÷%s above %s", formatPrice(*u.StrikeDivisor), formatPrice(*u.StrikeScaledAbove))
				}
				output.Printf("  %-12s %-8s %-22s %s\n", u.Market, u.UnderlyingType, strike, u.PremiumQuote)
			}
			return nil
		},
	}

	cmd.Flags().String("remote", "", "calculator service base URL; uses the local config when empty")
	return cmd
}
