package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/docchat/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List providers, models, personalities and role presets",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Providers:\n")
	for _, p := range models.Providers {
		fmt.Fprintf(out, "  %s (%s)\n", p.Value, p.Label)
		for _, m := range p.Models {
			marker := " "
			if p.Value == cfg.LLMProvider && m.Value == cfg.LLMModel {
				marker = "*"
			}
			fmt.Fprintf(out, "   %s %-28s %s\n", marker, m.Value, m.Label)
		}
	}

	fmt.Fprintf(out, "\nPersonalities:\n")
	for _, p := range models.Personalities {
		fmt.Fprintf(out, "  %-10s %s\n", p.Value, p.Description)
	}

	fmt.Fprintf(out, "\nRole presets:\n")
	for i, p := range models.RolePresets {
		fmt.Fprintf(out, "  %d. %-20s %s\n", i+1, p.Label, p.Prompt)
	}

	fmt.Fprintf(out, "\nTemperature: %.1f (%s), range %.1f-%.1f\n",
		cfg.LLMTemperature, models.TemperatureHint(cfg.LLMTemperature), models.MinTemperature, models.MaxTemperature)
	return nil
}
