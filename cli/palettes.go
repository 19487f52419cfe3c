package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mosaicme/mosaicme/palette"
)

var palettesCmd = &cobra.Command{
	Use:   "palettes [type]",
	Short: "List available palettes, or the colors of one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPalettes,
}

func runPalettes(cmd *cobra.Command, args []string) error {
	registry, err := palette.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load palettes: %w", err)
	}

	if len(args) == 0 {
		for _, info := range registry.List() {
			fmt.Printf("%-8s %s (%d colors)\n", info.Type, info.Name, info.ColorCount)
		}
		return nil
	}

	pal, ok := registry.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown palette type %q, have: %v", args[0], registry.Types())
	}
	for _, c := range pal.Colors() {
		legoID := c.LegoID
		if legoID == "" {
			legoID = "-"
		}
		fmt.Printf("%-24s %s  rgb(%3d,%3d,%3d)  element %s\n",
			c.Name, c.Hex, c.RGB.R, c.RGB.G, c.RGB.B, legoID)
	}
	return nil
}
