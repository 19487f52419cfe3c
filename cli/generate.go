package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mosaicme/mosaicme/config"
	"github.com/mosaicme/mosaicme/export"
	"github.com/mosaicme/mosaicme/mosaic"
	"github.com/mosaicme/mosaicme/palette"
)

var (
	generateSize      int
	generatePieceType string
	generateOutDir    string
)

var generateCmd = &cobra.Command{
	Use:   "generate <image>",
	Short: "Convert an image into a mosaic on disk",
	Long: `Convert a single image into a mosaic without running the server.
Writes mosaic.png, instructions.png and shopping-list.csv into the
output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&generateSize, "size", "s", 32,
		fmt.Sprintf("baseplate size, one of %v", mosaic.BaseplateSizes))
	generateCmd.Flags().StringVarP(&generatePieceType, "piece-type", "p", "square",
		"palette piece type (round, square)")
	generateCmd.Flags().StringVarP(&generateOutDir, "out", "o", ".",
		"output directory")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	log := newLogger("mosaicme")
	cfg := config.Default()

	registry, err := palette.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load palettes: %w", err)
	}
	pal, ok := registry.Get(generatePieceType)
	if !ok {
		return fmt.Errorf("unknown piece type %q, have: %v", generatePieceType, registry.Types())
	}

	imageBytes, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	result, err := mosaic.NewGenerator().Generate(imageBytes, generateSize, pal)
	if err != nil {
		return fmt.Errorf("failed to generate mosaic: %w", err)
	}
	log.Info("mosaic generated",
		"size", generateSize,
		"pieceType", generatePieceType,
		"uniqueColors", result.Metadata.UniqueColors,
	)

	if err := os.MkdirAll(generateOutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	renderer := export.NewRenderer(cfg.FontPath)

	mosaicPNG, err := renderer.MosaicPNG(result.Grid, 0)
	if err != nil {
		return fmt.Errorf("failed to render mosaic: %w", err)
	}
	instructionsPNG, err := renderer.InstructionsPNG(result.Grid, result.ShoppingList)
	if err != nil {
		return fmt.Errorf("failed to render instructions: %w", err)
	}
	shoppingCSV, err := renderer.ShoppingCSV(result.ShoppingList, result.Metadata.PieceType)
	if err != nil {
		return fmt.Errorf("failed to build shopping list: %w", err)
	}

	outputs := map[string][]byte{
		"mosaic.png":        mosaicPNG,
		"instructions.png":  instructionsPNG,
		"shopping-list.csv": shoppingCSV,
	}
	for name, data := range outputs {
		path := filepath.Join(generateOutDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Info("wrote", "file", path)
	}
	return nil
}
