package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/polargraph/pkg/config"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/pipeline"
	"github.com/matzehuels/polargraph/pkg/raster"
)

// convertFlags holds the command-line flags for the convert command.
type convertFlags struct {
	output  string // output file, or base path when several formats are written
	formats string // comma-separated formats; inferred from output when empty
	report  string // clearance plot path
	preset  string // named preset applied before explicit flags
	pick    bool   // choose the preset interactively
	noCache bool   // bypass the artifact cache

	lineSpacing  float64
	amplitude    float64
	threshold    float64
	minClearance float64
	strokeWidth  float64
	segmented    bool
	organic      bool
	seed         uint64
	maxWidth     int
}

// defaultConvertFlags mirrors the defaults the flags are registered with.
// The CLI segments strokes by default; the engine does not.
func defaultConvertFlags() convertFlags {
	return convertFlags{
		lineSpacing:  pipeline.DefaultLineSpacing,
		amplitude:    pipeline.DefaultAmplitudeScale,
		threshold:    pipeline.DefaultDarknessThreshold,
		minClearance: pipeline.DefaultMinClearance,
		strokeWidth:  pipeline.DefaultStrokeWidth,
		segmented:    true,
		seed:         pipeline.DefaultSeed,
	}
}

// convertCommand creates the convert command.
func (c *CLI) convertCommand() *cobra.Command {
	flags := defaultConvertFlags()

	cmd := &cobra.Command{
		Use:   "convert INPUT",
		Short: "Convert an image into a plotter drawing",
		Long: `Convert an image into horizontal sine-wave strokes.

Settings are layered: built-in defaults, the config file's [defaults], the
chosen preset, then any flag given explicitly on the command line.

The output format follows the -o extension (.svg, .json, .png) unless -f is
given. With several formats, -o is a base path and each format gets its own
extension.`,
		Example: `  polargraph convert portrait.jpg -o portrait.svg
  polargraph convert portrait.jpg --preset fine --organic
  polargraph convert portrait.jpg -f svg,png --report clearance.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if flags.pick {
				name, ok, err := pickPreset(cfg)
				if err != nil {
					return err
				}
				if !ok {
					printDetail("No preset selected")
					return nil
				}
				flags.preset = name
			}

			opts, err := buildOptions(cfg, &flags, cmd.Flags().Changed)
			if err != nil {
				return err
			}
			return c.runConvert(cmd.Context(), cfg, args[0], &flags, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", "output file (default: input name with .svg)")
	f.StringVarP(&flags.formats, "format", "f", "", "output format(s): svg, json, png (comma-separated)")
	f.StringVar(&flags.report, "report", "", "write a clearance plot (PNG) to this path")
	f.StringVar(&flags.preset, "preset", "", "apply a named preset (see 'polargraph presets')")
	f.BoolVar(&flags.pick, "pick", false, "choose a preset interactively")
	f.BoolVar(&flags.noCache, "no-cache", false, "disable the artifact cache")

	f.Float64VarP(&flags.lineSpacing, "line-spacing", "l", flags.lineSpacing, "vertical distance between scan rows in pixels")
	f.Float64VarP(&flags.amplitude, "amplitude", "a", flags.amplitude, "wave amplitude scale")
	f.Float64Var(&flags.threshold, "threshold", flags.threshold, "darkness below which segmented strokes lift the pen")
	f.Float64Var(&flags.minClearance, "min-clearance", flags.minClearance, "minimum gap between adjacent strokes in pixels")
	f.Float64Var(&flags.strokeWidth, "stroke-width", flags.strokeWidth, "pen width written to SVG and PNG")
	f.BoolVar(&flags.segmented, "segmented", flags.segmented, "lift the pen over light regions")
	f.BoolVar(&flags.organic, "organic", false, "randomize phase, frequency and wobble per row")
	f.Uint64Var(&flags.seed, "seed", flags.seed, "random seed for organic mode")
	f.IntVar(&flags.maxWidth, "max-width", 0, "downscale images wider than this (0 keeps the original size)")

	cmd.MarkFlagsMutuallyExclusive("preset", "pick")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{pipeline.FormatSVG, pipeline.FormatJSON, pipeline.FormatPNG}, cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cfg.PresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// buildOptions layers the CLI defaults, the config file, the preset and the
// flags the user set explicitly, then validates the result.
func buildOptions(cfg *config.Config, flags *convertFlags, changed func(string) bool) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Segmented = true
	if err := cfg.Apply(&opts, flags.preset); err != nil {
		return opts, err
	}

	if changed("line-spacing") {
		opts.LineSpacing = flags.lineSpacing
	}
	if changed("amplitude") {
		opts.AmplitudeScale = flags.amplitude
	}
	if changed("threshold") {
		opts.DarknessThreshold = flags.threshold
	}
	if changed("min-clearance") {
		opts.MinClearance = flags.minClearance
	}
	if changed("stroke-width") {
		opts.StrokeWidth = flags.strokeWidth
	}
	if changed("segmented") {
		opts.Segmented = flags.segmented
	}
	if changed("organic") {
		opts.Organic = flags.organic
	}
	if changed("seed") {
		opts.Seed = flags.seed
	}
	if changed("max-width") {
		opts.MaxWidth = flags.maxWidth
	}

	formats, err := resolveFormats(flags.formats, flags.output)
	if err != nil {
		return opts, err
	}
	opts.Formats = formats
	if flags.report != "" {
		opts.Formats = append(opts.Formats, pipeline.FormatPlot)
	}

	return opts, opts.Validate()
}

// outputFormats are the formats convert writes to -o. The plot only goes to
// --report.
var outputFormats = []string{pipeline.FormatSVG, pipeline.FormatJSON, pipeline.FormatPNG}

// resolveFormats parses -f, falling back to the -o extension and then SVG.
func resolveFormats(formatFlag, output string) ([]string, error) {
	if formats := parseFormats(formatFlag); len(formats) > 0 {
		seen := make(map[string]bool, len(formats))
		unique := formats[:0]
		for _, f := range formats {
			if !slices.Contains(outputFormats, f) {
				return nil, errors.New(errors.ErrCodeInvalidFormat,
					"invalid format: %q (must be one of: %s)", f, strings.Join(outputFormats, ", "))
			}
			if !seen[f] {
				seen[f] = true
				unique = append(unique, f)
			}
		}
		return unique, nil
	}
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), "."); slices.Contains(outputFormats, ext) {
		return []string{ext}, nil
	}
	return []string{pipeline.FormatSVG}, nil
}

// outputPaths maps each written format to its file. A single format goes
// to -o as given; several formats share the -o base path.
func outputPaths(input, output string, formats []string) map[string]string {
	var written []string
	for _, f := range formats {
		if f != pipeline.FormatPlot {
			written = append(written, f)
		}
	}

	base := output
	if ext := filepath.Ext(output); slices.Contains(outputFormats, strings.TrimPrefix(strings.ToLower(ext), ".")) {
		base = strings.TrimSuffix(output, ext)
	}
	if output == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	}

	paths := make(map[string]string, len(written))
	for _, f := range written {
		if len(written) == 1 && output != "" {
			paths[f] = output
		} else {
			paths[f] = base + "." + f
		}
	}
	return paths
}

// runConvert reads the image, runs the pipeline and writes every artifact.
func (c *CLI) runConvert(ctx context.Context, cfg *config.Config, input string, flags *convertFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)

	data, err := raster.ReadFile(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(cfg, flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	logger.Debug("converting", "input", input, "options", opts.String(), "formats", opts.Formats)
	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Converting "+filepath.Base(input))
	spinner.Start()
	result, err := runner.Execute(ctx, pipeline.Input{Data: data, Name: input}, opts)
	spinner.Stop()
	if err != nil {
		return err
	}

	paths := outputPaths(input, flags.output, opts.Formats)
	if flags.report != "" {
		paths[pipeline.FormatPlot] = flags.report
	}
	written := make([]string, 0, len(paths))
	for _, format := range opts.Formats {
		path, ok := paths[format]
		if !ok {
			continue
		}
		if err := writeArtifact(path, result.Artifacts[format]); err != nil {
			return err
		}
		written = append(written, path)
	}
	prog.done("Wrote " + strings.Join(written, ", "))

	printSuccess("Converted %s (%s)", StyleHighlight.Render(filepath.Base(input)), opts.Mode())
	printStats(result.Stats, result.CacheInfo.ConvertHit)
	for _, p := range written {
		printFile(p)
	}
	printInfo("%s", result.Stats.Summary())
	return nil
}

func writeArtifact(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeOutput, err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeOutput, err, "write %s", path)
	}
	return nil
}

// pickPreset runs the interactive preset picker.
func pickPreset(cfg *config.Config) (string, bool, error) {
	final, err := tea.NewProgram(newPresetListModel(cfg.Presets())).Run()
	if err != nil {
		return "", false, fmt.Errorf("preset picker: %w", err)
	}
	m, ok := final.(PresetListModel)
	if !ok || m.Selected == nil {
		return "", false, nil
	}
	return m.Selected.Name, true, nil
}
