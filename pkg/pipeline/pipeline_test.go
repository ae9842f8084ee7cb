package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/polargraph/pkg/cache"
	"github.com/matzehuels/polargraph/pkg/drawing"
	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/raster"
)

// =============================================================================
// Helpers
// =============================================================================

func solidRows(t *testing.T, width int, rows ...uint8) *raster.Grid {
	t.Helper()
	pix := make([]uint8, 0, width*len(rows))
	for _, v := range rows {
		for range width {
			pix = append(pix, v)
		}
	}
	g, err := raster.NewGrid(width, len(rows), pix)
	if err != nil {
		t.Fatalf("NewGrid() error: %v", err)
	}
	return g
}

func gradientGrid(t *testing.T, width, height int) *raster.Grid {
	t.Helper()
	pix := make([]uint8, width*height)
	for y := range height {
		for x := range width {
			pix[y*width+x] = uint8((x*7 + y*13) % 256)
		}
	}
	g, err := raster.NewGrid(width, height, pix)
	if err != nil {
		t.Fatalf("NewGrid() error: %v", err)
	}
	return g
}

func testOptions(mut func(*Options)) Options {
	opts := DefaultOptions()
	opts.Logger = log.New(io.Discard)
	if mut != nil {
		mut(&opts)
	}
	return opts
}

func assertClearance(t *testing.T, doc *drawing.Document, minClearance float64) {
	t.Helper()
	const eps = 1e-6
	for i := 1; i < len(doc.Rows); i++ {
		prev := map[int]float64{}
		for _, l := range doc.Rows[i-1].Polylines {
			for _, p := range l {
				prev[p.X] = p.Y
			}
		}
		for _, l := range doc.Rows[i].Polylines {
			for _, p := range l {
				if py, ok := prev[p.X]; ok && p.Y < py+minClearance-eps {
					t.Errorf("row %d x=%d: y=%v is closer than %v to %v", i, p.X, p.Y, minClearance, py)
				}
			}
		}
	}
}

// =============================================================================
// Options
// =============================================================================

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"json", false},
		{"plot", false},
		{"pdf", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.IsParameterError(err) {
			t.Errorf("ValidateFormat(%q) code = %v, want a parameter error", tt.format, errors.GetCode(err))
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mut     func(*Options)
		wantErr bool
	}{
		{"defaults", nil, false},
		{"zero amplitude", func(o *Options) { o.AmplitudeScale = 0 }, false},
		{"zero threshold", func(o *Options) { o.DarknessThreshold = 0 }, false},
		{"zero clearance", func(o *Options) { o.MinClearance = 0 }, false},
		{"zero spacing", func(o *Options) { o.LineSpacing = 0 }, true},
		{"negative spacing", func(o *Options) { o.LineSpacing = -1 }, true},
		{"NaN spacing", func(o *Options) { o.LineSpacing = math.NaN() }, true},
		{"negative amplitude", func(o *Options) { o.AmplitudeScale = -0.1 }, true},
		{"threshold above one", func(o *Options) { o.DarknessThreshold = 1.5 }, true},
		{"negative clearance", func(o *Options) { o.MinClearance = -1 }, true},
		{"negative max width", func(o *Options) { o.MaxWidth = -5 }, true},
		{"unknown format", func(o *Options) { o.Formats = []string{"svg", "gif"} }, true},
		{"negative stroke", func(o *Options) { o.StrokeWidth = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(tt.mut)
			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsParameterError(err) {
				t.Errorf("Validate() code = %v, want a parameter error", errors.GetCode(err))
			}
		})
	}
}

func TestSetDefaultsIdempotent(t *testing.T) {
	var opts Options
	opts.SetDefaults()
	first := opts
	opts.SetDefaults()

	if diff := cmp.Diff(first.Formats, opts.Formats); diff != "" {
		t.Errorf("Formats changed on second call:\n%s", diff)
	}
	if opts.StrokeWidth != DefaultStrokeWidth {
		t.Errorf("StrokeWidth = %v, want %v", opts.StrokeWidth, DefaultStrokeWidth)
	}
	if opts.Logger == nil {
		t.Error("Logger should be set")
	}
	if opts.LineSpacing != 0 {
		t.Error("SetDefaults must not invent a line spacing")
	}
}

func TestOptionsMode(t *testing.T) {
	tests := []struct {
		segmented, organic bool
		want               string
	}{
		{false, false, "basic"},
		{true, false, "segmented"},
		{false, true, "organic"},
		{true, true, "segmented organic"},
	}
	for _, tt := range tests {
		opts := Options{Segmented: tt.segmented, Organic: tt.organic}
		if got := opts.Mode(); got != tt.want {
			t.Errorf("Mode() = %q, want %q", got, tt.want)
		}
	}
}

func TestDocumentKeyIgnoresSeedWithoutOrganic(t *testing.T) {
	a := testOptions(func(o *Options) { o.Seed = 1 })
	b := testOptions(func(o *Options) { o.Seed = 2 })
	if a.DocumentKeyOpts() != b.DocumentKeyOpts() {
		t.Error("seed should not affect the key when organic is off")
	}
	a.Organic, b.Organic = true, true
	if a.DocumentKeyOpts() == b.DocumentKeyOpts() {
		t.Error("seed should affect the key in organic mode")
	}
}

// =============================================================================
// Convert
// =============================================================================

func TestScanRows(t *testing.T) {
	if diff := cmp.Diff([]float64{0, 2.5, 5, 7.5}, ScanRows(10, 2.5)); diff != "" {
		t.Errorf("ScanRows(10, 2.5) mismatch:\n%s", diff)
	}
	if got := ScanRows(0, 1); len(got) != 0 {
		t.Errorf("ScanRows(0, 1) = %v, want none", got)
	}
	if got := len(ScanRows(5, 5)); got != 1 {
		t.Errorf("len(ScanRows(5, 5)) = %d, want 1", got)
	}
}

func TestScanRowsBounded(t *testing.T) {
	tests := []struct {
		name    string
		height  int
		spacing float64
		want    int
	}{
		{"tiny spacing capped", 1, 1e-300, MaxScanRows},
		{"tall grid capped", 1 << 40, 1, MaxScanRows},
		{"zero spacing", 10, 0, 0},
		{"NaN spacing", 10, math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(ScanRows(tt.height, tt.spacing)); got != tt.want {
				t.Errorf("len(ScanRows(%d, %g)) = %d, want %d", tt.height, tt.spacing, got, tt.want)
			}
		})
	}
}

func TestConvertWhiteRowThenBlackRow(t *testing.T) {
	g := solidRows(t, 4, 255, 0)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 1
		o.AmplitudeScale = 0
		o.Segmented = true
	})

	doc, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}

	if got := doc.PolylineCount(); got != 1 {
		t.Fatalf("PolylineCount() = %d, want 1", got)
	}
	for l := range doc.Polylines() {
		if len(l) != 4 {
			t.Errorf("polyline has %d points, want 4", len(l))
		}
		for _, p := range l {
			if math.Abs(p.Y-1) > 1e-9 {
				t.Errorf("point x=%d has y=%v, want 1", p.X, p.Y)
			}
		}
	}
	if stats.TotalRows != 2 || stats.EmittedRows != 1 || stats.AdjustedRows != 0 {
		t.Errorf("stats = %d/%d/%d (total/emitted/adjusted), want 2/1/0",
			stats.TotalRows, stats.EmittedRows, stats.AdjustedRows)
	}
}

func TestConvertAdjacentBlackRowsCollide(t *testing.T) {
	g := solidRows(t, 64, 0, 0)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 1
		o.AmplitudeScale = 10
		o.Organic = true
	})

	doc, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if stats.AdjustedRows != 1 {
		t.Errorf("AdjustedRows = %d, want 1", stats.AdjustedRows)
	}
	if len(stats.Trace) != 2 || !stats.Trace[1].Adjusted {
		t.Errorf("trace = %+v, want second row adjusted", stats.Trace)
	}
	if stats.MinDistance >= Distance(opts.MinClearance) {
		t.Errorf("MinDistance = %v, want below %v", stats.MinDistance, opts.MinClearance)
	}
	assertClearance(t, doc, opts.MinClearance)
}

func TestConvertInPhaseRowsDoNotCollide(t *testing.T) {
	g := solidRows(t, 32, 0, 0)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 1
		o.AmplitudeScale = 10
	})

	_, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if stats.AdjustedRows != 0 {
		t.Errorf("AdjustedRows = %d, want 0 for identical basic waves one pixel apart", stats.AdjustedRows)
	}
	if math.Abs(float64(stats.MinDistance)-1) > 1e-9 {
		t.Errorf("MinDistance = %v, want 1", stats.MinDistance)
	}
}

func TestConvertZeroAmplitudeIsFlat(t *testing.T) {
	g := gradientGrid(t, 30, 20)
	for _, organic := range []bool{false, true} {
		opts := testOptions(func(o *Options) {
			o.LineSpacing = 3
			o.AmplitudeScale = 0
			o.Organic = organic
		})
		doc, _, err := Convert(context.Background(), g, opts)
		if err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		for _, row := range doc.Rows {
			for _, l := range row.Polylines {
				for _, p := range l {
					if p.Y != row.Y {
						t.Errorf("organic=%v: point (%d, %v) off nominal row %v", organic, p.X, p.Y, row.Y)
					}
				}
			}
		}
	}
}

func TestConvertGapKeepsBaseline(t *testing.T) {
	g := solidRows(t, 8, 0, 255, 0)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 1
		o.AmplitudeScale = 0
		o.Segmented = true
		o.MinClearance = 3
	})

	doc, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatalf("Convert() error: %v", err)
	}
	if stats.TotalRows != 3 || stats.EmittedRows != 2 || stats.AdjustedRows != 1 {
		t.Fatalf("stats = %d/%d/%d (total/emitted/adjusted), want 3/2/1",
			stats.TotalRows, stats.EmittedRows, stats.AdjustedRows)
	}
	if !stats.Trace[1].Skipped {
		t.Error("white row should be traced as skipped")
	}
	for _, p := range doc.Rows[1].Polylines[0] {
		if p.Y != 3 {
			t.Errorf("x=%d: y = %v, want 3 (row 0 + clearance)", p.X, p.Y)
		}
	}
}

func TestConvertClearanceInvariant(t *testing.T) {
	g := gradientGrid(t, 80, 60)
	for _, mode := range []struct{ segmented, organic bool }{
		{false, false}, {true, false}, {false, true}, {true, true},
	} {
		opts := testOptions(func(o *Options) {
			o.LineSpacing = 2
			o.AmplitudeScale = 12
			o.Segmented = mode.segmented
			o.Organic = mode.organic
		})
		doc, _, err := Convert(context.Background(), g, opts)
		if err != nil {
			t.Fatalf("Convert() error: %v", err)
		}
		assertClearance(t, doc, opts.MinClearance)
	}
}

func TestConvertDeterministic(t *testing.T) {
	g := gradientGrid(t, 50, 40)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 2.5
		o.Segmented = true
		o.Organic = true
	})

	a, _, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("repeated runs differ (-a +b):\n%s", diff)
	}

	sa, _ := Render(a, Stats{}, opts)
	sb, _ := Render(b, Stats{}, opts)
	if !bytes.Equal(sa[FormatSVG], sb[FormatSVG]) {
		t.Error("repeated runs produced different SVG bytes")
	}

	opts.Seed = 7
	c, _, _ := Convert(context.Background(), g, opts)
	if cmp.Equal(a, c) {
		t.Error("different seeds produced identical documents")
	}
}

func TestConvertStats(t *testing.T) {
	g := solidRows(t, 10, 0, 0, 255, 255)
	opts := testOptions(func(o *Options) { o.LineSpacing = 1; o.Segmented = true })

	doc, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats.MeanDarkness != 0.5 {
		t.Errorf("MeanDarkness = %v, want 0.5", stats.MeanDarkness)
	}
	if stats.Polylines != doc.PolylineCount() || stats.Points != doc.PointCount() {
		t.Error("polyline and point counts disagree with the document")
	}
	if stats.Width != 10 || stats.Height != 4 {
		t.Errorf("size = %dx%d, want 10x4", stats.Width, stats.Height)
	}
	want := "Collision prevention: 0/4 lines adjusted for clearance"
	if got := stats.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestConvertRejectsInvalidOptions(t *testing.T) {
	g := solidRows(t, 2, 0)
	_, _, err := Convert(context.Background(), g, testOptions(func(o *Options) { o.LineSpacing = 0 }))
	if !errors.IsParameterError(err) {
		t.Errorf("Convert() error = %v, want a parameter error", err)
	}
}

func TestConvertRejectsTooManyScanRows(t *testing.T) {
	tests := []struct {
		name    string
		height  int
		spacing float64
	}{
		{"subnormal spacing", 1, 1e-300},
		{"just over the cap", MaxScanRows + 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := raster.NewGrid(2, tt.height, make([]uint8, 2*tt.height))
			if err != nil {
				t.Fatal(err)
			}
			done := make(chan error, 1)
			go func() {
				_, _, err := Convert(context.Background(), g, testOptions(func(o *Options) { o.LineSpacing = tt.spacing }))
				done <- err
			}()

			select {
			case err := <-done:
				if !errors.Is(err, errors.ErrCodeInvalidParameter) {
					t.Errorf("Convert() error = %v, want invalid parameter", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Convert did not return for an unbounded row count")
			}
		})
	}

	g := solidRows(t, 2, 0, 0)
	if _, _, err := Convert(context.Background(), g, testOptions(func(o *Options) { o.LineSpacing = 2.0 / MaxScanRows })); err != nil {
		t.Errorf("Convert() at exactly MaxScanRows rows error: %v", err)
	}
}

func TestConvertCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Convert(ctx, gradientGrid(t, 10, 10), testOptions(nil))
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
}

func TestDistanceJSON(t *testing.T) {
	data, err := json.Marshal([]Distance{NoOverlap, 1.5, -2})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if string(data) != "[null,1.5,-2]" {
		t.Errorf("Marshal() = %s, want [null,1.5,-2]", data)
	}

	var got []Distance
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got[0].Finite() || got[1] != 1.5 || got[2] != -2 {
		t.Errorf("Unmarshal() = %v", got)
	}
}

// =============================================================================
// Render
// =============================================================================

func TestRenderAllFormats(t *testing.T) {
	g := gradientGrid(t, 40, 30)
	opts := testOptions(func(o *Options) {
		o.LineSpacing = 3
		o.Formats = []string{FormatSVG, FormatJSON, FormatPNG, FormatPlot}
	})
	doc, stats, err := Convert(context.Background(), g, opts)
	if err != nil {
		t.Fatal(err)
	}

	artifacts, err := Render(doc, stats, opts)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, f := range opts.Formats {
		if len(artifacts[f]) == 0 {
			t.Errorf("format %s is empty", f)
		}
	}

	svg := string(artifacts[FormatSVG])
	if !strings.Contains(svg, "with collision prevention</desc>") {
		t.Error("SVG description should name collision prevention")
	}
	if !strings.Contains(svg, stats.Summary()) {
		t.Error("SVG should carry the collision summary")
	}
	if _, err := png.Decode(bytes.NewReader(artifacts[FormatPNG])); err != nil {
		t.Errorf("png artifact does not decode: %v", err)
	}
}

// =============================================================================
// Runner
// =============================================================================

func encodeTestPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 24, 24))
	for y := range 24 {
		for x := range 24 {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 10)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRunnerExecuteCaches(t *testing.T) {
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, log.New(io.Discard))
	defer r.Close()

	in := Input{Data: encodeTestPNG(t), Name: "test.png"}
	opts := testOptions(func(o *Options) { o.Formats = []string{FormatSVG, FormatJSON} })

	first, err := r.Execute(context.Background(), in, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if first.CacheInfo.ConvertHit || first.CacheInfo.RenderHit {
		t.Error("first run should miss the cache")
	}
	if first.ImageHash != cache.Hash(in.Data) {
		t.Error("ImageHash should be the hash of the input")
	}

	second, err := r.Execute(context.Background(), in, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !second.CacheInfo.ConvertHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want all hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached SVG differs from the rendered one")
	}
	if diff := cmp.Diff(first.Document, second.Document); diff != "" {
		t.Errorf("cached document differs:\n%s", diff)
	}
	if first.Stats.AdjustedRows != second.Stats.AdjustedRows {
		t.Error("cached stats lost the collision counter")
	}

	opts.Refresh = true
	third, err := r.Execute(context.Background(), in, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.ConvertHit {
		t.Error("Refresh should bypass the cache")
	}
}

func TestRunnerValidatesBeforeDecoding(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))
	_, err := r.Execute(context.Background(), Input{Data: []byte("not an image")},
		testOptions(func(o *Options) { o.AmplitudeScale = -1 }))
	if !errors.IsParameterError(err) {
		t.Errorf("Execute() error = %v, want a parameter error", err)
	}
}

func TestRunnerInputErrors(t *testing.T) {
	r := NewRunner(nil, nil, log.New(io.Discard))

	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("not an image"),
	} {
		_, err := r.Execute(context.Background(), Input{Data: data}, testOptions(nil))
		if !errors.IsInputError(err) {
			t.Errorf("%s: Execute() error = %v, want an input error", name, err)
		}
	}
}
