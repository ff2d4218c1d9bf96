package report

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/pdetsolar/footprints/internal/store"
)

const (
	defaultChartWidth  = 12 * vg.Inch
	defaultChartHeight = 7 * vg.Inch
	chartDPI           = 96

	// comparisonRows bounds the grouped chart, more gets unreadable.
	comparisonRows = 10
)

// Brand colors of the footprint datasets; anything else renders gray.
var sourceColors = map[string]color.Color{
	"microsoft": color.RGBA{R: 0x00, G: 0xA4, B: 0xEF, A: 0xFF},
	"google":    color.RGBA{R: 0x34, G: 0xA8, B: 0x53, A: 0xFF},
}

func sourceColor(name string) color.Color {
	if c, ok := sourceColors[name]; ok {
		return c
	}
	return color.RGBA{R: 0x5A, G: 0x5A, B: 0x5A, A: 0xFF}
}

func chartName(a store.MunicipalityAggregate) string {
	if a.Name == "" {
		return a.Code
	}
	if a.Department == "" {
		return a.Name
	}
	return a.Name + ", " + a.Department
}

// renderTopChart draws one source's municipalities as horizontal bars,
// largest area on top.
func renderTopChart(src SourceReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d municipalities by roof area, %s", len(src.Top), src.Label)
	p.X.Label.Text = "Total roof area (km²)"

	vals := make(plotter.Values, len(src.Top))
	names := make([]string, len(src.Top))
	for i, a := range src.Top {
		j := len(src.Top) - 1 - i
		vals[j] = a.TotalAreaKM2()
		names[j] = chartName(a)
	}

	bars, err := plotter.NewBarChart(vals, vg.Points(14))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = sourceColor(src.Source)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)

	return p, nil
}

// renderComparisonChart draws grouped bars of building counts per source
// for the municipalities with the largest combined area.
func renderComparisonChart(sources []string, rows []ComparisonRow) (*plot.Plot, error) {
	if len(rows) > comparisonRows {
		rows = rows[:comparisonRows]
	}

	p := plot.New()
	p.Title.Text = "Building counts by source"
	p.Y.Label.Text = "Buildings"
	p.Legend.Top = true

	width := vg.Points(10)
	for i, source := range sources {
		vals := make(plotter.Values, len(rows))
		for j, row := range rows {
			vals[j] = float64(row.Counts[source])
		}

		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return nil, err
		}
		bars.Color = sourceColor(source)
		bars.LineStyle.Width = 0
		bars.Offset = width * vg.Length(float64(i)+0.5-float64(len(sources))/2)
		p.Add(bars)
		p.Legend.Add(store.SourceLabel(source), bars)
	}

	names := make([]string, len(rows))
	for i, row := range rows {
		if row.Name != "" {
			names[i] = row.Name
		} else {
			names[i] = row.Code
		}
	}
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.XAlign = vgdraw.XRight
	p.X.Tick.Label.YAlign = vgdraw.YCenter

	return p, nil
}

// writeChart renders the plot to a PNG and a half size webp thumbnail.
func writeChart(p *plot.Plot, w, h vg.Length, pngPath, webpPath string) error {
	if w <= 0 {
		w = defaultChartWidth
	}
	if h <= 0 {
		h = defaultChartHeight
	}

	c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(chartDPI))
	p.Draw(vgdraw.New(c))

	f, err := os.Create(pngPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", pngPath, err)
	}
	defer func() { _ = f.Close() }()

	img := c.Image()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding %s: %w", pngPath, err)
	}

	return writeThumbnail(img, webpPath)
}

func writeThumbnail(img image.Image, path string) error {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/2, b.Dy()/2))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := webp.Encode(f, dst, &webp.Options{Lossless: false, Quality: 85}); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	return nil
}
