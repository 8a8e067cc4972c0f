// Command ptsne embeds an all-numeric CSV dataset with parametric t-SNE,
// writing the embedding coordinates to another CSV and, optionally, a
// scatter plot of a 2-D embedding to a PNG.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	ptsne "github.com/chunfuchen/Multiscale-Parametric-t-SNE"
)

func main() {
	var (
		in         = flag.String("in", "", "input CSV of samples, one row per sample (required)")
		out        = flag.String("out", "embedding.csv", "output CSV for the embedding coordinates")
		plotPath   = flag.String("plot", "", "optional PNG scatter plot of the embedding (2-D only)")
		components = flag.Int("components", 2, "embedding dimensionality")
		perplexity = flag.Float64("perplexity", 30, "target perplexity")
		iters      = flag.Int("iter", 1000, "maximum training epochs")
		batch      = flag.Int("batch", 0, "batch size (0 = whole dataset)")
		layers     = flag.String("layers", "1000,500,250", "comma-separated hidden layer widths")
		lr         = flag.Float64("lr", 0.001, "Adam learning rate")
		patience   = flag.Int("patience", 0, "early stopping patience in epochs (0 disables)")
		seed       = flag.Int64("seed", 42, "RNG seed")
		raw        = flag.Bool("raw", false, "skip per-feature standardization")
		quiet      = flag.Bool("quiet", false, "suppress progress logging")
	)
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*in, *out, *plotPath, *components, *perplexity, *iters, *batch,
		*layers, *lr, *patience, *seed, *raw, *quiet); err != nil {
		fmt.Fprintf(os.Stderr, "ptsne: %+v\n", err)
		os.Exit(1)
	}
}

func run(in, out, plotPath string, components int, perplexity float64, iters, batch int,
	layers string, lr float64, patience int, seed int64, raw, quiet bool) error {

	hidden, err := parseLayers(layers)
	if err != nil {
		return err
	}

	x, err := loadCSV(in)
	if err != nil {
		return errors.Wrapf(err, "loading %s failed", in)
	}
	if !raw {
		x = ptsne.Standardize(x)
	}

	cfg := ptsne.DefaultConfig()
	cfg.NComponents = components
	cfg.Perplexity = perplexity
	cfg.NIter = iters
	cfg.BatchSize = batch
	cfg.HiddenLayers = hidden
	cfg.LearningRate = lr
	cfg.EarlyStoppingEpochs = patience
	cfg.Seed = seed
	if !quiet {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	y, err := ptsne.New(cfg).FitTransform(x)
	if err != nil {
		return errors.Wrapf(err, "embedding failed")
	}

	if err := writeCSV(out, y); err != nil {
		return errors.Wrapf(err, "writing %s failed", out)
	}

	if plotPath != "" {
		if components != 2 {
			return errors.Errorf("plotting needs a 2-D embedding (components = %d)", components)
		}
		if err := plotEmbedding(plotPath, y); err != nil {
			return errors.Wrapf(err, "plotting %s failed", plotPath)
		}
	}

	return nil
}

func parseLayers(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		w, err := strconv.Atoi(p)
		if err != nil || w < 1 {
			return nil, errors.Errorf("invalid hidden layer width %q", p)
		}
		widths = append(widths, w)
	}
	if len(widths) == 0 {
		return nil, errors.Errorf("no hidden layer widths in %q", s)
	}
	return widths, nil
}

// loadCSV reads an all-numeric CSV into a dense matrix, skipping a single
// header row if the first record does not parse as numbers.
func loadCSV(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.Errorf("no rows")
	}

	start := 0
	if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
		start = 1
	}
	if len(records) <= start {
		return nil, errors.Errorf("no data rows")
	}

	d := len(records[start])
	x := mat.NewDense(len(records)-start, d, nil)
	for i, rec := range records[start:] {
		if len(rec) != d {
			return nil, errors.Errorf("row %d has %d fields, want %d", i+start+1, len(rec), d)
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d field %d", i+start+1, j+1)
			}
			x.Set(i, j, v)
		}
	}
	return x, nil
}

func writeCSV(path string, y *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	n, c := y.Dims()
	rec := make([]string, c)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			rec[j] = strconv.FormatFloat(y.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func plotEmbedding(path string, y *mat.Dense) error {
	n, _ := y.Dims()
	pts := make(plotter.XYs, n)
	for i := range pts {
		pts[i].X = y.At(i, 0)
		pts[i].Y = y.At(i, 1)
	}

	p := plot.New()
	p.Title.Text = "parametric t-SNE embedding"
	p.X.Label.Text = "component 1"
	p.Y.Label.Text = "component 2"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Radius = vg.Length(2)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(scatter)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}
