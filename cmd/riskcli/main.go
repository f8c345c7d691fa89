// Command riskcli analyzes a return series locally and prints the result.
//
//	riskcli -file returns.csv [-threshold 10] [-format json|table]
//
// Use -file - to read CSV from stdin. Exits 1 when the input cannot be parsed.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"AleoRisk/internal/domain/models"
	"AleoRisk/internal/services/analyzer"
	xutil "AleoRisk/pkg/util"
)

type output struct {
	Statistics        models.SummaryStatistics  `json:"statistics"`
	MonthlyVolatility []models.VolatilityBucket `json:"monthly_volatility"`
	Threshold         *float64                  `json:"threshold,omitempty"`
	HasWeights        bool                      `json:"has_weights"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("riskcli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "CSV or XLSX file with a return column, - for stdin")
	threshold := fs.String("threshold", "", "custom volatility threshold (annualized %)")
	format := fs.String("format", "json", "output format: json or table")
	low := fs.Float64("low", analyzer.DefaultThresholds().Low, "LOW/MEDIUM boundary")
	high := fs.Float64("high", analyzer.DefaultThresholds().High, "MEDIUM/HIGH boundary")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *file == "" {
		fmt.Fprintln(stderr, "riskcli: -file is required")
		fs.Usage()
		return 2
	}
	if *format != "json" && *format != "table" {
		fmt.Fprintf(stderr, "riskcli: unknown format %q\n", *format)
		return 2
	}
	th, ok := xutil.ParseFloatPtr(*threshold)
	if !ok || (th != nil && *th <= 0) {
		fmt.Fprintf(stderr, "riskcli: threshold must be a positive number\n")
		return 2
	}

	in := stdin
	name := "stdin.csv"
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(stderr, "riskcli: %v\n", err)
			return 2
		}
		defer f.Close()
		in, name = f, filepath.Base(*file)
	}

	a := analyzer.New(analyzer.WithThresholds(*low, *high))
	res, err := a.AnalyzeUpload(in, name, "", th)
	if err != nil {
		var fe *analyzer.FormatError
		if errors.As(err, &fe) {
			fmt.Fprintf(stderr, "riskcli: invalid input: %s\n", fe.Msg)
			return 1
		}
		fmt.Fprintf(stderr, "riskcli: %v\n", err)
		return 2
	}

	out := output{
		Statistics:        res.Statistics,
		MonthlyVolatility: res.Buckets,
		Threshold:         th,
		HasWeights:        res.Series.Weights != nil,
	}
	if *format == "table" {
		err = writeTable(stdout, out)
	} else {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	}
	if err != nil {
		fmt.Fprintf(stderr, "riskcli: %v\n", err)
		return 2
	}
	return 0
}

func writeTable(w io.Writer, out output) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	s := out.Statistics
	fmt.Fprintf(tw, "data points\t%d\n", s.Count)
	fmt.Fprintf(tw, "mean return\t%.2f%%\n", s.Mean)
	fmt.Fprintf(tw, "std dev\t%.4f\n", s.StdDev)
	fmt.Fprintf(tw, "volatility\t%.2f%%\n", s.Volatility)
	fmt.Fprintf(tw, "risk level\t%s\n", s.RiskLevel)
	if out.Threshold != nil {
		fmt.Fprintf(tw, "threshold\t%.2f%%\n", *out.Threshold)
	}
	fmt.Fprintln(tw, "")
	fmt.Fprintln(tw, "period\tvolatility")
	for _, b := range out.MonthlyVolatility {
		fmt.Fprintf(tw, "%s\t%.1f%%\n", b.Label, b.Volatility)
	}
	return tw.Flush()
}
