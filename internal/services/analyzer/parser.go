package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"AleoRisk/internal/domain/models"
)

// leading numeric prefix, the same prefix a lenient float reader would accept
var numberPrefix = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

type columns struct {
	date   int
	ret    int
	weight int
}

// Parse reads comma separated text whose first line is a header.
//
// The date column is the first header containing "date", the return column the
// first containing "return", "pct" or "value", the weight column the first
// containing "weight". Rows without a finite return are skipped.
func Parse(content string) (models.ParsedSeries, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) < 2 {
		return models.ParsedSeries{}, formatErrorf("input must have a header and at least one data row")
	}

	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = strings.Split(strings.TrimRight(line, "\r"), ",")
	}
	return ParseRows(rows)
}

// ParseRows applies the column rules of Parse to pre-split rows. rows[0] is the header.
func ParseRows(rows [][]string) (models.ParsedSeries, error) {
	if len(rows) < 2 {
		return models.ParsedSeries{}, formatErrorf("input must have a header and at least one data row")
	}

	cols, ok := resolveColumns(rows[0])
	if !ok {
		return models.ParsedSeries{}, formatErrorf("input must contain a return column (e.g. return_pct, returns, value)")
	}

	var (
		series      models.ParsedSeries
		weights     []float64
		allWeighted = cols.weight >= 0
	)
	for i := 1; i < len(rows); i++ {
		cells := trimAll(rows[i])
		if len(cells) <= cols.ret {
			continue
		}
		r, ok := parseNumber(cells[cols.ret])
		if !ok {
			continue
		}

		series.Returns = append(series.Returns, r)
		series.Dates = append(series.Dates, dateLabel(cells, cols.date, i))

		if !allWeighted {
			continue
		}
		w, ok := cell(cells, cols.weight)
		if !ok {
			allWeighted = false
			continue
		}
		wv, ok := parseNumber(w)
		if !ok {
			allWeighted = false
			continue
		}
		weights = append(weights, wv)
	}

	if len(series.Returns) == 0 {
		return models.ParsedSeries{}, formatErrorf("no valid return data found")
	}
	if allWeighted && len(weights) == len(series.Returns) {
		series.Weights = weights
	}
	return series, nil
}

func resolveColumns(header []string) (columns, bool) {
	c := columns{date: -1, ret: -1, weight: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if c.date < 0 && strings.Contains(h, "date") {
			c.date = i
		}
		if c.ret < 0 && (strings.Contains(h, "return") || strings.Contains(h, "pct") || strings.Contains(h, "value")) {
			c.ret = i
		}
		if c.weight < 0 && strings.Contains(h, "weight") {
			c.weight = i
		}
	}
	return c, c.ret >= 0
}

func dateLabel(cells []string, idx, line int) string {
	if v, ok := cell(cells, idx); ok {
		return v
	}
	return "Day " + strconv.Itoa(line)
}

func cell(cells []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(cells) || cells[idx] == "" {
		return "", false
	}
	return cells[idx], true
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// parseNumber accepts the longest numeric prefix of s, so "1.5%" reads as 1.5.
func parseNumber(s string) (float64, bool) {
	m := numberPrefix.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
