package batch

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
)

// CSVHeader is the header row of predictions.csv.
var CSVHeader = []string{"image", "class", "probability", "confidence"}

// WriteCSV writes one row per classified image with probability and
// confidence as 4-decimal fractions. Failed images are omitted.
func WriteCSV(w io.Writer, items []Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, it := range items {
		if it.Result == nil {
			continue
		}
		row := []string{
			it.Image,
			it.Result.Class,
			strconv.FormatFloat(it.Result.Score, 'f', 4, 64),
			strconv.FormatFloat(it.ConfidenceFraction(), 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable prints the console summary and the per-image table, sorted by
// probability.
func WriteTable(w io.Writer, items []Item, s Summary) {
	fmt.Fprintf(w, "Total images: %d\n", s.Total)
	fmt.Fprintf(w, "Cracks detected: %d (%.1f%%)\n", s.Cracks, s.CrackPercent())
	fmt.Fprintf(w, "Normal tracks: %d (%.1f%%)\n", s.Normal, s.NormalPercent())
	if s.Failed > 0 {
		fmt.Fprintf(w, "Failed: %d\n", s.Failed)
	}
	fmt.Fprintln(w)

	rule := strings.Repeat("-", 80)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-40s %-10s %-12s %-12s\n", "Image", "Prediction", "Probability", "Confidence")
	fmt.Fprintln(w, rule)
	for _, it := range SortByProbability(items) {
		fmt.Fprintf(w, "%-40s %-10s %10.4f  %10.2f%%\n",
			it.Image, it.Result.Class, it.Result.Score, it.ConfidenceFraction()*100)
	}

	if len(s.Critical) > 0 {
		fmt.Fprintf(w, "\nHIGH CONFIDENCE CRACKS DETECTED (%d images):\n", len(s.Critical))
		for _, it := range s.Critical {
			fmt.Fprintf(w, "  - %s: %.2f%% confidence\n", it.Image, it.ConfidenceFraction()*100)
		}
	}
}

// WriteMarkdown renders the batch as a Markdown report.
func WriteMarkdown(w io.Writer, title string, items []Item, s Summary) error {
	md := markdown.NewMarkdown(w)

	md.H1(title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Images", strconv.Itoa(s.Total)},
			{"Threshold", strconv.FormatFloat(s.Threshold, 'f', 3, 64)},
			{"Cracks", fmt.Sprintf("%d (%.1f%%)", s.Cracks, s.CrackPercent())},
			{"Normal", fmt.Sprintf("%d (%.1f%%)", s.Normal, s.NormalPercent())},
			{"Failed", strconv.Itoa(s.Failed)},
		},
	})
	md.PlainText("")

	if len(s.Critical) > 0 {
		md.Cautionf("%d high confidence cracks detected.", len(s.Critical))
		critical := make([]string, 0, len(s.Critical))
		for _, it := range s.Critical {
			critical = append(critical, fmt.Sprintf("`%s`: %.2f%% confidence", it.Image, it.ConfidenceFraction()*100))
		}
		md.BulletList(critical...)
		md.PlainText("")
	} else {
		md.Tip("No high confidence cracks detected.")
		md.PlainText("")
	}

	md.H2("Predictions")
	md.PlainText("")
	rows := [][]string{}
	for _, it := range SortByProbability(items) {
		rows = append(rows, []string{
			"`" + it.Image + "`",
			it.Result.Class,
			strconv.FormatFloat(it.Result.Score, 'f', 4, 64),
			fmt.Sprintf("%.2f%%", it.ConfidenceFraction()*100),
			it.Result.ConfidenceLevel,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Class", "Probability", "Confidence", "Level"},
		Rows:   rows,
	})

	var failed []string
	for _, it := range items {
		if it.Err != nil {
			failed = append(failed, fmt.Sprintf("`%s`: %v", it.Image, it.Err))
		}
	}
	if len(failed) > 0 {
		md.PlainText("")
		md.H2("Failures")
		md.PlainText("")
		md.BulletList(failed...)
	}

	return md.Build()
}
