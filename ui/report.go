package ui

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gopuf/models"
)

// RenderReportMarkdown builds a human-readable markdown report for one
// experiment result.
func RenderReportMarkdown(res *models.ExperimentResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiment %s\n\n", res.ID)
	fmt.Fprintf(&b, "(%d,%d)-XOR arbiter PUF, noisiness %.3f, %d challenges x %d repetitions\n\n",
		res.Params.N, res.Params.K, res.Params.Noisiness, res.Params.Num, res.Params.Reps)

	b.WriteString("## Outcome\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Holdout accuracy | %.4f |\n", res.Accuracy)
	fmt.Fprintf(&b, "| Training accuracy | %.4f |\n", res.TrainingAccuracy)
	fmt.Fprintf(&b, "| Orientation flipped | %t |\n", res.Flipped)
	fmt.Fprintf(&b, "| Total generations | %d |\n", res.Iterations)
	fmt.Fprintf(&b, "| Stop reasons | %s |\n", res.Stops)
	fmt.Fprintf(&b, "| Wall time | %.1fs |\n\n", res.MeasuredSeconds)

	if len(res.DiscardCount) > 0 || len(res.IterationCount) > 0 {
		b.WriteString("## Per-chain search\n\n")
		b.WriteString("| Chain | Generations | Discards |\n|---|---|---|\n")
		for slot := 0; slot < res.Params.K; slot++ {
			fmt.Fprintf(&b, "| %d | %d | %d |\n", slot, res.IterationCount[slot], res.DiscardCount[slot])
		}
		b.WriteString("\n")
	}

	if len(res.CrossCorrelation) > 0 {
		b.WriteString("## Cross-model chain correlation\n\n")
		b.WriteString("Learned chain (row) vs true chain (column), Pearson r.\n\n")
		for _, row := range res.CrossCorrelation {
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = fmt.Sprintf("%.3f", v)
			}
			fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderReportHTML renders the markdown report to HTML.
func RenderReportHTML(res *models.ExperimentResult) []byte {
	md := []byte(RenderReportMarkdown(res))
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.ToHTML(md, p, renderer)
}
