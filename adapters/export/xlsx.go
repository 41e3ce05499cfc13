package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"gopuf/internal/errors"
	"gopuf/models"
)

const (
	summarySheet = "Summary"
	runsSheet    = "Runs"
)

// WriteStudyWorkbook writes a two-sheet workbook: the study summary and one
// row per run.
func WriteStudyWorkbook(path string, summary *models.StudySummary, results []models.ExperimentResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(runsSheet); err != nil {
		return errors.ExportError("create runs sheet", err)
	}

	summaryRows := [][]interface{}{
		{"Study", summary.Name},
		{"Runs", summary.Runs},
		{"Mean accuracy", summary.MeanAccuracy},
		{"Std accuracy", summary.StdAccuracy},
		{"Best accuracy", summary.BestAccuracy},
		{"Success rate", summary.SuccessRate},
		{"Total seconds", summary.TotalSeconds},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return errors.ExportError("write summary row", err)
		}
	}

	header := []interface{}{
		"ID", "n", "k", "Noisiness", "Challenges", "Reps",
		"Accuracy", "Training accuracy", "Flipped", "Iterations", "Stops", "Seconds",
	}
	if err := f.SetSheetRow(runsSheet, "A1", &header); err != nil {
		return errors.ExportError("write runs header", err)
	}
	for i, r := range results {
		row := []interface{}{
			r.ID.String(), r.Params.N, r.Params.K, r.Params.Noisiness,
			r.Params.Num, r.Params.Reps,
			r.Accuracy, r.TrainingAccuracy, r.Flipped, r.Iterations, r.Stops,
			r.MeasuredSeconds,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(runsSheet, cell, &row); err != nil {
			return errors.ExportError("write run row", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.ExportError("save workbook", err)
	}
	return nil
}
