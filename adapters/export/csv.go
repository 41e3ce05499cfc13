// Package export writes experiment results to the file formats the study
// tooling consumes: a flat CSV log and an aggregated XLSX workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopuf/internal/errors"
	"gopuf/models"
)

var csvHeader = []string{
	"id", "n", "k", "noisiness", "num", "reps", "pop_size",
	"accuracy", "training_accuracy", "flipped", "iterations", "stops",
	"measured_seconds", "created_at",
}

// WriteResultsCSV writes one row per experiment result.
func WriteResultsCSV(path string, results []models.ExperimentResult) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.ExportError("create csv file", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.ExportError("write csv header", err)
	}
	for _, r := range results {
		row := []string{
			r.ID.String(),
			strconv.Itoa(r.Params.N),
			strconv.Itoa(r.Params.K),
			formatFloat(r.Params.Noisiness),
			strconv.Itoa(r.Params.Num),
			strconv.Itoa(r.Params.Reps),
			strconv.Itoa(r.Params.PopSize),
			formatFloat(r.Accuracy),
			formatFloat(r.TrainingAccuracy),
			strconv.FormatBool(r.Flipped),
			strconv.Itoa(r.Iterations),
			r.Stops,
			formatFloat(r.MeasuredSeconds),
			r.CreatedAt.Time().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return errors.ExportError("write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.ExportError("flush csv", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
