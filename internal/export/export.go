// Package export writes objectives and key results as spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
)

// Format is an export file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (want xlsx or csv)", okr.ErrInvalid, s)
	}
}

// FileName returns the default file name for an export taken at now.
func FileName(f Format, now time.Time) string {
	return "okr-export-" + now.UTC().Format("20060102") + "." + string(f)
}

// Sheet names in XLSX exports.
const (
	SheetObjectives = "Objectives"
	SheetKeyResults = "Key Results"
	SheetCheckIns   = "Check-ins"
)

var (
	objectiveHeader = []string{"Objective ID", "Objective", "Quarter", "Owner", "Category", "Archived", "Progress %", "Key Results"}
	keyResultHeader = []string{
		"Objective", "Key Result ID", "Key Result", "Owner", "Category", "Type", "Unit",
		"Direction", "Start", "Current", "Target", "Progress %", "Frequency", "Status", "Archived",
	}
	checkInHeader = []string{"Objective", "Key Result", "Date", "Value", "Rating", "Status", "Report"}
)

// Write exports views in the given format.
func Write(w io.Writer, f Format, views []service.ObjectiveView) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, views)
	case FormatCSV:
		return WriteCSV(w, views)
	default:
		return fmt.Errorf("%w: unknown export format %q", okr.ErrInvalid, f)
	}
}

// WriteCSV writes one row per key result, prefixed by the header row.
func WriteCSV(w io.Writer, views []service.ObjectiveView) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(keyResultHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, o := range views {
		for _, kr := range o.KeyResults {
			if err := cw.Write(stringify(keyResultRow(o, kr))); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with objective, key result and check-in sheets.
func WriteXLSX(w io.Writer, views []service.ObjectiveView) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetObjectives); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetKeyResults, SheetCheckIns} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	var objectives, keyResults, checkIns [][]any
	for _, o := range views {
		objectives = append(objectives, []any{
			o.ID, o.Title, o.Quarter, o.OwnerID, string(o.Category), o.IsArchived, round(o.Progress), len(o.KeyResults),
		})
		for _, kr := range o.KeyResults {
			keyResults = append(keyResults, keyResultRow(o, kr))
			for _, c := range okr.SortCheckIns(kr.CheckIns) {
				checkIns = append(checkIns, []any{
					o.Title, kr.Title, c.Date.UTC().Format(time.DateOnly), c.Value, c.Rating, string(c.Status), c.Report.String(),
				})
			}
		}
	}

	sheets := []struct {
		name   string
		header []string
		rows   [][]any
	}{
		{SheetObjectives, objectiveHeader, objectives},
		{SheetKeyResults, keyResultHeader, keyResults},
		{SheetCheckIns, checkInHeader, checkIns},
	}
	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.header, s.rows, bold); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}

func keyResultRow(o service.ObjectiveView, kr service.KeyResultView) []any {
	return []any{
		o.Title,
		kr.ID,
		kr.Title,
		kr.OwnerID,
		string(kr.Category),
		string(kr.Type),
		kr.Unit,
		string(kr.Direction()),
		kr.StartValue,
		kr.CurrentValue,
		kr.Target(),
		round(kr.Progress),
		string(kr.ReportFrequency),
		string(kr.Status),
		kr.IsArchived,
	}
}

func stringify(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		switch v := v.(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[i] = strconv.FormatBool(v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func round(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
