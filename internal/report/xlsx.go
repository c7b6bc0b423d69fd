package report

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Bahjat/site-audit/internal/model"
	"github.com/Bahjat/site-audit/internal/score"
)

const (
	summarySheet = "Summary"
	issuesSheet  = "Issues"
)

// WriteXLSX writes a workbook with a Summary sheet of scores and an Issues
// sheet listing every issue, most severe first within each category.
func WriteXLSX(w io.Writer, a *model.AuditRequest) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(issuesSheet); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	rows := [][]any{
		{"URL", a.URL},
		{"Audit ID", a.ID},
		{"Status", string(a.Status)},
	}
	if a.ErrorMessage != "" {
		rows = append(rows, []any{"Error", a.ErrorMessage})
	}
	rows = append(rows, []any{}, []any{"Category", "Score", "Rating", "Issues"})
	header := len(rows)
	if a.Scores != nil {
		for _, c := range model.Categories {
			v := a.Scores.Get(c)
			rows = append(rows, []any{categoryTitles[c], v, score.Rating(v), len(a.Results[c].Issues)})
		}
		rows = append(rows, []any{"Overall", a.Scores.Overall, score.Rating(a.Scores.Overall)})
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", cellName(1, header-1), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, cellName(1, header), cellName(4, header), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 48); err != nil {
		return err
	}

	issues := [][]any{{"Category", "Severity", "Description", "Selector", "Help"}}
	for _, c := range model.Categories {
		for _, is := range sortedIssues(a.Results[c].Issues) {
			issues = append(issues, []any{string(c), string(is.Severity), is.Description, is.Location.Selector, is.Help})
		}
	}
	if err := writeRows(f, issuesSheet, issues); err != nil {
		return err
	}
	if err := f.SetCellStyle(issuesSheet, "A1", "E1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(issuesSheet, "C", "C", 70); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheet, cellName(1, i+1), &row); err != nil {
			return err
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
