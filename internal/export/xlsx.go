// Package export renders lead listings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/leadflow/leadflow/pkg/model"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Leads"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	timeLayout  = "2006-01-02 15:04"
)

type column struct {
	header string
	width  float64
	value  func(l *model.Lead, loc *time.Location) any
}

var columns = []column{
	{"First Name", 16, func(l *model.Lead, _ *time.Location) any { return l.FirstName }},
	{"Last Name", 16, func(l *model.Lead, _ *time.Location) any { return l.LastName }},
	{"Email", 30, func(l *model.Lead, _ *time.Location) any { return l.Email }},
	{"Phone", 16, func(l *model.Lead, _ *time.Location) any { return l.Phone }},
	{"Company", 22, func(l *model.Lead, _ *time.Location) any { return l.Company }},
	{"City", 16, func(l *model.Lead, _ *time.Location) any { return l.City }},
	{"State", 8, func(l *model.Lead, _ *time.Location) any { return l.State }},
	{"Source", 14, func(l *model.Lead, _ *time.Location) any { return string(l.Source) }},
	{"Status", 12, func(l *model.Lead, _ *time.Location) any { return string(l.Status) }},
	{"Score", 8, func(l *model.Lead, _ *time.Location) any { return l.Score }},
	{"Lead Value", 12, func(l *model.Lead, _ *time.Location) any { return l.LeadValue }},
	{"Last Activity", 18, func(l *model.Lead, loc *time.Location) any {
		if l.LastActivityAt == nil {
			return ""
		}
		return l.LastActivityAt.In(loc).Format(timeLayout)
	}},
	{"Qualified", 10, func(l *model.Lead, _ *time.Location) any {
		if l.IsQualified {
			return "Yes"
		}
		return "No"
	}},
	{"Created At", 18, func(l *model.Lead, loc *time.Location) any { return l.CreatedAt.In(loc).Format(timeLayout) }},
}

// Headers returns the column headers in sheet order.
func Headers() []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.header
	}
	return out
}

// FileName is the attachment name for an export taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("leads-%s.xlsx", now.Format("20060102-150405"))
}

// WriteLeads writes leads as a single-sheet workbook with a frozen header row.
// Times are rendered in loc.
func WriteLeads(w io.Writer, leads []*model.Lead, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}

	for i, c := range columns {
		if err := sw.SetColWidth(i+1, i+1, c.width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: c.header}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]any, len(columns))
	for i, l := range leads {
		for j, c := range columns {
			row[j] = c.value(l, loc)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
