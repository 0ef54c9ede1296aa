package plot

import (
	"io"
	"time"

	"github.com/landplots/backend/internal/application/export"
	"github.com/landplots/backend/internal/domain/plot"
)

// PlotExportHeaders match the column order of the Plots sheet
var PlotExportHeaders = []string{
	"ID", "Survey Number", "Plot Number", "Length", "Width", "Area", "Status",
	"Owner", "Rate Per SqM", "Total Cost", "Government Rate", "Created At", "Updated At",
}

// PlotTable builds the export table for plots in sync order
func PlotTable(plots []*plot.Plot, now time.Time) export.Table {
	sorted := plot.SortForSync(plots)
	rows := make([][]any, 0, len(sorted))
	for _, p := range sorted {
		var govRate any = ""
		if !p.GovernmentRate.IsZero() {
			govRate = p.GovernmentRate
		}
		rows = append(rows, []any{
			p.ID,
			string(p.SurveyNumber),
			p.PlotNumber,
			p.Dimensions.Length,
			p.Dimensions.Width,
			p.Dimensions.Area,
			string(p.Status),
			string(p.Owner),
			p.RatePerSqMeter,
			p.TotalCost,
			govRate,
			orNow(p.CreatedAt, now),
			orNow(p.UpdatedAt, now),
		})
	}
	return export.Table{Sheet: "Plots", Headers: PlotExportHeaders, Rows: rows}
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

// Table returns all plots as an export table
func (s *PlotService) Table() export.Table {
	return PlotTable(s.AllPlots(), s.now())
}

// ExportCSV renders all plots as CSV with every field quoted
func (s *PlotService) ExportCSV() string {
	plots := s.AllPlots()
	if len(plots) == 0 {
		s.logger.Warn("No plots to export")
		return PlotTable(nil, s.now()).CSVAllQuoted() + "\n"
	}
	return PlotTable(plots, s.now()).CSVAllQuoted()
}

// ExportXLSX writes all plots as a workbook
func (s *PlotService) ExportXLSX(w io.Writer) error {
	return s.Table().WriteXLSX(w)
}
