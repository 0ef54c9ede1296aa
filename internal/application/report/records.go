package report

import (
	"io"

	"github.com/landplots/backend/internal/application/export"
)

// Field is one named value of a record
type Field struct {
	Key   string
	Value any
}

// Record is an ordered list of fields
type Record []Field

// Get returns the value stored under key, or nil
func (r Record) Get(key string) any {
	for _, f := range r {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// recordTable uses the keys of the first record as headers
func recordTable(records []Record, sheet string) export.Table {
	headers := make([]string, len(records[0]))
	for i, f := range records[0] {
		headers[i] = f.Key
	}
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(headers))
		for j, h := range headers {
			row[j] = r.Get(h)
		}
		rows[i] = row
	}
	return export.Table{Sheet: sheet, Headers: headers, Rows: rows}
}

// ExportCSV renders records with string values quoted and other values
// bare. No records gives an empty string.
func (s *ReportsService) ExportCSV(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	return recordTable(records, "").CSVQuoteStrings()
}

// ExportXLSX writes records as a workbook. No records gives an empty sheet.
func (s *ReportsService) ExportXLSX(records []Record, sheet string, w io.Writer) error {
	if len(records) == 0 {
		return export.Table{Sheet: sheet}.WriteXLSX(w)
	}
	return recordTable(records, sheet).WriteXLSX(w)
}

// OverviewRecords lists the headline analytics as metric/value rows
func OverviewRecords(a SalesAnalytics) []Record {
	return []Record{
		{{"metric", "Total Plots"}, {"value", a.TotalPlots}},
		{{"metric", "Sold Plots"}, {"value", a.SoldPlots}},
		{{"metric", "Available Plots"}, {"value", a.AvailablePlots}},
		{{"metric", "Pre-booked Plots"}, {"value", a.PreBookedPlots}},
		{{"metric", "Total Revenue (₹)"}, {"value", a.TotalRevenue}},
		{{"metric", "Average Rate (₹/sq m)"}, {"value", a.AverageRate.Round(0)}},
	}
}

// SurveyRecords lists the per-survey breakdown, one row per survey
func SurveyRecords(a SalesAnalytics) []Record {
	out := make([]Record, 0, len(a.SurveyBreakdown))
	for _, s := range a.SurveyBreakdown {
		out = append(out, Record{
			{"surveyNumber", string(s.SurveyNumber)},
			{"totalPlots", s.TotalPlots},
			{"soldPlots", s.SoldPlots},
			{"availablePlots", s.AvailablePlots},
			{"preBookedPlots", s.PreBookedPlots},
			{"totalRevenue", s.TotalRevenue},
			{"averageRate", s.AverageRate},
		})
	}
	return out
}

// TrendRecords lists year-over-year trends
func TrendRecords(trends []YearTrend) []Record {
	out := make([]Record, 0, len(trends))
	for _, t := range trends {
		out = append(out, Record{{"year", t.Year}, {"averageRate", t.AverageRate}})
	}
	return out
}
