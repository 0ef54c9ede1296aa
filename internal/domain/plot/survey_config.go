package plot

// PlotTypeConfig describes one block of identically sized plots in a survey
type PlotTypeConfig struct {
	Dimensions string  `json:"dimensions"`
	Count      int     `json:"count"`
	Length     float64 `json:"length"`
	Width      float64 `json:"width"`
}

// SurveyConfig is the published layout of a survey
type SurveyConfig struct {
	SurveyNumber SurveyNumber     `json:"surveyNumber"`
	Owner        string           `json:"owner"`
	TotalPlots   int              `json:"totalPlots"`
	TotalArea    float64          `json:"totalArea"`
	PlotTypes    []PlotTypeConfig `json:"plotTypes"`
}

// SurveyConfigs is the layout of the three surveys. Odd sizes are listed
// with their average width.
var SurveyConfigs = []SurveyConfig{
	{
		SurveyNumber: Survey1521,
		Owner:        "Bapurao",
		TotalPlots:   67,
		TotalArea:    14771,
		PlotTypes: []PlotTypeConfig{
			{Dimensions: "9x15", Count: 4, Length: 9, Width: 15},
			{Dimensions: "9x12", Count: 50, Length: 9, Width: 12},
			{Dimensions: "9xodd", Count: 13, Length: 9, Width: 10},
		},
	},
	{
		SurveyNumber: Survey1522,
		Owner:        "Narayanrao",
		TotalPlots:   57,
		TotalArea:    14771,
		PlotTypes: []PlotTypeConfig{
			{Dimensions: "9x12", Count: 47, Length: 9, Width: 12},
			{Dimensions: "9xodd", Count: 10, Length: 9, Width: 10},
		},
	},
	{
		SurveyNumber: Survey1523,
		Owner:        "Shared",
		TotalPlots:   166,
		TotalArea:    36118,
		PlotTypes: []PlotTypeConfig{
			{Dimensions: "9x15", Count: 33, Length: 9, Width: 15},
			{Dimensions: "9x12", Count: 98, Length: 9, Width: 12},
			{Dimensions: "9xodd", Count: 14, Length: 9, Width: 10},
			{Dimensions: "oddxodd", Count: 21, Length: 10, Width: 10},
		},
	},
}

// SurveyConfigFor returns the layout of a survey
func SurveyConfigFor(s SurveyNumber) (SurveyConfig, bool) {
	for _, c := range SurveyConfigs {
		if c.SurveyNumber == s {
			return c, true
		}
	}
	return SurveyConfig{}, false
}
