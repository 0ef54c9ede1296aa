package plot

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSampleSales is how many plots GenerateSampleSold tries to sell
const DefaultSampleSales = 25

const (
	shapeOddWide = "9xodd"
	shapeOddBoth = "oddxodd"
)

type plotTemplate struct {
	survey SurveyNumber
	count  int
	length float64
	width  float64
	shape  string
}

var plotTemplates = []plotTemplate{
	{survey: Survey1521, count: 4, length: 9, width: 15},
	{survey: Survey1521, count: 50, length: 9, width: 12},
	{survey: Survey1521, count: 13, length: 9, shape: shapeOddWide},

	{survey: Survey1522, count: 47, length: 9, width: 12},
	{survey: Survey1522, count: 10, length: 9, shape: shapeOddWide},

	{survey: Survey1523, count: 33, length: 9, width: 15},
	{survey: Survey1523, count: 98, length: 9, width: 12},
	{survey: Survey1523, count: 14, length: 9, shape: shapeOddWide},
	{survey: Survey1523, count: 21, shape: shapeOddBoth},
}

var oddWidths = []float64{10, 11, 13, 14, 16, 18, 20}

var oddDimensions = [][2]float64{
	{10, 10}, {12, 10}, {15, 10}, {18, 12}, {20, 15},
	{25, 12}, {30, 10}, {8, 20}, {12, 18}, {15, 16},
}

var (
	sampleNames = []string{
		"Ramesh Kumar", "Suresh Patil", "Mahesh Sharma", "Dinesh Reddy", "Ganesh Rao",
		"Rajesh Singh", "Naresh Gupta", "Umesh Joshi", "Rakesh Verma", "Mukesh Agarwal",
		"Ashok Kumar", "Vinod Sharma", "Manoj Patil", "Anil Reddy", "Sunil Rao",
		"Ravi Kumar", "Sanjay Singh", "Vijay Gupta", "Ajay Joshi", "Prakash Verma",
		"Deepak Agarwal", "Rohit Kumar", "Amit Sharma", "Sumit Patil", "Nitin Reddy",
	}
	sampleMobiles = []string{
		"9876543210", "9765432109", "9654321098", "9543210987", "9432109876",
		"9321098765", "9210987654", "9109876543", "9098765432", "8987654321",
		"8876543210", "8765432109", "8654321098", "8543210987", "8432109876",
		"8321098765", "8210987654", "8109876543", "8098765432", "7987654321",
		"7876543210", "7765432109", "7654321098", "7543210987", "7432109876",
	}
)

var (
	governmentRateFactor = decimal.RequireFromString("0.6")
	advanceFactor        = decimal.RequireFromString("0.2")
)

// DefaultRate returns the market rate per square metre of a survey
func DefaultRate(s SurveyNumber) decimal.Decimal {
	switch s {
	case Survey1522:
		return decimal.NewFromInt(30000)
	case Survey1523:
		return decimal.NewFromInt(28000)
	default:
		return decimal.NewFromInt(27000)
	}
}

// DefaultOwner returns the title holder of a survey
func DefaultOwner(s SurveyNumber) Owner {
	switch s {
	case Survey1521:
		return OwnerBapurao
	case Survey1522:
		return OwnerNarayanrao
	default:
		return OwnerJoint
	}
}

// Generator builds the full plot inventory from the survey layouts
type Generator struct {
	now func() time.Time
	rnd *rand.Rand
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithClock sets the time source
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithRand sets the random source used for sample sales
func WithRand(rnd *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		g.rnd = rnd
	}
}

// NewGenerator creates a Generator
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		now: time.Now,
		rnd: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateAll produces all 290 plots, every one AVAILABLE
func (g *Generator) GenerateAll() []*Plot {
	plots := make([]*Plot, 0, 290)
	global := 1
	for _, t := range plotTemplates {
		for i := 0; i < t.count; i++ {
			plots = append(plots, g.generatePlot(t, global, i+1))
			global++
		}
	}
	return plots
}

func (g *Generator) generatePlot(t plotTemplate, globalID, index int) *Plot {
	dims := templateDimensions(t, index)
	rate := DefaultRate(t.survey)
	now := g.now()
	return &Plot{
		ID:             fmt.Sprintf("plot-%03d", globalID),
		SurveyNumber:   t.survey,
		PlotNumber:     fmt.Sprintf("%s-%03d", t.survey, index),
		Dimensions:     dims,
		Status:         StatusAvailable,
		Owner:          DefaultOwner(t.survey),
		RatePerSqMeter: rate,
		TotalCost:      decimal.NewFromFloat(dims.Area).Mul(rate),
		GovernmentRate: rate.Mul(governmentRateFactor),
		Payments:       []Payment{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func templateDimensions(t plotTemplate, index int) Dimensions {
	switch t.shape {
	case shapeOddWide:
		return NewDimensions(9, oddWidths[index%len(oddWidths)])
	case shapeOddBoth:
		d := oddDimensions[index%len(oddDimensions)]
		return NewDimensions(d[0], d[1])
	default:
		return NewDimensions(t.length, t.width)
	}
}

// SurveyBreakdown summarises the generated plots of one survey
type SurveyBreakdown struct {
	Count          int             `json:"count"`
	Dimensions     map[string]int  `json:"dimensions"`
	TotalArea      float64         `json:"total_area"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

// Summary counts plots per survey and size
type Summary struct {
	Total   int                               `json:"total"`
	Surveys map[SurveyNumber]*SurveyBreakdown `json:"surveys"`
}

// Summarize builds a Summary of plots
func Summarize(plots []*Plot) Summary {
	s := Summary{Total: len(plots), Surveys: make(map[SurveyNumber]*SurveyBreakdown)}
	for _, p := range plots {
		b, ok := s.Surveys[p.SurveyNumber]
		if !ok {
			b = &SurveyBreakdown{Dimensions: make(map[string]int), EstimatedValue: decimal.Zero}
			s.Surveys[p.SurveyNumber] = b
		}
		b.Count++
		b.TotalArea += p.Dimensions.Area
		b.EstimatedValue = b.EstimatedValue.Add(p.TotalCost)
		b.Dimensions[DimensionKey(p.Dimensions)]++
	}
	return s
}

// DimensionKey renders dimensions as "LxW"
func DimensionKey(d Dimensions) string {
	return strconv.FormatFloat(d.Length, 'f', -1, 64) + "x" + strconv.FormatFloat(d.Width, 'f', -1, 64)
}

// GenerateSampleSold marks up to n random AVAILABLE plots as sold with a
// sample purchaser and a 20% advance payment. Picks that land on a plot
// that is not AVAILABLE are skipped, so fewer than n sales may result.
// The plots are modified in place and the same slice is returned.
func (g *Generator) GenerateSampleSold(plots []*Plot, n int) []*Plot {
	if len(plots) == 0 {
		return plots
	}
	limit := n
	if limit > len(plots) {
		limit = len(plots)
	}
	for i := 0; i < limit; i++ {
		p := plots[g.rnd.IntN(len(plots))]
		if p.Status != StatusAvailable {
			continue
		}

		name := sampleNames[i%len(sampleNames)]
		registered := time.Date(2024, time.Month(g.rnd.IntN(12)+1), g.rnd.IntN(28)+1, 0, 0, 0, 0, time.UTC)

		p.Status = StatusSold
		p.Purchaser = &Purchaser{
			Name:             name,
			Mobile:           sampleMobiles[i%len(sampleMobiles)],
			Email:            strings.Replace(strings.ToLower(name), " ", ".", 1) + "@gmail.com",
			Address:          fmt.Sprintf("Address %d, Indira Krishna Layout", i+1),
			RegistrationDate: registered,
		}

		mode := PaymentModeBankTransfer
		if g.rnd.Float64() > 0.5 {
			mode = PaymentModeCash
		}
		p.Payments = []Payment{{
			ID:            fmt.Sprintf("payment-%s-001", p.ID),
			Amount:        p.TotalCost.Mul(advanceFactor).Floor(),
			Mode:          mode,
			Date:          registered,
			Description:   "Advance payment",
			ReceiptNumber: fmt.Sprintf("RCP-%d-%d", g.now().UnixMilli(), i+1),
		}}
	}
	return plots
}
