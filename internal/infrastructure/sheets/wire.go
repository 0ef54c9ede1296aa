package sheets

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// envelope is the body of every Apps Script response
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// flexFloat accepts a JSON number, a numeric string, "" or null. Anything
// that does not parse becomes 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	*f = flexFloat(parseLooseFloat(b))
	return nil
}

func parseLooseFloat(b []byte) float64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 0
		}
	}
	return leadingFloat(s)
}

// leadingFloat parses the longest numeric prefix of s, like parseFloat
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	end := 0
	seenDigit, seenDot, seenExp := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '+' || c == '-') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenExp:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenExp:
			seenExp = true
		default:
			i = len(s)
		}
	}
	if !seenDigit {
		return 0
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// flexTime accepts an ISO string, epoch milliseconds, "" or null. The zero
// time means absent or unparsable.
type flexTime time.Time

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"1/2/2006 15:04:05",
	"1/2/2006",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	*t = flexTime(parseLooseTime(b))
	return nil
}

func parseLooseTime(b []byte) time.Time {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return time.Time{}
	}
	if b[0] != '"' {
		ms, err := strconv.ParseInt(string(b), 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms).UTC()
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return time.Time{}
	}
	return parseTimeString(s)
}

func parseTimeString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// flexString accepts a JSON string, number, bool or null
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		*s = flexString(b)
	}
	return nil
}

type wireDimensions struct {
	Length flexFloat `json:"length"`
	Width  flexFloat `json:"width"`
	Area   flexFloat `json:"area"`
}

type wirePurchaser struct {
	Name             flexString `json:"name"`
	Mobile           flexString `json:"mobile"`
	Email            flexString `json:"email"`
	Address          flexString `json:"address"`
	RegistrationDate flexTime   `json:"registrationDate"`
}

type wirePayment struct {
	ID            flexString `json:"id"`
	Amount        flexFloat  `json:"amount"`
	Date          flexTime   `json:"date"`
	Mode          flexString `json:"mode"`
	Reference     flexString `json:"reference"`
	Remarks       flexString `json:"remarks"`
	Description   flexString `json:"description"`
	ReceiptNumber flexString `json:"receiptNumber"`
	PlotNumber    flexString `json:"plotNumber"`
	SurveyNumber  flexString `json:"surveyNumber"`
	CustomerName  flexString `json:"customerName"`
}

// wirePlot is a plot as returned by getAllPlots
type wirePlot struct {
	ID             flexString      `json:"id"`
	SurveyNumber   flexString      `json:"surveyNumber"`
	PlotNumber     flexString      `json:"plotNumber"`
	Dimensions     *wireDimensions `json:"dimensions"`
	Status         flexString      `json:"status"`
	Owner          flexString      `json:"owner"`
	RatePerSqMeter flexFloat       `json:"ratePerSqMeter"`
	TotalCost      flexFloat       `json:"totalCost"`
	GovernmentRate flexFloat       `json:"governmentRate"`
	CreatedAt      flexTime        `json:"createdAt"`
	UpdatedAt      flexTime        `json:"updatedAt"`
	Purchaser      *wirePurchaser  `json:"purchaser"`
	Payments       []wirePayment   `json:"payments"`
}

func orTime(t flexTime, now time.Time) time.Time {
	if time.Time(t).IsZero() {
		return now
	}
	return time.Time(t)
}

func money(f flexFloat) decimal.Decimal {
	return decimal.NewFromFloat(float64(f))
}

// toDomain applies the defaults for missing fields
func (w wirePlot) toDomain(now time.Time) *plot.Plot {
	survey := plot.SurveyNumber(w.SurveyNumber)
	if survey == "" {
		survey = plot.Survey1521
	}
	plotNumber := string(w.PlotNumber)
	if plotNumber == "" {
		plotNumber = "1"
	}
	id := string(w.ID)
	if id == "" {
		id = plot.NewPlotID(survey, plotNumber, now)
	}
	status := plot.Status(w.Status)
	if status == "" {
		status = plot.StatusAvailable
	}
	owner := plot.Owner(w.Owner)
	if owner == "" {
		owner = plot.OwnerJoint
	}

	p := &plot.Plot{
		ID:             id,
		SurveyNumber:   survey,
		PlotNumber:     plotNumber,
		Status:         status,
		Owner:          owner,
		RatePerSqMeter: money(w.RatePerSqMeter),
		TotalCost:      money(w.TotalCost),
		GovernmentRate: money(w.GovernmentRate),
		CreatedAt:      orTime(w.CreatedAt, now),
		UpdatedAt:      orTime(w.UpdatedAt, now),
		Payments:       make([]plot.Payment, 0, len(w.Payments)),
	}
	if w.Dimensions != nil {
		p.Dimensions = plot.Dimensions{
			Length: float64(w.Dimensions.Length),
			Width:  float64(w.Dimensions.Width),
			Area:   float64(w.Dimensions.Area),
		}
	}
	if w.Purchaser != nil {
		p.Purchaser = &plot.Purchaser{
			Name:             string(w.Purchaser.Name),
			Mobile:           string(w.Purchaser.Mobile),
			Email:            string(w.Purchaser.Email),
			Address:          string(w.Purchaser.Address),
			RegistrationDate: orTime(w.Purchaser.RegistrationDate, now),
		}
	}
	for _, wp := range w.Payments {
		p.Payments = append(p.Payments, plot.Payment{
			ID:            string(wp.ID),
			Amount:        money(wp.Amount),
			Date:          orTime(wp.Date, now),
			Mode:          plot.PaymentMode(wp.Mode),
			Reference:     string(wp.Reference),
			Remarks:       string(wp.Remarks),
			Description:   string(wp.Description),
			ReceiptNumber: string(wp.ReceiptNumber),
			PlotNumber:    string(wp.PlotNumber),
			SurveyNumber:  string(wp.SurveyNumber),
			CustomerName:  string(wp.CustomerName),
		})
	}
	return p
}

// outgoing payloads use plain JSON numbers for money

type outDimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Area   float64 `json:"area"`
}

type outPurchaser struct {
	Name             string `json:"name"`
	Mobile           string `json:"mobile"`
	Email            string `json:"email"`
	Address          string `json:"address"`
	RegistrationDate string `json:"registrationDate"`
}

type outPayment struct {
	ID            string  `json:"id"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date"`
	Mode          string  `json:"mode"`
	Reference     string  `json:"reference,omitempty"`
	Remarks       string  `json:"remarks,omitempty"`
	Description   string  `json:"description"`
	ReceiptNumber string  `json:"receiptNumber"`
	PlotNumber    string  `json:"plotNumber"`
	SurveyNumber  string  `json:"surveyNumber"`
	CustomerName  string  `json:"customerName"`
}

type outPlot struct {
	ID             string        `json:"id"`
	PlotNumber     string        `json:"plotNumber"`
	Status         string        `json:"status"`
	Dimensions     outDimensions `json:"dimensions"`
	TotalCost      float64       `json:"totalCost"`
	SurveyNumber   string        `json:"surveyNumber"`
	Owner          string        `json:"owner"`
	RatePerSqMeter float64       `json:"ratePerSqMeter"`
	GovernmentRate float64       `json:"governmentRate"`
	CreatedAt      string        `json:"createdAt"`
	UpdatedAt      string        `json:"updatedAt"`
	Payments       []outPayment  `json:"payments"`
	Purchaser      *outPurchaser `json:"purchaser"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(isoMillis)
}

func toOutPurchaser(p *plot.Purchaser) *outPurchaser {
	if p == nil {
		return nil
	}
	return &outPurchaser{
		Name:             p.Name,
		Mobile:           p.Mobile,
		Email:            p.Email,
		Address:          p.Address,
		RegistrationDate: isoTime(p.RegistrationDate),
	}
}

func toOutPayment(pm plot.Payment) outPayment {
	return outPayment{
		ID:            pm.ID,
		Amount:        pm.Amount.InexactFloat64(),
		Date:          isoTime(pm.Date),
		Mode:          string(pm.Mode),
		Reference:     pm.Reference,
		Remarks:       pm.Remarks,
		Description:   pm.Description,
		ReceiptNumber: pm.ReceiptNumber,
		PlotNumber:    pm.PlotNumber,
		SurveyNumber:  pm.SurveyNumber,
		CustomerName:  pm.CustomerName,
	}
}

func toOutPlot(p *plot.Plot) outPlot {
	out := outPlot{
		ID:         p.ID,
		PlotNumber: p.PlotNumber,
		Status:     string(p.Status),
		Dimensions: outDimensions{
			Length: p.Dimensions.Length,
			Width:  p.Dimensions.Width,
			Area:   p.Dimensions.Area,
		},
		TotalCost:      p.TotalCost.InexactFloat64(),
		SurveyNumber:   string(p.SurveyNumber),
		Owner:          string(p.Owner),
		RatePerSqMeter: p.RatePerSqMeter.InexactFloat64(),
		GovernmentRate: p.GovernmentRate.InexactFloat64(),
		CreatedAt:      isoTime(p.CreatedAt),
		UpdatedAt:      isoTime(p.UpdatedAt),
		Payments:       make([]outPayment, len(p.Payments)),
		Purchaser:      toOutPurchaser(p.Purchaser),
	}
	for i, pm := range p.Payments {
		out.Payments[i] = toOutPayment(pm)
	}
	return out
}
