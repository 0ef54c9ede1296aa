package plot

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// =============================================================================
// Requests
// =============================================================================

// DimensionsRequest carries plot dimensions in metres
type DimensionsRequest struct {
	Length float64 `json:"length" binding:"gte=0"`
	Width  float64 `json:"width" binding:"gte=0"`
}

// PurchaserRequest carries purchaser details
type PurchaserRequest struct {
	Name             string    `json:"name" binding:"required,max=200"`
	Mobile           string    `json:"mobile" binding:"max=20"`
	Email            string    `json:"email" binding:"omitempty,email,max=200"`
	Address          string    `json:"address" binding:"max=500"`
	RegistrationDate time.Time `json:"registration_date"`
}

// CreatePlotRequest represents a request to add a plot by hand
type CreatePlotRequest struct {
	SurveyNumber   string            `json:"survey_number" binding:"max=20"`
	PlotNumber     string            `json:"plot_number" binding:"required,min=1,max=50"`
	Dimensions     DimensionsRequest `json:"dimensions"`
	Status         string            `json:"status" binding:"max=20"`
	Owner          string            `json:"owner" binding:"max=20"`
	RatePerSqMeter decimal.Decimal   `json:"rate_per_sq_meter"`
	TotalCost      decimal.Decimal   `json:"total_cost"`
	GovernmentRate decimal.Decimal   `json:"government_rate"`
	Purchaser      *PurchaserRequest `json:"purchaser"`
}

// UpdatePlotRequest replaces the editable fields of a plot. Omitted fields
// keep their current value.
type UpdatePlotRequest struct {
	Dimensions     *DimensionsRequest `json:"dimensions"`
	Status         *string            `json:"status" binding:"omitempty,max=20"`
	Owner          *string            `json:"owner" binding:"omitempty,max=20"`
	RatePerSqMeter *decimal.Decimal   `json:"rate_per_sq_meter"`
	TotalCost      *decimal.Decimal   `json:"total_cost"`
	GovernmentRate *decimal.Decimal   `json:"government_rate"`
	Purchaser      *PurchaserRequest  `json:"purchaser"`
	ClearPurchaser bool               `json:"clear_purchaser"`
}

// UpdateStatusRequest changes the status of a plot. Status is matched
// case-insensitively.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,max=20"`
}

// ToStatus parses the requested status
func (r UpdateStatusRequest) ToStatus() (plot.Status, error) {
	return plot.ParseStatus(r.Status)
}

// RegenerateRequest controls the regeneration of the plot list
type RegenerateRequest struct {
	IncludeSampleData bool `json:"include_sample_data"`
	SyncToSheets      bool `json:"sync_to_sheets"`
}

// ListFilter represents query filters for the plot list
type ListFilter struct {
	Survey   string `form:"survey" binding:"omitempty,oneof=152/1 152/2 152/3"`
	Status   string `form:"status" binding:"omitempty,oneof=AVAILABLE PRE_BOOKED SOLD"`
	Query    string `form:"q"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// ToInput converts the request into service input. Blank survey, status and
// owner are left for the service defaults; the rest are parsed
// case-insensitively.
func (r CreatePlotRequest) ToInput() (NewPlotInput, error) {
	in := NewPlotInput{
		PlotNumber:     r.PlotNumber,
		Dimensions:     plot.NewDimensions(r.Dimensions.Length, r.Dimensions.Width),
		RatePerSqMeter: r.RatePerSqMeter,
		TotalCost:      r.TotalCost,
		GovernmentRate: r.GovernmentRate,
	}
	var err error
	if strings.TrimSpace(r.SurveyNumber) != "" {
		if in.SurveyNumber, err = plot.ParseSurvey(r.SurveyNumber); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(r.Status) != "" {
		if in.Status, err = plot.ParseStatus(r.Status); err != nil {
			return in, err
		}
	}
	if strings.TrimSpace(r.Owner) != "" {
		if in.Owner, err = plot.ParseOwner(r.Owner); err != nil {
			return in, err
		}
	}
	if r.Purchaser != nil {
		in.Purchaser = r.Purchaser.toDomain()
	}
	return in, nil
}

// Apply copies the set fields onto p. p is left untouched when a field
// does not parse.
func (r UpdatePlotRequest) Apply(p *plot.Plot) error {
	status, owner := p.Status, p.Owner
	var err error
	if r.Status != nil {
		if status, err = plot.ParseStatus(*r.Status); err != nil {
			return err
		}
	}
	if r.Owner != nil {
		if owner, err = plot.ParseOwner(*r.Owner); err != nil {
			return err
		}
	}
	p.Status, p.Owner = status, owner
	if r.Dimensions != nil {
		p.Dimensions = plot.NewDimensions(r.Dimensions.Length, r.Dimensions.Width)
	}
	if r.RatePerSqMeter != nil {
		p.RatePerSqMeter = *r.RatePerSqMeter
	}
	if r.TotalCost != nil {
		p.TotalCost = *r.TotalCost
	}
	if r.GovernmentRate != nil {
		p.GovernmentRate = *r.GovernmentRate
	}
	if r.ClearPurchaser {
		p.Purchaser = nil
	} else if r.Purchaser != nil {
		p.Purchaser = r.Purchaser.toDomain()
	}
	return nil
}

func (r *PurchaserRequest) toDomain() *plot.Purchaser {
	return &plot.Purchaser{
		Name:             r.Name,
		Mobile:           r.Mobile,
		Email:            r.Email,
		Address:          r.Address,
		RegistrationDate: r.RegistrationDate,
	}
}

// =============================================================================
// Responses
// =============================================================================

// PurchaserResponse represents a purchaser in API responses
type PurchaserResponse struct {
	Name             string    `json:"name"`
	Mobile           string    `json:"mobile"`
	Email            string    `json:"email"`
	Address          string    `json:"address"`
	RegistrationDate time.Time `json:"registration_date"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID            string          `json:"id"`
	PlotID        string          `json:"plot_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Mode          string          `json:"mode"`
	ModeLabel     string          `json:"mode_label"`
	Date          time.Time       `json:"date"`
	Reference     string          `json:"reference,omitempty"`
	Remarks       string          `json:"remarks,omitempty"`
	Description   string          `json:"description,omitempty"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	PlotNumber    string          `json:"plot_number,omitempty"`
	SurveyNumber  string          `json:"survey_number,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
}

// PlotResponse represents a plot in API responses
type PlotResponse struct {
	ID             string             `json:"id"`
	SurveyNumber   string             `json:"survey_number"`
	PlotNumber     string             `json:"plot_number"`
	Length         float64            `json:"length"`
	Width          float64            `json:"width"`
	Area           float64            `json:"area"`
	Status         string             `json:"status"`
	Owner          string             `json:"owner"`
	RatePerSqMeter decimal.Decimal    `json:"rate_per_sq_meter"`
	TotalCost      decimal.Decimal    `json:"total_cost"`
	GovernmentRate decimal.Decimal    `json:"government_rate"`
	TotalPaid      decimal.Decimal    `json:"total_paid"`
	PendingAmount  decimal.Decimal    `json:"pending_amount"`
	Purchaser      *PurchaserResponse `json:"purchaser,omitempty"`
	Payments       []PaymentResponse  `json:"payments"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ToPlotResponse converts a domain plot
func ToPlotResponse(p *plot.Plot) PlotResponse {
	resp := PlotResponse{
		ID:             p.ID,
		SurveyNumber:   string(p.SurveyNumber),
		PlotNumber:     p.PlotNumber,
		Length:         p.Dimensions.Length,
		Width:          p.Dimensions.Width,
		Area:           p.Dimensions.Area,
		Status:         string(p.Status),
		Owner:          string(p.Owner),
		RatePerSqMeter: p.RatePerSqMeter,
		TotalCost:      p.TotalCost,
		GovernmentRate: p.GovernmentRate,
		TotalPaid:      p.TotalPaid(),
		PendingAmount:  p.PendingAmount(),
		Payments:       ToPaymentResponses(p.Payments, ""),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.Purchaser != nil {
		resp.Purchaser = &PurchaserResponse{
			Name:             p.Purchaser.Name,
			Mobile:           p.Purchaser.Mobile,
			Email:            p.Purchaser.Email,
			Address:          p.Purchaser.Address,
			RegistrationDate: p.Purchaser.RegistrationDate,
		}
	}
	return resp
}

// ToPlotResponses converts a list of plots
func ToPlotResponses(plots []*plot.Plot) []PlotResponse {
	out := make([]PlotResponse, len(plots))
	for i, p := range plots {
		out[i] = ToPlotResponse(p)
	}
	return out
}

// ToPaymentResponse converts a domain payment
func ToPaymentResponse(pm plot.Payment, plotID string) PaymentResponse {
	return PaymentResponse{
		ID:            pm.ID,
		PlotID:        plotID,
		Amount:        pm.Amount,
		Mode:          string(pm.Mode),
		ModeLabel:     plot.FormatPaymentMode(pm.Mode),
		Date:          pm.Date,
		Reference:     pm.Reference,
		Remarks:       pm.Remarks,
		Description:   pm.Description,
		ReceiptNumber: pm.ReceiptNumber,
		PlotNumber:    pm.PlotNumber,
		SurveyNumber:  pm.SurveyNumber,
		CustomerName:  pm.CustomerName,
	}
}

// ToPaymentResponses converts a list of payments
func ToPaymentResponses(payments []plot.Payment, plotID string) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, pm := range payments {
		out[i] = ToPaymentResponse(pm, plotID)
	}
	return out
}
