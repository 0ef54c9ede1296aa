package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/landplots/backend/internal/domain/plot"
)

// PlotModel is the persistence model for a plot row.
// Position keeps the order in which plots were loaded.
type PlotModel struct {
	ID             string          `gorm:"type:varchar(100);primaryKey"`
	Position       int             `gorm:"not null;default:0;index"`
	SurveyNumber   string          `gorm:"type:varchar(20);not null;index"`
	PlotNumber     string          `gorm:"type:varchar(50);not null"`
	Length         float64         `gorm:"not null;default:0"`
	Width          float64         `gorm:"not null;default:0"`
	Area           float64         `gorm:"not null;default:0"`
	Status         string          `gorm:"type:varchar(20);not null;default:'AVAILABLE';index"`
	Owner          string          `gorm:"type:varchar(20);not null;default:'JOINT'"`
	RatePerSqMeter decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TotalCost      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	GovernmentRate decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PlotModel) TableName() string {
	return "plots"
}

// PaymentModel is one payment row, keyed by plot and Seq, the position of
// the payment on its plot. Sheet rows may repeat or omit payment ids, so ID
// is not unique.
type PaymentModel struct {
	PlotID        string          `gorm:"type:varchar(100);primaryKey;autoIncrement:false"`
	Seq           int             `gorm:"primaryKey;autoIncrement:false"`
	ID            string          `gorm:"type:varchar(100);not null;default:'';index:idx_plot_payments_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Mode          string          `gorm:"type:varchar(20);not null"`
	Date          time.Time       `gorm:"not null"`
	Reference     string          `gorm:"type:varchar(100)"`
	Remarks       string          `gorm:"type:text"`
	Description   string          `gorm:"type:text"`
	ReceiptNumber string          `gorm:"type:varchar(50)"`
	PlotNumber    string          `gorm:"type:varchar(50)"`
	SurveyNumber  string          `gorm:"type:varchar(20)"`
	CustomerName  string          `gorm:"type:varchar(200)"`
	PlotTotalCost decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "plot_payments"
}

// CustomerModel is the purchaser row of a plot; a plot has at most one.
type CustomerModel struct {
	ID               string    `gorm:"type:varchar(120);primaryKey"`
	PlotID           string    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name             string    `gorm:"type:varchar(200);not null"`
	Mobile           string    `gorm:"type:varchar(50)"`
	Email            string    `gorm:"type:varchar(200)"`
	Address          string    `gorm:"type:text"`
	RegistrationDate time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "plot_customers"
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{&PlotModel{}, &PaymentModel{}, &CustomerModel{}}
}

// FromDomain populates the plot row
func (m *PlotModel) FromDomain(p *plot.Plot, position int) {
	m.ID = p.ID
	m.Position = position
	m.SurveyNumber = string(p.SurveyNumber)
	m.PlotNumber = p.PlotNumber
	m.Length = p.Dimensions.Length
	m.Width = p.Dimensions.Width
	m.Area = p.Dimensions.Area
	m.Status = string(p.Status)
	m.Owner = string(p.Owner)
	m.RatePerSqMeter = p.RatePerSqMeter
	m.TotalCost = p.TotalCost
	m.GovernmentRate = p.GovernmentRate
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// ToDomain builds the plot. The purchaser and payments are attached by
// the repository.
func (m *PlotModel) ToDomain() *plot.Plot {
	return &plot.Plot{
		ID:           m.ID,
		SurveyNumber: plot.SurveyNumber(m.SurveyNumber),
		PlotNumber:   m.PlotNumber,
		Dimensions: plot.Dimensions{
			Length: m.Length,
			Width:  m.Width,
			Area:   m.Area,
		},
		Status:         plot.Status(m.Status),
		Owner:          plot.Owner(m.Owner),
		RatePerSqMeter: m.RatePerSqMeter,
		TotalCost:      m.TotalCost,
		GovernmentRate: m.GovernmentRate,
		Payments:       []plot.Payment{},
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// PaymentModelFromDomain builds the row of the seq-th payment of plotID
func PaymentModelFromDomain(plotID string, seq int, pm plot.Payment) PaymentModel {
	return PaymentModel{
		ID:            pm.ID,
		PlotID:        plotID,
		Seq:           seq,
		Amount:        pm.Amount,
		Mode:          string(pm.Mode),
		Date:          pm.Date,
		Reference:     pm.Reference,
		Remarks:       pm.Remarks,
		Description:   pm.Description,
		ReceiptNumber: pm.ReceiptNumber,
		PlotNumber:    pm.PlotNumber,
		SurveyNumber:  pm.SurveyNumber,
		CustomerName:  pm.CustomerName,
		PlotTotalCost: pm.PlotTotalCost,
	}
}

// ToDomain converts the row to a payment
func (m *PaymentModel) ToDomain() plot.Payment {
	return plot.Payment{
		ID:            m.ID,
		Amount:        m.Amount,
		Mode:          plot.PaymentMode(m.Mode),
		Date:          m.Date,
		Reference:     m.Reference,
		Remarks:       m.Remarks,
		Description:   m.Description,
		ReceiptNumber: m.ReceiptNumber,
		PlotNumber:    m.PlotNumber,
		SurveyNumber:  m.SurveyNumber,
		CustomerName:  m.CustomerName,
		PlotTotalCost: m.PlotTotalCost,
	}
}

// CustomerModelFromDomain builds the customer row of a plot
func CustomerModelFromDomain(plotID string, p *plot.Purchaser) CustomerModel {
	return CustomerModel{
		ID:               plot.CustomerID(plotID),
		PlotID:           plotID,
		Name:             p.Name,
		Mobile:           p.Mobile,
		Email:            p.Email,
		Address:          p.Address,
		RegistrationDate: p.RegistrationDate,
	}
}

// ToDomain converts the row to a purchaser
func (m *CustomerModel) ToDomain() *plot.Purchaser {
	return &plot.Purchaser{
		Name:             m.Name,
		Mobile:           m.Mobile,
		Email:            m.Email,
		Address:          m.Address,
		RegistrationDate: m.RegistrationDate,
	}
}
