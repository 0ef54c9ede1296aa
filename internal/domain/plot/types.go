package plot

import (
	"strings"

	"github.com/landplots/backend/internal/domain/shared"
)

// Status is the sales status of a plot
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusPreBooked Status = "PRE_BOOKED"
	StatusSold      Status = "SOLD"
)

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusPreBooked, StatusSold:
		return true
	}
	return false
}

// Owner identifies who holds title to a plot
type Owner string

const (
	OwnerBapurao    Owner = "BAPURAO"
	OwnerNarayanrao Owner = "NARAYANRAO"
	OwnerJoint      Owner = "JOINT"
)

// IsValid reports whether o is a known owner
func (o Owner) IsValid() bool {
	switch o {
	case OwnerBapurao, OwnerNarayanrao, OwnerJoint:
		return true
	}
	return false
}

// PaymentMode is how a payment was made
type PaymentMode string

const (
	PaymentModeRTGS         PaymentMode = "RTGS"
	PaymentModeCheque       PaymentMode = "CHEQUE"
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCard         PaymentMode = "CARD"
)

// IsValid reports whether m is a known payment mode
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeRTGS, PaymentModeCheque, PaymentModeCash,
		PaymentModeBankTransfer, PaymentModeUPI, PaymentModeCard:
		return true
	}
	return false
}

// PaymentStatus is kept for the spreadsheet model; nothing derives it yet.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
)

// SurveyNumber is the government survey a plot belongs to
type SurveyNumber string

const (
	Survey1521 SurveyNumber = "152/1"
	Survey1522 SurveyNumber = "152/2"
	Survey1523 SurveyNumber = "152/3"
)

// Surveys returns all surveys in display order
func Surveys() []SurveyNumber {
	return []SurveyNumber{Survey1521, Survey1522, Survey1523}
}

// IsValid reports whether s is a known survey
func (s SurveyNumber) IsValid() bool {
	switch s {
	case Survey1521, Survey1522, Survey1523:
		return true
	}
	return false
}

// ParseStatus parses a status, case-insensitively
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	if !s.IsValid() {
		return "", shared.NewDomainError("INVALID_STATUS", "Invalid plot status: "+v)
	}
	return s, nil
}

// ParseOwner parses an owner, case-insensitively
func ParseOwner(v string) (Owner, error) {
	o := Owner(strings.ToUpper(strings.TrimSpace(v)))
	if !o.IsValid() {
		return "", shared.NewDomainError("INVALID_OWNER", "Invalid owner: "+v)
	}
	return o, nil
}

// ParseSurvey parses a survey number such as "152/1"
func ParseSurvey(v string) (SurveyNumber, error) {
	s := SurveyNumber(strings.TrimSpace(v))
	if !s.IsValid() {
		return "", shared.NewDomainError("INVALID_SURVEY", "Invalid survey number: "+v)
	}
	return s, nil
}

// ParsePaymentMode parses a payment mode, case-insensitively
func ParsePaymentMode(v string) (PaymentMode, error) {
	m := PaymentMode(strings.ToUpper(strings.TrimSpace(v)))
	if !m.IsValid() {
		return "", shared.NewDomainError("INVALID_PAYMENT_MODE", "Invalid payment mode: "+v)
	}
	return m, nil
}
