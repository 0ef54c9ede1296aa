// Package sheets talks to the spreadsheet that backs the plot list, through
// the Apps Script web app for reads and writes and through the Sheets API
// for read-only access.
package sheets

import (
	"time"

	"github.com/landplots/backend/internal/infrastructure/config"
)

// Read modes
const (
	ReadModeWebApp = "webapp"
	ReadModeAPI    = "api"
)

// DefaultTimeout bounds a single Apps Script round-trip
const DefaultTimeout = 10 * time.Second

// Config holds the spreadsheet connection settings
type Config struct {
	WebAppURL      string
	SpreadsheetID  string
	APIKey         string
	PlotsSheet     string
	PaymentsSheet  string
	CustomersSheet string
	Timeout        time.Duration
	ReadMode       string
	// APIEndpoint overrides the Sheets API base URL
	APIEndpoint string
}

// WithDefaults fills unset fields
func (c Config) WithDefaults() Config {
	if c.PlotsSheet == "" {
		c.PlotsSheet = "Plots"
	}
	if c.PaymentsSheet == "" {
		c.PaymentsSheet = "Payments"
	}
	if c.CustomersSheet == "" {
		c.CustomersSheet = "Customers"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ReadMode == "" {
		c.ReadMode = ReadModeWebApp
	}
	return c
}

// FromConfig maps the sheets section of the application config
func FromConfig(c config.SheetsConfig) Config {
	return Config{
		WebAppURL:      c.WebAppURL,
		SpreadsheetID:  c.SpreadsheetID,
		APIKey:         c.APIKey,
		PlotsSheet:     c.PlotsSheet,
		PaymentsSheet:  c.PaymentsSheet,
		CustomersSheet: c.CustomersSheet,
		Timeout:        c.Timeout,
		ReadMode:       c.ReadMode,
		APIEndpoint:    c.APIEndpoint,
	}.WithDefaults()
}
