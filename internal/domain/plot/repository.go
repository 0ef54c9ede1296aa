package plot

import "context"

// Repository is the local mirror of the spreadsheet. Writes follow the same
// upsert-by-id rules as the remote row store.
type Repository interface {
	// FindAll returns every plot with its purchaser and payments
	FindAll(ctx context.Context) ([]*Plot, error)
	// FindByID returns shared.ErrNotFound when the plot is missing
	FindByID(ctx context.Context, id string) (*Plot, error)
	// Save upserts the plot row, upserts the customer row keyed by plot id,
	// removes payment rows of the plot that are no longer on it and upserts
	// the remaining payments by id.
	Save(ctx context.Context, p *Plot) error
	// ReplaceAll drops all rows and stores plots
	ReplaceAll(ctx context.Context, plots []*Plot) error
	// DeleteAll removes every row
	DeleteAll(ctx context.Context) error
	// Count returns the number of stored plots
	Count(ctx context.Context) (int64, error)
}
