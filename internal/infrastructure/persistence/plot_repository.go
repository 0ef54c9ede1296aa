package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/landplots/backend/internal/domain/plot"
	"github.com/landplots/backend/internal/domain/shared"
	"github.com/landplots/backend/internal/infrastructure/persistence/models"
)

const insertBatchSize = 100

// plot columns rewritten by an upsert; position is fixed at first insert
var plotUpdateColumns = []string{
	"survey_number", "plot_number", "length", "width", "area", "status", "owner",
	"rate_per_sq_meter", "total_cost", "government_rate", "created_at", "updated_at",
}

// GormPlotRepository implements plot.Repository using GORM
type GormPlotRepository struct {
	db *gorm.DB
}

// NewGormPlotRepository creates a new GormPlotRepository
func NewGormPlotRepository(db *gorm.DB) *GormPlotRepository {
	return &GormPlotRepository{db: db}
}

var _ plot.Repository = (*GormPlotRepository)(nil)

// FindAll returns every plot in load order
func (r *GormPlotRepository) FindAll(ctx context.Context) ([]*plot.Plot, error) {
	db := r.db.WithContext(ctx)

	var plotModels []models.PlotModel
	if err := db.Order("position, id").Find(&plotModels).Error; err != nil {
		return nil, err
	}
	if len(plotModels) == 0 {
		return []*plot.Plot{}, nil
	}

	var paymentModels []models.PaymentModel
	if err := db.Order("plot_id, seq").Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	var customerModels []models.CustomerModel
	if err := db.Find(&customerModels).Error; err != nil {
		return nil, err
	}

	return assemble(plotModels, paymentModels, customerModels), nil
}

// FindByID finds a plot by its ID
func (r *GormPlotRepository) FindByID(ctx context.Context, id string) (*plot.Plot, error) {
	db := r.db.WithContext(ctx)

	var model models.PlotModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	var paymentModels []models.PaymentModel
	if err := db.Where("plot_id = ?", id).Order("seq").Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	var customerModels []models.CustomerModel
	if err := db.Where("plot_id = ?", id).Limit(1).Find(&customerModels).Error; err != nil {
		return nil, err
	}

	return assemble([]models.PlotModel{model}, paymentModels, customerModels)[0], nil
}

// Save upserts the plot, its purchaser and its payments in one transaction
func (r *GormPlotRepository) Save(ctx context.Context, p *plot.Plot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var next int
		if err := tx.Model(&models.PlotModel{}).
			Select("COALESCE(MAX(position), -1) + 1").
			Scan(&next).Error; err != nil {
			return err
		}

		var model models.PlotModel
		model.FromDomain(p, next)
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(plotUpdateColumns),
		}).Create(&model).Error; err != nil {
			return err
		}

		if err := saveCustomer(tx, p); err != nil {
			return err
		}
		return savePayments(tx, p)
	})
}

func saveCustomer(tx *gorm.DB, p *plot.Plot) error {
	if p.Purchaser == nil {
		return tx.Where("plot_id = ?", p.ID).Delete(&models.CustomerModel{}).Error
	}
	customer := models.CustomerModelFromDomain(p.ID, p.Purchaser)
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&customer).Error
}

// savePayments rewrites the payment rows of p by position, trimming rows
// past the end of the list
func savePayments(tx *gorm.DB, p *plot.Plot) error {
	if err := tx.Where("plot_id = ? AND seq >= ?", p.ID, len(p.Payments)).
		Delete(&models.PaymentModel{}).Error; err != nil {
		return err
	}
	if len(p.Payments) == 0 {
		return nil
	}

	rows := make([]models.PaymentModel, len(p.Payments))
	for i, pm := range p.Payments {
		rows[i] = models.PaymentModelFromDomain(p.ID, i, pm)
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plot_id"}, {Name: "seq"}},
		UpdateAll: true,
	}).CreateInBatches(&rows, insertBatchSize).Error
}

// ReplaceAll drops every row and stores plots in the given order
func (r *GormPlotRepository) ReplaceAll(ctx context.Context, plots []*plot.Plot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteAll(tx); err != nil {
			return err
		}
		if len(plots) == 0 {
			return nil
		}

		plotRows := make([]models.PlotModel, len(plots))
		var paymentRows []models.PaymentModel
		var customerRows []models.CustomerModel
		for i, p := range plots {
			plotRows[i].FromDomain(p, i)
			for seq, pm := range p.Payments {
				paymentRows = append(paymentRows, models.PaymentModelFromDomain(p.ID, seq, pm))
			}
			if p.Purchaser != nil {
				customerRows = append(customerRows, models.CustomerModelFromDomain(p.ID, p.Purchaser))
			}
		}

		if err := tx.CreateInBatches(&plotRows, insertBatchSize).Error; err != nil {
			return err
		}
		if len(paymentRows) > 0 {
			if err := tx.CreateInBatches(&paymentRows, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if len(customerRows) > 0 {
			if err := tx.CreateInBatches(&customerRows, insertBatchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll removes every plot, payment and customer row
func (r *GormPlotRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(deleteAll)
}

func deleteAll(tx *gorm.DB) error {
	for _, m := range []any{&models.PaymentModel{}, &models.CustomerModel{}, &models.PlotModel{}} {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored plots
func (r *GormPlotRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PlotModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// assemble joins payment and customer rows onto their plots, keeping the
// order of plotModels. Rows of unknown plots are ignored.
func assemble(plotModels []models.PlotModel, payments []models.PaymentModel, customers []models.CustomerModel) []*plot.Plot {
	out := make([]*plot.Plot, len(plotModels))
	byID := make(map[string]*plot.Plot, len(plotModels))
	for i := range plotModels {
		p := plotModels[i].ToDomain()
		out[i] = p
		byID[p.ID] = p
	}
	for i := range payments {
		if p, ok := byID[payments[i].PlotID]; ok {
			p.Payments = append(p.Payments, payments[i].ToDomain())
		}
	}
	for i := range customers {
		if p, ok := byID[customers[i].PlotID]; ok {
			p.Purchaser = customers[i].ToDomain()
		}
	}
	return out
}
