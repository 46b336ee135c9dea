package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var ErrProductNotFound = errors.New("product not found")

// Repository reads products and their tier tables.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetProduct loads an active product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*models.CatalogProduct, error) {
	var product models.CatalogProduct
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

// QuantityDiscounts returns the product's discount ladder ordered by minimum quantity.
func (r *Repository) QuantityDiscounts(ctx context.Context, productID int64) ([]models.QuantityDiscount, error) {
	var rows []models.QuantityDiscount
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("min_quantity ASC").
		Find(&rows).Error
	return rows, err
}

// Tiers loads one tier table into the matching slice of out.
func (r *Repository) Tiers(ctx context.Context, productID int64, kind enums.TierKind, out *TierRows) error {
	tx := r.db.WithContext(ctx).Where("product_id = ?", productID)
	switch kind {
	case enums.TierKindQuantity:
		return tx.Order("units_per_tier ASC, sort_order ASC").Find(&out.PriceTiers).Error
	case enums.TierKindWeight:
		return tx.Order("weight_grams ASC").Find(&out.WeightTiers).Error
	case enums.TierKindPerson:
		return tx.Order("min_persons ASC").Find(&out.PersonTiers).Error
	case enums.TierKindRange:
		return tx.Preload("Discounts", func(db *gorm.DB) *gorm.DB {
			return db.Order("min_persons ASC")
		}).Order("min_persons ASC, id ASC").Find(&out.Ranges).Error
	case enums.TierKindSection:
		return tx.Order("id ASC").Find(&out.Sections).Error
	default:
		return fmt.Errorf("unknown tier kind %q", kind)
	}
}

// TierRows holds raw tier rows for one product.
type TierRows struct {
	PriceTiers  []models.PriceTier
	WeightTiers []models.WeightTier
	PersonTiers []models.PersonPriceTier
	Ranges      []models.ProductRange
	Sections    []models.Section
}
