package catalog

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type repository interface {
	GetProduct(ctx context.Context, id int64) (*models.CatalogProduct, error)
	QuantityDiscounts(ctx context.Context, productID int64) ([]models.QuantityDiscount, error)
	Tiers(ctx context.Context, productID int64, kind enums.TierKind, out *TierRows) error
}

type fallbackRecorder interface {
	IncConfigFallback(table, reason string)
}

// Service assembles the pricing view of a product from the catalog tables.
type Service struct {
	repo    repository
	logg    *logger.Logger
	metrics fallbackRecorder
}

func NewService(repo repository, logg *logger.Logger, metrics fallbackRecorder) *Service {
	return &Service{repo: repo, logg: logg, metrics: metrics}
}

// Load returns the product and every tier table its modes need. A table that
// fails to load is left empty so resolution falls through to a lower strategy.
func (s *Service) Load(ctx context.Context, id int64) (pricing.Product, pricing.Tables, error) {
	row, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return pricing.Product{}, pricing.Tables{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
	}
	if err != nil {
		return pricing.Product{}, pricing.Tables{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "catalog unavailable")
	}
	product := toProduct(*row)

	var tables pricing.Tables
	if discounts, err := s.repo.QuantityDiscounts(ctx, id); err != nil {
		s.degrade(ctx, id, "quantity_discounts", err)
	} else {
		tables.QuantityDiscounts = toQuantityDiscounts(discounts)
	}

	var rows TierRows
	for _, kind := range kindsFor(product.Modes) {
		if err := s.repo.Tiers(ctx, id, kind, &rows); err != nil {
			s.degrade(ctx, id, kind.String(), err)
		}
	}
	tables.PriceTiers = toPriceTiers(rows.PriceTiers)
	tables.WeightTiers = toWeightTiers(rows.WeightTiers)
	tables.PersonTiers = toPersonTiers(rows.PersonTiers)
	tables.Ranges = toRanges(rows.Ranges)
	tables.Sections = toSections(rows.Sections)
	return product, tables, nil
}

func (s *Service) degrade(ctx context.Context, productID int64, table string, err error) {
	if s.metrics != nil {
		s.metrics.IncConfigFallback(table, "load_error")
	}
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithProductID(ctx, productID)
	ctx = s.logg.WithFields(ctx, map[string]any{"table": table, "error": err.Error()})
	s.logg.Warn(ctx, "tier table unavailable, treating as empty")
}

func kindsFor(modes pricing.Modes) []enums.TierKind {
	var kinds []enums.TierKind
	if modes.SectionPricing {
		kinds = append(kinds, enums.TierKindSection)
	}
	if modes.RangePricing {
		kinds = append(kinds, enums.TierKindRange)
	}
	if modes.PersonPricing {
		kinds = append(kinds, enums.TierKindPerson)
	}
	if modes.WeightTiers {
		kinds = append(kinds, enums.TierKindWeight)
	}
	if modes.QuantityTiers {
		kinds = append(kinds, enums.TierKindQuantity)
	}
	return kinds
}

func toProduct(row models.CatalogProduct) pricing.Product {
	return pricing.Product{
		ID:        row.ID,
		Name:      row.Name,
		Category:  row.Category,
		BasePrice: row.BasePrice,
		Modes: pricing.Modes{
			QuantityTiers:  row.QuantityTiers,
			WeightTiers:    row.WeightTiers,
			PersonPricing:  row.PersonPricing,
			RangePricing:   row.RangePricing,
			SectionPricing: row.SectionPricing,
		},
		Promotion: pricing.Promotion{
			Active: row.PromotionActive,
			Price:  row.PromoPrice,
			Start:  toDate(row.PromoStart),
			End:    toDate(row.PromoEnd),
		},
	}
}

func toQuantityDiscounts(rows []models.QuantityDiscount) []pricing.QuantityDiscountTier {
	out := make([]pricing.QuantityDiscountTier, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.QuantityDiscountTier{
			ProductID:          row.ProductID,
			MinQuantity:        row.MinQuantity,
			DiscountPercentage: row.DiscountPercentage,
		})
	}
	return out
}

func toPriceTiers(rows []models.PriceTier) []pricing.PriceTier {
	out := make([]pricing.PriceTier, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.PriceTier{
			ID:           row.ID,
			ProductID:    row.ProductID,
			Order:        row.SortOrder,
			UnitsPerTier: row.UnitsPerTier,
			Price:        row.Price,
			Promotion: pricing.Promotion{
				Price: row.PromoPrice,
				Start: toDate(row.PromoStart),
				End:   toDate(row.PromoEnd),
			},
		})
	}
	return out
}

func toWeightTiers(rows []models.WeightTier) []pricing.WeightTier {
	out := make([]pricing.WeightTier, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.WeightTier{
			ID:          row.ID,
			ProductID:   row.ProductID,
			WeightGrams: row.WeightGrams,
			Price:       row.Price,
		})
	}
	return out
}

func toPersonTiers(rows []models.PersonPriceTier) []pricing.PersonPriceTier {
	out := make([]pricing.PersonPriceTier, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.PersonPriceTier{
			ID:                 row.ID,
			ProductID:          row.ProductID,
			MinPersons:         row.MinPersons,
			MaxPersons:         row.MaxPersons,
			PricePerPerson:     row.PricePerPerson,
			DiscountKind:       row.DiscountKind,
			DiscountPercentage: row.DiscountPercentage,
		})
	}
	return out
}

func toRanges(rows []models.ProductRange) []pricing.Range {
	out := make([]pricing.Range, 0, len(rows))
	for _, row := range rows {
		r := pricing.Range{
			ID:             row.ID,
			ProductID:      row.ProductID,
			Name:           row.Name,
			PricePerPerson: row.PricePerPerson,
			MinPersons:     row.MinPersons,
			MaxPersons:     row.MaxPersons,
		}
		for _, d := range row.Discounts {
			r.Discounts = append(r.Discounts, pricing.RangeDiscountTier{
				ID:                 d.ID,
				RangeID:            d.RangeID,
				MinPersons:         d.MinPersons,
				MaxPersons:         d.MaxPersons,
				DiscountPercentage: d.DiscountPercentage,
				Active:             d.Active,
			})
		}
		out = append(out, r)
	}
	return out
}

func toSections(rows []models.Section) []pricing.Section {
	out := make([]pricing.Section, 0, len(rows))
	for _, row := range rows {
		out = append(out, pricing.Section{
			ID:        row.ID,
			ProductID: row.ProductID,
			Name:      row.Name,
			Price:     row.Price,
		})
	}
	return out
}

func toDate(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := civil.DateOf(*t)
	return &d
}
