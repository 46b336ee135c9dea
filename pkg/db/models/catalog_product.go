package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogProduct is the pricing-relevant projection of a storefront product.
// Pricing mode flags are independent in storage; the resolver picks one.
type CatalogProduct struct {
	ID              int64            `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string           `gorm:"column:name;not null"`
	Category        string           `gorm:"column:category;not null;default:''"`
	BasePrice       decimal.Decimal  `gorm:"column:base_price;type:numeric(10,2);not null"`
	QuantityTiers   bool             `gorm:"column:quantity_tiers;not null;default:false"`
	WeightTiers     bool             `gorm:"column:weight_tiers;not null;default:false"`
	PersonPricing   bool             `gorm:"column:person_pricing;not null;default:false"`
	RangePricing    bool             `gorm:"column:range_pricing;not null;default:false"`
	SectionPricing  bool             `gorm:"column:section_pricing;not null;default:false"`
	PromotionActive bool             `gorm:"column:promotion_active;not null;default:false"`
	PromoPrice      *decimal.Decimal `gorm:"column:promo_price;type:numeric(10,2)"`
	PromoStart      *time.Time       `gorm:"column:promo_start;type:date"`
	PromoEnd        *time.Time       `gorm:"column:promo_end;type:date"`
	IsActive        bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (CatalogProduct) TableName() string { return "products" }
