package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// QuantityDiscount is one rung of a product's quantity discount ladder.
type QuantityDiscount struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID          int64           `gorm:"column:product_id;not null;index"`
	MinQuantity        int             `gorm:"column:min_quantity;not null"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
}

func (QuantityDiscount) TableName() string { return "quantity_discounts" }

// PriceTier is a fixed price for a number of units, with an optional promotion.
type PriceTier struct {
	ID           int64            `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID    int64            `gorm:"column:product_id;not null;index"`
	SortOrder    int              `gorm:"column:sort_order;not null;default:0"`
	UnitsPerTier int              `gorm:"column:units_per_tier;not null"`
	Price        decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	PromoPrice   *decimal.Decimal `gorm:"column:promo_price;type:numeric(10,2)"`
	PromoStart   *time.Time       `gorm:"column:promo_start;type:date"`
	PromoEnd     *time.Time       `gorm:"column:promo_end;type:date"`
}

func (PriceTier) TableName() string { return "price_tiers" }

// WeightTier prices a product by weight.
type WeightTier struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64           `gorm:"column:product_id;not null;index"`
	WeightGrams int             `gorm:"column:weight_grams;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}

func (WeightTier) TableName() string { return "weight_tiers" }

// PersonPriceTier prices a product per person for a head-count interval.
type PersonPriceTier struct {
	ID                 int64              `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID          int64              `gorm:"column:product_id;not null;index"`
	MinPersons         int                `gorm:"column:min_persons;not null"`
	MaxPersons         *int               `gorm:"column:max_persons"`
	PricePerPerson     decimal.Decimal    `gorm:"column:price_per_person;type:numeric(10,2);not null"`
	DiscountKind       enums.DiscountKind `gorm:"column:discount_kind;not null;default:'FLAT'"`
	DiscountPercentage *decimal.Decimal   `gorm:"column:discount_percentage;type:numeric(5,2)"`
}

func (PersonPriceTier) TableName() string { return "person_price_tiers" }

// ProductRange is a named per-person bundle such as a platter size.
type ProductRange struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID      int64               `gorm:"column:product_id;not null;index"`
	Name           string              `gorm:"column:name;not null"`
	PricePerPerson decimal.Decimal     `gorm:"column:price_per_person;type:numeric(10,2);not null"`
	MinPersons     int                 `gorm:"column:min_persons;not null;default:1"`
	MaxPersons     *int                `gorm:"column:max_persons"`
	Discounts      []RangeDiscountTier `gorm:"foreignKey:RangeID;constraint:OnDelete:CASCADE"`
}

func (ProductRange) TableName() string { return "product_ranges" }

// RangeDiscountTier discounts a range for a head-count interval.
type RangeDiscountTier struct {
	ID                 int64           `gorm:"column:id;primaryKey;autoIncrement"`
	RangeID            int64           `gorm:"column:range_id;not null;index"`
	MinPersons         int             `gorm:"column:min_persons;not null"`
	MaxPersons         *int            `gorm:"column:max_persons"`
	DiscountPercentage decimal.Decimal `gorm:"column:discount_percentage;type:numeric(5,2);not null"`
	Active             bool            `gorm:"column:active;not null;default:true"`
}

func (RangeDiscountTier) TableName() string { return "range_discount_tiers" }

// Section is a fixed-price portion of a product.
type Section struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID int64           `gorm:"column:product_id;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
}

func (Section) TableName() string { return "sections" }
