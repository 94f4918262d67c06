package orders

import "time"

// Order is an order in the target store.
type Order struct {
	ID        string    `gorm:"column:id;primaryKey;size:64"`
	RegionID  string    `gorm:"column:region_id;size:64"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for Order.
func (Order) TableName() string { return "orders" }

// OrderLine is one ordered product. Lines keep the order given by Position.
type OrderLine struct {
	ID        string `gorm:"column:id;primaryKey;size:64"`
	OrderID   string `gorm:"column:order_id;size:64;not null;index"`
	ProductID string `gorm:"column:product_id;size:64;not null"`
	Quantity  int    `gorm:"column:quantity;not null"`
	Position  int    `gorm:"column:position;not null"`
}

// TableName returns the table name for OrderLine.
func (OrderLine) TableName() string { return "order_lines" }

// ShippingProfileLink attaches a product to its shipping profile.
type ShippingProfileLink struct {
	ProductID string `gorm:"column:product_id;primaryKey;size:64"`
	ProfileID string `gorm:"column:profile_id;size:64;not null"`
}

// TableName returns the table name for ShippingProfileLink.
func (ShippingProfileLink) TableName() string { return "shipping_profile_links" }

// ShippingMethodAssignment is the shipping method of an order. At most one exists per order.
type ShippingMethodAssignment struct {
	ID        string    `gorm:"column:id;primaryKey;size:36"`
	OrderID   string    `gorm:"column:order_id;size:64;not null;uniqueIndex"`
	MethodID  string    `gorm:"column:method_id;size:64;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for ShippingMethodAssignment.
func (ShippingMethodAssignment) TableName() string { return "shipping_method_assignments" }

// ReservationItem reserves inventory for part or all of an order line.
type ReservationItem struct {
	ID          string    `gorm:"column:id;primaryKey;size:36"`
	OrderLineID string    `gorm:"column:order_line_id;size:64;not null;index"`
	Quantity    int       `gorm:"column:quantity;not null"`
	RunID       string    `gorm:"column:run_id;size:36"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName returns the table name for ReservationItem.
func (ReservationItem) TableName() string { return "reservation_items" }

// CatalogProduct is the catalog's view of a product. Read-only here.
type CatalogProduct struct {
	ID                string  `gorm:"column:id;primaryKey;size:64"`
	ShippingProfileID *string `gorm:"column:shipping_profile_id;size:64"`
}

// TableName returns the table name for CatalogProduct.
func (CatalogProduct) TableName() string { return "catalog_products" }

// ShippingOption is a shipping rate offered in a region for a shipping profile. Read-only here.
type ShippingOption struct {
	ID                string `gorm:"column:id;primaryKey;size:64"`
	RegionID          string `gorm:"column:region_id;size:64;not null;index"`
	ShippingProfileID string `gorm:"column:shipping_profile_id;size:64;not null"`
	Amount            int64  `gorm:"column:amount;not null"`
	IsReturn          bool   `gorm:"column:is_return;not null"`
}

// TableName returns the table name for ShippingOption.
func (ShippingOption) TableName() string { return "shipping_options" }
