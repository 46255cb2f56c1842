package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type ComplaintStatus string

const (
	ComplaintPending    ComplaintStatus = "pending"
	ComplaintInProgress ComplaintStatus = "in-progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintRejected   ComplaintStatus = "rejected"
)

func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintPending, ComplaintInProgress, ComplaintResolved, ComplaintRejected:
		return true
	}
	return false
}

// RoundCents keeps every derived money value consistent to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email        string `gorm:"unique;not null"           json:"email"`
	FirstName    string `gorm:"not null"                  json:"first_name"`
	LastName     string `gorm:"not null"                  json:"last_name"`
	PasswordHash string `gorm:"not null"                  json:"-"`
	Role         Role   `gorm:"not null;default:user"     json:"role"`
	Phone        string `json:"phone"`
	Gender       string `json:"gender"`
	Avatar       string `json:"avatar"`
	Active       bool   `gorm:"not null"                  json:"active"`
	BrandID      *uint  `gorm:"index"                     json:"brand_id,omitempty"`

	Favorites []Item `gorm:"many2many:user_favorites"     json:"-"`

	// set by the forgot-password flow, cleared after a successful reset
	ResetTokenHash   string     `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Brand struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name         string `gorm:"not null"                  json:"name"`
	Description  string `gorm:"not null"                  json:"description"`
	Style        string `json:"style"`
	Logo         string `gorm:"not null"                  json:"logo"`
	PrimaryColor string `json:"primary_color"`
	Street       string `json:"street"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `gorm:"not null"                  json:"phone"`
	Website      string `json:"website"`
	TaxID        string `gorm:"not null"                  json:"tax_id"`
	UserID       uint   `gorm:"index;not null"            json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string `gorm:"unique;not null"           json:"name"`
	Description string `json:"description"`
	Gender      string `gorm:"default:neutral"           json:"gender"`
	Featured    bool   `gorm:"default:false"             json:"featured"`
	Active      bool   `gorm:"not null"                  json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Item struct {
	ID          uint     `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string   `gorm:"not null"                  json:"name"`
	Description string   `gorm:"not null"                  json:"description"`
	Price       float64  `gorm:"not null"                  json:"price"`
	Sizes       []string `gorm:"serializer:json"           json:"sizes"`
	Colors      []string `gorm:"serializer:json"           json:"colors"`
	Gender      string   `json:"gender"`
	Images      []string `gorm:"serializer:json"           json:"images"`
	CategoryID  *uint    `gorm:"index"                     json:"category_id,omitempty"`
	SellerID    uint     `gorm:"index;not null"            json:"seller_id"`
	BrandID     uint     `gorm:"index;not null"            json:"brand_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLine is one (item, variant, quantity, price-snapshot) entry in a cart.
// Price is the catalog price captured when the line was added; later catalog
// edits do not touch it.
type CartLine struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	CartID   uint    `gorm:"index;not null"            json:"cart_id"`
	ItemID   uint    `gorm:"not null"                  json:"item_id"`
	BrandID  uint    `gorm:"not null"                  json:"brand_id"`
	Quantity int     `gorm:"not null"                  json:"quantity"`
	Price    float64 `gorm:"not null"                  json:"price"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
	Img      string  `json:"img"`
}

type Cart struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID     uint       `gorm:"uniqueIndex;not null"      json:"user_id"`
	Items      []CartLine `gorm:"foreignKey:CartID"         json:"items"`
	TotalPrice float64    `gorm:"not null;default:0"        json:"total_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeSave recomputes the cart total from its lines. Callers never set
// TotalPrice themselves; loading the lines and saving the cart is enough.
func (c *Cart) BeforeSave(tx *gorm.DB) error {
	var total float64
	for _, line := range c.Items {
		total += line.Price * float64(line.Quantity)
	}
	c.TotalPrice = RoundCents(total)
	return nil
}

// OrderLine is the immutable copy of a cart line taken at checkout.
type OrderLine struct {
	ID       uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	OrderID  uint    `gorm:"index;not null"            json:"order_id"`
	ItemID   uint    `gorm:"not null"                  json:"item_id"`
	BrandID  uint    `gorm:"index;not null"            json:"brand_id"`
	Quantity int     `gorm:"not null"                  json:"quantity"`
	Price    float64 `gorm:"not null"                  json:"price"`
	Size     string  `json:"size"`
	Color    string  `json:"color"`
}

type Order struct {
	ID            uint        `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID        uint        `gorm:"index;not null"            json:"user_id"`
	Items         []OrderLine `gorm:"foreignKey:OrderID"        json:"items"`
	Shipping      float64     `gorm:"not null"                  json:"shipping"`
	Tax           float64     `gorm:"not null"                  json:"tax"`
	SubTotal      float64     `gorm:"not null"                  json:"sub_total"`
	TotalPrice    float64     `gorm:"not null"                  json:"total_price"`
	Status        OrderStatus `gorm:"not null;default:pending"  json:"status"`
	AddressID     uint        `gorm:"not null"                  json:"address_id"`
	PaymentCardID uint        `gorm:"not null"                  json:"payment_card_id"`
	EstimatedDate time.Time   `gorm:"not null"                  json:"estimated_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Address struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	FirstName     string `gorm:"not null"                  json:"first_name"`
	LastName      string `gorm:"not null"                  json:"last_name"`
	Phone         string `gorm:"not null"                  json:"phone"`
	Email         string `json:"email"`
	Country       string `gorm:"not null"                  json:"country"`
	City          string `gorm:"not null"                  json:"city"`
	State         string `gorm:"not null"                  json:"state"`
	StreetAddress string `gorm:"not null"                  json:"street_address"`
	ZipCode       string `gorm:"not null"                  json:"zip_code"`
	UserID        uint   `gorm:"index;not null"            json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type PaymentCard struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	CardHolderName string `gorm:"not null"                  json:"card_holder_name"`
	CardNumber     string `gorm:"unique;not null"           json:"card_number"`
	ExpirationDate string `gorm:"not null"                  json:"expiration_date"`
	CVV            string `gorm:"not null"                  json:"-"`
	UserID         uint   `gorm:"index;not null"            json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Review struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID  uint   `gorm:"index;not null"            json:"user_id"`
	ItemID  uint   `gorm:"index;not null"            json:"item_id"`
	Rating  int    `gorm:"not null"                  json:"rating"`
	Comment string `gorm:"not null"                  json:"comment"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Discount struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Code        string    `gorm:"unique;not null"           json:"code"`
	Description string    `json:"description"`
	Percentage  float64   `gorm:"default:0"                 json:"percentage"`
	Amount      float64   `gorm:"default:0"                 json:"amount"`
	StartDate   time.Time `gorm:"not null"                  json:"start_date"`
	EndDate     time.Time `gorm:"not null"                  json:"end_date"`
	MaxUses     int       `gorm:"not null"                  json:"max_uses"`
	CurrentUses int       `gorm:"default:0"                 json:"current_uses"`
	Active      bool      `gorm:"not null"                  json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Complaint struct {
	ID      uint            `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name    string          `gorm:"not null"                  json:"name"`
	Email   string          `gorm:"not null"                  json:"email"`
	Subject string          `gorm:"not null"                  json:"subject"`
	Message string          `gorm:"not null"                  json:"message"`
	Status  ComplaintStatus `gorm:"not null;default:pending"  json:"status"`
	UserID  *uint           `gorm:"index"                     json:"user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
