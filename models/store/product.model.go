package store

import "gorm.io/gorm"

// Product is a purchasable digital product backed by a stored file.
type Product struct {
	gorm.Model
	Title       string  `json:"title"`
	Description string  `json:"description" gorm:"type:text"`
	Price       float64 `json:"price" gorm:"default:0"`
	// FileKey is the blob storage key of the deliverable. Public files are
	// served from FileURL directly; private files get a short-lived signed
	// URL at download time.
	FileKey      string `json:"file_key"`
	FileURL      string `json:"file_url"`
	FileIsPublic bool   `json:"file_is_public" gorm:"default:false"`
	IsPublished  bool   `json:"is_published" gorm:"default:false"`
	IsDeleted    bool   `gorm:"default:false"`
}

// CartItem is one product in a user's cart. Cleared atomically on checkout.
type CartItem struct {
	gorm.Model
	UserID    uint    `json:"user_id" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	ProductID uint    `json:"product_id" gorm:"not null;uniqueIndex:idx_cart_user_product"`
	Product   Product `json:"product" gorm:"foreignKey:ProductID"`
}
