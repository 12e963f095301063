package services

import (
	"time"

	storeModels "lms/models/store"

	"gorm.io/gorm"
)

// Broker resolves download tokens into deliverable links. Link generation
// never consumes quota; RecordDownload is the explicit consumption step,
// counted exactly once per transfer by an atomic increment-and-check.
type Broker struct {
	db      *gorm.DB
	blobs   BlobStore
	signTTL time.Duration
}

func NewBroker(db *gorm.DB, blobs BlobStore, signTTL time.Duration) *Broker {
	return &Broker{db: db, blobs: blobs, signTTL: signTTL}
}

// DownloadLink is one resolved line item of a digital order.
type DownloadLink struct {
	Title              string    `json:"title"`
	Token              string    `json:"token"`
	SignedURL          string    `json:"signed_url"`
	ExpiresAt          time.Time `json:"expires_at"`
	DownloadsRemaining int       `json:"downloads_remaining"`
}

// ResolveDownloads produces the delivery links for a paid digital order.
// The signed URL is a short-lived delivery mechanism; the token itself is
// the multi-day entitlement. Nothing is decremented here, so retrying link
// generation is harmless.
func (b *Broker) ResolveDownloads(orderID, requesterID uint, isAdmin bool) ([]DownloadLink, error) {
	var order storeModels.DigitalOrder
	if err := b.db.Where("id = ? AND is_deleted = ?", orderID, false).
		Preload("Items").Preload("Tokens").
		First(&order).Error; err != nil {
		return nil, Errorf(ErrNotFound, "order not found")
	}

	if order.UserID != requesterID && !isAdmin {
		return nil, Errorf(ErrForbidden, "not the buyer of this order")
	}
	if order.PaymentStatus != storeModels.PaymentStatusPaid {
		return nil, Errorf(ErrOrderNotPaid, "order is not paid")
	}

	tokensByProduct := make(map[uint]*storeModels.DownloadToken, len(order.Tokens))
	for idx := range order.Tokens {
		tokensByProduct[order.Tokens[idx].ProductID] = &order.Tokens[idx]
	}

	links := make([]DownloadLink, 0, len(order.Items))
	for _, item := range order.Items {
		token, ok := tokensByProduct[item.ProductID]
		if !ok {
			// Tokens are minted with the paid transition; a paid order
			// without them indicates an interrupted grant.
			return nil, Errorf(ErrDependency, "download token missing for product %d", item.ProductID)
		}

		var product storeModels.Product
		if err := b.db.First(&product, item.ProductID).Error; err != nil {
			return nil, Errorf(ErrNotFound, "product %d not found", item.ProductID)
		}

		url := product.FileURL
		if !product.FileIsPublic {
			signed, err := b.blobs.SignURL(product.FileKey, b.signTTL)
			if err != nil {
				return nil, Errorf(ErrDependency, "could not sign download url")
			}
			url = signed
		}

		links = append(links, DownloadLink{
			Title:              item.Title,
			Token:              token.Token,
			SignedURL:          url,
			ExpiresAt:          token.ExpiresAt,
			DownloadsRemaining: token.Remaining(),
		})
	}
	return links, nil
}

// RecordDownload consumes one unit of a token's quota. The increment is
// guarded by the quota in a single UPDATE so two concurrent downloads
// cannot both take the last unit.
func (b *Broker) RecordDownload(tokenStr string) (*storeModels.DownloadToken, error) {
	var token storeModels.DownloadToken
	if err := b.db.Where("token = ?", tokenStr).First(&token).Error; err != nil {
		return nil, Errorf(ErrNotFound, "invalid download token")
	}

	if token.Expired(time.Now()) {
		return nil, Errorf(ErrExpired, "download link expired")
	}

	res := b.db.Model(&storeModels.DownloadToken{}).
		Where("id = ? AND downloads_used < max_downloads", token.ID).
		UpdateColumn("downloads_used", gorm.Expr("downloads_used + 1"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Errorf(ErrQuotaExceeded, "download quota exhausted")
	}

	if err := b.db.First(&token, token.ID).Error; err != nil {
		return nil, err
	}
	return &token, nil
}
