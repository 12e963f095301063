package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	storeModels "lms/models/store"

	"github.com/gofiber/fiber/v2"
)

// AddToCart puts a product in the user's cart
func AddToCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedCartItem").(*struct {
		ProductID uint `json:"product_id" validate:"required"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var product storeModels.Product
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", reqData.ProductID, false, true).
		First(&product).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Product not found!", nil)
	}

	var existing storeModels.CartItem
	if err := database.Database.Db.Where("user_id = ? AND product_id = ?", userID, reqData.ProductID).
		First(&existing).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Product already in cart!", nil)
	}

	item := storeModels.CartItem{
		UserID:    userID,
		ProductID: reqData.ProductID,
	}
	if err := database.Database.Db.Create(&item).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to add product to cart!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Product added to cart!", item)
}

// GetCart lists the user's cart with product details
func GetCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var items []storeModels.CartItem
	if err := database.Database.Db.Where("user_id = ?", userID).Preload("Product").Find(&items).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch cart!", nil)
	}

	total := 0.0
	for _, item := range items {
		total += item.Product.Price
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Cart fetched successfully!", fiber.Map{
		"items": items,
		"total": total,
	})
}

// RemoveFromCart removes a product from the user's cart
func RemoveFromCart(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	itemID := c.Locals("cartItemID").(int)

	res := database.Database.Db.Where("id = ? AND user_id = ?", itemID, userID).Delete(&storeModels.CartItem{})
	if res.Error != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to remove cart item!", nil)
	}
	if res.RowsAffected == 0 {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Cart item not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Cart item removed!", nil)
}
