package controllers

import (
	"fmt"
	"io"
	"time"

	"lms/database"
	"lms/middleware"
	"lms/models"
	storeModels "lms/models/store"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// ProductController handles the digital-product catalog. Uploads go
// through the blob collaborator so the store works the same with local or
// remote storage.
type ProductController struct {
	Blobs services.BlobStore
}

// ListProducts lists published products for users
func ListProducts(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	var products []storeModels.Product
	if err := database.Database.Db.Where("is_deleted = ? AND is_published = ?", false, true).
		Order("created_at desc").Find(&products).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch products!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Products fetched successfully!", fiber.Map{
		"products": products,
		"total":    len(products),
	})
}

// AdminCreateProduct creates a product from a multipart form: metadata
// fields plus the deliverable file.
func (ct *ProductController) AdminCreateProduct(c *fiber.Ctx) error {
	reqData, ok := c.Locals("validatedProduct").(*struct {
		Title       string  `json:"title" form:"title" validate:"required"`
		Description string  `json:"description" form:"description"`
		Price       float64 `json:"price" form:"price" validate:"gte=0"`
		Public      bool    `json:"public" form:"public"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Product file is required!", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Could not read product file!", nil)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Could not read product file!", nil)
	}

	key := fmt.Sprintf("products/%d-%s", time.Now().UnixNano(), fileHeader.Filename)
	url, err := ct.Blobs.Put(key, data, reqData.Public)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Failed to store product file!", nil)
	}

	product := storeModels.Product{
		Title:        reqData.Title,
		Description:  reqData.Description,
		Price:        reqData.Price,
		FileKey:      key,
		FileURL:      url,
		FileIsPublic: reqData.Public,
		IsPublished:  false,
	}
	if err := database.Database.Db.Create(&product).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create product!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Product created successfully!", product)
}

// AdminUpdateProduct updates product metadata and publication state
func (ct *ProductController) AdminUpdateProduct(c *fiber.Ctx) error {
	productID := c.Locals("productID").(int)

	var product storeModels.Product
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", productID, false).First(&product).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Product not found!", nil)
	}

	reqData, ok := c.Locals("validatedProductUpdate").(*struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Price       *float64 `json:"price"`
		IsPublished *bool    `json:"is_published"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if reqData.Title != "" {
		product.Title = reqData.Title
	}
	if reqData.Description != "" {
		product.Description = reqData.Description
	}
	if reqData.Price != nil {
		product.Price = *reqData.Price
	}
	if reqData.IsPublished != nil {
		product.IsPublished = *reqData.IsPublished
	}

	if err := database.Database.Db.Save(&product).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update product!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Product updated successfully!", product)
}
