package controllers

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	storeModels "lms/models/store"
	"lms/services"

	"github.com/gofiber/fiber/v2"
)

// OrderController handles course orders and digital checkout against the
// entitlement ledger.
type OrderController struct {
	Ledger *services.Ledger
}

// CreateCourseOrder places an order for a course. Free courses are granted
// immediately; priced courses wait for an admin payment-status update.
func (ct *OrderController) CreateCourseOrder(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(int)

	reqData, ok := c.Locals("validatedOrder").(*struct {
		PaymentMethod   string `json:"payment_method"`
		TransactionID   string `json:"transaction_id"`
		PaymentProofURL string `json:"payment_proof_url"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	order, err := ct.Ledger.RecordCourseOrder(userID, uint(courseID), reqData.PaymentMethod, reqData.TransactionID, reqData.PaymentProofURL)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Order placed successfully!", order)
}

// GetUserOrders lists the current user's course orders
func (ct *OrderController) GetUserOrders(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var orders []storeModels.Order
	if err := database.Database.Db.Where("user_id = ? AND is_deleted = ?", userID, false).
		Preload("Course").Order("created_at desc").Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", fiber.Map{
		"orders": orders,
		"total":  len(orders),
	})
}

// GetOrderDetail fetches one course order owned by the current user
func (ct *OrderController) GetOrderDetail(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	orderID := c.Locals("orderID").(int)

	var order storeModels.Order
	if err := database.Database.Db.Where("id = ? AND user_id = ? AND is_deleted = ?", orderID, userID, false).
		Preload("Course").First(&order).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order fetched successfully!", order)
}

// Checkout converts the user's cart into a digital order
func (ct *OrderController) Checkout(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedCheckout").(*struct {
		PaymentMethod string `json:"payment_method"`
		TransactionID string `json:"transaction_id"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	order, err := ct.Ledger.CheckoutCart(userID, reqData.PaymentMethod, reqData.TransactionID)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Checkout completed successfully!", order)
}

// AdminListOrders lists course orders for payment review, optionally
// filtered by status
func (ct *OrderController) AdminListOrders(c *fiber.Ctx) error {
	db := database.Database.Db.Model(&storeModels.Order{}).Where("is_deleted = ?", false)

	if status := c.Query("status"); status != "" {
		db = db.Where("payment_status = ?", status)
	}

	var orders []storeModels.Order
	if err := db.Preload("Course").Order("created_at desc").Find(&orders).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch orders!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Orders fetched successfully!", fiber.Map{
		"orders": orders,
		"total":  len(orders),
	})
}

// AdminSetOrderStatus records the externally asserted payment outcome for
// a course order. Safe to call twice with the same target status.
func (ct *OrderController) AdminSetOrderStatus(c *fiber.Ctx) error {
	orderID := c.Locals("orderID").(int)

	reqData, ok := c.Locals("validatedOrderStatus").(*struct {
		Status        string `json:"status" validate:"required,oneof=PAID FAILED"`
		TransactionID string `json:"transaction_id"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	order, err := ct.Ledger.SetOrderPaymentStatus(uint(orderID), storeModels.PaymentStatus(reqData.Status), reqData.TransactionID)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status updated!", order)
}

// AdminSetDigitalOrderStatus is the digital-order counterpart of
// AdminSetOrderStatus.
func (ct *OrderController) AdminSetDigitalOrderStatus(c *fiber.Ctx) error {
	orderID := c.Locals("orderID").(int)

	reqData, ok := c.Locals("validatedOrderStatus").(*struct {
		Status        string `json:"status" validate:"required,oneof=PAID FAILED"`
		TransactionID string `json:"transaction_id"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	order, err := ct.Ledger.SetDigitalOrderPaymentStatus(uint(orderID), storeModels.PaymentStatus(reqData.Status), reqData.TransactionID)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status updated!", order)
}
