package storeValidator

import (
	"strconv"
	"strings"

	"lms/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func fieldErrors(err error) map[string]string {
	errors := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errors["body"] = "Invalid request body!"
		return errors
	}
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			errors[field] = field + " is required!"
		case "oneof":
			errors[field] = field + " must be one of " + e.Param() + "!"
		case "gte":
			errors[field] = field + " must not be negative!"
		default:
			errors[field] = "Invalid " + field + "!"
		}
	}
	return errors
}

func parseIDParam(c *fiber.Ctx, name string) (int, bool) {
	raw := strings.TrimSpace(c.Params(name))
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// CourseID validates the :id route parameter for course purchases
func CourseID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid course ID!", nil)
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

// OrderID validates the :id route parameter for order lookups
func OrderID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid order ID!", nil)
		}
		c.Locals("orderID", orderID)
		return c.Next()
	}
}

// ProductID validates the :id route parameter for product updates
func ProductID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid product ID!", nil)
		}
		c.Locals("productID", productID)
		return c.Next()
	}
}

// CartItemID validates the :id route parameter for cart removal
func CartItemID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		itemID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid cart item ID!", nil)
		}
		c.Locals("cartItemID", itemID)
		return c.Next()
	}
}

// DownloadToken validates the :token route parameter
func DownloadToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Params("token"))
		if len(token) != 32 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid download token!", nil)
		}
		c.Locals("downloadToken", token)
		return c.Next()
	}
}

// Order validates the course order creation body
func Order() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			PaymentMethod   string `json:"payment_method"`
			TransactionID   string `json:"transaction_id"`
			PaymentProofURL string `json:"payment_proof_url"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.PaymentMethod = strings.TrimSpace(reqData.PaymentMethod)
		reqData.TransactionID = strings.TrimSpace(reqData.TransactionID)

		c.Locals("validatedOrder", reqData)
		return c.Next()
	}
}

// OrderStatus validates the admin payment status update body
func OrderStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Status        string `json:"status" validate:"required,oneof=PAID FAILED"`
			TransactionID string `json:"transaction_id"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Status = strings.ToUpper(strings.TrimSpace(reqData.Status))

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedOrderStatus", reqData)
		return c.Next()
	}
}

// Checkout validates the cart checkout body
func Checkout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			PaymentMethod string `json:"payment_method"`
			TransactionID string `json:"transaction_id"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.PaymentMethod = strings.TrimSpace(reqData.PaymentMethod)
		reqData.TransactionID = strings.TrimSpace(reqData.TransactionID)

		c.Locals("validatedCheckout", reqData)
		return c.Next()
	}
}

// CartItem validates the add-to-cart body
func CartItem() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			ProductID uint `json:"product_id" validate:"required"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedCartItem", reqData)
		return c.Next()
	}
}

// Product validates the admin product creation form fields
func Product() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       string  `json:"title" form:"title" validate:"required"`
			Description string  `json:"description" form:"description"`
			Price       float64 `json:"price" form:"price" validate:"gte=0"`
			Public      bool    `json:"public" form:"public"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		reqData.Title = strings.TrimSpace(reqData.Title)

		if err := validate.Struct(reqData); err != nil {
			return middleware.ValidationErrorResponse(c, fieldErrors(err))
		}

		c.Locals("validatedProduct", reqData)
		return c.Next()
	}
}

// ProductUpdate validates the admin product update body
func ProductUpdate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Price       *float64 `json:"price"`
			IsPublished *bool    `json:"is_published"`
		})
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		if reqData.Price != nil && *reqData.Price < 0 {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"price": "Price must not be negative!",
			})
		}

		c.Locals("validatedProductUpdate", reqData)
		return c.Next()
	}
}
