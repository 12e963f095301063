package storeRoutes

import (
	controllers "lms/controllers/store"
	"lms/middleware"
	validators "lms/validators/store"

	"github.com/gofiber/fiber/v2"
)

// SetupStoreRoutes sets up orders, cart, products and downloads.
func SetupStoreRoutes(app *fiber.App, orders *controllers.OrderController, downloads *controllers.DownloadController, products *controllers.ProductController) {
	// Course purchases
	orderGroup := app.Group("/order")
	orderGroup.Post("/course/:id", middleware.JWTMiddleware, validators.CourseID(), validators.Order(), orders.CreateCourseOrder)
	orderGroup.Get("/list", middleware.JWTMiddleware, orders.GetUserOrders)
	orderGroup.Get("/:id", middleware.JWTMiddleware, validators.OrderID(), orders.GetOrderDetail)

	// Digital product storefront
	productGroup := app.Group("/product")
	productGroup.Get("/list", middleware.JWTMiddleware, controllers.ListProducts)

	cartGroup := app.Group("/cart")
	cartGroup.Post("/add", middleware.JWTMiddleware, validators.CartItem(), controllers.AddToCart)
	cartGroup.Get("/", middleware.JWTMiddleware, controllers.GetCart)
	cartGroup.Delete("/:id", middleware.JWTMiddleware, validators.CartItemID(), controllers.RemoveFromCart)
	cartGroup.Post("/checkout", middleware.JWTMiddleware, validators.Checkout(), orders.Checkout)

	// Downloads
	downloadGroup := app.Group("/download")
	downloadGroup.Get("/order/:id", middleware.JWTMiddleware, validators.OrderID(), downloads.GetOrderDownloads)
	downloadGroup.Post("/:token", middleware.JWTMiddleware, validators.DownloadToken(), downloads.StartDownload)

	// Admin
	adminOrderGroup := app.Group("/admin/order", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"))
	adminOrderGroup.Get("/list", orders.AdminListOrders)
	adminOrderGroup.Post("/:id/status", validators.OrderID(), validators.OrderStatus(), orders.AdminSetOrderStatus)
	adminOrderGroup.Post("/digital/:id/status", validators.OrderID(), validators.OrderStatus(), orders.AdminSetDigitalOrderStatus)

	adminProductGroup := app.Group("/admin/product", middleware.JWTMiddleware, middleware.RequireRole("ADMIN"))
	adminProductGroup.Post("/create", validators.Product(), products.AdminCreateProduct)
	adminProductGroup.Put("/:id", validators.ProductID(), validators.ProductUpdate(), products.AdminUpdateProduct)
}
