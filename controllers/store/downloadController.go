package controllers

import (
	"strconv"

	"lms/middleware"
	"lms/services"
	"lms/utils"

	"github.com/gofiber/fiber/v2"
)

// DownloadController serves download resolution and consumption. Files
// stores the local blob store when the app serves private files itself;
// nil in remote blob mode.
type DownloadController struct {
	Broker *services.Broker
	Files  *utils.LocalBlobStore
}

// GetOrderDownloads resolves the delivery links for a paid digital order.
// Generating links does not consume download quota.
func (ct *DownloadController) GetOrderDownloads(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	orderID := c.Locals("orderID").(int)
	role, _ := c.Locals("role").(string)

	links, err := ct.Broker.ResolveDownloads(uint(orderID), userID, role == "ADMIN")
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Downloads resolved successfully!", fiber.Map{
		"downloads": links,
	})
}

// StartDownload consumes one unit of a token's quota. Called by the client
// right before fetching the file.
func (ct *DownloadController) StartDownload(c *fiber.Ctx) error {
	if _, ok := c.Locals("userId").(uint); !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	tokenStr := c.Locals("downloadToken").(string)

	token, err := ct.Broker.RecordDownload(tokenStr)
	if err != nil {
		return middleware.JsonResponse(c, services.HTTPStatus(err), false, err.Error(), nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Download recorded!", fiber.Map{
		"downloads_remaining": token.Remaining(),
		"expires_at":          token.ExpiresAt,
	})
}

// ServeFile delivers a private object through a signed URL minted by the
// local blob store. Unauthenticated by design: the signature is the
// authorization.
func (ct *DownloadController) ServeFile(c *fiber.Ctx) error {
	if ct.Files == nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "File delivery not available!", nil)
	}

	key := c.Params("*")
	expires, err := strconv.ParseInt(c.Query("expires"), 10, 64)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid download link!", nil)
	}
	sig := c.Query("sig")

	if !ct.Files.VerifySignature(key, expires, sig) {
		return middleware.JsonResponse(c, fiber.StatusGone, false, "Download link expired!", nil)
	}

	return c.SendFile(ct.Files.PrivatePath(key))
}
