package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// ValidateYampiSignature validates the store webhook: Yampi signs the raw
// request body with HMAC-SHA256 (base64) under the webhook secret.
func ValidateYampiSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Yampi-Hmac-SHA256")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Yampi signature",
			})
		}

		secret := os.Getenv("YAMPI_WEBHOOK_SECRET")
		if secret == "" {
			log.Println("ERROR: YAMPI_WEBHOOK_SECRET not set")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		h := hmac.New(sha256.New, []byte(secret))
		h.Write(c.Body())
		expected := base64.StdEncoding.EncodeToString(h.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}
