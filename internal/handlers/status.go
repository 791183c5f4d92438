package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/aquafit-brasil/pixbot-backend/database"
	"github.com/aquafit-brasil/pixbot-backend/internal/services"
)

// StatusHandler renders the pairing/status page and the liveness endpoint.
type StatusHandler struct {
	transport services.Transport
}

func NewStatusHandler(transport services.Transport) *StatusHandler {
	return &StatusHandler{transport: transport}
}

const statusPage = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>AquaFit PIX Bot</title>
<style>
body { font-family: sans-serif; text-align: center; margin-top: 10%%; color: #333; }
img { border: 1px solid #ddd; padding: 8px; }
</style>
</head>
<body>
<h1>AquaFit PIX Bot</h1>
%s
</body>
</html>`

// HandleStatus serves the auto-refreshing status page: a scannable pairing
// code while pairing is pending, a placeholder otherwise.
func (h *StatusHandler) HandleStatus(c *fiber.Ctx) error {
	var body string
	switch {
	case h.transport.PairingCode() != "":
		body = `<p>Escaneie o código para conectar:</p><img src="/pairing/qr.png" alt="pairing code" width="256" height="256">`
	case h.transport.Connected():
		body = `<p>✅ Conectado</p>`
	default:
		body = `<p>⏳ Aguardando conexão...</p>`
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(fmt.Sprintf(statusPage, body))
}

// HandlePairingQR renders the current pairing code as a PNG, 404 when no
// pairing is pending.
func (h *StatusHandler) HandlePairingQR(c *fiber.Ctx) error {
	code := h.transport.PairingCode()
	if code == "" {
		return c.SendStatus(fiber.StatusNotFound)
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("QR encode failed")
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// HandleHealth reports service liveness for monitoring.
func (h *StatusHandler) HandleHealth(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	dbOK := true
	if database.DB != nil {
		sqlDB, err := database.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			dbOK = false
			status = "unhealthy"
			statusCode = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"transport": h.transport.Connected(),
			"database":  dbOK,
		},
	})
}
