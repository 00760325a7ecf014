package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoconnect/soko-backend/internal/ussd"
)

// USSDPayload is the gateway's webhook form body. Text carries the full
// keystroke history for the session, not just the latest entry.
type USSDPayload struct {
	SessionID   string `form:"sessionId"`
	ServiceCode string `form:"serviceCode"`
	PhoneNumber string `form:"phoneNumber"`
	Text        string `form:"text"`
}

// USSDHandler handles USSD gateway webhook requests
type USSDHandler struct {
	engine *ussd.Engine
}

// NewUSSDHandler creates a new USSD handler
func NewUSSDHandler(engine *ussd.Engine) *USSDHandler {
	return &USSDHandler{engine: engine}
}

// HandleWebhook processes one USSD request. The gateway expects a plain-text
// body starting with CON or END; anything else drops the session, so this
// handler never returns an error status.
func (h *USSDHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload USSDPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ [USSD] Invalid webhook payload: %v", err)
		c.Set("Content-Type", "text/plain")
		return c.SendString("END Service temporarily unavailable. Please try again.")
	}

	log.Printf("📟 [USSD] session=%s phone=%s text=%q", payload.SessionID, payload.PhoneNumber, payload.Text)

	if payload.PhoneNumber == "" {
		c.Set("Content-Type", "text/plain")
		return c.SendString("END Service temporarily unavailable. Please try again.")
	}

	response := h.engine.Handle(c.UserContext(), payload.PhoneNumber, payload.Text)

	c.Set("Content-Type", "text/plain")
	return c.SendString(response)
}
