package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

// VoiceHandler handles the voice-call API and the call webhook flow
type VoiceHandler struct {
	voice *services.VoiceService
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(voice *services.VoiceService) *VoiceHandler {
	return &VoiceHandler{voice: voice}
}

// CallRequest is the body for POST /voice/call
type CallRequest struct {
	CallTo string `json:"callTo" form:"callTo"`
}

// HandleCall initiates an outbound shopping call
func (h *VoiceHandler) HandleCall(c *fiber.Ctx) error {
	var req CallRequest
	if err := c.BodyParser(&req); err != nil || req.CallTo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "callTo is required",
		})
	}

	message, err := h.voice.StartShoppingCall(c.UserContext(), req.CallTo, ussd.DefaultLocale)
	if err != nil {
		log.Printf("❌ [Voice] Call to %s failed: %v", req.CallTo, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to initiate call",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "message": message})
}

// twimlPayload is Twilio's webhook form body for call progress
type twimlPayload struct {
	CallStatus string `form:"CallStatus"`
	Digits     string `form:"Digits"`
	From       string `form:"From"`
	To         string `form:"To"`
}

// HandleShopLanguage is the first webhook of a shopping call: prompt for a
// language, then redirect into the shopping loop once a digit arrives.
func (h *VoiceHandler) HandleShopLanguage(c *fiber.Ctx) error {
	var payload twimlPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ [Voice] Invalid shop-lang payload: %v", err)
	}

	c.Set("Content-Type", "application/xml")
	if payload.Digits == "" {
		return c.SendString(h.voice.LanguagePromptTwiML())
	}
	return c.SendString(h.voice.LanguageRedirectTwiML(payload.Digits))
}

// HandleShop runs one step of the shopping loop. The called party is the
// shopper, so the cart is keyed by the To number.
func (h *VoiceHandler) HandleShop(c *fiber.Ctx) error {
	var payload twimlPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ [Voice] Invalid shop payload: %v", err)
	}

	loc := ussd.Locale(c.Query("lang", string(ussd.DefaultLocale)))
	phone := payload.To

	log.Printf("📞 [Voice] Shop step phone=%s lang=%s digits=%q", phone, loc, payload.Digits)

	c.Set("Content-Type", "application/xml")
	return c.SendString(h.voice.ShopTwiML(c.UserContext(), phone, payload.Digits, loc))
}

// HandleEvents receives call status callbacks; it only needs to answer fast
func (h *VoiceHandler) HandleEvents(c *fiber.Ctx) error {
	var payload twimlPayload
	if err := c.BodyParser(&payload); err == nil {
		log.Printf("📞 [Voice] Event status=%s from=%s to=%s", payload.CallStatus, payload.From, payload.To)
	}
	return c.SendStatus(fiber.StatusOK)
}
