package handlers

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

// SMSHandler handles outbound SMS API calls and the inbound SMS webhook
type SMSHandler struct {
	sms         *services.SMSService
	payments    *services.PaymentService
	marketplace *services.MarketplaceService
	ai          *services.AIService
}

// NewSMSHandler creates a new SMS handler. ai may be nil when no API key is
// configured; inbound messages then get a plain acknowledgement.
func NewSMSHandler(sms *services.SMSService, payments *services.PaymentService, marketplace *services.MarketplaceService, ai *services.AIService) *SMSHandler {
	return &SMSHandler{sms: sms, payments: payments, marketplace: marketplace, ai: ai}
}

// SendRequest is the body for POST /sms/send
type SendRequest struct {
	To      string `json:"to" form:"to"`
	Message string `json:"message" form:"message"`
}

// HandleSend sends a one-way SMS
func (h *SMSHandler) HandleSend(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.To == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "to and message are required",
		})
	}

	if err := h.sms.SendSMS(req.To, req.Message); err != nil {
		log.Printf("❌ [SMS] Send to %s failed: %v", req.To, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send SMS",
		})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// BulkRequest is the body for POST /sms/bulk. Recipients accepts a JSON
// array or a comma-separated string.
type BulkRequest struct {
	Recipients []string `json:"recipients"`
	Message    string   `json:"message"`
}

// HandleBulk sends one message to many recipients
func (h *SMSHandler) HandleBulk(c *fiber.Ctx) error {
	var req BulkRequest
	if err := c.BodyParser(&req); err != nil {
		// Fall back to a comma-separated recipients string
		var alt struct {
			Recipients string `json:"recipients" form:"recipients"`
			Message    string `json:"message" form:"message"`
		}
		if err2 := c.BodyParser(&alt); err2 != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		req.Message = alt.Message
		for _, r := range strings.Split(alt.Recipients, ",") {
			if r = strings.TrimSpace(r); r != "" {
				req.Recipients = append(req.Recipients, r)
			}
		}
	}
	if len(req.Recipients) == 0 || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "recipients and message are required",
		})
	}

	sent, err := h.sms.SendBulk(req.Recipients, req.Message)
	if err != nil {
		log.Printf("❌ [SMS] Bulk send partial failure: %v", err)
	}
	return c.JSON(fiber.Map{"ok": err == nil, "count": sent})
}

// InboundPayload is the two-way SMS webhook body
type InboundPayload struct {
	Text string `json:"text" form:"text"`
	From string `json:"from" form:"from"`
	To   string `json:"to" form:"to"`
	Date string `json:"date" form:"date"`
	ID   string `json:"id" form:"id"`
}

// HandleInbound processes an incoming SMS: auto-register the sender's
// wallet, then reply with an AI-generated answer. The webhook must return
// 200 quickly regardless of what happens downstream.
func (h *SMSHandler) HandleInbound(c *fiber.Ctx) error {
	var payload InboundPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ [SMS] Invalid inbound payload: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	log.Printf("📥 [SMS] Inbound from %s: %q", payload.From, payload.Text)

	if payload.From == "" || payload.Text == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	// Any message counts as first contact for the wallet
	h.payments.Register(payload.From)

	if h.handleKeyword(payload.From, payload.Text) {
		return c.SendStatus(fiber.StatusOK)
	}

	reply := "Ack: " + payload.Text
	if h.ai != nil {
		reply = h.ai.Reply(c.UserContext(), payload.From, payload.Text)
	}
	if err := h.sms.SendSMS(payload.From, reply); err != nil {
		log.Printf("❌ [SMS] Reply to %s failed: %v", payload.From, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// handleKeyword resolves the fixed SMS keywords (BALANCE, ORDERS, CLEAR),
// sending the answer itself. Everything else falls through to the AI reply.
func (h *SMSHandler) handleKeyword(from, text string) bool {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "BALANCE":
		balance, _ := h.payments.Balance(from)
		if err := h.sms.SendBalanceInquiry(from, balance, ussd.DefaultLocale); err != nil {
			log.Printf("❌ [SMS] Balance reply to %s failed: %v", from, err)
		}
		return true
	case "ORDERS":
		orders := h.marketplace.OrderHistory(from, 5)
		body := "No orders yet. Dial the service code to start shopping."
		if len(orders) > 0 {
			lines := make([]string, 0, len(orders)+1)
			lines = append(lines, "Your recent orders:")
			for _, o := range orders {
				lines = append(lines, fmt.Sprintf("%s - %s TZS (%d items)", o.OrderID, ussd.FormatAmount(o.Total), len(o.Items)))
			}
			body = strings.Join(lines, "\n")
		}
		if err := h.sms.SendSMS(from, body); err != nil {
			log.Printf("❌ [SMS] Orders reply to %s failed: %v", from, err)
		}
		return true
	case "CLEAR":
		upd := h.marketplace.ClearCart(from)
		if err := h.sms.SendSMS(from, upd.Message); err != nil {
			log.Printf("❌ [SMS] Clear reply to %s failed: %v", from, err)
		}
		return true
	}
	return false
}
