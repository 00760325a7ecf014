package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/sokoconnect/soko-backend/internal/handlers"
	"github.com/sokoconnect/soko-backend/internal/middleware"
	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/storage"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, engine *ussd.Engine, sessions ussd.SessionStore, marketplace *services.MarketplaceService) {

	ussdHandler := handlers.NewUSSDHandler(engine)
	smsHandler := handlers.NewSMSHandler(services.GetSMSService(), services.GetPaymentService(), marketplace, services.GetAIService())
	voiceHandler := handlers.NewVoiceHandler(services.GetVoiceService())

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Soko Connect!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health": "/health",
				"ussd":   "/ussd",
				"sms":    "/sms",
				"voice":  "/voice",
			},
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		storageMode := "postgres"
		if os.Getenv("USE_MEMORY_STORE") == "true" {
			storageMode = "memory"
		}
		return c.JSON(fiber.Map{
			"status":         "healthy",
			"version":        "1.0.0",
			"storage":        storageMode,
			"twilio":         services.GetTwilioService() != nil,
			"sessions":       sessions.Len(),
			"pending_orders": marketplace.PendingCount(),
		})
	})

	// ========== USSD WEBHOOK ==========
	devMode := os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true"
	if devMode {
		app.Post("/ussd", ussdHandler.HandleWebhook)
		log.Println("⚠️  Webhook validation DISABLED for development")
	} else {
		app.Post("/ussd", middleware.ValidateGatewayToken(), ussdHandler.HandleWebhook)
	}

	// ========== SMS ROUTES ==========
	sms := app.Group("/sms")
	sms.Post("/send", smsHandler.HandleSend)
	sms.Post("/bulk", smsHandler.HandleBulk)
	if devMode {
		sms.Post("/inbound", smsHandler.HandleInbound)
	} else {
		sms.Post("/inbound", middleware.ValidateGatewayToken(), smsHandler.HandleInbound)
	}

	// ========== VOICE ROUTES ==========
	voice := app.Group("/voice")
	voice.Post("/call", voiceHandler.HandleCall)
	if devMode {
		voice.Post("/shop-lang", voiceHandler.HandleShopLanguage)
		voice.Post("/shop", voiceHandler.HandleShop)
		voice.Post("/events", voiceHandler.HandleEvents)
		voice.Get("/events", voiceHandler.HandleEvents)
	} else {
		voice.Post("/shop-lang", middleware.ValidateTwilioSignature(), voiceHandler.HandleShopLanguage)
		voice.Post("/shop", middleware.ValidateTwilioSignature(), voiceHandler.HandleShop)
		voice.Post("/events", middleware.ValidateTwilioSignature(), voiceHandler.HandleEvents)
		voice.Get("/events", middleware.ValidateTwilioSignature(), voiceHandler.HandleEvents)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/products", func(c *fiber.Ctx) error {
		products, err := store.GetProducts(c.Query("category"), c.Query("region"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch products"})
		}
		return c.JSON(fiber.Map{"count": len(products), "products": products})
	})
	admin.Get("/orders/:phone", func(c *fiber.Ctx) error {
		orders, err := store.GetOrdersByPhone(c.Params("phone"), 20)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
		}
		return c.JSON(fiber.Map{"count": len(orders), "orders": orders})
	})
}
