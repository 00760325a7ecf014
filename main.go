package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/sokoconnect/soko-backend/database"
	"github.com/sokoconnect/soko-backend/internal/jobs"
	"github.com/sokoconnect/soko-backend/internal/models"
	"github.com/sokoconnect/soko-backend/internal/routes"
	"github.com/sokoconnect/soko-backend/internal/services"
	"github.com/sokoconnect/soko-backend/internal/storage"
	"github.com/sokoconnect/soko-backend/internal/ussd"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage with demo catalog (not for production!)")
		store = storage.NewSeededMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Product{},
			&models.Vendor{},
			&models.Order{},
			&models.OrderItem{},
			&models.WalletAccount{},
			&models.Transaction{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}
	storage.SetStore(store)

	// Initialize Twilio service
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio service not initialized: %v", err)
		log.Println("⚠️  SMS and voice features will log instead of sending")
	} else {
		services.SetTwilioService(twilioService)
		log.Println("✅ Twilio service initialized")
	}

	// Initialize services
	var smsService *services.SMSService
	if twilioService != nil {
		smsService = services.NewSMSService(twilioService)
	} else {
		smsService = services.NewSMSService(nil)
	}
	services.SetSMSService(smsService)

	paymentService := services.NewPaymentService(store)
	services.SetPaymentService(paymentService)

	marketplaceService := services.NewMarketplaceService(store, paymentService, smsService)

	voiceService := services.NewVoiceService(twilioService, marketplaceService, smsService)
	services.SetVoiceService(voiceService)

	if aiService, err := services.NewAIService(context.Background()); err != nil {
		log.Printf("⚠️  AI service not initialized: %v", err)
	} else {
		services.SetAIService(aiService)
		log.Println("✅ AI service initialized")
	}

	// USSD session store and routing engine
	sessionTTL := ussd.DefaultSessionTTL
	if v := os.Getenv("USSD_SESSION_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			sessionTTL = time.Duration(secs) * time.Second
		} else {
			log.Printf("⚠️  Invalid USSD_SESSION_TTL=%q, using default", v)
		}
	}
	sessions := ussd.NewMemorySessionStore(sessionTTL, paymentService)
	engine := ussd.NewEngine(sessions, marketplaceService, paymentService, voiceService)
	log.Println("✅ USSD engine initialized")

	// Background janitor: expires stale pending orders
	janitor := jobs.NewJanitor(marketplaceService, sessions)
	janitor.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Soko Connect v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	routes.SetupRoutes(app, store, engine, sessions, marketplaceService)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		janitor.Stop()
		sessions.Close()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 Soko Connect starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("📱 Twilio: %s", getTwilioStatus(twilioService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getTwilioStatus(ts *services.TwilioService) string {
	if ts == nil {
		return "Not configured"
	}
	return "Configured"
}
