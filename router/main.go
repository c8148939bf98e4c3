package router

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursekart/database"
	"github.com/sahilchouksey/coursekart/handlers"
	auth_handlers "github.com/sahilchouksey/coursekart/handlers/auth"
	checkout_handlers "github.com/sahilchouksey/coursekart/handlers/checkout"
	content_handlers "github.com/sahilchouksey/coursekart/handlers/content"
	course_handlers "github.com/sahilchouksey/coursekart/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/coursekart/handlers/enrollment"
	reports_handlers "github.com/sahilchouksey/coursekart/handlers/reports"
	wishlist_handlers "github.com/sahilchouksey/coursekart/handlers/wishlist"
	"github.com/sahilchouksey/coursekart/services/checkout"
	enrollment_service "github.com/sahilchouksey/coursekart/services/enrollment"
	"github.com/sahilchouksey/coursekart/services/razorpay"
	"github.com/sahilchouksey/coursekart/services/spaces"
	"github.com/sahilchouksey/coursekart/utils/auth"
	"github.com/sahilchouksey/coursekart/utils/cache"
	"github.com/sahilchouksey/coursekart/utils/middleware"
	"gorm.io/gorm"
)

// Services groups the long-lived services the router wires into handlers.
// The app layer builds them once so the cron manager can share the same
// checkout service instance.
type Services struct {
	Checkout    *checkout.Service
	Enrollments enrollment_service.Store
	Gate        *enrollment_service.Gate
	Reports     *database.ReportStore
}

// BuildServices constructs the checkout service graph from environment
// configuration. Redis being down degrades caching and locking but never
// blocks startup.
func BuildServices(db *gorm.DB, reports *database.ReportStore) *Services {
	redisCache := connectRedis()

	enrollments := enrollment_service.NewGormStore(db)
	gate := enrollment_service.NewGate(enrollments, redisCache)

	gateway := razorpay.NewClient(razorpay.Config{
		KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
	})

	checkoutConfig := checkout.Config{
		Catalog:       checkout.NewGormCatalog(db),
		Gateway:       gateway,
		Payments:      checkout.NewGormPaymentStore(db),
		Enrollments:   enrollments,
		Gate:          gate,
		Events:        checkout.NewGormEventStore(db),
		KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
	}
	// Assign only a live cache: a nil *RedisCache inside the Locker interface
	// would defeat the service's nil check.
	if redisCache != nil {
		checkoutConfig.Locks = redisCache
	}
	checkoutService := checkout.NewService(checkoutConfig)

	return &Services{
		Checkout:    checkoutService,
		Enrollments: enrollments,
		Gate:        gate,
		Reports:     reports,
	}
}

func connectRedis() *cache.RedisCache {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching, purchase locks and brute force protection will be disabled.", err)
		return nil
	}
	return redisCache
}

func SetupRoutes(app *fiber.App, store database.Storage, services *Services) {
	// Get JWT secret from environment
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "coursekart-api"
	}

	// Initialize JWT manager with config
	jwtConfig := auth.JWTConfig{
		Secret:        jwtSecret,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	// Get DB instance (type assert from interface)
	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	// Brute force protection shares the gate's Redis connection
	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache := services.Gate.Cache(); redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	// Initialize auth middleware with DB for blacklist checking
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Optional Spaces client for lesson resource downloads
	var spacesClient *spaces.Client
	if os.Getenv("SPACES_ACCESS_KEY") != "" {
		client, err := spaces.NewClient(spaces.Config{
			AccessKey: os.Getenv("SPACES_ACCESS_KEY"),
			SecretKey: os.Getenv("SPACES_SECRET_KEY"),
			Bucket:    os.Getenv("SPACES_BUCKET"),
			Region:    os.Getenv("SPACES_REGION"),
			Endpoint:  os.Getenv("SPACES_ENDPOINT"),
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize Spaces client: %v. Resource downloads will be disabled.", err)
		} else {
			spacesClient = client
		}
	}

	// Initialize handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(db)
	checkoutHandler := checkout_handlers.NewCheckoutHandler(services.Checkout)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(services.Enrollments, services.Gate)
	contentHandler := content_handlers.NewContentHandler(db, spacesClient)
	wishlistHandler := wishlist_handlers.NewWishlistHandler(db)
	reportsHandler := reports_handlers.NewReportsHandler(services.Reports)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", handlers.HandleCheckHealth(store))

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)

	// Course catalog (public browse)
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/:id", courseHandler.GetCourse)

	// Checkout routes (protected)
	courses.Post("/:course_id/checkout", authMiddleware.Required(), checkoutHandler.CreateOrder)
	api.Post("/checkout/verify", authMiddleware.Required(), checkoutHandler.VerifyPayment)

	// Gateway webhook (public; authenticated by its own HMAC signature)
	api.Post("/webhooks/razorpay", checkoutHandler.HandleWebhook)

	// Enrollment access check (protected)
	courses.Get("/:course_id/access", authMiddleware.Required(), enrollmentHandler.CheckAccess)

	// Gated course content: enrollment is checked once at the group boundary
	gated := courses.Group("/:course_id", authMiddleware.Required(), middleware.RequireEnrollment(services.Gate))
	gated.Get("/lessons", contentHandler.ListLessons)
	gated.Get("/lessons/:id", contentHandler.GetLesson)
	gated.Get("/lessons/:id/resources/:resource_id/download", contentHandler.DownloadResource)

	// Current-user routes (protected)
	me := api.Group("/me", authMiddleware.Required())
	me.Get("/enrollments", enrollmentHandler.ListMyEnrollments)
	me.Get("/wishlist", wishlistHandler.ListWishlist)
	me.Post("/wishlist/:course_id", wishlistHandler.ToggleWishlist)

	// Admin routes
	admin := api.Group("/admin", authMiddleware.RequireAdmin())
	admin.Post("/courses", courseHandler.CreateCourse)
	admin.Put("/courses/:id", courseHandler.UpdateCourse)
	admin.Delete("/courses/:id", courseHandler.DeleteCourse)
	admin.Get("/reports/sales", reportsHandler.GetSalesSummary)
}
