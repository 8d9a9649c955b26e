package routes

import (
	"pawsewa/constants"
	"pawsewa/controllers/auth"
	"pawsewa/controllers/care"
	"pawsewa/controllers/location"
	"pawsewa/controllers/notification"
	"pawsewa/controllers/payment"
	"pawsewa/controllers/pet"
	"pawsewa/controllers/realtime"
	"pawsewa/controllers/server"
	"pawsewa/controllers/service_request"
	"pawsewa/controllers/subscription"
	"pawsewa/controllers/user"
	"pawsewa/logger"
	"pawsewa/metrics"
	"pawsewa/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers is everything SetupRoutes mounts. main builds it.
type Handlers struct {
	Resolver       middleware.ActorResolver
	AuditLog       *logger.AsyncLogger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	MetricsPath    string
	Health         *server.HealthController
	Auth           *auth.AuthController
	User           *user.UserController
	Pet            *pet.PetController
	ServiceRequest *service_request.ServiceRequestController
	Payment        *payment.PaymentController
	Subscription   *subscription.SubscriptionController
	Notification   *notification.NotificationController
	Care           *care.CareController
	Location       *location.LocationController
	Realtime       *realtime.RealtimeController
}

func SetupRoutes(app *fiber.App, h Handlers) {
	app.Use(middleware.Metrics(h.Metrics))

	if h.Gatherer != nil {
		app.Get(h.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}
	app.Get("/health", h.Health.Health)

	/*=============================================================================
	| Realtime
	===============================================================================*/
	app.Get("/ws", h.Realtime.Upgrade, h.Realtime.Handle())

	api := app.Group("/api/v1", middleware.AuditLog(h.AuditLog))
	api.Get("/health", h.Health.Health)
	authenticated := middleware.Authenticate(h.Resolver)

	/*=============================================================================
	| Public Routes
	===============================================================================*/
	users := api.Group("/users")
	users.Post("/register", h.Auth.Register)
	users.Post("/login", h.Auth.Login)
	users.Post("/logout", h.Auth.Logout)

	// gateway return URLs carry no bearer token
	payments := api.Group("/payments")
	payments.Get("/khalti/callback", h.Payment.KhaltiCallback)
	payments.Get("/esewa/callback", h.Payment.EsewaCallback)
	payments.Get("/payment-success", h.Payment.Success)
	payments.Get("/payment-failed", h.Payment.Failed)

	api.Get("/subscriptions/plans", h.Subscription.Plans)

	/*=============================================================================
	| User Routes
	===============================================================================*/
	users.Get("/profile", authenticated, middleware.RequireAuthentication(), h.User.Profile)
	users.Post("/staff", authenticated, middleware.RequirePermissions(
		constants.CapStaffManage,
	), h.User.CreateStaff)
	users.Get("/staff", authenticated, middleware.RequirePermissions(
		constants.CapStaffManage,
		constants.CapRequestAssign,
	), h.User.ListStaff)

	/*=============================================================================
	| Pet Routes
	===============================================================================*/
	pets := api.Group("/pets", authenticated, middleware.RequireAuthentication())
	pets.Post("/", h.Pet.Create)
	pets.Get("/my", h.Pet.Mine)
	pets.Get("/:id", h.Pet.Show)
	pets.Put("/:id", h.Pet.Update)

	/*=============================================================================
	| Service Request Routes
	===============================================================================*/
	requests := api.Group("/service-requests", authenticated, middleware.RequireAuthentication())

	requests.Post("/", middleware.RequirePermissions(
		constants.CapRequestCreate,
	), h.ServiceRequest.Store)
	requests.Get("/", middleware.RequirePermissions(
		constants.CapRequestViewAll,
	), h.ServiceRequest.Index)
	requests.Get("/my", h.ServiceRequest.Mine)
	requests.Get("/assignments", middleware.RequirePermissions(
		constants.CapRequestWork,
		constants.CapLocationUpdate,
	), h.ServiceRequest.Assignments)
	requests.Get("/stats", middleware.RequirePermissions(
		constants.CapRequestStats,
	), h.ServiceRequest.Stats)
	requests.Get("/:id", h.ServiceRequest.Show)

	requests.Patch("/:id/assign", middleware.RequirePermissions(
		constants.CapRequestAssign,
	), h.ServiceRequest.Assign)
	requests.Patch("/:id/start", h.ServiceRequest.Start)
	requests.Patch("/:id/complete", h.ServiceRequest.Complete)
	requests.Patch("/:id/cancel", h.ServiceRequest.Cancel)
	requests.Post("/:id/review", h.ServiceRequest.Review)

	requests.Get("/:id/messages", h.ServiceRequest.Messages)
	requests.Post("/:id/messages", h.ServiceRequest.SendMessage)
	requests.Get("/:id/live", h.ServiceRequest.Live)
	requests.Post("/:id/prescription", middleware.RequirePermissions(
		constants.CapPrescriptionCapture,
	), h.ServiceRequest.CapturePrescription)
	requests.Get("/:id/prescriptions", h.ServiceRequest.Prescriptions)

	/*=============================================================================
	| Care Request Routes
	===============================================================================*/
	careGroup := api.Group("/care-requests", authenticated, middleware.RequireAuthentication())
	careGroup.Post("/", h.Care.Store)
	careGroup.Get("/my", h.Care.Mine)

	/*=============================================================================
	| Payment Routes
	===============================================================================*/
	payments.Post("/initiate-payment", authenticated, middleware.RequireAuthentication(), h.Payment.Initiate)
	payments.Post("/initiate", authenticated, middleware.RequireAuthentication(), h.Payment.Initiate)
	payments.Post("/verify-payment", authenticated, middleware.RequireAuthentication(), h.Payment.Verify)
	payments.Get("/:id", authenticated, middleware.RequireAuthentication(), h.Payment.Show)

	/*=============================================================================
	| Subscription Routes
	===============================================================================*/
	subscriptions := api.Group("/subscriptions", authenticated, middleware.RequireAuthentication())
	subscriptions.Get("/my", h.Subscription.Mine)
	subscriptions.Post("/initiate", h.Subscription.Initiate)

	/*=============================================================================
	| Notification Routes
	===============================================================================*/
	notifications := api.Group("/notifications", authenticated, middleware.RequireAuthentication())
	notifications.Get("/", h.Notification.Index)
	notifications.Patch("/read-all", h.Notification.MarkAllRead)
	notifications.Patch("/:id/read", h.Notification.MarkRead)

	/*=============================================================================
	| Location Routes
	===============================================================================*/
	locations := api.Group("/location", authenticated, middleware.RequireAuthentication())
	locations.Post("/update", h.Location.Update)
	locations.Get("/live", middleware.RequirePermissions(
		constants.CapLocationViewAll,
	), h.Location.Live)
}
