package routes

import (
	"github.com/dwill458/Anchor--sub003/controllers"
	"github.com/dwill458/Anchor--sub003/middlewares"
	"github.com/dwill458/Anchor--sub003/services"

	"github.com/gin-gonic/gin"
)

// Deps carries the service singletons the router hands to struct
// controllers. Free-function controllers reach config.DB directly.
type Deps struct {
	Enhancement *services.EnhancementService
	Analytics   *services.AnalyticsService
	Push        *services.PushService
	Reminders   *services.ReminderService
	Realtime    *services.RealtimeHub
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.Default()

	enhCtl := controllers.NewEnhancementController(d.Enhancement)
	anaCtl := controllers.NewAnalyticsController(d.Analytics)
	devCtl := controllers.NewDevController(d.Push, d.Enhancement, d.Reminders)
	deviceCtl := controllers.NewDeviceController(d.Push)
	rtCtl := controllers.NewRealtimeController(d.Realtime)

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/verify-mfa", controllers.VerifyMFA)
		auth.POST("/forgot-password", controllers.ForgotPassword)
		auth.POST("/reset-password", controllers.ResetPassword)
	}

	// Protected user routes
	user := r.Group("/user")
	user.Use(middlewares.AuthMiddleware())
	{
		user.GET("/profile", controllers.GetProfile)
		user.PUT("/profile", controllers.UpdateProfile)
		user.PUT("/profile-picture", controllers.UploadProfilePicture)
		user.POST("/onboarding", controllers.CompleteOnboarding)
		user.DELETE("/account", controllers.DeleteAccount)
		user.GET("/settings", controllers.GetSettings)
		user.PATCH("/settings", controllers.UpdateSettings)
		user.PUT("/settings", controllers.UpdateSettings) // older app builds send PUT
		user.POST("/notifications/toggle", controllers.ToggleNotifications)
	}

	// Sigil generation: pure computation, but still owner-authenticated so
	// the preview endpoints can't be farmed anonymously.
	sigils := r.Group("/sigils")
	sigils.Use(middlewares.AuthMiddleware())
	{
		sigils.POST("/preview", controllers.PreviewSigil)
		sigils.POST("/manual", controllers.ManualSigil)
	}

	mantras := r.Group("/mantras")
	mantras.Use(middlewares.AuthMiddleware())
	{
		mantras.POST("/suggest", controllers.SuggestMantras)
	}

	// Anchor lifecycle + vault
	anchors := r.Group("/anchors")
	anchors.Use(middlewares.AuthMiddleware())
	{
		anchors.POST("", controllers.CreateAnchor)
		anchors.GET("", controllers.ListAnchors)
		anchors.GET("/:id", controllers.GetAnchor)
		anchors.DELETE("/:id", controllers.DeleteAnchor)
		anchors.POST("/:id/archive", controllers.ArchiveAnchor)
		anchors.PUT("/:id/mantra", controllers.SetMantra)
		anchors.POST("/:id/charge", controllers.ChargeAnchor)
		anchors.POST("/:id/activate", controllers.ActivateAnchor)
		anchors.GET("/:id/activations", controllers.ListActivations)
		anchors.GET("/:id/enhancements", enhCtl.ListForAnchor)
		anchors.POST("/:id/enhancement", controllers.ChooseEnhancement)
	}

	// AI enhancement. The /api/ai/enhance path and its camelCase body are
	// the contract shipped in released app builds; don't rename them.
	ai := r.Group("/api/ai")
	ai.Use(middlewares.AuthMiddleware())
	{
		ai.POST("/enhance", enhCtl.EnhanceSync)
	}

	enh := r.Group("/enhancements")
	enh.Use(middlewares.AuthMiddleware())
	{
		enh.POST("", enhCtl.EnhanceAsync)
		enh.GET("/:id", enhCtl.GetJob)
		enh.POST("/:id/cancel", enhCtl.CancelJob)
	}

	// Practice analytics
	analytics := r.Group("/analytics")
	analytics.Use(middlewares.AuthMiddleware())
	{
		analytics.GET("/summary", anaCtl.GetPracticeSummary)
		analytics.GET("/weekly", anaCtl.GetWeeklyOverview)
	}

	// Devices, events, realtime
	protected := r.Group("")
	protected.Use(middlewares.AuthMiddleware())
	{
		protected.POST("/devices", deviceCtl.Register)
		protected.GET("/events", controllers.ListEvents)
		protected.GET("/ws/events", rtCtl.EventsWS)
	}

	// Dev utilities, 404 unless DEV_ENDPOINTS=true
	dev := r.Group("/dev")
	dev.Use(middlewares.DevOnly(), middlewares.AuthMiddleware())
	{
		dev.POST("/push-test", devCtl.PushTest)
		dev.POST("/enhance-sync", devCtl.EnhanceInline)
		dev.POST("/send-reminders", devCtl.SendReminders)
	}

	return r
}
