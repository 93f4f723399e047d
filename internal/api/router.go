package api

import (
	"github.com/gin-gonic/gin"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/handler"
	"github.com/vishnuchaithanya1/Park-Ease/internal/api/middleware"
	"github.com/vishnuchaithanya1/Park-Ease/internal/domain"
	"github.com/vishnuchaithanya1/Park-Ease/internal/notify"
	"github.com/vishnuchaithanya1/Park-Ease/internal/service"
)

// Services bundles what the HTTP surface calls into.
type Services struct {
	Auth     *service.AuthService
	Areas    *service.AreaService
	Vehicles *service.VehicleService
	Bookings *service.BookingService
	Dues     *service.DuesLedger
	Payments *service.PaymentService
	Gate     *service.GateService
	Hub      *notify.Hub
}

func SetupRouter(s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	if s.Hub != nil {
		wsHandler := handler.NewWebSocketHandler(s.Hub)
		r.GET("/ws", wsHandler.HandleWebSocket)
	}

	authHandler := handler.NewAuthHandler(s.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	authMw := middleware.NewAuthMiddleware(s.Auth)
	operators := authMw.AuthorizeRole(domain.RoleGuard, domain.RoleAreaOwner, domain.RoleAdmin)
	owners := authMw.AuthorizeRole(domain.RoleAreaOwner, domain.RoleAdmin)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		areaH := handler.NewAreaHandler(s.Areas)
		bookingH := handler.NewBookingHandler(s.Bookings, s.Payments)

		v1.GET("/availability", areaH.ListAvailability)

		areaRoutes := v1.Group("/areas")
		{
			areaRoutes.POST("", owners, areaH.CreateArea)
			areaRoutes.GET("", areaH.ListAreas)
			areaRoutes.GET("/:id", areaH.GetArea)
			areaRoutes.GET("/:id/availability", areaH.GetAvailability)
			areaRoutes.GET("/:id/slots", operators, areaH.ListSlots)
			areaRoutes.GET("/:id/bookings", operators, bookingH.ListActiveForArea)
			areaRoutes.PUT("/:id/capacity", owners, areaH.ResizeArea)
			areaRoutes.PUT("/:id/multipliers", owners, areaH.UpdateMultipliers)
			areaRoutes.POST("/:id/guards", owners, areaH.AssignGuard)
		}
		v1.PUT("/slots/:id/status", owners, areaH.SetSlotStatus)

		vehicleH := handler.NewVehicleHandler(s.Vehicles)
		vehicleRoutes := v1.Group("/vehicles")
		{
			vehicleRoutes.POST("", vehicleH.Register)
			vehicleRoutes.GET("", vehicleH.ListMine)
			vehicleRoutes.POST("/:id/access", vehicleH.GrantAccess)
			vehicleRoutes.GET("/:id/dues", vehicleH.Dues)
		}

		bookingRoutes := v1.Group("/bookings")
		{
			bookingRoutes.POST("", bookingH.CreateReservation)
			bookingRoutes.GET("", bookingH.ListMine)
			bookingRoutes.GET("/:id", bookingH.GetBooking)
			bookingRoutes.POST("/:id/check-in", bookingH.CheckIn)
			bookingRoutes.POST("/:id/check-out", bookingH.CheckOut)
			bookingRoutes.POST("/:id/pay", bookingH.Pay)
			bookingRoutes.POST("/:id/default", operators, bookingH.ForceDefault)
		}

		duesH := handler.NewDuesHandler(s.Dues, s.Payments)
		duesRoutes := v1.Group("/dues")
		{
			duesRoutes.GET("", duesH.Summary)
			duesRoutes.POST("/:id/pay", duesH.Pay)
		}

		if s.Gate != nil {
			gateH := handler.NewGateHandler(s.Gate)
			gateRoutes := v1.Group("/gate")
			gateRoutes.Use(operators)
			{
				gateRoutes.POST("/plate", gateH.ProcessPlate)
			}
		}
	}
	return r
}
