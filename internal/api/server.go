package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tixgate/internal/cache"
	"tixgate/internal/config"
	"tixgate/internal/database"
	"tixgate/internal/handlers"
	"tixgate/internal/jobs"
	"tixgate/internal/locks"
	"tixgate/internal/logger"
	"tixgate/internal/messaging"
	"tixgate/internal/middleware"
	"tixgate/internal/repository"
	"tixgate/internal/service"
)

// Server wires the HTTP API together with its backing stores.
type Server struct {
	router     *gin.Engine
	config     *config.Config
	db         *database.DB
	nats       *messaging.NATSClient
	services   *service.Services
	repos      *repository.Repositories
	sweeper    *jobs.Sweeper
	httpServer *http.Server
}

// NewServer builds the full dependency graph: Postgres, Redis, NATS,
// repositories, services, routes. Startup failures are fatal.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	redisClient, err := locks.NewClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	lockStore := locks.NewStore(redisClient, cfg.ReservationWindow)
	seatMaps := cache.NewSeatMapCache(redisClient)

	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, lockStore, seatMaps, natsClient)

	sweeper := jobs.NewSweeper(repos.Bookings, repos.Orders, services.Orders, lockStore, natsClient,
		cfg.OrderTimeout, cfg.SweepInterval)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		services: services,
		repos:    repos,
		sweeper:  sweeper,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")

	// Public catalog reads
	api.GET("/events", h.ListEvents)
	api.GET("/events/:id", h.GetEvent)
	api.GET("/events/:id/showtimes/:showtime_id/seat-map", h.SeatMap)

	// Organizer endpoints
	api.POST("/events", h.CreateEvent)
	api.PATCH("/events/:id/approval", h.SetApproval)
	api.POST("/events/:id/showtimes", h.CreateShowtime)
	api.POST("/events/:id/zones", h.CreateZone)
	api.POST("/events/:id/zone-tickets", h.CreateZoneTicket)

	// Buyer endpoints require an identity
	authed := api.Group("")
	authed.Use(middleware.Identity())
	{
		reservations := authed.Group("/reservations")
		{
			reservations.PATCH("/seats/select", h.SelectSeat)
			reservations.PATCH("/seats/deselect", h.DeselectSeat)
			reservations.PATCH("/zones/reserve", h.ReserveZone)
			reservations.PATCH("/zones/release", h.ReleaseZone)
		}

		orders := authed.Group("/orders")
		{
			orders.POST("", h.CreateOrder)
			orders.GET("", h.ListOrders)
			orders.PATCH("/cancel", h.CancelOrder)
		}

		tickets := authed.Group("/tickets")
		{
			tickets.POST("/issue", h.IssueTickets)
			tickets.GET("", h.ListTickets)
			tickets.PATCH("/redeem", h.RedeemTicket)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start runs the expiration sweeper and begins serving HTTP.
func (s *Server) Start() error {
	s.sweeper.Start(context.Background())

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.config.Port),
		Handler: s.router,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the sweeper and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sweeper.Stop()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	s.nats.Close()
	return s.db.Close()
}
