package main

import (
	"log"
	"strconv"

	"livearena/config"
	"livearena/controllers"
	"livearena/db"
	"livearena/internal/relay"
	"livearena/middlewares"
	"livearena/services"
	"livearena/utils"
	"livearena/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load the configuration from the specified YAML file
	cfg, err := config.LoadConfig("./config/config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	utils.SetJWTSecret(cfg.JWT.Secret)
	utils.SetJWTExpiry(cfg.JWT.Expiry)

	// Connect to MongoDB using the URI from the configuration
	if err := db.ConnectMongoDB(cfg.Database.URI); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB")

	if err := middlewares.InitCasbin(cfg.Database.URI); err != nil {
		log.Fatalf("Failed to initialize RBAC: %v", err)
	}

	// Seed dev data
	utils.PopulateTestUsers()
	utils.SeedEvents()

	// The hub owns the room registry; the session services are shared
	// between the socket handler and the REST controllers.
	hub := websocket.NewHub()
	store := services.NewSessionStore()
	turns := services.NewTurnController(store, hub, cfg.Session.SpeakingSeconds, cfg.Session.QuestionSeconds)
	scores := services.NewScoreService(store, hub)

	// The relay is optional: without Redis, rooms are process-local and
	// multi-instance deployments need sticky routing.
	if cfg.Redis.Addr != "" {
		rdb, err := relay.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		hub.AttachRelay(relay.NewRelay(rdb, hub))
		log.Println("Cross-instance relay enabled")
	}

	router := setupRouter(hub, store, turns, scores)
	port := strconv.Itoa(cfg.Server.Port)
	log.Printf("Server starting on port %s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRouter(hub *websocket.Hub, store *services.SessionStore, turns *services.TurnController, scores *services.ScoreService) *gin.Engine {
	router := gin.Default()

	router.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	router.OPTIONS("/*path", func(c *gin.Context) { c.Status(204) })

	router.POST("/login", controllers.Login)

	sessionController := controllers.NewSessionController(store, turns, scores)
	socketHandler := websocket.NewHandler(hub, store, turns, scores)

	auth := router.Group("/")
	auth.Use(middlewares.AuthMiddleware())
	{
		// Live session socket endpoint
		auth.GET("/ws/session", socketHandler.Serve)

		api := auth.Group("/api")
		{
			api.POST("/events", middlewares.RBACMiddleware("event", "create"), sessionController.CreateEvent)
			api.POST("/sessions/:eventId", middlewares.RBACMiddleware("session", "create"), sessionController.CreateSession)
			api.GET("/sessions/:eventId", sessionController.GetSession)
			api.POST("/sessions/:eventId/participants", middlewares.RBACMiddleware("participant", "register"), sessionController.RegisterParticipant)
			api.GET("/sessions/:eventId/leaderboard", sessionController.GetLeaderboard)
			api.POST("/sessions/:eventId/end", middlewares.RBACMiddleware("session", "end"), sessionController.EndSession)
		}
	}

	return router
}
