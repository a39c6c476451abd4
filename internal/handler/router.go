package handler

import (
	"net/http"
	"time"

	"tutor-backend/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Chat     *ChatHandler
	Socket   *SocketHandler
	Quiz     *QuizHandler
	Progress *ProgressHandler
	Pomodoro *PomodoroHandler
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(RequestLogger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	}
	router.GET("/health", health)

	api := router.Group("/api")
	{
		api.GET("/health", health)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", h.Chat.CreateSession)
			sessions.GET("/:session_id", h.Chat.GetSession)
			sessions.POST("/:session_id/summary", h.Chat.Summarize)
		}

		chat := api.Group("/chat")
		{
			chat.POST("/send", h.Chat.SendMessage)
			chat.POST("/stream", h.Chat.StreamChat)
			chat.GET("/ws", h.Socket.Serve)
		}

		quiz := api.Group("/quiz")
		{
			quiz.POST("/generate", h.Quiz.GenerateQuiz)
			quiz.POST("/submit", h.Quiz.SubmitQuiz)
		}

		progress := api.Group("/progress")
		{
			progress.GET("/:session_id", h.Progress.GetProgress)
			progress.PUT("/:session_id", h.Progress.SyncProgress)
			progress.PUT("/:session_id/theme", h.Progress.SetTheme)
		}

		pomodoro := api.Group("/pomodoro")
		{
			pomodoro.GET("/:session_id", h.Pomodoro.GetState)
			pomodoro.POST("/:session_id/toggle", h.Pomodoro.Toggle)
			pomodoro.POST("/:session_id/reset", h.Pomodoro.Reset)
		}
	}

	return router
}
