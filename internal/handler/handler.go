package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"todo_api/internal/activity"
	"todo_api/internal/apperror"
	"todo_api/internal/cache"
	"todo_api/internal/config"
	"todo_api/internal/middleware"
	"todo_api/internal/observability"
	"todo_api/internal/queue"
	"todo_api/internal/task"
	"todo_api/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SetupHandler initializes all dependencies and routes
func SetupHandler(db *sql.DB, conn *amqp.Connection, redisClient *redis.Client, cfg *config.Config, metrics *observability.Metrics) *gin.Engine {
	apperror.UseJSONFieldNames()

	r := gin.Default()
	// Prometheus wraps the error handler so it sees the rendered status
	r.Use(middleware.PrometheusMiddleware(metrics))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(middleware.ErrorHandlerMiddleware())

	// Initialize repositories
	userRepo := user.NewUserRepository()
	taskRepo := task.NewTaskRepository()
	activityRepo := activity.NewActivityRepository()

	// Initialize services
	userService := user.NewUserService(userRepo, db, &cfg.JWT, metrics)

	var publisher task.EventPublisher
	if conn != nil {
		publisher = queue.NewPublisher(conn, cfg.RabbitMQ.EventQueue, metrics)
	}
	var taskCache task.TaskCacher
	if redisClient != nil {
		taskCache = cache.NewTaskCache(redisClient, cfg.Redis.TaskTTL)
	}
	taskService := task.NewTaskService(taskRepo, db, taskCache, publisher, cfg.PageSize, metrics)

	// Initialize controllers
	userController := user.NewUserController(userService)
	taskController := task.NewTaskController(taskService)
	activityController := activity.NewActivityController(activity.NewActivityService(activityRepo, db))

	var public []gin.HandlerFunc
	protected := []gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWT.Secret)}
	if redisClient != nil {
		public = append(public, middleware.RateLimiterMiddleware(redisClient, middleware.StrictRateLimiter(), middleware.ClientIPKey))
		protected = append(protected, middleware.RateLimiterMiddleware(
			redisClient,
			middleware.CustomRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate),
			middleware.UserKey,
		))
	}

	r.GET("/health", healthCheck(db))
	setupRoutes(r, userController, taskController, activityController, public, protected)

	return r
}

// setupRoutes configures all application routes. public runs before the
// anonymous auth endpoints, protected before everything that needs a user.
func setupRoutes(r *gin.Engine, userCtrl *user.UserController, taskCtrl *task.TaskController, activityCtrl *activity.ActivityController, public, protected []gin.HandlerFunc) {
	api := r.Group("/api")

	userCtrl.SetupRoutes(api, public...)
	userCtrl.SetupProtectedRoutes(api, protected...)
	taskCtrl.SetupRoutes(api, protected...)
	activityCtrl.SetupRoutes(api, protected...)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func healthCheck(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
