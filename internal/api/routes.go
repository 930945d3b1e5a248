package api

import (
	"gorillax/fitness-api/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	syncService service.SyncService,
	workoutService service.WorkoutService,
	exerciseService service.ExerciseService,
	mediaService service.MediaService,
) {
	authHandler := NewAuthHandler(authService)
	syncHandler := NewSyncHandler(syncService)
	workoutHandler := NewWorkoutHandler(workoutService)
	exerciseHandler := NewExerciseHandler(exerciseService)
	mediaHandler := NewMediaHandler(mediaService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", authHandler.Me)

		// --- Sync Routes ---
		syncGroup := protected.Group("/sync")
		{
			syncGroup.POST("/push", syncHandler.Push)
			syncGroup.GET("/pull", syncHandler.Pull)
		}

		// --- Workout Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.POST("", workoutHandler.CreateWorkout)
			workoutGroup.GET("", workoutHandler.GetWorkouts)
			workoutGroup.GET("/:id", workoutHandler.GetWorkoutDetail)
			workoutGroup.DELETE("/:id", workoutHandler.DeleteWorkout)
		}

		// --- Exercise Catalog Routes ---
		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.GET("/:id", exerciseHandler.GetExercise)
		}

		// --- Media Routes ---
		mediaGroup := protected.Group("/media")
		{
			mediaGroup.POST("/upload-url", mediaHandler.RequestUpload)
			mediaGroup.POST("/confirm", mediaHandler.ConfirmUpload)
			mediaGroup.GET("/:id/download-url", mediaHandler.GetDownloadURL)
			mediaGroup.DELETE("/:id", mediaHandler.DeleteUpload)
		}
	}
}
