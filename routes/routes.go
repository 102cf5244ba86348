package routes

import (
	"classplanner_go/controllers"
	"classplanner_go/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App) {
	// Initialize controllers
	authController := &controllers.AuthController{}
	roomController := &controllers.RoomController{}
	teacherController := &controllers.TeacherController{}
	sessionController := &controllers.SessionController{}
	healthController := &controllers.HealthController{}
	classController := controllers.NewClassController()
	suspensionController := controllers.NewSuspensionController()
	mergeController := controllers.NewMergeController()

	// API group
	api := app.Group("/api")

	// Health check (no authentication)
	api.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Get("/profile", middleware.JWTMiddleware(), authController.GetProfile)

	// Protected routes (require authentication)
	protected := api.Group("/", middleware.JWTMiddleware())

	protected.Get("/profile", authController.GetProfile)
	protected.Put("/profile/password", authController.ChangePassword)
	protected.Post("/auth/logout", authController.Logout)

	// User management
	users := protected.Group("/users")
	users.Post("/", middleware.RequireOwnerOrAdmin(), authController.Register)

	// Room management
	rooms := protected.Group("/rooms")
	rooms.Get("/", middleware.RequireTeacherOrAbove(), roomController.GetRooms)
	rooms.Get("/:id", middleware.RequireTeacherOrAbove(), roomController.GetRoom)
	rooms.Get("/:id/bookings", middleware.RequireTeacherOrAbove(), roomController.GetRoomBookings)
	rooms.Post("/", middleware.RequireOwnerOrAdmin(), roomController.CreateRoom)
	rooms.Put("/:id", middleware.RequireOwnerOrAdmin(), roomController.UpdateRoom)
	rooms.Delete("/:id", middleware.RequireOwnerOrAdmin(), roomController.DeleteRoom)

	// Teacher management
	teachers := protected.Group("/teachers")
	teachers.Get("/", middleware.RequireTeacherOrAbove(), teacherController.GetTeachers)
	teachers.Get("/:id", middleware.RequireTeacherOrAbove(), teacherController.GetTeacher)
	teachers.Get("/:id/bookings", middleware.RequireTeacherOrAbove(), teacherController.GetTeacherBookings)
	teachers.Post("/", middleware.RequireOwnerOrAdmin(), teacherController.CreateTeacher)
	teachers.Put("/:id", middleware.RequireOwnerOrAdmin(), teacherController.UpdateTeacher)

	// Class lifecycle
	classes := protected.Group("/classes")
	classes.Get("/", middleware.RequireTeacherOrAbove(), classController.GetClasses)
	classes.Post("/preview", middleware.RequireTeacherOrAbove(), classController.PreviewSchedule)
	classes.Post("/check-conflicts", middleware.RequireTeacherOrAbove(), classController.CheckConflicts)
	classes.Get("/:id", middleware.RequireTeacherOrAbove(), classController.GetClass)
	classes.Post("/", middleware.RequireOwnerOrAdmin(), classController.CreateClass)
	classes.Post("/:id/finalize", middleware.RequireOwnerOrAdmin(), classController.FinalizeClass)
	classes.Put("/:id/end-date", middleware.RequireOwnerOrAdmin(), classController.UpdateEndDate)
	classes.Post("/:id/archive", middleware.RequireOwnerOrAdmin(), classController.ArchiveClass)
	classes.Post("/:id/enrollments", middleware.RequireOwnerOrAdmin(), classController.EnrollStudent)

	// Sessions
	classes.Get("/:id/sessions", middleware.RequireTeacherOrAbove(), sessionController.GetClassSessions)
	sessions := protected.Group("/sessions")
	sessions.Get("/today", middleware.RequireTeacherOrAbove(), sessionController.GetTodaySessions)
	sessions.Post("/:id/complete", middleware.RequireTeacherOrAbove(), sessionController.CompleteSession)
	sessions.Post("/:id/reschedule", middleware.RequireOwnerOrAdmin(), sessionController.RescheduleSession)
	sessions.Post("/:id/substitute", middleware.RequireOwnerOrAdmin(), sessionController.AssignSubstitute)

	// Suspensions (two-step: preview then commit)
	classes.Post("/:id/suspensions/preview", middleware.RequireOwnerOrAdmin(), suspensionController.PreviewSuspension)
	classes.Post("/:id/suspensions", middleware.RequireOwnerOrAdmin(), suspensionController.CommitSuspension)
	classes.Get("/:id/suspensions", middleware.RequireTeacherOrAbove(), suspensionController.GetClassSuspensions)

	// Merges
	classes.Get("/:id/merge-candidates", middleware.RequireOwnerOrAdmin(), mergeController.GetMergeCandidates)
	merges := protected.Group("/merges")
	merges.Post("/", middleware.RequireOwnerOrAdmin(), mergeController.CommitMerge)
	merges.Get("/history", middleware.RequireTeacherOrAbove(), mergeController.GetMergeHistory)
	merges.Post("/:id/undo", middleware.RequireOwnerOrAdmin(), mergeController.UndoMerge)
}
