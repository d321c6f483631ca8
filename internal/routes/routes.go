package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/giordana79/TaskManager-API/internal/handlers"
	"github.com/giordana79/TaskManager-API/internal/middleware"
)

// Setup mounts all routes under /api/v1.
func Setup(
	app *fiber.App,
	authH *handlers.AuthHandler,
	taskH *handlers.TaskHandler,
	adminH *handlers.AdminHandler,
	authRequired fiber.Handler,
	authLimiter fiber.Handler,
	resetLimiter fiber.Handler,
) {
	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", authLimiter, authH.Register)
	auth.Post("/login", authLimiter, authH.Login)
	auth.Post("/refresh", authH.Refresh)
	auth.Post("/logout", authRequired, authH.Logout)
	auth.Post("/request-reset", resetLimiter, authH.RequestPasswordReset)
	auth.Post("/reset-password", authH.ResetPassword)

	tasks := api.Group("/tasks", authRequired)
	tasks.Post("/", taskH.Create)
	tasks.Get("/", taskH.List)
	tasks.Patch("/:id", taskH.Update)
	tasks.Delete("/:id", taskH.Delete)
	tasks.Post("/:id/upload", taskH.Upload)
	tasks.Get("/:id/attachment", taskH.AttachmentURL)

	admin := api.Group("/admin", authRequired, middleware.RequireAdmin())
	admin.Get("/users", adminH.ListUsers)
	admin.Delete("/users/:id", adminH.DeleteUser)
	admin.Get("/tasks", adminH.ListTasks)
	admin.Patch("/tasks/:id", adminH.UpdateTask)
	admin.Delete("/tasks/:id", adminH.DeleteTask)
	admin.Post("/tasks/:id/upload", adminH.UploadTaskFile)
}
