package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/lang/:lang", handler.SetLanguage)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/device", handler.DeviceLogin)
	auth.Post("/logout", handler.Logout)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)

	api.Post("/scan", handler.Scan)
	api.Post("/qr/verify", handler.AuthRequired, handler.AdminOnly, handler.VerifyQR)

	devices := api.Group("/devices")
	devices.Get("/check", handler.CheckDevice)
	devices.Post("/register", handler.AuthRequired, handler.RegisterDevice)

	meals := api.Group("/meals", handler.AuthRequired)
	meals.Get("/current", handler.CurrentMeal)
	meals.Get("/credits", handler.MonthlyCredits)
	meals.Get("/counts", handler.MealCounts)
	meals.Get("/history", handler.MealHistory)
	meals.Get("/eligibility", handler.Eligibility)
	meals.Post("/take", handler.TakeMeal)
	meals.Post("/qr", handler.IssueOwnQR)

	admin := api.Group("/admin", handler.AuthRequired, handler.AdminOnly)
	admin.Post("/qr", handler.IssueQR)
	admin.Post("/meals/force", handler.ForceMeal)
	admin.Post("/credits/refresh", handler.RefreshCredits)
	admin.Get("/schedule", handler.GetSchedule)
	admin.Put("/schedule", handler.UpdateSchedule)
	admin.Get("/users", handler.ListUsers)
	admin.Post("/users", handler.CreateUser)
	admin.Patch("/users/:id", handler.UpdateUser)
	admin.Delete("/users/:id", handler.DeactivateUser)
	admin.Post("/users/:id/approval", handler.SetUserApproval)
	admin.Post("/users/:id/toggle", handler.ToggleUser)
	admin.Get("/stats", handler.DashboardStats)
	admin.Get("/scans", handler.ScanStats)
	admin.Get("/reports/monthly", handler.MonthlyReport)
}
