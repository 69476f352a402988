package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealcredit/internal/models"
	"github.com/terraincognita07/mealcredit/internal/services"
)

func (handler *Handler) ListUsers(c *fiber.Ctx) error {
	filter := models.UserFilter{
		Role:       strings.TrimSpace(c.Query("role")),
		Department: strings.TrimSpace(c.Query("department")),
		Search:     strings.TrimSpace(c.Query("q")),
		OnlyActive: c.QueryBool("active", false),
		Pending:    c.QueryBool("pending", false),
	}

	users, err := handler.userAdmin.List(filter)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (handler *Handler) CreateUser(c *fiber.Ctx) error {
	input := createUserInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.userAdmin.Create(services.CreateUserInput{
		Name:       input.Name,
		Department: input.Department,
		Email:      input.Email,
		Password:   input.Password,
		Role:       input.Role,
	})
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

func (handler *Handler) UpdateUser(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	input := updateUserInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.userAdmin.Update(userID, services.UserUpdate{
		Name:       input.Name,
		Department: input.Department,
		Email:      input.Email,
		Role:       input.Role,
	})
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) DeactivateUser(c *fiber.Ctx) error {
	admin, _ := currentUser(c)
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.userAdmin.Deactivate(admin.ID, userID)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) SetUserApproval(c *fiber.Ctx) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}
	input := approvalInput{}
	if err := c.BodyParser(&input); err != nil {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.userAdmin.SetApproval(userID, input.Approved)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}

func (handler *Handler) ToggleUser(c *fiber.Ctx) error {
	admin, _ := currentUser(c)
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return handler.apiError(c, fiber.StatusBadRequest, "invalid_input")
	}

	user, err := handler.userAdmin.ToggleActive(admin.ID, userID)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{"user": user})
}
