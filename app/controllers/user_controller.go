package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/toolpress/toolpress/app/models"
	"github.com/toolpress/toolpress/app/repository"
	"github.com/toolpress/toolpress/internal/pkg/apperr"
)

// UserController exposes account registration and lookup.
type UserController struct {
	users repository.UserRepository
}

func NewUserController(users repository.UserRepository) *UserController {
	return &UserController{users: users}
}

type registerUserRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleRegister handles POST /api/v1/users
func (ctrl *UserController) HandleRegister(c *fiber.Ctx) error {
	var req registerUserRequest
	if err := parseAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	if existing, err := ctrl.users.GetByEmail(req.Email); err == nil && existing != nil {
		return respondError(c, apperr.Validation("Email is already registered"))
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, apperr.Validation(err.Error()))
	}
	if err := ctrl.users.Create(user); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleGet handles GET /api/v1/users/:id
func (ctrl *UserController) HandleGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return respondError(c, errInvalidID)
	}

	user, err := ctrl.users.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFound("User not found"))
		}
		return respondError(c, err)
	}
	return c.JSON(user)
}
