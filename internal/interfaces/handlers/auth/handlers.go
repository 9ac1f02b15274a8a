package auth

import (
	"errors"

	authsvc "stockhouse-backend/internal/application/auth"
	"stockhouse-backend/internal/middleware"
	"stockhouse-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Service *authsvc.Service
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, authsvc.ErrMissingFields),
		errors.Is(err, authsvc.ErrEmailPasswordRequired),
		errors.Is(err, authsvc.ErrInvalidEmail),
		errors.Is(err, authsvc.ErrWeakPassword),
		errors.Is(err, authsvc.ErrInvalidName),
		errors.Is(err, authsvc.ErrRoleNotAllowed),
		errors.Is(err, authsvc.ErrUserExists):
		return fiber.StatusBadRequest
	case errors.Is(err, authsvc.ErrInvalidCredentials), errors.Is(err, authsvc.ErrNotAuthenticated):
		return fiber.StatusUnauthorized
	case errors.Is(err, authsvc.ErrUserNotFound):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

func fail(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code == fiber.StatusInternalServerError {
		return response.Internal(c, err)
	}
	return response.Error(c, err.Error(), code, nil)
}

// Signup POST /auth/signup
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var in authsvc.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, authsvc.ErrMissingFields.Error(), fiber.StatusBadRequest, nil)
	}
	session, err := h.Service.Signup(c.Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.SuccessCreated(c, "User created", session, nil)
}

// Login POST /auth/login
func (h *Handlers) Login(c *fiber.Ctx) error {
	var in authsvc.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, authsvc.ErrEmailPasswordRequired.Error(), fiber.StatusBadRequest, nil)
	}
	session, err := h.Service.Login(c.Context(), in)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Login successful", session, nil)
}

// UserType GET /auth/user/:id
func (h *Handlers) UserType(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid UUID format for id", fiber.StatusBadRequest, nil)
	}
	role, err := h.Service.UserType(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "User type fetched", fiber.Map{"userType": role}, nil)
}

// Me GET /auth/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	actor := middleware.GetActor(c)
	if actor == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	profile, err := h.Service.Profile(c.Context(), actor.UserID)
	if err != nil {
		return fail(c, err)
	}
	return response.Success(c, "Authenticated", profile, nil)
}

// Logout DELETE /auth/logout revokes the presented token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, authsvc.ErrNotAuthenticated.Error())
	}
	if err := h.Service.Logout(c.Context(), claims); err != nil {
		return response.Internal(c, err)
	}
	return response.Success(c, "Logged out successfully", fiber.Map{"success": true}, nil)
}
