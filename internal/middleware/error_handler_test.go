package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/districtcms/backend/internal/apperr"
)

func appWithErrorHandler() *fiber.App {
	logger := zerolog.Nop()
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
}

func TestErrorHandlerMapsAppError(t *testing.T) {
	app := appWithErrorHandler()
	app.Get("/test", func(c *fiber.Ctx) error {
		return apperr.NotFound("case")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var env struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "NotFound", env.Kind)
	assert.Equal(t, "case not found", env.Message)
}

func TestErrorHandlerMapsFiberError(t *testing.T) {
	app := appWithErrorHandler()
	app.Get("/test", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "bad input")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestErrorHandlerMapsGenericErrorToInternal(t *testing.T) {
	app := appWithErrorHandler()
	app.Get("/test", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var env struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "InternalError", env.Kind)
}

func TestErrorHandlerValidationErrorCarriesFieldErrors(t *testing.T) {
	app := appWithErrorHandler()
	app.Get("/test", func(c *fiber.Ctx) error {
		return apperr.Validation(map[string]string{"description": "required"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var env struct {
		FieldErrors map[string]string `json:"field_errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "required", env.FieldErrors["description"])
}
