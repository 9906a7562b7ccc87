package utils

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/stridelog/stridelog/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// AppErrorResponse renders a service error using its kind mapping. Validation
// errors carry the offending field, rate limit errors the retry delay.
func AppErrorResponse(c *fiber.Ctx, appErr *types.AppError) error {
	status := appErr.Status()
	body := fiber.Map{
		"status":    status,
		"message":   appErr.Message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      string(appErr.Kind),
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if appErr.RetryAfter > 0 {
		body["retry_after"] = appErr.RetryAfter
		c.Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	return c.Status(status).JSON(body)
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// MutationSuccessResponse sends a success response for mutations (POST/DELETE)
func MutationSuccessResponse(c *fiber.Ctx, affectedRows int64) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":      "Success",
		"ok":           true,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"affectedRows": affectedRows,
	})
}

// CollectionResponse sends a list payload wrapped in a {count, <key>} object
func CollectionResponse(c *fiber.Ctx, key string, items interface{}, count int) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"count": count,
		key:     items,
	})
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status     int    `json:"status"`
	Message    string `json:"message"`
	Ok         bool   `json:"ok"`
	Timestamp  string `json:"timestamp"`
	URL        string `json:"url"`
	Type       string `json:"type,omitempty"`
	Field      string `json:"field,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// SuccessResponseStruct defines the schema for mutation success responses
type SuccessResponseStruct struct {
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	AffectedRows int64  `json:"affectedRows"`
}
