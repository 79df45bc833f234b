package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// DataResponse writes API response with status and data.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// AcceptedResponse writes a 202 for work that continues after the reply.
func AcceptedResponse(c echo.Context, message string) error {
	return c.JSON(http.StatusAccepted, MessageResponse{Message: message})
}

// TooManyRequestsResponse writes a 429 with a Retry-After hint in seconds.
func TooManyRequestsResponse(c echo.Context, retryAfter int) error {
	if retryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	return AppErrorResponse(c, TooManyRequestsError("Too many alert checks, try again later"))
}

// AppErrorResponse writes application error response. Anything that is not
// an *AppError becomes an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return DataResponse(c, appErr.Status, []*AppError{appErr})
	}
	return DataResponse(c, http.StatusInternalServerError, []*AppError{InternalError("Something went wrong")})
}
