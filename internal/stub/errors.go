package stub

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// detail builds an error rendered as {"detail": msg}.
func detail(status int, msg string) error {
	return echo.NewHTTPError(status, msg)
}

// ErrorHandler renders every error in the {"detail": ...} shape.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		msg = fmt.Sprintf("%v", he.Message)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]string{"detail": msg})
}
