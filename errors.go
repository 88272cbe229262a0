package committee

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/auth"
	"github.com/wa-psh/committee/contact"
	"github.com/wa-psh/committee/metastore"
)

// degradedWarning is attached to write responses when the change could not
// be persisted to the object store and only lives in process memory.
const degradedWarning = "Saved in memory only: the object store is unavailable, so this change will be lost on restart."

// response is the JSON envelope of every API reply.
type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, code int, data any, message string) error {
	return c.JSON(code, response{Success: true, Data: data, Message: message})
}

// written replies to a write, flagging writes that only reached memory.
func written(c echo.Context, code int, data any, message string, durable bool) error {
	r := response{Success: true, Data: data, Message: message}
	if !durable {
		r.Warning = degradedWarning
	}
	return c.JSON(code, r)
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

func notFound(what string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, what+" not found")
}

// statusOf maps domain errors onto HTTP status codes and display messages.
func statusOf(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, isString := he.Message.(string)
		if !isString {
			msg = http.StatusText(he.Code)
		}
		return he.Code, msg
	}
	var verr *contact.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, contact.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests. Please try again later."
	case errors.Is(err, metastore.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, metastore.ErrInvalidPatch):
		return http.StatusBadRequest, "Invalid update"
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, "Username and password are required"
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	}
	return http.StatusInternalServerError, err.Error()
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusOf(err)
	if code >= 500 {
		c.Logger().Errorf("server error: %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
		if !a.Config.Debug {
			msg = "Internal server error"
		}
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, response{Success: false, Message: msg})
	}
	if err != nil {
		c.Logger().Errorf("write error response: %v", err)
	}
}
