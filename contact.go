package committee

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wa-psh/committee/contact"
)

const contactThanks = "Thank you for your message. We will get back to you soon!"

// handleContact accepts the public contact form. Honeypot and spam
// submissions get the same reply as stored ones.
func (a *App) handleContact(c echo.Context) error {
	var form contact.Form
	if err := c.Bind(&form); err != nil {
		return badRequest("Invalid request body")
	}
	receipt, err := a.Intake.Submit(c.Request().Context(), c.RealIP(), form)
	if err != nil {
		return err
	}
	if receipt.Discarded {
		return ok(c, http.StatusOK, nil, contactThanks)
	}
	return written(c, http.StatusOK, nil, contactThanks, receipt.Durable)
}
