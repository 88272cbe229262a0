package committee

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// renderPage renders cmp fully before writing, so a render error still
// reaches the error handler instead of truncating a committed 200. Pages are
// admin-only previews and are never cached.
func renderPage(c echo.Context, code int, cmp templ.Component) error {
	var buf bytes.Buffer
	if err := cmp.Render(c.Request().Context(), &buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.HTMLBlob(code, buf.Bytes())
}

// renderPreview writes cmp as a 200 preview page.
func renderPreview(c echo.Context, cmp templ.Component) error {
	return renderPage(c, http.StatusOK, cmp)
}
