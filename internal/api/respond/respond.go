package respond

import (
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// JSON sends a JSON response with the specified HTTP status code and data.
// It uses the Gin context to encode the data into JSON format.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response in the service envelope:
// {"ok": true, ...payload}.
func OK(c *ginext.Context, payload map[string]any) {
	body := map[string]any{"ok": true}
	for k, v := range payload {
		body[k] = v
	}
	JSON(c, http.StatusOK, body)
}

// Fail sends an error JSON response with the specified HTTP status code:
// {"ok": false, "error": message}.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, map[string]any{"ok": false, "error": err.Error()})
}

// PDF streams a produced document as an attachment.
func PDF(c *ginext.Context, data []byte, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
