// Package render is the seam between the view orchestrators and whatever
// produces the final markup. Handlers emit a template name plus a context
// map; the bundled implementation serializes both as JSON, which is what the
// API consumers and tests read. An HTML template engine plugs in here
// without touching any handler.
package render

import "github.com/gofiber/fiber/v2"

// Renderer turns a template name and context into a response
type Renderer interface {
	Render(c *fiber.Ctx, template string, context fiber.Map) error
}

// JSONRenderer emits the context as a JSON document tagged with the
// template name
type JSONRenderer struct{}

// NewJSONRenderer creates the default renderer
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

func (r *JSONRenderer) Render(c *fiber.Ctx, template string, context fiber.Map) error {
	if context == nil {
		context = fiber.Map{}
	}
	context["template"] = template
	return c.JSON(context)
}
