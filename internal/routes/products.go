package routes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/storefront-labs/storefront-api/internal/catalog"
	"github.com/storefront-labs/storefront-api/internal/forms"
	"github.com/storefront-labs/storefront-api/internal/render"
	"github.com/storefront-labs/storefront-api/internal/session"
	apperrors "github.com/storefront-labs/storefront-api/pkg/errors"
)

// ProductHandler serves the product pages and the product listing API. Every
// remote failure is absorbed here: pages get a flash and a safe redirect,
// the API gets the error envelope.
type ProductHandler struct {
	catalog  *catalog.Client
	sessions *session.Manager
	renderer render.Renderer
	logger   *logrus.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogClient *catalog.Client, sessions *session.Manager, renderer render.Renderer, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		catalog:  catalogClient,
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
	}
}

// Home handles GET /. A catalog failure renders the page with an empty list
// rather than an error.
func (h *ProductHandler) Home(c *fiber.Ctx) error {
	products, err := h.catalog.List(c.Context(), 0, 0)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load product listing")
		products = []catalog.Product{}
	}

	return h.render(c, "home", fiber.Map{
		"products": products,
		"count":    len(products),
	})
}

// Detail handles GET /products/:id
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return h.render(c, "product_detail", fiber.Map{"error": "Product not found"})
	}

	product, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return h.render(c, "product_detail", fiber.Map{"error": "Product not found"})
		}
		h.logger.WithError(err).WithField("product_id", id).Warn("Failed to load product")
		return h.render(c, "product_detail", fiber.Map{"error": "Failed to load the product"})
	}

	related := h.catalog.Related(c.Context(), product)

	return h.render(c, "product_detail", fiber.Map{
		"product": product,
		"related": related,
	})
}

// CreatePage handles GET /products/create
func (h *ProductHandler) CreatePage(c *fiber.Ctx) error {
	return h.render(c, "create_product", fiber.Map{
		"categories": h.categories(c),
	})
}

// Create handles POST /products/create
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	form := h.parseForm(c)

	result := forms.Validate(form)
	if !result.Valid() {
		return h.render(c, "create_product", fiber.Map{
			"categories": h.categories(c),
			"form":       form,
			"errors":     result.Errors,
		})
	}

	product, err := h.catalog.Create(c.Context(), result.Payload)
	if err != nil {
		h.flashError(c, remoteFlash(err, "Failed to create the product."))
		return h.render(c, "create_product", fiber.Map{
			"categories": h.categories(c),
			"form":       form,
		})
	}

	h.flashSuccess(c, fmt.Sprintf("Product %q created successfully", product.Title))
	return c.Redirect(fmt.Sprintf("/products/%d", product.ID), fiber.StatusSeeOther)
}

// EditPage handles GET /products/:id/edit
func (h *ProductHandler) EditPage(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		h.flashError(c, "Product not found.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	product, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			h.flashError(c, "Product not found.")
		} else {
			h.logger.WithError(err).WithField("product_id", id).Warn("Failed to load product for edit")
			h.flashError(c, "Failed to load the product.")
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	initial := fiber.Map{
		"title":       product.Title,
		"price":       strconv.Itoa(product.Price),
		"description": product.Description,
		"category_id": strconv.Itoa(product.Category.ID),
		"images":      strings.Join(product.Images, ", "),
	}

	return h.render(c, "edit_product", fiber.Map{
		"product":    product,
		"categories": h.categories(c),
		"form":       initial,
	})
}

// Edit handles POST /products/:id/edit
func (h *ProductHandler) Edit(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		h.flashError(c, "Product not found.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	form := h.parseForm(c)

	result := forms.Validate(form)
	if !result.Valid() {
		return h.render(c, "edit_product", fiber.Map{
			"categories": h.categories(c),
			"form":       form,
			"errors":     result.Errors,
		})
	}

	product, err := h.catalog.Update(c.Context(), id, result.Payload)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			h.flashError(c, "Product not found.")
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		h.flashError(c, remoteFlash(err, "Failed to update the product."))
		return c.Redirect(fmt.Sprintf("/products/%d/edit", id), fiber.StatusSeeOther)
	}

	h.flashSuccess(c, fmt.Sprintf("Product %q updated successfully", product.Title))
	return c.Redirect(fmt.Sprintf("/products/%d", product.ID), fiber.StatusSeeOther)
}

// DeletePage handles GET /products/:id/delete, the confirmation step
func (h *ProductHandler) DeletePage(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		h.flashError(c, "Product not found.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	product, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			h.flashError(c, "Product not found.")
		} else {
			h.logger.WithError(err).WithField("product_id", id).Warn("Failed to load product for delete")
			h.flashError(c, "Failed to load the product.")
		}
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	return h.render(c, "delete_product", fiber.Map{"product": product})
}

// Delete handles POST /products/:id/delete. The product title is fetched
// first so the goodbye flash can name it.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		h.flashError(c, "Product not found.")
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	product, err := h.catalog.Get(c.Context(), id)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			h.flashError(c, "Product not found.")
			return c.Redirect("/", fiber.StatusSeeOther)
		}
		h.flashError(c, remoteFlash(err, "Failed to delete the product."))
		return c.Redirect(fmt.Sprintf("/products/%d", id), fiber.StatusSeeOther)
	}

	if err := h.catalog.Delete(c.Context(), id); err != nil {
		h.flashError(c, remoteFlash(err, "Failed to delete the product."))
		return c.Redirect(fmt.Sprintf("/products/%d", id), fiber.StatusSeeOther)
	}

	h.flashSuccess(c, fmt.Sprintf("Product %q deleted successfully", product.Title))
	return c.Redirect("/", fiber.StatusSeeOther)
}

// ListAPI handles GET /api/v1/products
func (h *ProductHandler) ListAPI(c *fiber.Ctx) error {
	products, err := h.catalog.List(c.Context(), 0, 0)
	if err != nil {
		status := fiber.StatusInternalServerError
		code := apperrors.CodeInternalError
		message := "Internal server error"
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			status = appErr.HTTPStatus()
			code = appErr.Code
			message = appErr.Message
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    code,
				"message": message,
			},
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"products": products,
	})
}

// parseForm collects the submitted product fields. The images input may be
// repeated or comma-separated; normalization happens during validation.
func (h *ProductHandler) parseForm(c *fiber.Ctx) *forms.ProductForm {
	images := make([]string, 0, 1)
	for _, v := range c.Request().PostArgs().PeekMulti("images") {
		images = append(images, string(v))
	}

	return &forms.ProductForm{
		Title:       c.FormValue("title"),
		Price:       c.FormValue("price"),
		Description: c.FormValue("description"),
		CategoryID:  c.FormValue("category_id"),
		Images:      images,
	}
}

// categories fetches the category choices for a form, empty on failure
func (h *ProductHandler) categories(c *fiber.Ctx) []catalog.Category {
	categories, err := h.catalog.Categories(c.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load categories")
		return []catalog.Category{}
	}
	return categories
}

func (h *ProductHandler) render(c *fiber.Ctx, template string, context fiber.Map) error {
	context["flashes"] = h.sessions.PopFlashes(c)
	context["authenticated"] = h.sessions.Current(c).Authenticated()
	return h.renderer.Render(c, template, context)
}

func (h *ProductHandler) flashSuccess(c *fiber.Ctx, message string) {
	if err := h.sessions.AddFlash(c, session.LevelSuccess, message); err != nil {
		h.logger.WithError(err).Warn("Failed to add flash")
	}
}

func (h *ProductHandler) flashError(c *fiber.Ctx, message string) {
	if err := h.sessions.AddFlash(c, session.LevelError, message); err != nil {
		h.logger.WithError(err).Warn("Failed to add flash")
	}
}

// remoteFlash picks the message for a failed catalog mutation
func remoteFlash(err error, fallback string) string {
	if apperrors.Is(err, apperrors.CodeTransportFailure) {
		return "Could not reach the catalog service."
	}
	return fallback
}
