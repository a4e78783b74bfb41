package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/storefrontapp/storefront/internal/services"
)

type categoryRequest struct {
	Name string `json:"name"`
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context())
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), productID)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, product)
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, categories)
}

func (h *Handlers) AdminCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input services.ProductInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), input)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, product)
}

func (h *Handlers) AdminUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	var input services.ProductInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), productID, input)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, product)
}

func (h *Handlers) AdminDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	if err := h.catalogService.DeleteProduct(r.Context(), productID); err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Product deleted"})
}

func (h *Handlers) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.catalogService.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, category)
}

func (h *Handlers) AdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.catalogService.UpdateCategory(r.Context(), categoryID, req.Name)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, category)
}

func (h *Handlers) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathUUID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	if err := h.catalogService.DeleteCategory(r.Context(), categoryID); err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]string{"message": "Category deleted"})
}

// AdminSeedCatalog replaces the catalog with the YAML document in the request body, or with
// the bundled catalog when the body is empty.
func (h *Handlers) AdminSeedCatalog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "Catalog document too large")
		return
	}

	result, err := h.catalogService.Seed(r.Context(), body)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"message":    "Catalog seeded",
		"categories": result.Categories,
		"products":   result.Products,
	})
}

func (h *Handlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, services.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, services.ErrCategoryNotFound):
		writeError(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, services.ErrCategoryExists):
		writeError(w, http.StatusConflict, "Category already exists")
	default:
		h.loggerFromContext(r.Context()).Error("catalog request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Catalog request failed")
	}
}
