package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/catalog"
)

// StockHandler serves admin edits of the catalog.
type StockHandler struct {
	service *catalog.Service
}

// NewStockHandler constructs a StockHandler.
func NewStockHandler(service *catalog.Service) *StockHandler {
	return &StockHandler{service: service}
}

// stockRequest defines the request body for creating or editing an item.
type stockRequest struct {
	Title       string   `json:"title"`
	Price       looseInt `json:"price"`
	Gender      string   `json:"gender"`
	CategoryID  uint64   `json:"category_id"`
	Stock       looseInt `json:"stock"`
	Sizes       string   `json:"sizes"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
}

func (r stockRequest) input() catalog.ItemInput {
	return catalog.ItemInput{
		Title:       r.Title,
		Price:       int64(r.Price),
		Gender:      r.Gender,
		CategoryID:  r.CategoryID,
		Quantity:    int(r.Stock),
		Sizes:       r.Sizes,
		Color:       r.Color,
		Description: r.Description,
		Images:      r.Images,
	}
}

// Create adds a catalog item.
func (h *StockHandler) Create(c *gin.Context) {
	var body stockRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	item, err := h.service.Create(c.Request.Context(), body.input())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	log.WithFields(log.Fields{"item": item.ID, "admin": getAdminID(c)}).Info("catalog item created")
	c.JSON(http.StatusCreated, gin.H{"item": catalog.NewItemView(*item)})
}

// Update edits a catalog item.
func (h *StockHandler) Update(c *gin.Context) {
	id, errID := parseUintParam(c.Param("id"))
	if errID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body stockRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.service.Update(c.Request.Context(), id, body.input()); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a catalog item.
func (h *StockHandler) Delete(c *gin.Context) {
	id, errID := parseUintParam(c.Param("id"))
	if errID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	log.WithFields(log.Fields{"item": id, "admin": getAdminID(c)}).Info("catalog item deleted")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Feature opens a new featured window for a catalog item.
func (h *StockHandler) Feature(c *gin.Context) {
	id, errID := parseUintParam(c.Param("id"))
	if errID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	until, err := h.service.Sweeper().Feature(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "featured_until": until})
}

// Unfeature closes the featured window of a catalog item.
func (h *StockHandler) Unfeature(c *gin.Context) {
	id, errID := parseUintParam(c.Param("id"))
	if errID != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.service.Sweeper().Unfeature(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidItem):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		respondInternal(c, err)
	}
}
