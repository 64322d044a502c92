package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/catalog"
)

// Listing bounds for the public catalog.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// StockHandler serves the public catalog.
type StockHandler struct {
	service *catalog.Service
}

// NewStockHandler constructs a StockHandler.
func NewStockHandler(service *catalog.Service) *StockHandler {
	return &StockHandler{service: service}
}

// List returns catalog items filtered by the query string, newest first.
func (h *StockHandler) List(c *gin.Context) {
	filter := catalog.ListFilter{
		Query:        c.Query("q"),
		Gender:       c.Query("gender"),
		FeaturedOnly: parseBool(c.Query("featured")),
		Limit:        parseIntDefault(c.Query("limit"), defaultListLimit),
		Offset:       parseIntDefault(c.Query("offset"), 0),
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if raw := strings.TrimSpace(c.Query("category_id")); raw != "" {
		categoryID, errParse := strconv.ParseUint(raw, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id"})
			return
		}
		filter.CategoryID = &categoryID
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("catalog list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": catalog.NewItemViews(items)})
}

// Get returns one catalog item with related items from the same category.
func (h *StockHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	item, err := h.service.Get(c.Request.Context(), id)
	if errors.Is(err, catalog.ErrItemNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		log.WithError(err).WithField("item", id).Error("catalog get failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	related, errRelated := h.service.Related(c.Request.Context(), item, catalog.DefaultRelatedLimit)
	if errRelated != nil {
		log.WithError(errRelated).WithField("item", id).Warn("catalog related lookup failed")
		related = nil
	}
	c.JSON(http.StatusOK, gin.H{
		"item":    catalog.NewItemView(*item),
		"related": catalog.NewItemViews(related),
	})
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseIntDefault(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}
