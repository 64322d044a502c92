package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/veritas-stock/stockd/internal/catalog"
	apphttp "github.com/veritas-stock/stockd/internal/http"
)

// parseUintParam trims and parses a uint64 from a string parameter.
func parseUintParam(value string) (uint64, error) {
	return strconv.ParseUint(strings.TrimSpace(value), 10, 64)
}

// getAdminID extracts the authenticated admin ID from gin context.
func getAdminID(c *gin.Context) uint64 {
	val, exists := c.Get(apphttp.ContextAdminID)
	if !exists {
		return 0
	}
	id, _ := val.(uint64)
	return id
}

// looseInt accepts JSON numbers and loosely formatted strings such as "12.500" or "15k".
type looseInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (v *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = looseInt(catalog.ParseInt(s, 0))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid number %s", string(data))
	}
	*v = looseInt(f)
	return nil
}
