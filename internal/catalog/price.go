package catalog

import (
	"strconv"
	"strings"
)

var intCleaner = strings.NewReplacer(
	".", "",
	",", "",
	"ARS", "",
	"ars", "",
	"k", "000",
	"K", "000",
)

// ParseInt parses loosely formatted integers such as "12.500", "15k" or "ARS 900".
// It returns def when nothing usable remains.
func ParseInt(value string, def int64) int64 {
	s := strings.TrimSpace(value)
	if s == "" {
		return def
	}
	s = strings.TrimSpace(intCleaner.Replace(s))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
