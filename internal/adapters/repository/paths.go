package repository

import (
	"fmt"
	"strings"
)

// Root collections.
const (
	ItemsRoot   = "items"
	ReportsRoot = "reports"
)

// ItemPath is the path of one item record.
func ItemPath(itemID string) string { return ItemsRoot + "/" + itemID }

// ItemReportsPath is the path under which all reports of an item live.
func ItemReportsPath(itemID string) string { return ReportsRoot + "/" + itemID }

// ReportPath is the path of one report record.
func ReportPath(itemID, key string) string { return ItemReportsPath(itemID) + "/" + key }

// ValidateSegment rejects ids that cannot be used as a single path segment.
func ValidateSegment(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidPath, name)
	}
	if strings.ContainsAny(value, "/.#$[]") {
		return fmt.Errorf("%w: %s %q contains a reserved character", ErrInvalidPath, name, value)
	}
	return nil
}

// splitReportPath returns the item id and key of a report path.
func splitReportPath(path string) (itemID, key string, ok bool) {
	rest, found := strings.CutPrefix(path, ReportsRoot+"/")
	if !found {
		return "", "", false
	}
	itemID, key, ok = strings.Cut(rest, "/")
	if !ok || itemID == "" || key == "" || strings.Contains(key, "/") {
		return "", "", false
	}
	return itemID, key, true
}
