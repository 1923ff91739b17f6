package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	reportKeySuffixLen = 9
	itemIDSuffixLen    = 4
)

// randomSuffix returns n lowercase hex characters.
func randomSuffix(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}

// NewReportKey returns a key of the form {epochMillis}_{suffix}. Keys sort
// by creation time when compared as strings of equal millisecond width.
func NewReportKey(now time.Time) string {
	return fmt.Sprintf("%d_%s", now.UnixMilli(), randomSuffix(reportKeySuffixLen))
}

// NewItemID returns a creation-time-derived item id.
func NewItemID(now time.Time) string {
	return fmt.Sprintf("%d%s", now.UnixMilli(), randomSuffix(itemIDSuffixLen))
}

// ParseReportKey returns the creation time embedded in key.
func ParseReportKey(key string) (time.Time, error) {
	millis, suffix, ok := strings.Cut(key, "_")
	if !ok || millis == "" || suffix == "" {
		return time.Time{}, NewValidationError("key", "must look like {millis}_{suffix}")
	}
	for _, r := range suffix {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return time.Time{}, NewValidationError("key", "suffix must be alphanumeric")
		}
	}
	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, NewValidationError("key", "prefix must be epoch milliseconds")
	}
	return time.UnixMilli(ms).UTC(), nil
}
