package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDPrefix prefixes every generated bookmark id.
const IDPrefix = "bm_"

// NewID returns a collision resistant bookmark id: the creation time in
// epoch milliseconds followed by a random suffix.
// Example: bm_1718000000000_3f9a2c1d
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return IDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}
