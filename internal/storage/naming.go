package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const namePrefix = "recording-"

var now = time.Now

// UniqueName returns the on-disk name for an upload called original:
// recording-<unix-ms>-<random><ext>. The extension is copied verbatim and is
// empty when original has none. Uniqueness comes from the millisecond clock
// combined with 32 random bits, not from checking the store.
func UniqueName(original string) string {
	return fmt.Sprintf("%s%d-%d%s", namePrefix, now().UnixMilli(), uuid.New().ID(), filepath.Ext(original))
}
