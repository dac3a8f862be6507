package chemio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RotatePath returns a non-clobbering variant of path: base_0.ext, base_1.ext
// and so on, picking the first index with no existing file.  Repeated runs
// into the same output directory therefore never overwrite earlier results.
func RotatePath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
