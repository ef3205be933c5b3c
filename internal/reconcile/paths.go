package reconcile

import (
	"fmt"
	"os"
	"strings"
)

// MirrorPath maps path from under srcRoot to the same relative location
// under dstRoot by string-prefix replacement. It does not consult the file
// system; the caller guarantees the roots are spelled the same way path is.
func MirrorPath(path, srcRoot, dstRoot string) (string, error) {
	if !strings.HasPrefix(path, srcRoot) {
		return "", fmt.Errorf("path %s is not under %s", path, srcRoot)
	}
	rest := path[len(srcRoot):]
	if rest == "" {
		return dstRoot, nil
	}
	if !os.IsPathSeparator(rest[0]) {
		// "/src/ab" must not mirror as if it were under "/src/a".
		if srcRoot == "" || !os.IsPathSeparator(srcRoot[len(srcRoot)-1]) {
			return "", fmt.Errorf("path %s is not under %s", path, srcRoot)
		}
		rest = srcRoot[len(srcRoot)-1:] + rest
	}
	if dstRoot != "" && os.IsPathSeparator(dstRoot[len(dstRoot)-1]) {
		rest = rest[1:]
	}
	return dstRoot + rest, nil
}

// ReplaceLast replaces the last occurrence of old in s with replacement.
func ReplaceLast(s, old, replacement string) (string, error) {
	i := strings.LastIndex(s, old)
	if old == "" || i < 0 {
		return "", fmt.Errorf("%q does not occur in %s", old, s)
	}
	return s[:i] + replacement + s[i+len(old):], nil
}
