package collect

import (
	"path"
	"strings"
)

var (
	docExtensions = map[string]bool{
		".md":   true,
		".mdx":  true,
		".rst":  true,
		".adoc": true,
		".txt":  true,
	}

	docDirs = []string{"docs", "doc"}
)

// isDocFile reports whether a repository path holds documentation.
func isDocFile(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}

	if docExtensions[path.Ext(name)] {
		return true
	}

	for _, seg := range strings.Split(path.Dir(name), "/") {
		for _, d := range docDirs {
			if seg == d {
				return true
			}
		}
	}
	return false
}
