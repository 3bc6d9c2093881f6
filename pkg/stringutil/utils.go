package stringutil

import "strings"

// MakePathPrefixer returns a function that prepends the cleaned base path to the provided path.
// An empty or "/" base path returns the path unchanged.
func MakePathPrefixer(basePath string) func(string) string {
	basePath = strings.Trim(basePath, "/")
	if basePath == "" {
		return func(path string) string { return path }
	}
	basePath = "/" + basePath
	return func(path string) string {
		if path == "" || path == "/" {
			return basePath + "/"
		}
		return basePath + "/" + strings.TrimPrefix(path, "/")
	}
}
