package workspace

import (
	"path/filepath"
	"strings"
)

// languages maps a lowercase file extension to the editor language id.
var languages = map[string]string{
	"js":    "javascript",
	"jsx":   "javascript",
	"ts":    "typescript",
	"tsx":   "typescript",
	"html":  "html",
	"css":   "css",
	"scss":  "scss",
	"json":  "json",
	"md":    "markdown",
	"py":    "python",
	"java":  "java",
	"cpp":   "cpp",
	"c":     "c",
	"cs":    "csharp",
	"php":   "php",
	"rb":    "ruby",
	"go":    "go",
	"rs":    "rust",
	"swift": "swift",
	"kt":    "kotlin",
	"dart":  "dart",
	"xml":   "xml",
	"yaml":  "yaml",
	"yml":   "yaml",
	"sql":   "sql",
	"sh":    "shell",
	"bash":  "shell",
	"txt":   "plaintext",
}

// PlainText is the language of files with an unknown or missing extension.
const PlainText = "plaintext"

// LanguageFor derives the language id from a file name's extension.
func LanguageFor(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if lang, ok := languages[ext]; ok {
		return lang
	}
	return PlainText
}
