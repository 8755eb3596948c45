package constants

import "strings"

// Category is the storage prefix for a relocated asset.
type Category string

const (
	CategoryImages     Category = "images"
	CategoryVideos     Category = "videos"
	CategoryReferences Category = "references"
	CategoryUploads    Category = "uploads"
)

var allCategories = []Category{
	CategoryImages,
	CategoryVideos,
	CategoryReferences,
	CategoryUploads,
}

// Canonicalize maps free-form asset kind labels onto a storage category.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return CategoryUploads, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"image":     CategoryImages,
		"picture":   CategoryImages,
		"photo":     CategoryImages,
		"video":     CategoryVideos,
		"movie":     CategoryVideos,
		"clip":      CategoryVideos,
		"reference": CategoryReferences,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	for _, cat := range allCategories {
		if normalized == string(cat) {
			return cat, true
		}
	}

	return CategoryUploads, false
}
