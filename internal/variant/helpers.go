package variant

import (
	"regexp"
	"strings"

	"github.com/jafarshop/variantcart/internal/domain"
)

var basicColorNames = map[string]struct{}{
	"black": {}, "silver": {}, "gray": {}, "white": {}, "maroon": {}, "red": {},
	"purple": {}, "fuchsia": {}, "green": {}, "lime": {}, "olive": {}, "yellow": {},
	"navy": {}, "blue": {}, "teal": {}, "aqua": {}, "orange": {},
}

var hexColor = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// IsColorAttribute reports whether an attribute key names a color axis
func IsColorAttribute(key string) bool {
	return strings.Contains(strings.ToLower(key), "color")
}

// IsColorValue reports whether value can be rendered as a swatch
func IsColorValue(value string) bool {
	if value == "" {
		return false
	}
	if _, ok := basicColorNames[strings.ToLower(value)]; ok {
		return true
	}
	return hexColor.MatchString(value)
}

// GalleryImages returns the selected variant's images, falling back to the product images
func GalleryImages(selected *domain.Variant, productImages []string) []string {
	if selected != nil && len(selected.Images) > 0 {
		return selected.Images
	}
	if productImages == nil {
		return []string{}
	}
	return productImages
}
