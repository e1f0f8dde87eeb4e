// Package styles maps semantic UI tokens to Tailwind class strings for the
// admin pages. Pure lookup tables; unknown keys fall back to documented
// defaults.
package styles

import "opinionpointer/internal/domain/models"

var sentimentBadge = map[models.SentimentLevel]string{
	models.SentimentExtremeFear:  "bg-red-100 text-red-800",
	models.SentimentFear:         "bg-orange-100 text-orange-800",
	models.SentimentNeutral:      "bg-gray-100 text-gray-800",
	models.SentimentGreed:        "bg-lime-100 text-lime-800",
	models.SentimentExtremeGreed: "bg-green-100 text-green-800",
}

var statusBadge = map[string]string{
	models.StatusHealthy:   "bg-green-100 text-green-800",
	models.StatusDegraded:  "bg-yellow-100 text-yellow-800",
	models.StatusUnhealthy: "bg-red-100 text-red-800",
	models.StatusUnknown:   "bg-gray-100 text-gray-600",
}

// textOnBackground maps a background class to a text class that stays
// readable on it.
var textOnBackground = map[string]string{
	"bg-gray-900":   "text-white",
	"bg-gray-800":   "text-gray-100",
	"bg-blue-600":   "text-white",
	"bg-green-600":  "text-white",
	"bg-red-600":    "text-white",
	"bg-yellow-300": "text-gray-900",
	"bg-white":      "text-gray-900",
	"bg-gray-50":    "text-gray-900",
}

var textSize = map[string]string{
	"xs": "text-xs",
	"sm": "text-sm",
	"md": "text-base",
	"lg": "text-lg",
	"xl": "text-xl",
}

var linkVariant = map[string]string{
	"default": "text-blue-600 hover:text-blue-800 underline",
	"muted":   "text-gray-500 hover:text-gray-700",
	"danger":  "text-red-600 hover:text-red-800 underline",
	"nav":     "text-gray-700 hover:text-gray-900 font-medium",
}

// SentimentBadgeClass returns the badge classes for a sentiment level.
// Unknown levels get the neutral badge.
func SentimentBadgeClass(level models.SentimentLevel) string {
	if c, ok := sentimentBadge[level]; ok {
		return c
	}
	return sentimentBadge[models.SentimentNeutral]
}

// StatusBadgeClass returns the badge classes for a health status string.
// Unknown statuses get the unknown badge.
func StatusBadgeClass(status string) string {
	if c, ok := statusBadge[status]; ok {
		return c
	}
	return statusBadge[models.StatusUnknown]
}

// TextClassForBackground returns a readable text class for the given
// background class. Unknown backgrounds default to text-gray-900.
func TextClassForBackground(bg string) string {
	if c, ok := textOnBackground[bg]; ok {
		return c
	}
	return "text-gray-900"
}

// TextSizeClass returns the text-size class for a size token.
// Unknown tokens default to text-base.
func TextSizeClass(size string) string {
	if c, ok := textSize[size]; ok {
		return c
	}
	return "text-base"
}

// LinkClass returns the classes for a link variant.
// Unknown variants default to the "default" variant.
func LinkClass(variant string) string {
	if c, ok := linkVariant[variant]; ok {
		return c
	}
	return linkVariant["default"]
}
