package whatsapp

import (
	"regexp"
)

// labelRegex matches the field labels of an item block
var labelRegex = regexp.MustCompile(`(?m)^(名称|描述|详情): `)

// WhatsAppFormatter adapts reply text to WhatsApp markup
type WhatsAppFormatter struct{}

// NewWhatsAppFormatter creates a new WhatsApp message formatter
func NewWhatsAppFormatter() *WhatsAppFormatter {
	return &WhatsAppFormatter{}
}

// Format bolds the item field labels. Other text is left untouched.
func (f *WhatsAppFormatter) Format(message string) string {
	return labelRegex.ReplaceAllString(message, "*$1:* ")
}
