package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// classLabel turns a dotted question class such as "storage.luks_activation"
// into "Storage / Luks Activation".
func classLabel(class string) string {
	class = strings.TrimSpace(class)
	if class == "" {
		return "-"
	}
	caser := cases.Title(language.Und)
	parts := strings.Split(class, ".")
	for i, part := range parts {
		parts[i] = caser.String(strings.ReplaceAll(part, "_", " "))
	}
	return strings.Join(parts, " / ")
}
