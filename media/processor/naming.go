package processor

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ArchiveName is the download name of a batch archive.
const ArchiveName = "compressed_images.zip"

// fallbackBaseName is used when neither the caller nor the upload provides a usable name.
const fallbackBaseName = "image"

var unsafeNameRunes = runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) || r == '/' || r == '\\' || r == 0xFFFD
})

// OutputName returns {base}.{ext}.
func OutputName(base string, format Format) string {
	return base + "." + format.Extension()
}

// BatchName returns {base}_{index+1}.{ext} for the 0-based index.
func BatchName(base string, index int, format Format) string {
	return fmt.Sprintf("%s_%d.%s", base, index+1, format.Extension())
}

// SanitizeBaseName NFC-normalises name and drops path separators and control
// characters so the result is safe as a single archive entry name.
func SanitizeBaseName(name string) string {
	t := transform.Chain(norm.NFC, runes.Remove(unsafeNameRunes))
	clean, _, err := transform.String(t, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(clean)
}

// DefaultBaseName strips any directory and the last extension from an upload
// filename: "holiday.photo.JPG" -> "holiday.photo".
func DefaultBaseName(filename string) string {
	name := filename
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	return SanitizeBaseName(name)
}

// resolveBaseName picks the caller's base name, then the upload's, then a fallback.
func resolveBaseName(requested, uploadName string) string {
	if base := SanitizeBaseName(requested); base != "" {
		return base
	}
	if base := DefaultBaseName(uploadName); base != "" {
		return base
	}
	return fallbackBaseName
}
