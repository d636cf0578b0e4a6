package constants

import "strings"

// Source formats stored on uploaded_documents.format.
const (
	PDF         = "PDF"
	SPREADSHEET = "SPREADSHEET"
	GAEB        = "GAEB"
	TXT         = "TXT"
)

// FileTypes holds the allowed values for the format field of an uploaded document.
var FileTypes = []string{PDF, SPREADSHEET, GAEB, TXT}

// Default ingestion limits. Both are overridable through configuration.
const (
	DefaultMaxFileBytes int64 = 10 << 20
	DefaultMaxFiles           = 5
)

// AllowedExtensions holds the default allowed file extensions for offer ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xlsm": {},
	"xls":  {},
	"txt":  {},
	"csv":  {},
	"x80":  {},
	"x81":  {},
	"x82":  {},
	"x83":  {},
	"x84":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext is part of the default ingestion set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// IsGAEBExt reports whether ext is one of the GAEB DA XML exchange phases.
func IsGAEBExt(ext string) bool {
	ext = NormalizeExt(ext)
	return len(ext) == 3 && ext[0] == 'x' && ext[1] == '8' && ext[2] >= '0' && ext[2] <= '9'
}

// MapExtToFormat maps a file extension to its source format, or "" when unknown.
func MapExtToFormat(ext string) string {
	ext = NormalizeExt(ext)
	switch {
	case ext == "pdf":
		return PDF
	case ext == "xlsx" || ext == "xlsm" || ext == "xls":
		return SPREADSHEET
	case ext == "txt" || ext == "csv":
		return TXT
	case IsGAEBExt(ext):
		return GAEB
	default:
		return ""
	}
}
