package importer

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// decodeName converts a fixed-width RSM string to UTF-8. RSM files store
// texture and node names in EUC-KR; ASCII and valid UTF-8 pass through.
func decodeName(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	result, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), b)
	if err != nil {
		return string(b)
	}
	return string(result)
}

// normalizeAssetPath converts a Windows-style archive path to a lowercase
// slash path, which is how extracted data folders are usually laid out.
func normalizeAssetPath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
