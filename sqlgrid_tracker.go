package sqlgrid

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	markerPrefix = `__sqlgrid_`
	markerSuffix = `__`
)

var markerReg = regexp.MustCompile(markerPrefix + `[0-9a-f]{32}` + markerSuffix)

/*
Manufactures a marker token that can't collide with real SQL text in practice.
The token is a plain identifier, so the tokenizer never mistakes it for a
placeholder, quote, or comment.
*/
func newMarker() Marker {
	id := uuid.New()
	return Marker(markerPrefix + hex.EncodeToString(id[:]) + markerSuffix)
}

/*
Counts "?" placeholders in the SQL text, ignoring any inside quoted strings,
quoted identifiers, and comments. Returns an error matching `ErrSyntax` on
unterminated quotes or comments.
*/
func CountPlaceholders(src string) (out int, err error) {
	defer rec(&err)
	out = countPlaceholders(src)
	return
}

func countPlaceholders(src string) (out int) {
	tokenizer := Tokenizer{Source: src}
	for {
		tok := tokenizer.Next()
		if tok.IsInvalid() {
			return
		}
		if tok.Type == TokenTypePlaceholder {
			out++
		}
	}
}

/*
Returns the index in the argument list at which the value for the placeholder
represented by the marker belongs: the count of real placeholders rendered
before the marker. Zero means the value belongs at the start of the list.

The marker must occur exactly once in the text. Otherwise the statement was
rendered incorrectly, which is reported as `ErrMalformedQuery`.
*/
func LocatePlaceholder(text string, marker Marker) (int, error) {
	const while = `locating placeholder`

	if marker == `` {
		return 0, errMalformed(while, fmt.Errorf(`empty marker`))
	}

	switch count := strings.Count(text, string(marker)); count {
	case 1:
	case 0:
		return 0, errMalformed(while, fmt.Errorf(`marker %q not found in rendered SQL`, marker))
	default:
		return 0, errMalformed(while, fmt.Errorf(`marker %q found %v times in rendered SQL`, marker, count))
	}

	prefix, _, _ := strings.Cut(text, string(marker))
	count, err := CountPlaceholders(prefix)
	if err != nil {
		return 0, errMalformed(while, err)
	}
	return count, nil
}

// Replaces any leftover markers with "?".
func resolveMarkers(text string) string {
	return markerReg.ReplaceAllLiteralString(text, string(placeholder))
}
