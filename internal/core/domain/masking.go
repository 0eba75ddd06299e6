package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaskType is a preview-column masking strategy.
type MaskType string

const (
	MaskRedact  MaskType = "redact"
	MaskHash    MaskType = "hash"
	MaskPartial MaskType = "partial"
	MaskNull    MaskType = "null"
)

// Valid returns true if the MaskType is a recognised masking strategy
// (including the zero value "", which means "no mask").
func (m MaskType) Valid() bool {
	switch m {
	case MaskRedact, MaskHash, MaskPartial, MaskNull, "":
		return true
	}
	return false
}

// Apply transforms a preview cell. Missing cells stay missing, and masked
// values may change type (an int64 becomes a string under hash or partial).
func (m MaskType) Apply(value any) any {
	if value == nil {
		return nil
	}
	switch m {
	case MaskRedact:
		return "***"
	case MaskHash:
		sum := sha256.Sum256([]byte(fmt.Sprint(value)))
		return hex.EncodeToString(sum[:])
	case MaskPartial:
		return maskPartial(fmt.Sprint(value))
	case MaskNull:
		return nil
	default:
		return value
	}
}

// maskPartial keeps the last 4 runes and stars out the rest.
func maskPartial(s string) string {
	runes := []rune(s)
	if len(runes) <= 4 {
		return "***" + s
	}
	keep := len(runes) - 4
	return strings.Repeat("*", keep) + string(runes[keep:])
}

// MaskRows applies column masks to preview rows in place. Masks naming
// columns absent from a row are ignored.
func MaskRows(rows []map[string]any, masks map[string]MaskType) {
	if len(masks) == 0 {
		return
	}
	for _, row := range rows {
		for col, m := range masks {
			if val, ok := row[col]; ok {
				row[col] = m.Apply(val)
			}
		}
	}
}
