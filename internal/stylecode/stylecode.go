// Package stylecode owns the identifier rules for styles and SKUs: a
// deterministic year/season/category prefix with a 3-digit serial for
// styles, and a fixed size table for SKU suffixes. Everything here is pure;
// the repository supplies the current maximum serial from inside the insert
// transaction.
package stylecode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stylepick/catalog-core/internal/errors"
	"github.com/stylepick/catalog-core/internal/models"
)

const (
	// MaxSerial is a hard ceiling: 999 styles per year/season/category.
	MaxSerial    = 999
	serialDigits = 3
)

// Prefix builds the deterministic style-code prefix I{yy}{SS|FW}{category}.
func Prefix(year int, season models.Season, categoryCode string) string {
	return fmt.Sprintf("I%02d%s%s", year%100, season.Code(), categoryCode)
}

// SerialPattern returns the anchored POSIX pattern matching exactly the
// style codes of one prefix. Categories whose code is a string-prefix of
// another's (J vs JK) share no codes under it.
func SerialPattern(prefix string) string {
	return "^" + regexp.QuoteMeta(prefix) + `[0-9]{3}$`
}

// Next returns the style code following maxExisting under the given prefix.
// maxExisting is the lexicographic max of persisted codes sharing the
// prefix, or empty when the prefix is unused.
func Next(prefix, maxExisting string) (string, error) {
	serial := 0

	if maxExisting != "" {
		if !strings.HasPrefix(maxExisting, prefix) || len(maxExisting) != len(prefix)+serialDigits {
			return "", errors.InternalError(fmt.Sprintf("Malformed style code '%s' for prefix '%s'", maxExisting, prefix))
		}

		parsed, err := strconv.Atoi(maxExisting[len(prefix):])
		if err != nil {
			return "", errors.InternalError(fmt.Sprintf("Malformed style code serial in '%s'", maxExisting)).WithError(err)
		}

		serial = parsed
	}

	if serial >= MaxSerial {
		return "", errors.SerialExhaustedError(prefix)
	}

	return fmt.Sprintf("%s%0*d", prefix, serialDigits, serial+1), nil
}

// SizeEntry maps a raw size code to the label and SKU suffix used for its
// option row.
type SizeEntry struct {
	Code    string
	Label   string
	Suffix  string
	Ordinal int
}

var sizeTable = map[string]SizeEntry{
	"0":  {Code: "0", Label: "S", Suffix: "_A", Ordinal: 0},
	"1":  {Code: "1", Label: "M", Suffix: "_B", Ordinal: 1},
	"2":  {Code: "2", Label: "L", Suffix: "_C", Ordinal: 2},
	"3":  {Code: "3", Label: "XL", Suffix: "_D", Ordinal: 3},
	"4":  {Code: "4", Label: "XXL", Suffix: "_E", Ordinal: 4},
	"OS": {Code: "OS", Label: "FREE", Suffix: "_F", Ordinal: 5},
}

// SizeFor resolves a raw size code against the fixed table. There is no
// fallback suffix for unknown codes.
func SizeFor(code string) (SizeEntry, error) {
	entry, ok := sizeTable[code]
	if !ok {
		return SizeEntry{}, errors.UnknownSizeError(code)
	}

	return entry, nil
}

// SKUCode formats {styleCode}-{colorCode}{suffix}.
func SKUCode(styleCode, colorCode, suffix string) string {
	return styleCode + "-" + colorCode + suffix
}

// DeriveSKUCodes derives one SKU code per requested size, in input order.
func DeriveSKUCodes(styleCode, colorCode string, sizes []string) ([]string, error) {
	codes := make([]string, 0, len(sizes))

	for _, size := range sizes {
		entry, err := SizeFor(size)
		if err != nil {
			return nil, err
		}

		codes = append(codes, SKUCode(styleCode, colorCode, entry.Suffix))
	}

	return codes, nil
}
