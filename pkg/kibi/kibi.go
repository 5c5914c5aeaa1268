package kibi

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var DigitRegex = regexp.MustCompile(`^\d+`)
var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

var units = []string{"bytes", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes rounds down to the largest whole unit, eg 1536 -> "1 KB"
func FormatBytes(b int64) string {
	u := 0
	for u < len(units)-1 && b >= 1024 {
		b /= 1024
		u++
	}
	return fmt.Sprintf("%v %v", b, units[u])
}

// We support suffixes 'mb', 'kb', 'gb', etc.
// We also support suffixes of just the letter, eg 'm', 'g', etc.
// Examples:
// 123 m -> 123*1024*1024
// 123 mb -> 123*1024*1024
// 123 GB -> 123*1024*1024*1024
func ParseBytes(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	digits := DigitRegex.FindString(v)
	if digits == "" {
		return 0, ErrInvalidByteSizeString
	}
	suffix := strings.TrimSpace(v[len(digits):])
	multiplier := int64(1)
	if suffix != "" && suffix != "bytes" && suffix != "b" {
		found := false
		for i, u := range units[1:] {
			u = strings.ToLower(u)
			if suffix == u || suffix == u[:1] {
				multiplier = int64(1) << (10 * (i + 1))
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidByteSizeString
		}
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}

// Size is a number of bytes, which can be written in JSON as a number (20971520) or a string ("20 MB")
type Size int64

func (s Size) String() string {
	return FormatBytes(int64(s))
}

func (s *Size) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		v, err := ParseBytes(str)
		if err != nil {
			return fmt.Errorf("%w '%v'", err, str)
		}
		*s = Size(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrInvalidByteSizeString
	}
	*s = Size(n)
	return nil
}
