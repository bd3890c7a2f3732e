// Package codegen formats the human readable identifiers printed on racks, bins,
// crates and inbound receipts. Every function is pure.
package codegen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var trailingDigits = regexp.MustCompile(`(\d+)$`)

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// RackName returns {PREFIX}{seq:03d}, e.g. R007.
func RackName(rackPrefix string, seq int) string {
	return fmt.Sprintf("%s%03d", strings.ToUpper(orDefault(rackPrefix, "R")), seq)
}

// RackSeq extracts the trailing digit run of a rack name, zero padded to 3 digits.
// Legacy names like "R7" yield "007"; names without digits yield "001".
func RackSeq(rackName string) string {
	m := trailingDigits.FindStringSubmatch(strings.TrimSpace(rackName))
	if m == nil {
		return "001"
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		// run longer than an int; keep the digits as they are
		return m[1]
	}
	return fmt.Sprintf("%03d", n)
}

// BinCode returns [{SHORT}-]{PREFIX}{rackSeq}-S{stack+1:03d}-B{bin+1:03d}.
// stack and bin are the 0-based grid coordinates.
func BinCode(shortCode, rackPrefix, rackName string, stack, bin int) string {
	core := fmt.Sprintf("%s%s-S%03d-B%03d",
		strings.ToUpper(orDefault(rackPrefix, "R")), RackSeq(rackName), stack+1, bin+1)
	if short := strings.ToUpper(strings.TrimSpace(shortCode)); short != "" {
		return short + "-" + core
	}
	return core
}

// CrateName returns {SHORT}-{PREFIX}-{seq:04d}, followed by -{suffix} when set.
func CrateName(shortCode, cratePrefix, crateSuffix string, seq int) string {
	name := fmt.Sprintf("%s-%s-%04d",
		strings.ToUpper(strings.TrimSpace(shortCode)), orDefault(cratePrefix, "CR"), seq)
	if suffix := strings.TrimSpace(crateSuffix); suffix != "" {
		name += "-" + suffix
	}
	return name
}

// ReceiptCode returns {PREFIX}-{SHORT}-{seq:06d}; the short code is omitted when empty.
func ReceiptCode(receiptPrefix, shortCode string, seq int64) string {
	prefix := orDefault(receiptPrefix, "RCPT")
	if short := strings.ToUpper(strings.TrimSpace(shortCode)); short != "" {
		return fmt.Sprintf("%s-%s-%06d", prefix, short, seq)
	}
	return fmt.Sprintf("%s-%06d", prefix, seq)
}
