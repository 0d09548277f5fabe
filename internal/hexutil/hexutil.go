// Package hexutil converts between EVM wire encodings and Go values:
// 0x-prefixed hex quantities, 20-byte addresses and 32-byte log topics.
package hexutil

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	addressHexLen = 40 // 20 bytes
	topicHexLen   = 64 // 32 bytes
)

// ParseQuantity decodes a 0x-prefixed hex quantity into uint64.
func ParseQuantity(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return 0, fmt.Errorf("quantity %q missing 0x prefix", s)
	}
	digits := s[2:]
	if digits == "" {
		return 0, fmt.Errorf("quantity %q has no digits", s)
	}
	v, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return v, nil
}

// QuantityOrZero decodes a hex quantity, returning 0 for missing or
// unparseable values. Used for per-item fields where a bad value must not
// fail the whole batch.
func QuantityOrZero(s string) uint64 {
	v, err := ParseQuantity(s)
	if err != nil {
		return 0
	}
	return v
}

// FormatQuantity encodes an integer as a 0x-prefixed hex quantity.
func FormatQuantity(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// NormalizeAddress returns the canonical form of a 20-byte address:
// trimmed, lowercase, 0x-prefixed.
func NormalizeAddress(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "0x") {
		return "", fmt.Errorf("address %q missing 0x prefix", s)
	}
	hexPart := s[2:]
	if len(hexPart) != addressHexLen {
		return "", fmt.Errorf("address %q has %d hex chars, want %d", s, len(hexPart), addressHexLen)
	}
	if !isHex(hexPart) {
		return "", fmt.Errorf("address %q contains non-hex characters", s)
	}
	return s, nil
}

// AddressFromTopic extracts the address packed into a 32-byte indexed topic.
// The address occupies the low-order 20 bytes of the word.
func AddressFromTopic(topic string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(topic))
	t = strings.TrimPrefix(t, "0x")
	if len(t) != topicHexLen {
		return "", fmt.Errorf("topic %q has %d hex chars, want %d", topic, len(t), topicHexLen)
	}
	if !isHex(t) {
		return "", fmt.Errorf("topic %q contains non-hex characters", topic)
	}
	return "0x" + t[topicHexLen-addressHexLen:], nil
}

// AddressToTopic zero-pads a 20-byte address to a 32-byte topic word,
// for exact-match filters on indexed parameters.
func AddressToTopic(addr string) (string, error) {
	a, err := NormalizeAddress(addr)
	if err != nil {
		return "", err
	}
	return "0x" + strings.Repeat("0", topicHexLen-addressHexLen) + a[2:], nil
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
