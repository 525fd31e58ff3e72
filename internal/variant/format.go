package variant

import "strings"

// FormatKey renders a key for receipts and order lists:
// "Size:M,Color:Red" becomes "Size: M, Color: Red". Segment order and text
// are kept as stored; segments without ':' are shown as they are.
func FormatKey(key string) string {
	if strings.TrimSpace(key) == "" {
		return ""
	}

	var parts []string
	for _, segment := range strings.Split(key, pairSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		name, value, found := strings.Cut(segment, valueSeparator)
		if !found {
			parts = append(parts, segment)
			continue
		}
		parts = append(parts, strings.TrimSpace(name)+": "+strings.TrimSpace(value))
	}
	return strings.Join(parts, ", ")
}
