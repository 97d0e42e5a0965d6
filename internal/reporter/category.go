// Package reporter rate-limits repeated diagnostics per error category and
// periodically summarizes what it suppressed.
package reporter

// Category groups related diagnostics. Each category is rate-limited on its
// own; CategoryNone is never rate-limited.
type Category int

const (
	CategoryNone Category = iota
	CategoryProtoFormat
	CategoryReplyTimeout
	CategoryReadTimeout
	CategoryWriteTimeout
	CategoryLockTimeout
	CategoryScanMismatch
	CategoryConversion

	categoryCount
)

var categoryNames = [categoryCount]string{
	CategoryNone:         "none",
	CategoryProtoFormat:  "proto_format",
	CategoryReplyTimeout: "reply_timeout",
	CategoryReadTimeout:  "read_timeout",
	CategoryWriteTimeout: "write_timeout",
	CategoryLockTimeout:  "lock_timeout",
	CategoryScanMismatch: "scan_mismatch",
	CategoryConversion:   "conversion",
}

func (c Category) Valid() bool {
	return c >= 0 && c < categoryCount
}

func (c Category) String() string {
	if !c.Valid() {
		return "unknown"
	}
	return categoryNames[c]
}

// Categories lists every defined category in order.
func Categories() []Category {
	out := make([]Category, 0, categoryCount)
	for c := CategoryNone; c < categoryCount; c++ {
		out = append(out, c)
	}
	return out
}
