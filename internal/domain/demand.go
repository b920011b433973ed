package domain

import "strings"

// legacyLargeFormatName is the size name the shop historically used for
// made-to-order large cakes before sizes carried an explicit flag.
const legacyLargeFormatName = "1kg"

// IsLargeFormatName reports whether a size name matches the legacy
// large-format marker, ignoring case.
func IsLargeFormatName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), legacyLargeFormatName)
}

// IsOnDemand classifies an order line as made-to-order. On-demand lines are
// produced for the order and never reserve shelf stock: any two-flavor blend,
// any large-format size, and any line with customization notes.
func IsOnDemand(size Size, hasSecondFlavor bool, notes string) bool {
	if hasSecondFlavor {
		return true
	}
	if size.LargeFormat || IsLargeFormatName(size.Name) {
		return true
	}
	return strings.TrimSpace(notes) != ""
}

// NaturalStatus is the status an item holds absent any manual override,
// determined solely by its demand classification.
func NaturalStatus(onDemand bool) OrderStatus {
	if onDemand {
		return OrderStatusPending
	}
	return OrderStatusReadyForPickup
}
