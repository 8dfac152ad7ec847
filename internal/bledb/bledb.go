// Package bledb maps well-known Bluetooth SIG UUIDs (services,
// characteristics, descriptors) to their human-readable names, for
// scan/connect output. It only knows the handful of assigned numbers this
// repository's CLI ever shows a user; it is not a full SIG registry
// mirror.
package bledb

import "strings"

const sigBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID lowercases uuid, strips dashes, braces and an optional 0x
// prefix, and — if the result is a 128-bit Bluetooth-SIG-base UUID —
// collapses it to its embedded 16-bit short form. Custom (non-SIG-base)
// 128-bit UUIDs are returned in full, dash-stripped lowercase form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(uuid)
	u = strings.Trim(u, "{}")
	u = strings.TrimPrefix(u, "0x")
	u = strings.ReplaceAll(u, "-", "")

	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, sigBaseSuffix) {
		return u[4:8]
	}
	return u
}

var services = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180f": "Battery Service",
	"1826": "Fitness Machine",
	"1816": "Cycling Speed and Cadence",
}

var characteristics = map[string]string{
	"2a00": "Device Name",
	"2a19": "Battery Level",
	"2a24": "Model Number String",
	"2a29": "Manufacturer Name String",
	"2a37": "Heart Rate Measurement",
	"2acc": "Fitness Machine Feature",
	"2acd": "Treadmill Data",
	"2ad2": "Fitness Machine Status",
	"2ad9": "Fitness Machine Control Point",
	"2ada": "Fitness Machine Supported Speed Range",
}

var descriptors = map[string]string{
	"2900": "Characteristic Extended Properties",
	"2901": "Characteristic User Descriptor",
	"2902": "Client Characteristic Configuration",
	"2903": "Server Characteristic Configuration",
}

// LookupService returns the assigned name for a service UUID, or "" if
// unknown.
func LookupService(uuid string) string { return services[NormalizeUUID(uuid)] }

// LookupCharacteristic returns the assigned name for a characteristic
// UUID, or "" if unknown.
func LookupCharacteristic(uuid string) string { return characteristics[NormalizeUUID(uuid)] }

// LookupDescriptor returns the assigned name for a descriptor UUID, or ""
// if unknown.
func LookupDescriptor(uuid string) string { return descriptors[NormalizeUUID(uuid)] }
