package constants

// Vendor names as stored on library rows and used for adapter lookup.
const (
	VendorDashScope = "dashscope"
	VendorVolcano   = "volcano"
	VendorGoogle    = "google"
)

// KnownVendors enumerates every vendor the system can route to. Batch inputs
// are validated against it before any adapter lookup.
var KnownVendors = []string{VendorDashScope, VendorVolcano, VendorGoogle}

// IsKnownVendor reports whether name is in the vendor registry.
func IsKnownVendor(name string) bool {
	for _, v := range KnownVendors {
		if name == v {
			return true
		}
	}
	return false
}

// AssetKinds holds the allowed values for the kind field on generation assets.
var AssetKinds = []string{"IMAGE", "VIDEO"}
