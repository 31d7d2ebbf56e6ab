package host

import "slices"

const (
	abiVersionV1MarkerExport = "runjs_abi_v1"

	// StartExport is the guest entry point.
	StartExport = "start"
)

// ABIVersion represents the detected guest ABI.
type ABIVersion uint8

const (
	// ABIUnknown indicates that no known ABI marker was exported.
	ABIUnknown ABIVersion = iota
	// ABIV1 indicates the guest exports the ABI v1 marker.
	ABIV1
)

func (v ABIVersion) String() string {
	switch v {
	case ABIV1:
		return "v1"
	case ABIUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

func detectABIVersion(exports []string) ABIVersion {
	if slices.Contains(exports, abiVersionV1MarkerExport) {
		return ABIV1
	}
	return ABIUnknown
}
