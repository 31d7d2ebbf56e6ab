package wazero

import goruntime "runtime"

func compilerSupported() bool {
	switch goruntime.GOARCH {
	case "amd64", "arm64":
		return true
	}
	return false
}
