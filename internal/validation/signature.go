package validation

import "bytes"

// ScanLimit is the prefix length searched for malicious signatures.
const ScanLimit = 4096

// signatures is a coarse screen for scripts and test payloads posing as
// documents. It is not a malware scanner and misses anything past ScanLimit.
var signatures = [][]byte{
	[]byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$`), // EICAR test file
	[]byte("#!/"),                         // shebang
	[]byte("<?php"),
}

// ScanSignatures reports whether any known signature occurs in the first
// ScanLimit bytes of data.
func ScanSignatures(data []byte) bool {
	if len(data) > ScanLimit {
		data = data[:ScanLimit]
	}
	for _, sig := range signatures {
		if bytes.Contains(data, sig) {
			return true
		}
	}
	return false
}
