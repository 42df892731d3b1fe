package dhcp

import "errors"

// Sentinel errors for the wire codec. Callers distinguish decode failures
// from construction-time validation failures via errors.Is.
var (
	// ErrMalformedPacket covers framing failures: short header, bad magic
	// cookie, truncated option length or payload.
	ErrMalformedPacket = errors.New("malformed DHCP packet")

	// ErrInvalidValue covers semantic failures: bad MAC format, wrong
	// fixed-length payload, enumerated byte outside its symbol table,
	// unusable value map.
	ErrInvalidValue = errors.New("invalid DHCP value")
)
