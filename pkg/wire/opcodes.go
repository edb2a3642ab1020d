package wire

// Authorization characteristic opcodes.
//
// The legacy and JPAKE handshakes share this namespace; the two are
// mutually exclusive per connection attempt.
const (
	// Legacy HMAC challenge-response handshake.
	OpcodeCentralChallengeRequest  uint8 = 0x10
	OpcodeCentralChallengeResponse uint8 = 0x11
	OpcodePumpChallengeRequest     uint8 = 0x12
	OpcodePumpChallengeResponse    uint8 = 0x13

	// EC-JPAKE handshake. Round 1 is split into two messages (1a, 1b)
	// because its payload exceeds the single-message cargo limit.
	OpcodeJpake1aRequest  uint8 = 0x20
	OpcodeJpake1aResponse uint8 = 0x21
	OpcodeJpake1bRequest  uint8 = 0x22
	OpcodeJpake1bResponse uint8 = 0x23
	OpcodeJpake2Request   uint8 = 0x24
	OpcodeJpake2Response  uint8 = 0x25

	// Round 3 fetches the server nonce, round 4 exchanges the key
	// confirmation values derived from it.
	OpcodeJpake3SessionKeyRequest  uint8 = 0x26
	OpcodeJpake3SessionKeyResponse uint8 = 0x27
	OpcodeJpake4KeyConfirmRequest  uint8 = 0x28
	OpcodeJpake4KeyConfirmResponse uint8 = 0x29
)

// CurrentStatus characteristic opcodes.
//
// Note OpcodeApiVersionRequest reuses the numeric value of
// OpcodeJpake1aRequest; the two live on different characteristics.
const (
	OpcodeApiVersionRequest      uint8 = 0x20
	OpcodeApiVersionResponse     uint8 = 0x21
	OpcodeTimeSinceResetRequest  uint8 = 0x36
	OpcodeTimeSinceResetResponse uint8 = 0x37
	OpcodeBatteryStatusRequest   uint8 = 0x38
	OpcodeBatteryStatusResponse  uint8 = 0x39
)

// ResponseOpcode returns the response opcode paired with a request
// opcode. Request/response pairs differ in the low bit everywhere in
// the protocol.
func ResponseOpcode(request uint8) uint8 {
	return request | 0x01
}
