package wire

// Characteristic identifies a GATT characteristic of the PumpLink
// service. Each characteristic is an independent opcode namespace and
// carries its own chunk-size class.
type Characteristic uint8

const (
	// CharAuthorization carries the authentication handshake.
	CharAuthorization Characteristic = iota

	// CharCurrentStatus carries status request/response traffic.
	CharCurrentStatus

	// CharControl carries command traffic.
	CharControl

	// CharQualifyingEvents carries unsolicited device event notifications.
	CharQualifyingEvents
)

// Characteristic UUIDs of the PumpLink GATT service.
const (
	ServiceUUID           = "0000fdfb-0000-1000-8000-00805f9b34fb"
	AuthorizationUUID     = "7b83fff8-9f77-4e86-bf23-b02da7324d94"
	CurrentStatusUUID     = "7b83fff9-9f77-4e86-bf23-b02da7324d94"
	ControlUUID           = "7b83fffa-9f77-4e86-bf23-b02da7324d94"
	QualifyingEventsUUID  = "7b83fffb-9f77-4e86-bf23-b02da7324d94"
)

// Chunk-size classes. Short characteristics use the pre-MTU-exchange
// write size; long characteristics assume the negotiated MTU.
const (
	// ShortChunkSize is the wire chunk size for short characteristics.
	ShortChunkSize = 20

	// LongChunkSize is the wire chunk size for long characteristics.
	LongChunkSize = 40

	// RequiredMTU is the MTU that must be negotiated with the
	// peripheral before long-characteristic traffic is possible.
	RequiredMTU = 185
)

// String returns the characteristic name.
func (c Characteristic) String() string {
	switch c {
	case CharAuthorization:
		return "AUTHORIZATION"
	case CharCurrentStatus:
		return "CURRENT_STATUS"
	case CharControl:
		return "CONTROL"
	case CharQualifyingEvents:
		return "QUALIFYING_EVENTS"
	default:
		return "UNKNOWN"
	}
}

// UUID returns the GATT UUID for the characteristic.
func (c Characteristic) UUID() string {
	switch c {
	case CharAuthorization:
		return AuthorizationUUID
	case CharCurrentStatus:
		return CurrentStatusUUID
	case CharControl:
		return ControlUUID
	case CharQualifyingEvents:
		return QualifyingEventsUUID
	default:
		return ""
	}
}

// ChunkSize returns the wire chunk size class for the characteristic.
func (c Characteristic) ChunkSize() int {
	switch c {
	case CharAuthorization:
		return ShortChunkSize
	default:
		return LongChunkSize
	}
}
