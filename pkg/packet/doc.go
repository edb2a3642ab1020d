// Package packet implements PumpLink message framing and reassembly.
//
// An application message is serialized as
//
//	[opcode:1][txId:1][cargoLen:1][cargo:cargoLen][crc16:2]
//
// with the CRC computed over everything before it. The serialized
// buffer is then split into link-sized chunks, each prefixed with
//
//	[remainingAfterThis<<4 : 1][txId:1]
//
// The remaining-count nibble lets the reassembler detect the final
// chunk without an explicit length field.
//
// Malformed or CRC-corrupt frames are expected under transient link
// loss: callers log and drop them, they never abort the connection.
package packet
