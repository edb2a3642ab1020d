// Package wire defines the PumpLink wire constants and message types.
//
// A PumpLink message is an opcode, a transaction id and up to 255 bytes
// of cargo. Messages travel over BLE GATT characteristics. Opcode
// numbers are only unique within one characteristic's namespace, so
// routing must always use the (characteristic, opcode) pair, never the
// opcode alone.
//
// All values in this package are fixed protocol parameters and must
// match the peripheral byte-for-byte for interoperability.
package wire
