// Package ble abstracts the BLE central role the protocol stack runs
// on top of.
//
// The stack never touches a radio directly. It talks to a Transport,
// which models the GATT operations the protocol needs:
//   - connect/disconnect to a peripheral address
//   - subscribing to characteristic notifications
//   - writing one chunk to a characteristic
//   - callbacks for readiness, inbound chunks, write completion and
//     connection loss
//
// A platform binding (CoreBluetooth, BlueZ, an embedded HCI stack)
// implements Transport against real hardware. This package ships the
// in-process Pipe transport, which connects a Transport client to a
// DevicePort over an ordered in-memory link, and SimulatedDevice,
// a scripted peripheral speaking the real wire format. Together they
// make the whole stack testable without a radio.
package ble
