// Package msgs defines the wire messages published by the bridge.
package msgs

// Messages are protobuf encoded. MQTT topics carry one message type each,
// so payloads are the bare message. Streams mixing message types (websocket)
// wrap every message in Typed.
