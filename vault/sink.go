package vault

import "github.com/gofrs/uuid"

// EventSink is the narrow slice of dispatch.Mux the Vault needs to publish
// its named events (§6) onto. A Vault with no sink wired simply drops
// events — publishing is an observability concern, never load-bearing for
// the invariants.
type EventSink interface {
	Publish(data interface{}, ids ...uuid.UUID) error
}

// SetEventSink wires sink to receive every event this Vault publishes,
// tagged with topic. Engine wiring calls this once at startup after
// reserving a dispatch.Mux subscription ID for the Vault's events.
func (v *Vault) SetEventSink(sink EventSink, topic uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sink = sink
	v.eventsTopic = topic
}
