package dispatch

import "github.com/gofrs/uuid"

// Mux is a convenience wrapper around a Dispatcher giving callers typed
// Subscribe/Unsubscribe/Publish access without reaching for the unexported
// Dispatcher methods directly.
type Mux struct {
	d *Dispatcher
}

// GetNewMux returns a Mux bound to d.
func GetNewMux(d *Dispatcher) *Mux {
	return &Mux{d: d}
}

// GetID reserves and returns a fresh subscription ID.
func (m *Mux) GetID() (uuid.UUID, error) {
	if m == nil {
		return uuid.UUID{}, errMuxIsNil
	}
	return m.d.getNewID(uuid.NewV4)
}

// Subscribe returns a Pipe delivering every payload published against id.
func (m *Mux) Subscribe(id uuid.UUID) (Pipe, error) {
	if m == nil {
		return Pipe{}, errMuxIsNil
	}
	ch, err := m.d.subscribe(id)
	if err != nil {
		return Pipe{}, err
	}
	return Pipe{ID: id, C: ch, d: m.d}, nil
}

// Unsubscribe removes c from id's subscriber list.
func (m *Mux) Unsubscribe(id uuid.UUID, c <-chan interface{}) error {
	if m == nil {
		return errMuxIsNil
	}
	return m.d.unsubscribe(id, c)
}

// Publish pushes data to every id in ids.
func (m *Mux) Publish(data interface{}, ids ...uuid.UUID) error {
	if m == nil {
		return errMuxIsNil
	}
	if data == nil {
		return errNoData
	}
	if len(ids) == 0 {
		return errNoIDs
	}
	for _, id := range ids {
		if err := m.d.publish(id, data); err != nil {
			return err
		}
	}
	return nil
}

// Pipe is a live subscription returned by Mux.Subscribe.
type Pipe struct {
	ID uuid.UUID
	C  <-chan interface{}
	d  *Dispatcher
}

// Release unsubscribes the pipe and returns its channel to the pool.
func (p Pipe) Release() error {
	return p.d.unsubscribe(p.ID, p.C)
}
