// Package dispatch is a worker-pool pub/sub router: publishers push a
// payload against a subscription ID, a small pool of workers drains the job
// queue and fans each payload out to every channel currently subscribed to
// that ID. The engine uses it to broadcast Vault/OrderBook/Market events to
// the REST and WebSocket layers without coupling the core packages to
// either transport.
package dispatch

import (
	"errors"
	"runtime"
	"sync"

	"github.com/gofrs/uuid"
)

var (
	errDispatcherNotInitialized          = errors.New("dispatch: dispatcher not initialized")
	ErrNotRunning                        = errors.New("dispatch: not running")
	errDispatcherAlreadyRunning          = errors.New("dispatch: already running")
	errLeakedWorkers                     = errors.New("dispatch: worker count not reset, previous workers leaked")
	errNoWorkers                         = errors.New("dispatch: no workers to drop")
	errWorkerCeilingReached              = errors.New("dispatch: worker ceiling reached")
	errIDNotSet                          = errors.New("dispatch: id not set")
	errNoData                            = errors.New("dispatch: no data to publish")
	errNoIDs                             = errors.New("dispatch: no ids to publish to")
	errDispatcherJobsAtLimit             = errors.New("dispatch: jobs channel at limit")
	errUUIDCollision                     = errors.New("dispatch: uuid collision")
	errDispatcherUUIDNotFoundInRouteList = errors.New("dispatch: uuid not found in route list")
	errTypeAssertionFailure              = errors.New("dispatch: type assertion failure")
	errChannelIsNil                      = errors.New("dispatch: channel is nil")
	errChannelNotFoundInUUIDRef          = errors.New("dispatch: channel not found for uuid")
	errMuxIsNil                          = errors.New("dispatch: mux is nil")

	defaultJobsLimit = 1000
)

// DefaultMaxWorkers and DefaultJobsLimit are the sizes GetDispatcher starts
// the shared dispatcher with; exported so engine wiring can name them
// explicitly at startup. Start(0, 0) does not use them: a zero worker count
// falls back to runtime.NumCPU() and a zero jobs limit to 1000.
const (
	DefaultMaxWorkers = 10
	DefaultJobsLimit  = 1000
)

// Name identifies this subsystem for the engine's subsystem lifecycle
// logging, mirroring the teacher's own Subsystem naming convention.
const Name = "dispatch"

// job is one published payload awaiting fan-out to its route's subscribers.
type job struct {
	id   uuid.UUID
	data interface{}
}

// Dispatcher owns the subscriber routing table and the worker pool that
// drains published jobs onto it.
type Dispatcher struct {
	routeMtx sync.RWMutex
	routes   map[uuid.UUID][]chan interface{}

	outbound sync.Pool

	stateMtx   sync.Mutex
	running    bool
	count      int
	maxWorkers int
	jobsLimit  int

	jobs       chan job
	workerQuit chan struct{}
}

func getChan() interface{} {
	return make(chan interface{}, 1)
}

func newDispatcher() *Dispatcher {
	return &Dispatcher{
		routes:   make(map[uuid.UUID][]chan interface{}),
		outbound: sync.Pool{New: getChan},
	}
}

var globalDispatcher *Dispatcher

// Start brings up the package-level dispatcher with workers goroutines and
// a jobs queue capped at jobsLimit. 0 for either picks a sane default.
func Start(workers, jobsLimit int) error {
	if globalDispatcher == nil {
		globalDispatcher = newDispatcher()
	}
	return globalDispatcher.start(workers, jobsLimit)
}

// Stop tears down the package-level dispatcher.
func Stop() error { return globalDispatcher.stop() }

// IsRunning reports whether the package-level dispatcher is running.
func IsRunning() bool { return globalDispatcher.isRunning() }

// DropWorker removes one worker from the package-level dispatcher's pool.
func DropWorker() error { return globalDispatcher.dropWorker() }

// SpawnWorker adds one worker to the package-level dispatcher's pool.
func SpawnWorker() error { return globalDispatcher.spawnWorker() }

// GetDispatcher returns the package-level dispatcher, starting it with
// default settings if Start has not already been called. Engine wiring
// uses this to bind a Mux for each of Vault/OrderBook/Market's event
// streams without each caller needing to know whether Start already ran.
func GetDispatcher() *Dispatcher {
	if globalDispatcher == nil {
		_ = Start(DefaultMaxWorkers, DefaultJobsLimit)
	}
	return globalDispatcher
}

func (d *Dispatcher) isRunning() bool {
	if d == nil {
		return false
	}
	d.stateMtx.Lock()
	defer d.stateMtx.Unlock()
	return d.running
}

func (d *Dispatcher) start(workers, jobsLimit int) error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	d.stateMtx.Lock()
	defer d.stateMtx.Unlock()
	if d.running {
		return errDispatcherAlreadyRunning
	}
	if d.count != 0 {
		return errLeakedWorkers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if jobsLimit <= 0 {
		jobsLimit = defaultJobsLimit
	}
	d.maxWorkers = workers
	d.jobsLimit = jobsLimit
	d.jobs = make(chan job, jobsLimit)
	d.workerQuit = make(chan struct{})

	d.routeMtx.Lock()
	if d.routes == nil {
		d.routes = make(map[uuid.UUID][]chan interface{})
	}
	d.routeMtx.Unlock()

	for i := 0; i < workers; i++ {
		d.spawn()
	}
	d.running = true
	return nil
}

func (d *Dispatcher) stop() error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	d.stateMtx.Lock()
	defer d.stateMtx.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	close(d.jobs)
	d.running = false
	d.count = 0

	d.routeMtx.Lock()
	d.routes = nil
	d.routeMtx.Unlock()
	return nil
}

// spawn launches one worker goroutine. Caller must hold stateMtx.
func (d *Dispatcher) spawn() {
	d.count++
	go d.runWorker()
}

func (d *Dispatcher) runWorker() {
	for {
		select {
		case <-d.workerQuit:
			return
		case j, ok := <-d.jobs:
			if !ok {
				return
			}
			d.fanOut(j)
		}
	}
}

func (d *Dispatcher) fanOut(j job) {
	d.routeMtx.RLock()
	subs := d.routes[j.id]
	d.routeMtx.RUnlock()
	for _, c := range subs {
		select {
		case c <- j.data:
		default:
		}
	}
}

func (d *Dispatcher) dropWorker() error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	d.stateMtx.Lock()
	defer d.stateMtx.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	if d.count == 0 {
		return errNoWorkers
	}
	d.workerQuit <- struct{}{}
	d.count--
	return nil
}

func (d *Dispatcher) spawnWorker() error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	d.stateMtx.Lock()
	defer d.stateMtx.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	if d.count >= d.maxWorkers {
		return errWorkerCeilingReached
	}
	d.spawn()
	return nil
}

func (d *Dispatcher) publish(id uuid.UUID, data interface{}) error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	if !d.isRunning() {
		return nil
	}
	if id == uuid.Nil {
		return errIDNotSet
	}
	if data == nil {
		return errNoData
	}
	select {
	case d.jobs <- job{id: id, data: data}:
		return nil
	default:
		return errDispatcherJobsAtLimit
	}
}

func (d *Dispatcher) getNewID(genFn func() (uuid.UUID, error)) (uuid.UUID, error) {
	if d == nil {
		return uuid.UUID{}, errDispatcherNotInitialized
	}
	id, err := genFn()
	if err != nil {
		return uuid.UUID{}, err
	}
	if id == uuid.Nil {
		return uuid.UUID{}, errIDNotSet
	}
	d.routeMtx.Lock()
	defer d.routeMtx.Unlock()
	if d.routes == nil {
		return uuid.UUID{}, errDispatcherNotInitialized
	}
	if _, ok := d.routes[id]; ok {
		return uuid.UUID{}, errUUIDCollision
	}
	d.routes[id] = nil
	return id, nil
}

func (d *Dispatcher) subscribe(id uuid.UUID) (<-chan interface{}, error) {
	if d == nil {
		return nil, errDispatcherNotInitialized
	}
	if id == uuid.Nil {
		return nil, errIDNotSet
	}
	d.routeMtx.Lock()
	defer d.routeMtx.Unlock()
	if d.routes == nil {
		return nil, errDispatcherNotInitialized
	}
	list, ok := d.routes[id]
	if !ok {
		return nil, errDispatcherUUIDNotFoundInRouteList
	}
	obj := d.outbound.Get()
	ch, ok := obj.(chan interface{})
	if !ok {
		return nil, errTypeAssertionFailure
	}
	d.routes[id] = append(list, ch)
	return ch, nil
}

func (d *Dispatcher) unsubscribe(id uuid.UUID, channelIn <-chan interface{}) error {
	if d == nil {
		return errDispatcherNotInitialized
	}
	if id == uuid.Nil {
		return errIDNotSet
	}
	if channelIn == nil {
		return errChannelIsNil
	}
	if !d.isRunning() {
		return nil
	}
	d.routeMtx.Lock()
	defer d.routeMtx.Unlock()
	if d.routes == nil {
		return nil
	}
	list, ok := d.routes[id]
	if !ok {
		return errDispatcherUUIDNotFoundInRouteList
	}
	for i, c := range list {
		if (<-chan interface{})(c) == channelIn {
			d.routes[id] = append(list[:i], list[i+1:]...)
			d.outbound.Put(c)
			return nil
		}
	}
	return errChannelNotFoundInUUIDRef
}
