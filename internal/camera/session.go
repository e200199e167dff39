package camera

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"bm-camera-control/internal/client"
	"bm-camera-control/internal/store"
)

// Transport performs one blocking request. *client.CameraClient satisfies it.
type Transport interface {
	Do(ctx context.Context, method, url string, body any) (*client.Response, error)
}

// Projector renders a View. It is called after every observable mutation and
// must not call back into the Session synchronously.
type Projector interface {
	Project(v View)
}

type ProjectorFunc func(View)

func (f ProjectorFunc) Project(v View) { f(v) }

// Scheduler runs fn once after d
type Scheduler interface {
	AfterFunc(d time.Duration, fn func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) { time.AfterFunc(d, fn) }

// SlotView is the projected state of one registry slot
type SlotView struct {
	Index     int    `json:"index"`
	Hostname  string `json:"hostname,omitempty"`
	Secure    bool   `json:"secure"`
	Connected bool   `json:"connected"`
	Active    bool   `json:"active"`
}

// View is an immutable snapshot handed to the projector
type View struct {
	Current    int                        `json:"current"`
	Slots      [Slots]SlotView            `json:"slots"`
	Properties map[string]json.RawMessage `json:"properties"`
	Locked     map[Field]bool             `json:"locked"`
	// Hostname and Secure are what the store remembers for the current slot,
	// which may differ from the connected handle (or exist without one).
	Hostname string `json:"hostname"`
	Secure   bool   `json:"secure"`
	// Reset asks the projector to drop displayed values before new ones arrive
	Reset bool `json:"reset"`
}

type Options struct {
	Transport Transport
	Store     store.KV
	Projector Projector
	Scheduler Scheduler
	Logger    *slog.Logger
}

// Session is the shared state of one control panel
type Session struct {
	transport Transport
	store     store.KV
	projector Projector
	scheduler Scheduler
	logger    *slog.Logger

	mu       sync.Mutex
	registry Registry
	locks    LockSet
}

func NewSession(opts Options) *Session {
	s := &Session{
		transport: opts.Transport,
		store:     opts.Store,
		projector: opts.Projector,
		scheduler: opts.Scheduler,
		logger:    opts.Logger,
	}
	if s.store == nil {
		s.store = store.NewMemory()
	}
	if s.projector == nil {
		s.projector = ProjectorFunc(func(View) {})
	}
	if s.scheduler == nil {
		s.scheduler = timerScheduler{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SetProjector swaps the projector; the panel and web server install theirs
// after the session is built.
func (s *Session) SetProjector(p Projector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projector = p
}

func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.CurrentIndex()
}

// Slot reports what is installed at index
// Connected reports whether the current slot holds a camera
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Current() != nil
}

func (s *Session) Slot(index int) (SlotView, bool) {
	if !validIndex(index) {
		return SlotView{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotView(index), s.registry.Get(index) != nil
}

func (s *Session) slotView(i int) SlotView {
	v := SlotView{Index: i}
	if h := s.registry.Get(i); h != nil {
		v.Hostname = h.Hostname
		v.Secure = h.Secure
		v.Connected = true
		v.Active = h.Active
	}
	return v
}

// Remembered returns the persisted hostname and security for a slot
func (s *Session) Remembered(ctx context.Context, index int) (string, bool, error) {
	return store.LoadCamera(ctx, s.store, index)
}

// Snapshot builds the current View without projecting it
func (s *Session) Snapshot(ctx context.Context) View {
	current := s.Current()
	hostname, secure, err := s.Remembered(ctx, current)
	if err != nil {
		s.logger.Warn("failed to load remembered hostname", "index", current, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Current:    s.registry.CurrentIndex(),
		Properties: map[string]json.RawMessage{},
		Locked:     s.locks.snapshot(),
		Hostname:   hostname,
		Secure:     secure,
	}
	for i := 0; i < Slots; i++ {
		v.Slots[i] = s.slotView(i)
	}
	if h := s.registry.Current(); h != nil {
		v.Properties = h.snapshot()
	}
	return v
}

func (s *Session) project(ctx context.Context, reset bool) {
	v := s.Snapshot(ctx)
	v.Reset = reset

	s.mu.Lock()
	p := s.projector
	s.mu.Unlock()
	p.Project(v)
}

// BeginEdit locks a field against refresh
func (s *Session) BeginEdit(f Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks.Add(f)
}

func (s *Session) IsLocked(f Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks.Has(f)
}

// Release drops a lock without committing anything
func (s *Session) Release(f Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks.Remove(f)
}

// CommitEdit unlocks f and then runs commit. The lock is gone before the
// request goes out; a refresh landing in between shows the camera's old value
// until the next poll, never a half-typed one.
func (s *Session) CommitEdit(ctx context.Context, f Field, commit func(ctx context.Context) error) error {
	s.Release(f)
	return commit(ctx)
}

// CommitValue is CommitEdit for a typed-in field value. A hostname is
// committed by connecting: the lock is only cleared when the connect succeeds.
func (s *Session) CommitValue(ctx context.Context, f Field, input string) error {
	if f == FieldHostname {
		_, secure, _ := s.Remembered(ctx, s.Current())
		return s.Connect(ctx, s.Current(), input, secure)
	}

	body, err := f.Body(input)
	if err != nil {
		return err
	}
	return s.CommitEdit(ctx, f, func(ctx context.Context) error {
		return s.PushProperty(ctx, f.Path(), body)
	})
}

// ScheduleRefresh polls the current camera once after delay
func (s *Session) ScheduleRefresh(delay time.Duration) {
	s.scheduler.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("scheduled refresh failed", "error", err)
		}
	})
}
