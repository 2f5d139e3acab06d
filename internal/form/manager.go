package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/logging"
	"github.com/atendimento-dp/feedbackform/internal/sharepoint"
)

// GenericErrorMessage is the only failure message shown to the user.
const GenericErrorMessage = "Erro ao enviar feedback. Tente novamente mais tarde."

// ErrBusy is returned when a submission is started while another is in flight.
var ErrBusy = errors.New("a submission is already in progress")

// State is the submission lifecycle of a form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
	StateError
)

// String returns the state name used in snapshots sent to clients.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sender performs the network submission of a record.
// *sharepoint.Client implements it.
type Sender interface {
	SubmitFeedback(ctx context.Context, record feedback.Record) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, record feedback.Record) error

// SubmitFeedback calls f(ctx, record).
func (f SenderFunc) SubmitFeedback(ctx context.Context, record feedback.Record) error {
	return f(ctx, record)
}

// Result is the outcome of a submission task.
type Result struct {
	Err  error
	Kind sharepoint.Kind // KindUnknown on success
}

// OK reports whether the submission succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Task is a submission running in the background.
type Task struct {
	done   chan struct{}
	result Result
}

// Done is closed once the submission has finished and the form state updated.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the submission finishes and returns its result.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

// Snapshot is a copy of the form state at one point in time.
type Snapshot struct {
	Record    feedback.Record `json:"record"`
	State     State           `json:"state"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"errorKind,omitempty"`
	Busy      bool            `json:"busy"`
	Submitted bool            `json:"submitted"`
}

// Manager owns the record being edited and the submission lifecycle of one
// form instance. It is safe for concurrent use.
type Manager struct {
	// notifyMu orders change notifications with the mutations producing them.
	notifyMu sync.Mutex
	mu       sync.Mutex

	record  feedback.Record
	state   State
	err     string
	errKind sharepoint.Kind
	busy    bool

	onChange func(Snapshot)
}

// NewManager creates a manager with an empty record in the idle state.
func NewManager() *Manager {
	return &Manager{}
}

// OnChange registers fn to receive a snapshot after every change. fn runs
// synchronously and must not call back into the manager.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.onChange = fn
}

// update applies fn under the state lock and notifies the change listener.
func (m *Manager) update(fn func() error) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	err := fn()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err == nil && m.onChange != nil {
		m.onChange(snap)
	}
	return err
}

// UpdateField replaces one field of the record. No validation happens here.
// A visible submitted or error outcome stays until the next submission.
func (m *Manager) UpdateField(name, value string) error {
	return m.update(func() error {
		return m.record.Set(name, value)
	})
}

// Reset returns a finished form to idle editing. The record is untouched.
func (m *Manager) Reset() error {
	return m.update(func() error {
		if m.busy {
			return ErrBusy
		}
		m.state = StateIdle
		m.err = ""
		m.errKind = sharepoint.KindUnknown
		return nil
	})
}

// Start begins submitting a copy of the current record and returns at once.
// It fails with ErrBusy when a submission is already in flight. The
// submission is detached from ctx cancellation: once started it runs to
// completion, bounded only by the sender's own timeouts.
func (m *Manager) Start(ctx context.Context, sender Sender) (*Task, error) {
	var record feedback.Record
	err := m.update(func() error {
		if m.busy {
			return ErrBusy
		}
		m.busy = true
		m.state = StateSubmitting
		m.err = ""
		m.errKind = sharepoint.KindUnknown
		record = m.record
		return nil
	})
	if err != nil {
		return nil, err
	}

	task := &Task{done: make(chan struct{})}
	go m.run(context.WithoutCancel(ctx), sender, record, task)
	return task, nil
}

// Submit starts a submission and waits for it. It returns ErrBusy without
// calling the sender when another submission is in flight, otherwise the
// sender's error. The user-facing outcome is read from Snapshot.
func (m *Manager) Submit(ctx context.Context, sender Sender) error {
	task, err := m.Start(ctx, sender)
	if err != nil {
		return err
	}
	return task.Wait().Err
}

func (m *Manager) run(ctx context.Context, sender Sender, record feedback.Record, task *Task) {
	defer close(task.done)

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sender panicked: %v", r)
		}
		task.result = m.finish(err)
	}()

	err = sender.SubmitFeedback(ctx, record)
}

// finish records the outcome and clears the busy flag.
func (m *Manager) finish(err error) Result {
	result := Result{Err: err}
	if err != nil {
		result.Kind = sharepoint.KindOf(err)
		logging.Debug("Submission task finished with error",
			zap.String("kind", result.Kind.String()),
			zap.Error(err),
		)
	}

	_ = m.update(func() error {
		m.busy = false
		if err != nil {
			m.state = StateError
			m.err = GenericErrorMessage
			m.errKind = result.Kind
			return nil
		}
		m.state = StateSubmitted
		m.err = ""
		m.errKind = sharepoint.KindUnknown
		m.record = feedback.Record{}
		return nil
	})

	return result
}

// Snapshot returns a copy of the current form state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Record:    m.record,
		State:     m.state,
		Error:     m.err,
		Busy:      m.busy,
		Submitted: m.state == StateSubmitted,
	}
	if m.state == StateError {
		snap.ErrorKind = m.errKind.Label()
	}
	return snap
}

// Busy reports whether a submission is in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}
