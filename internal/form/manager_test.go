package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atendimento-dp/feedbackform/internal/feedback"
	"github.com/atendimento-dp/feedbackform/internal/sharepoint"
)

func fillRecord(t *testing.T, m *Manager) {
	t.Helper()
	values := map[string]string{
		feedback.FieldMatricula:      "123",
		feedback.FieldNome:           "Ana",
		feedback.FieldFuncao:         "Analista",
		feedback.FieldLider:          "Bia",
		feedback.FieldDuvidaProblema: "Férias",
		feedback.FieldData:           "2024-01-01",
	}
	for name, value := range values {
		if err := m.UpdateField(name, value); err != nil {
			t.Fatalf("UpdateField(%s) error = %v", name, err)
		}
	}
}

func TestUpdateField(t *testing.T) {
	m := NewManager()

	if err := m.UpdateField(feedback.FieldNome, "Ana"); err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}
	if err := m.UpdateField(feedback.FieldLider, "Bia"); err != nil {
		t.Fatalf("UpdateField() error = %v", err)
	}

	snap := m.Snapshot()
	want := feedback.Record{Nome: "Ana", Lider: "Bia"}
	if snap.Record != want {
		t.Errorf("Record = %+v, want %+v", snap.Record, want)
	}
	if snap.State != StateIdle {
		t.Errorf("State = %v, want idle", snap.State)
	}
}

func TestUpdateField_Unknown(t *testing.T) {
	m := NewManager()

	if err := m.UpdateField("email", "x"); !errors.Is(err, feedback.ErrUnknownField) {
		t.Errorf("UpdateField(email) error = %v, want ErrUnknownField", err)
	}
}

func TestSubmit_Success(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	var sent feedback.Record
	err := m.Submit(context.Background(), SenderFunc(func(_ context.Context, r feedback.Record) error {
		sent = r
		return nil
	}))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if sent.Nome != "Ana" || sent.Data != "2024-01-01" {
		t.Errorf("sender got %+v", sent)
	}

	snap := m.Snapshot()
	if snap.State != StateSubmitted || !snap.Submitted {
		t.Errorf("State = %v, want submitted", snap.State)
	}
	if !snap.Record.IsEmpty() {
		t.Errorf("Record = %+v, want empty", snap.Record)
	}
	if snap.Error != "" || snap.Busy {
		t.Errorf("Error = %q, Busy = %v, want cleared", snap.Error, snap.Busy)
	}
}

func TestSubmit_FailureKeepsRecord(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)
	before := m.Snapshot().Record

	cause := sharepoint.NewSubmissionError(500, "list item creation failed with status 500", nil)
	err := m.Submit(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		return cause
	}))
	if !errors.Is(err, cause) {
		t.Fatalf("Submit() error = %v, want %v", err, cause)
	}

	snap := m.Snapshot()
	if snap.State != StateError {
		t.Errorf("State = %v, want error", snap.State)
	}
	if snap.Error != GenericErrorMessage {
		t.Errorf("Error = %q, want %q", snap.Error, GenericErrorMessage)
	}
	if snap.ErrorKind != "submission" {
		t.Errorf("ErrorKind = %q, want submission", snap.ErrorKind)
	}
	if snap.Record != before {
		t.Errorf("Record = %+v, want unchanged %+v", snap.Record, before)
	}
	if snap.Busy {
		t.Error("Busy should be false after failure")
	}
}

func TestSubmit_ErrorClearedBySuccess(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	_ = m.Submit(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		return errors.New("network down")
	}))
	if m.Snapshot().ErrorKind != "unknown" {
		t.Errorf("ErrorKind = %q, want unknown", m.Snapshot().ErrorKind)
	}

	if err := m.Submit(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		return nil
	})); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	snap := m.Snapshot()
	if snap.Error != "" || snap.ErrorKind != "" {
		t.Errorf("Error = %q, ErrorKind = %q, want cleared", snap.Error, snap.ErrorKind)
	}
}

func TestSubmit_BusyOnlyWhileInFlight(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	if m.Busy() {
		t.Fatal("Busy should be false before submit")
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	task, err := m.Start(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		close(entered)
		<-release
		return nil
	}))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	<-entered
	snap := m.Snapshot()
	if !snap.Busy || snap.State != StateSubmitting {
		t.Errorf("during submit Busy = %v, State = %v, want true, submitting", snap.Busy, snap.State)
	}

	select {
	case <-task.Done():
		t.Fatal("task finished before the sender returned")
	default:
	}

	close(release)
	if res := task.Wait(); !res.OK() {
		t.Errorf("Wait() = %+v, want success", res)
	}
	if m.Busy() {
		t.Error("Busy should be false after submit")
	}
}

func TestStart_RejectsReentrantSubmit(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	release := make(chan struct{})
	calls := 0
	sender := SenderFunc(func(context.Context, feedback.Record) error {
		calls++
		<-release
		return nil
	})

	task, err := m.Start(context.Background(), sender)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := m.Start(context.Background(), sender); !errors.Is(err, ErrBusy) {
		t.Errorf("second Start() error = %v, want ErrBusy", err)
	}
	if err := m.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Reset() while busy error = %v, want ErrBusy", err)
	}

	close(release)
	task.Wait()
	if calls != 1 {
		t.Errorf("sender called %d times, want 1", calls)
	}
}

func TestSubmit_PanicClearsBusy(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	err := m.Submit(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		panic("boom")
	}))
	if err == nil {
		t.Fatal("Submit() should report the panic as an error")
	}

	snap := m.Snapshot()
	if snap.Busy {
		t.Error("Busy should be false after a panicking sender")
	}
	if snap.State != StateError || snap.Error != GenericErrorMessage {
		t.Errorf("State = %v, Error = %q, want error state with generic message", snap.State, snap.Error)
	}
}

func TestStart_DetachedFromCallerCancel(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	task, err := m.Start(ctx, SenderFunc(func(ctx context.Context, _ feedback.Record) error {
		<-release
		return ctx.Err()
	}))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()
	close(release)

	if res := task.Wait(); !res.OK() {
		t.Errorf("Wait() = %+v, want success despite caller cancel", res)
	}
}

func TestUpdateField_KeepsOutcomeUntilNextSubmit(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)
	_ = m.Submit(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		return errors.New("fail")
	}))

	if err := m.UpdateField(feedback.FieldNome, "Carla"); err != nil {
		t.Fatal(err)
	}
	snap := m.Snapshot()
	if snap.State != StateError || snap.Record.Nome != "Carla" {
		t.Errorf("State = %v, Nome = %q, want error state with edited record", snap.State, snap.Record.Nome)
	}

	if err := m.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap = m.Snapshot()
	if snap.State != StateIdle || snap.Error != "" || snap.Record.Nome != "Carla" {
		t.Errorf("after Reset snapshot = %+v", snap)
	}
}

func TestOnChange_ReportsSubmittingTransition(t *testing.T) {
	m := NewManager()
	fillRecord(t, m)

	var states []State
	m.OnChange(func(s Snapshot) { states = append(states, s.State) })

	task, err := m.Start(context.Background(), SenderFunc(func(context.Context, feedback.Record) error {
		return nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("task did not finish")
	}

	want := []State{StateSubmitting, StateSubmitted}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestStateMarshalText(t *testing.T) {
	b, err := StateSubmitting.MarshalText()
	if err != nil || string(b) != "submitting" {
		t.Errorf("MarshalText() = %q, %v, want submitting", b, err)
	}
}
