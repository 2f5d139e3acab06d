package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestHeader_ParamsKeepOrder(t *testing.T) {
	h := NewHeader("Enviar Feedback", "atendimento-dp submit", []Detail{
		{"Lista", "Atendimento - DP"},
		{"Site", "https://contoso.sharepoint.com/sites/dp"},
		{"Autor", "Ana"},
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "ENVIAR FEEDBACK") {
		t.Errorf("header missing uppercased title:\n%s", out)
	}

	lista := strings.Index(out, "Lista:")
	site := strings.Index(out, "Site:")
	autor := strings.Index(out, "Autor:")
	if lista < 0 || site < lista || autor < site {
		t.Errorf("params out of order: Lista=%d Site=%d Autor=%d", lista, site, autor)
	}
	if strings.Contains(out, "â") {
		t.Error("header contains mis-encoded divider")
	}
}

func TestResult_Failure(t *testing.T) {
	r := NewFailureResult("Envio falhou", "Erro ao enviar feedback. Tente novamente mais tarde.",
		[]string{"Check the network"}).SetWidth(80)

	out := r.Render()
	for _, want := range []string{"FAILED", "Envio falhou", "Tente novamente mais tarde", "Check the network"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure box missing %q:\n%s", want, out)
		}
	}
}

func TestResult_DetailsKeepOrder(t *testing.T) {
	r := NewSuccessResult("ok", nil).SetWidth(80)
	r.AddDetail("Primeiro", "1").AddDetail("Segundo", "2")

	out := r.Render()
	if strings.Index(out, "Primeiro") > strings.Index(out, "Segundo") {
		t.Errorf("details out of order:\n%s", out)
	}
}

func TestProgress_UpdateStep(t *testing.T) {
	p := NewProgress(3)
	p.UpdateStep(1, StepRunning, "")
	if p.Current != 1 {
		t.Errorf("Current = %d, want 1", p.Current)
	}

	p.UpdateStep(1, StepComplete, "")
	p.UpdateStep(2, StepFailed, "HTTP 401")
	p.SkipRemaining()
	if p.Current != 2 {
		t.Errorf("Current = %d, want 2", p.Current)
	}

	if p.Steps[2].Status != StepSkipped {
		t.Errorf("step 3 status = %v, want skipped", p.Steps[2].Status)
	}
	if p.Percent < 0.33 || p.Percent > 0.34 {
		t.Errorf("Percent = %v, want 1/3 complete", p.Percent)
	}

	// Out of range updates are ignored
	p.UpdateStep(0, StepComplete, "")
	p.UpdateStep(4, StepComplete, "")
}

func TestRunner_Success(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(RunnerConfig{
		Title:        "Enviar Feedback",
		Command:      "atendimento-dp submit",
		StepNames:    []string{"one", "two"},
		SuccessTitle: "Obrigado pelo seu feedback!",
		Output:       &buf,
		Width:        80,
	})

	err := runner.Run(func(onStep StepCallback) ([]Detail, error) {
		onStep(1, StepRunning, "")
		onStep(1, StepComplete, "")
		onStep(2, StepRunning, "")
		onStep(2, StepComplete, "")
		return []Detail{{"Nome", "Ana"}}, nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ENVIAR FEEDBACK", "[1/2] ", "[2/2] ", "100%  [2/2]", "Obrigado pelo seu feedback!", "Nome:", "Duration:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunner_FailureUsesFailureMessage(t *testing.T) {
	var buf bytes.Buffer
	runner := NewRunner(RunnerConfig{
		Title:          "Enviar Feedback",
		StepNames:      []string{"one", "two", "three"},
		FailureMessage: func(error) string { return "mensagem amigável" },
		Output:         &buf,
		Width:          80,
	})

	cause := errors.New("secret detail")
	err := runner.Run(func(onStep StepCallback) ([]Detail, error) {
		onStep(1, StepFailed, "")
		return nil, cause
	})
	if !errors.Is(err, cause) {
		t.Errorf("Run() error = %v, want %v", err, cause)
	}

	out := buf.String()
	if !strings.Contains(out, "mensagem amigável") {
		t.Errorf("output missing failure message:\n%s", out)
	}
	if strings.Contains(out, "secret detail") {
		t.Errorf("output leaks error detail:\n%s", out)
	}
	if strings.Count(out, StepMarkerSkipped) != 2 {
		t.Errorf("want 2 skipped steps in output:\n%s", out)
	}
	if !strings.Contains(out, "  0%  [1/3]") {
		t.Errorf("output missing progress bar at 0%% of 3 steps:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"yes\n", true},
		{"  yes  \n", true},
		{"no\n", false},
		{"", false},
		{"yes", true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := ConfirmOverwrite(strings.NewReader(tt.input), &out, "/tmp/config.yaml")
		if got != tt.want {
			t.Errorf("ConfirmOverwrite(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf).SetWidth(70)

	p.PrintHeader("Config", "atendimento-dp config show", nil)
	p.PrintWarning("Missing secret", []Detail{{"Key", "client_secret"}})
	p.PrintError("Invalid configuration", "yaml: line 3", []string{"Run 'atendimento-dp config init'"})

	out := buf.String()
	if !strings.Contains(out, "CONFIG") || !strings.Contains(out, "WARNING") || !strings.Contains(out, "config init") {
		t.Errorf("unexpected printer output:\n%s", out)
	}
	if p.Width() != 70 {
		t.Errorf("Width() = %d, want 70", p.Width())
	}
}
