package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// RunnerConfig holds configuration for a command execution
type RunnerConfig struct {
	Title           string             // Command title (e.g., "Enviar Feedback")
	Command         string             // Full command (e.g., "atendimento-dp submit")
	Params          []Detail           // Parameters to display in header
	StepNames       []string           // One name per step, in order
	SuccessTitle    string             // Result title on success
	FailureTitle    string             // Result title on failure
	FailureMessage  func(error) string // Text shown for an error (default: err.Error())
	Troubleshooting func(error) []string
	Output          io.Writer // Output writer (default: os.Stdout)
	Width           int       // Render width (default: terminal width)
}

// Runner orchestrates the header, step list and result box of a
// multi-step command.
type Runner struct {
	config   RunnerConfig
	header   *Header
	progress *Progress
	output   io.Writer
	width    int
}

// NewRunner creates a new runner
func NewRunner(config RunnerConfig) *Runner {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.SuccessTitle == "" {
		config.SuccessTitle = config.Title + " complete"
	}
	if config.FailureTitle == "" {
		config.FailureTitle = config.Title + " failed"
	}

	width := config.Width
	if width <= 0 {
		width = GetTerminalWidth()
	}

	header := NewHeader(config.Title, config.Command, config.Params)
	header.SetWidth(width)

	var prog *Progress
	if len(config.StepNames) > 0 {
		prog = NewProgress(len(config.StepNames))
		prog.SetWidth(width)
		prog.SetStepNames(config.StepNames)
	}

	return &Runner{
		config:   config,
		header:   header,
		progress: prog,
		output:   config.Output,
		width:    width,
	}
}

// Operation is the work a Runner displays. It reports progress through onStep
// and returns details for the success box.
type Operation func(onStep StepCallback) ([]Detail, error)

// Run prints the header, executes operation while printing each step as it
// settles, then prints the result box. It returns the operation's error.
func (r *Runner) Run(operation Operation) error {
	start := time.Now()

	_, _ = fmt.Fprintln(r.output, r.header.Render())
	_, _ = fmt.Fprintln(r.output)

	details, err := operation(r.onStep)
	duration := time.Since(start)

	if r.progress != nil {
		if err != nil {
			r.progress.SkipRemaining()
			for _, step := range r.progress.Steps {
				if step.Status == StepSkipped {
					_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(step))
				}
			}
		}
		_, _ = fmt.Fprintln(r.output)
		_, _ = fmt.Fprintln(r.output, r.progress.renderBar())
	}

	_, _ = fmt.Fprintln(r.output)
	var result *Result
	if err != nil {
		message := err.Error()
		if r.config.FailureMessage != nil {
			message = r.config.FailureMessage(err)
		}
		var tips []string
		if r.config.Troubleshooting != nil {
			tips = r.config.Troubleshooting(err)
		}
		result = NewFailureResult(r.config.FailureTitle, message, tips)
	} else {
		result = NewSuccessResult(r.config.SuccessTitle, details)
		result.AddDetail("Duration", duration.Round(time.Millisecond).String())
	}
	result.SetWidth(r.width)
	_, _ = fmt.Fprintln(r.output, result.Render())

	return err
}

func (r *Runner) onStep(stepNumber int, status StepStatus, message string) {
	if r.progress == nil || stepNumber < 1 || stepNumber > len(r.progress.Steps) {
		return
	}

	r.progress.UpdateStep(stepNumber, status, message)
	step := r.progress.Steps[stepNumber-1]

	switch status {
	case StepComplete, StepFailed, StepSkipped:
		_, _ = fmt.Fprintln(r.output, r.progress.renderStepLine(step))
	case StepRunning:
		// Overwritten when the step settles
		_, _ = fmt.Fprint(r.output, r.progress.renderStepLine(step)+"\r")
	}
}
