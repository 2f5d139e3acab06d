// Package ui provides terminal output components for the atendimento-dp CLI.
//
// Components follow a "run once and exit" pattern. They render styled output
// with Lipgloss but never wait for input, except Confirm.
//
//   - Header: command banner showing the operation and its parameters
//   - Progress: progress bar with a step list
//   - Result: success, failure or warning box
//
// Runner ties them together for multi-step commands:
//
//	runner := ui.NewRunner(ui.RunnerConfig{
//	    Title:     "Enviar Feedback",
//	    Command:   "atendimento-dp submit",
//	    StepNames: []string{"Validating fields", "Acquiring access token", "Creating list item"},
//	})
//
//	err := runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
//	    onStep(1, ui.StepRunning, "")
//	    // ... do work ...
//	    onStep(1, ui.StepComplete, "")
//	    return nil, nil
//	})
//
// Logging is silent unless ATENDIMENTO_LOG_LEVEL is set, so zap output does
// not interleave with these components.
package ui
