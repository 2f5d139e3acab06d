// Package tui implements the interactive terminal screens of atendimento-dp
// using Bubble Tea.
//
// FormModel is the full-screen feedback form. It owns one form.Manager and
// mirrors the record into six inputs:
//
//	tab / shift+tab   move between fields and the send button
//	ctrl+s            send (enter also sends when the button has focus)
//	esc / ctrl+c      quit
//
// Submissions run in the background through form.Manager.Start; the screen
// shows a spinner with "Enviando..." until a submitDoneMsg arrives. Quitting
// mid-submission waits for it to finish, since submissions cannot be
// cancelled.
//
// PickerModel scans the network for advertised form servers and lets the
// user pick one.
//
// Every screen is wrapped by RenderApplicationContainer, which draws the
// header, footer help and outer border.
package tui
