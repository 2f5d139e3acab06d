// Package form holds the state of one feedback form: the record being
// edited and its submission lifecycle.
//
//	idle --Start--> submitting --ok--> submitted
//	                submitting --fail--> error
//
// A Manager allows a single submission in flight. While busy, Start returns
// ErrBusy and the sender is not called. The busy flag is cleared on every
// exit path, including a panicking sender.
//
// Failures of any kind are shown with GenericErrorMessage. The error kind
// (validation, auth, submission) is kept in Snapshot.ErrorKind and the
// detail goes to the log.
package form
