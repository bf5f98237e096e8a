// Package state dispatches free-text updates to the handler bound to the
// sender's conversation position. Positions are owned by the caller's store,
// so a restart resumes every conversation where it stopped.
package state
