// Package tui is the interactive terminal client.
//
// The application has three screens:
//   - Devices: the saved remotes with add, edit and delete
//   - Connecting: a spinner while the transport dials
//   - Control: the active device page laid out on its grid
//
// The control screen ticks the session controller from the bubbletea loop,
// so widgets and the page manager are only touched from one goroutine. Key
// presses become widget interactions (click, step, edit) and reach the
// device as SET commands on the next tick.
package tui
