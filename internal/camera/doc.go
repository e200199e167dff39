// Package camera mirrors the property state of up to eight networked cameras.
//
// A Session owns the slot registry, the per-camera property caches and the set
// of fields currently being edited. Every read and write goes through the
// Transport; every observable change is pushed to the Projector. The mutex in
// Session is never held across a transport call, so a refresh timer firing in
// the middle of an operation always sees consistent state.
package camera
