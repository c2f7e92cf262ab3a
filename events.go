// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import "slices"

// EventKind identifies an archive change notification.
type EventKind uint8

// Archive notifications.
const (
	// EventEntryAdded fires after an entry is inserted.
	EventEntryAdded EventKind = iota + 1
	// EventEntryRemoving fires before an entry is detached.
	EventEntryRemoving
	// EventEntryRenamed fires after an entry name changes.
	EventEntryRenamed
	// EventEntryModified fires after entry data or position changes.
	EventEntryModified
	// EventDirAdded fires after a directory is created.
	EventDirAdded
	// EventDirRemoving fires before a directory is detached.
	EventDirRemoving
	// EventDirRenamed fires after a directory name changes.
	EventDirRenamed
	// EventModified fires when the archive modified flag changes.
	EventModified
	// EventSaved fires after a successful save.
	EventSaved
	// EventClosed fires when the archive is closed.
	EventClosed
)

var eventKindNames = [...]string{
	EventEntryAdded:    "entry_added",
	EventEntryRemoving: "entry_removing",
	EventEntryRenamed:  "entry_renamed",
	EventEntryModified: "entry_modified",
	EventDirAdded:      "dir_added",
	EventDirRemoving:   "dir_removing",
	EventDirRenamed:    "dir_renamed",
	EventModified:      "modified",
	EventSaved:         "saved",
	EventClosed:        "closed",
}

// String returns a stable label.
func (k EventKind) String() string {
	if int(k) < len(eventKindNames) && eventKindNames[k] != "" {
		return eventKindNames[k]
	}

	return "unknown"
}

// Event carries the subject of a notification. Entry and Dir stay valid
// references so listeners can re-query current state.
type Event struct {
	Archive  *Archive
	Entry    *Entry
	Dir      *Dir
	OldName  string
	Kind     EventKind
	OldIndex int
	NewIndex int
}

// Listener receives notifications synchronously in call order.
type Listener func(Event)

type listenerSlot struct {
	fn Listener
	id int
}

// Subscribe registers fn and returns a function removing it.
func (a *Archive) Subscribe(fn Listener) func() {
	a.nextListener++
	id := a.nextListener
	a.listeners = append(a.listeners, listenerSlot{id: id, fn: fn})

	return func() {
		a.listeners = slices.DeleteFunc(a.listeners, func(s listenerSlot) bool { return s.id == id })
	}
}

// emit delivers ev to every listener.
func (a *Archive) emit(ev Event) {
	ev.Archive = a
	for _, slot := range slices.Clone(a.listeners) {
		slot.fn(ev)
	}
}
