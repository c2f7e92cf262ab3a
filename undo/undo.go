// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

/*
Package undo records reversible steps into named levels.

A level groups every step recorded between BeginRecord and EndRecord. Undo
replays a level's steps in reverse order; Redo replays them forward. A step
that can no longer apply reports false and the rest of its level still runs.

	m := undo.NewManager(nil)
	m.BeginRecord("Rename")
	m.RecordStep(step)
	m.EndRecord(true)
	m.Undo()
*/
package undo

import (
	"log/slog"
	"time"
)

// Step is one reversible change.
type Step interface {
	// Undo reverts the change; false means the target no longer resolves.
	Undo() bool
	// Redo reapplies the change; false means the target no longer resolves.
	Redo() bool
}

// Level is a named group of steps undone together.
type Level struct {
	created time.Time
	name    string
	steps   []Step
}

// Name returns the level label.
func (l *Level) Name() string {
	return l.name
}

// Created returns when recording started.
func (l *Level) Created() time.Time {
	return l.created
}

// Len returns recorded step count.
func (l *Level) Len() int {
	return len(l.steps)
}

func (l *Level) undo() bool {
	ok := true
	for i := len(l.steps) - 1; i >= 0; i-- {
		if !l.steps[i].Undo() {
			ok = false
		}
	}

	return ok
}

func (l *Level) redo() bool {
	ok := true
	for _, step := range l.steps {
		if !step.Redo() {
			ok = false
		}
	}

	return ok
}

// Options configures a Manager.
type Options struct {
	// Logger receives step failure warnings. Nil discards.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// MaxLevels bounds undo history; zero keeps default.
	MaxLevels int `json:"max_levels,omitempty" yaml:"max_levels,omitempty"`
}

const defaultMaxLevels = 200

func (opts *Options) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxLevels <= 0 {
		opts.MaxLevels = defaultMaxLevels
	}
}

// Manager owns undo and redo history.
type Manager struct {
	logger    *slog.Logger
	current   *Level
	undo      []*Level
	redo      []*Level
	maxLevels int
	replaying bool
}

// NewManager returns an empty manager.
func NewManager(opts *Options) *Manager {
	var o Options
	if opts != nil {
		o = *opts
	}
	o.applyDefaults()

	return &Manager{logger: o.Logger, maxLevels: o.MaxLevels}
}

// BeginRecord starts a new level. An open level is discarded.
func (m *Manager) BeginRecord(name string) {
	if m.current != nil {
		m.logger.Warn("undo level discarded", slog.String("level", m.current.name))
	}

	m.current = &Level{name: name, created: time.Now()}
}

// IsRecording reports whether steps are accepted. Steps are never recorded
// while a level is being undone or redone.
func (m *Manager) IsRecording() bool {
	return m != nil && m.current != nil && !m.replaying
}

// RecordStep appends s to the open level.
func (m *Manager) RecordStep(s Step) bool {
	if !m.IsRecording() || s == nil {
		return false
	}

	m.current.steps = append(m.current.steps, s)
	return true
}

// EndRecord closes the open level. Failed or empty levels are dropped;
// a kept level clears redo history.
func (m *Manager) EndRecord(success bool) bool {
	level := m.current
	m.current = nil
	if level == nil || !success || len(level.steps) == 0 {
		return false
	}

	m.undo = append(m.undo, level)
	if over := len(m.undo) - m.maxLevels; over > 0 {
		m.undo = m.undo[over:]
	}
	m.redo = nil

	return true
}

// CanUndo reports available undo history.
func (m *Manager) CanUndo() bool {
	return len(m.undo) > 0
}

// CanRedo reports available redo history.
func (m *Manager) CanRedo() bool {
	return len(m.redo) > 0
}

// Undo reverts the latest level and returns its name. ok is false when
// history is empty or any step could not apply.
func (m *Manager) Undo() (string, bool) {
	if !m.CanUndo() || m.current != nil {
		return "", false
	}

	level := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	m.replaying = true
	ok := level.undo()
	m.replaying = false
	if !ok {
		m.logger.Warn("undo level partially applied", slog.String("level", level.name))
	}

	m.redo = append(m.redo, level)
	return level.name, ok
}

// Redo reapplies the latest undone level.
func (m *Manager) Redo() (string, bool) {
	if !m.CanRedo() || m.current != nil {
		return "", false
	}

	level := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	m.replaying = true
	ok := level.redo()
	m.replaying = false
	if !ok {
		m.logger.Warn("redo level partially applied", slog.String("level", level.name))
	}

	m.undo = append(m.undo, level)
	return level.name, ok
}

// Levels returns undo history names, oldest first.
func (m *Manager) Levels() []string {
	names := make([]string, len(m.undo))
	for i, level := range m.undo {
		names[i] = level.name
	}

	return names
}

// Clear drops all history and any open level.
func (m *Manager) Clear() {
	m.current = nil
	m.undo = nil
	m.redo = nil
}
