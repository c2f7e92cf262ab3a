// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package lumpkit

import (
	"strings"
)

// Well-known namespaces.
const (
	NamespaceSprites   = "sprites"
	NamespacePatches   = "patches"
	NamespaceFlats     = "flats"
	NamespaceTextures  = "textures"
	NamespaceHires     = "hires"
	NamespaceColormaps = "colormaps"
	NamespaceACS       = "acs"
	NamespaceVoxels    = "voxels"
)

// markerNamespaces maps WAD marker prefixes to namespace names.
var markerNamespaces = map[string]string{
	"S":  NamespaceSprites,
	"SS": NamespaceSprites,
	"P":  NamespacePatches,
	"PP": NamespacePatches,
	"F":  NamespaceFlats,
	"FF": NamespaceFlats,
	"TX": NamespaceTextures,
	"HI": NamespaceHires,
	"C":  NamespaceColormaps,
	"A":  NamespaceACS,
	"V":  NamespaceVoxels,
}

// namespaceMarkerPrefix is the prefix used when new WAD markers are created.
var namespaceMarkerPrefix = map[string]string{
	NamespaceSprites:   "S",
	NamespacePatches:   "P",
	NamespaceFlats:     "F",
	NamespaceTextures:  "TX",
	NamespaceHires:     "HI",
	NamespaceColormaps: "C",
	NamespaceACS:       "A",
	NamespaceVoxels:    "V",
}

// markerPrefix splits a marker name into prefix and kind ("START" or "END").
func markerPrefix(name string) (string, string, bool) {
	name = strings.ToUpper(name)
	for _, kind := range []string{"_START", "_END"} {
		if prefix, ok := strings.CutSuffix(name, kind); ok && prefix != "" {
			return prefix, kind[1:], true
		}
	}

	return "", "", false
}

// namespaceFromPrefix maps a marker prefix to its namespace.
func namespaceFromPrefix(prefix string) string {
	if ns, ok := markerNamespaces[prefix]; ok {
		return ns
	}

	return strings.ToLower(prefix)
}

// DetectNamespace returns the namespace of e. Root entries are global;
// deeper entries take the lowercased name of their topmost directory
// below root. Marker-based formats use the enclosing X_START/X_END pair.
func (a *Archive) DetectNamespace(e *Entry) string {
	if e == nil || e.parent == nil {
		return NamespaceGlobal
	}

	if a.format.MarkerNamespaces && e.parent.IsRoot() {
		return markerNamespace(e)
	}

	d := e.parent
	if d.IsRoot() {
		return NamespaceGlobal
	}

	for !d.parent.IsRoot() {
		d = d.parent
	}

	return strings.ToLower(d.Name())
}

// markerNamespace walks back from e to the nearest unmatched start marker.
func markerNamespace(e *Entry) string {
	if _, _, ok := markerPrefix(e.name); ok && e.Size() == 0 {
		return NamespaceGlobal
	}

	entries := e.parent.entries
	depth := 0
	for i := e.parent.EntryIndex(e) - 1; i >= 0; i-- {
		prefix, kind, ok := markerPrefix(entries[i].name)
		if !ok || entries[i].Size() != 0 {
			continue
		}

		if kind == "END" {
			depth++
			continue
		}

		if depth > 0 {
			depth--
			continue
		}

		return namespaceFromPrefix(prefix)
	}

	return NamespaceGlobal
}

// AddEntryToNamespace adds a detached entry into namespace ns. Tree formats
// use directory ns; marker formats insert before the namespace end marker,
// creating the marker pair when missing.
func (a *Archive) AddEntryToNamespace(e *Entry, ns string) error {
	ns = strings.ToLower(strings.TrimSpace(ns))
	if ns == "" || ns == NamespaceGlobal {
		return a.AddEntry(e, nil, -1)
	}

	if a.format.SupportsDirs {
		dir, err := a.CreateDir(ns, nil)
		if err != nil {
			return err
		}

		return a.AddEntry(e, dir, -1)
	}

	if !a.format.MarkerNamespaces {
		return a.AddEntry(e, nil, -1)
	}

	for i, cur := range a.root.entries {
		prefix, kind, ok := markerPrefix(cur.name)
		if ok && kind == "END" && cur.Size() == 0 && namespaceFromPrefix(prefix) == ns {
			return a.AddEntry(e, nil, i)
		}
	}

	prefix, ok := namespaceMarkerPrefix[ns]
	if !ok {
		prefix = strings.ToUpper(ns)
	}

	if _, err := a.AddNewEntry(prefix+"_START", nil, -1); err != nil {
		return err
	}

	if err := a.AddEntry(e, nil, -1); err != nil {
		return err
	}

	_, err := a.AddNewEntry(prefix+"_END", nil, -1)
	return err
}
