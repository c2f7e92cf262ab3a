// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

/*
Package lumpkit reads, edits, and writes game resource archives: Doom WAD,
zip/pk3, Quake PAK, Build GRP, Terminal Velocity POD, Bohemia PBO, and
plain directories. Every container is exposed as the same directory tree
of named entries; payloads load lazily from the source and unmodified
entries are copied straight through on save.

Format rules (summary):
  - WAD and GRP are flat; adding into a subdirectory flattens into root;
  - WAD names are 8 uppercase characters without extension and may repeat;
  - zip, PAK, POD, and PBO keep directories and make sibling names unique;
  - WAD namespaces come from X_START/X_END marker lumps, others from the
    topmost directory below root.

# Opening

Open a file with format detection, or an in-memory container:

	a, err := lumpkit.OpenFile("doom2.wad", nil)
	if err != nil {
	    return err
	}
	defer a.Close()

	for _, e := range a.Entries() {
	    fmt.Println(e.Path(), e.Size(), e.Type().ID)
	}

Directories open as folder archives:

	a, err := lumpkit.OpenFile("mymod/", nil)

Entries that hold containers can be opened in place. The parent entry is
locked until the nested archive is closed, and Save writes back into it:

	inner, err := lumpkit.OpenEntry(a.EntryAtPath("maps/map01.wad"), nil)
	if err != nil {
	    return err
	}
	defer inner.Close()

# Editing

	a, err := lumpkit.New(lumpkit.FormatZip, nil)
	if err != nil {
	    return err
	}
	if _, err := a.AddEntryAtPath("zscript.txt", script); err != nil {
	    return err
	}
	if err := a.SaveAs("mod.pk3"); err != nil {
	    return err
	}

Group edits into undoable levels with an undo manager:

	mgr := undo.NewManager(nil)
	a, _ := lumpkit.New(lumpkit.FormatWAD, &lumpkit.Options{Undo: mgr})
	mgr.BeginRecord("add sprites")
	err := a.AddEntryToNamespace(lumpkit.NewEntry("TROOA1", sprite), lumpkit.NamespaceSprites)
	mgr.EndRecord(err == nil)

# PBO

PBO archives keep their header pairs and may LZSS-compress payloads
selected by github.com/woozymasta/pathrules rules:

	opts := &lumpkit.Options{PBO: lumpkit.PBOOptions{
	    Headers: []lumpkit.HeaderPair{{Key: "prefix", Value: "myaddon"}},
	    Compress: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "*.rvmat"},
	    },
	}}

# Extracting

Export entries to a directory with parallel writers. Output names are
sanitized by default:

	if err := a.ExportEntries(ctx, "out/", lumpkit.ExportOptions{MaxWorkers: 4}); err != nil {
	    return err
	}
*/
package lumpkit
