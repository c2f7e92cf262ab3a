// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/lumpkit

package dataformat

import (
	"bytes"
	"encoding/binary"
)

// Container layout constants shared with archive backends.
const (
	wadHeaderSize   = 12
	wadDirEntrySize = 16
	pakHeaderSize   = 12
	pakDirEntrySize = 64
	grpHeaderSize   = 16
	grpDirEntrySize = 16
	podHeaderSize   = 84
	podDirEntrySize = 40
	pboHeaderSize   = 21
	zipEOCDSize     = 22
	zipMaxComment   = 0xffff
)

// pboMimeVers is the little-endian "Vers" marker of the first PBO record.
const pboMimeVers = 0x56657273

var (
	magicIWAD = []byte("IWAD")
	magicPWAD = []byte("PWAD")
	magicPACK = []byte("PACK")
	magicGRP  = []byte("KenSilverman")
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	magicZip  = []byte{'P', 'K', 0x03, 0x04}
	magicEOCD = []byte{'P', 'K', 0x05, 0x06}
)

// builtinFormats returns built-in matchers in registration order.
func builtinFormats() []*Format {
	return []*Format{
		{ID: IDArchiveWAD, Name: "Doom WAD", Check: matchWAD},
		{ID: IDArchiveZip, Name: "Zip", Check: matchZip},
		{ID: IDArchivePak, Name: "Quake PAK", Check: matchPak},
		{ID: IDArchiveGRP, Name: "Build GRP", Check: matchGRP},
		{ID: IDArchivePod, Name: "Terminal Velocity POD", Check: matchPod},
		{ID: IDArchivePBO, Name: "Bohemia PBO", Check: matchPBO},
		{ID: IDImagePNG, Name: "PNG", Check: matchPNG},
		{ID: IDImageJPEG, Name: "JPEG", Check: matchJPEG},
		{ID: IDImageGIF, Name: "GIF", Check: matchGIF},
		{ID: IDImageBMP, Name: "BMP", Check: matchBMP},
		{ID: IDImageDoom, Name: "Doom Gfx", Check: matchDoomGfx},
		{ID: IDSoundWAV, Name: "Wave", Check: matchWAV},
		{ID: IDSoundOgg, Name: "Ogg", Check: matchOgg},
		{ID: IDSoundFLAC, Name: "FLAC", Check: matchFLAC},
		{ID: IDSoundMP3, Name: "MP3", Check: matchMP3},
		{ID: IDSoundDoom, Name: "Doom Sound", Check: matchDoomSound},
		{ID: IDMidiMIDI, Name: "MIDI", Check: matchMIDI},
		{ID: IDMidiMUS, Name: "Doom MUS", Check: matchMUS},
		{ID: IDPaletteDoom, Name: "Doom Palette", Check: matchPalette},
	}
}

// le16 reads a little-endian uint16 at off; ok is false when out of range.
func le16(data []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(data) {
		return 0, false
	}

	return binary.LittleEndian.Uint16(data[off:]), true
}

// le32 reads a little-endian uint32 at off; ok is false when out of range.
func le32(data []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(data) {
		return 0, false
	}

	return binary.LittleEndian.Uint32(data[off:]), true
}

// be32 reads a big-endian uint32 at off; ok is false when out of range.
func be32(data []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(data) {
		return 0, false
	}

	return binary.BigEndian.Uint32(data[off:]), true
}

// regionFits reports whether [off, off+size) lies within total.
func regionFits(off, size uint64, total int) bool {
	end := off + size
	return end >= off && end <= uint64(total)
}

func matchWAD(data []byte) Verdict {
	if len(data) < wadHeaderSize {
		return No
	}
	if !bytes.Equal(data[:4], magicIWAD) && !bytes.Equal(data[:4], magicPWAD) {
		return No
	}

	count, _ := le32(data, 4)
	dirOffset, _ := le32(data, 8)
	if !regionFits(uint64(dirOffset), uint64(count)*wadDirEntrySize, len(data)) {
		return No
	}

	for i := uint64(0); i < uint64(count); i++ {
		rec := int(uint64(dirOffset) + i*wadDirEntrySize)
		offset, _ := le32(data, rec)
		size, _ := le32(data, rec+4)
		if size > 0 && !regionFits(uint64(offset), uint64(size), len(data)) {
			return No
		}
	}

	return Yes
}

func matchZip(data []byte) Verdict {
	if len(data) < zipEOCDSize {
		return No
	}
	if !bytes.HasPrefix(data, magicZip) && !bytes.HasPrefix(data, magicEOCD) {
		return No
	}

	start := max(len(data)-zipEOCDSize-zipMaxComment, 0)
	if bytes.LastIndex(data[start:], magicEOCD) < 0 {
		return No
	}

	return Yes
}

func matchPak(data []byte) Verdict {
	if len(data) < pakHeaderSize || !bytes.Equal(data[:4], magicPACK) {
		return No
	}

	dirOffset, _ := le32(data, 4)
	dirSize, _ := le32(data, 8)
	if dirSize%pakDirEntrySize != 0 || !regionFits(uint64(dirOffset), uint64(dirSize), len(data)) {
		return No
	}

	for rec := int(dirOffset); rec < int(dirOffset)+int(dirSize); rec += pakDirEntrySize {
		offset, _ := le32(data, rec+56)
		size, _ := le32(data, rec+60)
		if !regionFits(uint64(offset), uint64(size), len(data)) {
			return No
		}
	}

	return Yes
}

func matchGRP(data []byte) Verdict {
	if len(data) < grpHeaderSize || !bytes.Equal(data[:12], magicGRP) {
		return No
	}

	count, _ := le32(data, 12)
	tableEnd := uint64(grpHeaderSize) + uint64(count)*grpDirEntrySize
	if tableEnd > uint64(len(data)) {
		return No
	}

	total := tableEnd
	for i := uint64(0); i < uint64(count); i++ {
		size, _ := le32(data, int(grpHeaderSize+i*grpDirEntrySize+12))
		total += uint64(size)
	}
	if total > uint64(len(data)) {
		return No
	}

	return Yes
}

func matchPod(data []byte) Verdict {
	if len(data) < podHeaderSize {
		return No
	}

	count, _ := le32(data, 0)
	if count == 0 || !regionFits(podHeaderSize, uint64(count)*podDirEntrySize, len(data)) {
		return No
	}

	for i := uint64(0); i < uint64(count); i++ {
		rec := int(podHeaderSize + i*podDirEntrySize)
		name := data[rec : rec+32]
		if name[0] == 0 || !printableName(name) {
			return No
		}

		size, _ := le32(data, rec+32)
		offset, _ := le32(data, rec+36)
		if !regionFits(uint64(offset), uint64(size), len(data)) {
			return No
		}
	}

	return Yes
}

// printableName reports whether a NUL-padded fixed name holds only printable ASCII before padding.
func printableName(name []byte) bool {
	for _, c := range name {
		if c == 0 {
			return true
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}

	return true
}

func matchPBO(data []byte) Verdict {
	if len(data) < pboHeaderSize || data[0] != 0 {
		return No
	}

	mime, _ := le32(data, 1)
	if mime != pboMimeVers {
		return No
	}

	return Yes
}

func matchPNG(data []byte) Verdict {
	if len(data) < 33 || !bytes.HasPrefix(data, magicPNG) {
		return No
	}
	if string(data[12:16]) != "IHDR" {
		return No
	}

	width, _ := be32(data, 16)
	height, _ := be32(data, 20)
	if width == 0 || height == 0 {
		return No
	}

	return Yes
}

func matchJPEG(data []byte) Verdict {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 || data[2] != 0xff {
		return No
	}

	return Yes
}

func matchGIF(data []byte) Verdict {
	if len(data) < 13 {
		return No
	}
	if string(data[:6]) != "GIF87a" && string(data[:6]) != "GIF89a" {
		return No
	}

	return Yes
}

func matchBMP(data []byte) Verdict {
	if len(data) < 26 || data[0] != 'B' || data[1] != 'M' {
		return No
	}

	fileSize, _ := le32(data, 2)
	pixelOffset, _ := le32(data, 10)
	if fileSize != 0 && fileSize > uint32(len(data)) {
		return No
	}
	if pixelOffset >= uint32(len(data)) {
		return No
	}

	return Yes
}

// matchDoomGfx validates the column-based Doom patch layout.
func matchDoomGfx(data []byte) Verdict {
	if len(data) < 8 {
		return No
	}

	width, _ := le16(data, 0)
	height, _ := le16(data, 2)
	if width == 0 || height == 0 || width > 4096 || height > 4096 {
		return No
	}

	tableEnd := 8 + 4*int(width)
	if tableEnd > len(data) {
		return No
	}

	for col := range int(width) {
		offset, _ := le32(data, 8+col*4)
		if offset < uint32(tableEnd) || offset >= uint32(len(data)) {
			return No
		}
	}

	return Unconfirmed
}

func matchWAV(data []byte) Verdict {
	if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return No
	}

	return Yes
}

func matchOgg(data []byte) Verdict {
	if len(data) < 4 || string(data[:4]) != "OggS" {
		return No
	}

	return Yes
}

func matchFLAC(data []byte) Verdict {
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		return No
	}

	return Yes
}

func matchMP3(data []byte) Verdict {
	if len(data) < 4 {
		return No
	}
	if string(data[:3]) == "ID3" {
		return Yes
	}

	// Frame sync: 11 set bits, layer bits non-zero.
	if data[0] == 0xff && data[1]&0xe0 == 0xe0 && data[1]&0x06 != 0 {
		return Unconfirmed
	}

	return No
}

// matchDoomSound validates the DMX digital sound header.
func matchDoomSound(data []byte) Verdict {
	if len(data) < 8 {
		return No
	}

	format, _ := le16(data, 0)
	rate, _ := le16(data, 2)
	samples, _ := le32(data, 4)
	if format != 3 || rate == 0 || uint64(samples)+8 > uint64(len(data)) {
		return No
	}

	return Unconfirmed
}

func matchMIDI(data []byte) Verdict {
	if len(data) < 14 || string(data[:4]) != "MThd" {
		return No
	}

	return Yes
}

func matchMUS(data []byte) Verdict {
	if len(data) < 16 || string(data[:4]) != "MUS\x1a" {
		return No
	}

	scoreLen, _ := le16(data, 4)
	scoreStart, _ := le16(data, 6)
	if !regionFits(uint64(scoreStart), uint64(scoreLen), len(data)) {
		return No
	}

	return Yes
}

// matchPalette accepts whole multiples of 256 RGB triplets.
func matchPalette(data []byte) Verdict {
	if len(data) == 0 || len(data)%768 != 0 {
		return No
	}

	return Unconfirmed
}
