// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/gogpu/progcache"
)

// Program binary container layout (little-endian):
//
//	offset  size  field
//	0       4     magic "PCBN"
//	4       2     version
//	6       2     stage count
//	8       4     format tag
//	12      ...   per stage: stage (1), word count (4), SPIR-V words (4 each)
//	end-4   4     CRC-32 (IEEE) of all preceding bytes
const (
	binaryVersion    = 1
	binaryHeaderSize = 12
	binaryStageSize  = 5
	binaryCRCSize    = 4
)

var binaryMagic = [4]byte{'P', 'C', 'B', 'N'}

// stageCode is the SPIR-V of one linked stage.
type stageCode struct {
	stage progcache.Stage
	spirv []uint32
}

// encodeProgram serializes the stages of a linked program.
func encodeProgram(format progcache.BinaryFormat, stages []stageCode) []byte {
	size := binaryHeaderSize + binaryCRCSize
	for _, s := range stages {
		size += binaryStageSize + len(s.spirv)*4
	}
	buf := make([]byte, 0, size)
	buf = append(buf, binaryMagic[:]...)
	buf = binary.LittleEndian.AppendUint16(buf, binaryVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(stages)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(format))
	for _, s := range stages {
		buf = append(buf, byte(s.stage))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.spirv)))
		for _, w := range s.spirv {
			buf = binary.LittleEndian.AppendUint32(buf, w)
		}
	}
	return binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf))
}

// decodeProgram parses a program binary and verifies its checksum.
func decodeProgram(blob []byte) (progcache.BinaryFormat, []stageCode, error) {
	if len(blob) < binaryHeaderSize+binaryCRCSize {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrBinaryTruncated, len(blob))
	}
	if [4]byte(blob[:4]) != binaryMagic {
		return 0, nil, ErrBinaryMagic
	}
	body := blob[:len(blob)-binaryCRCSize]
	if got, want := crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(blob[len(body):]); got != want {
		return 0, nil, fmt.Errorf("%w: %#08x != %#08x", ErrBinaryChecksum, got, want)
	}
	if v := binary.LittleEndian.Uint16(blob[4:]); v != binaryVersion {
		return 0, nil, fmt.Errorf("%w: %d", ErrBinaryVersion, v)
	}
	count := int(binary.LittleEndian.Uint16(blob[6:]))
	format := progcache.BinaryFormat(binary.LittleEndian.Uint32(blob[8:]))

	stages := make([]stageCode, 0, count)
	off := binaryHeaderSize
	for i := 0; i < count; i++ {
		if off+binaryStageSize > len(body) {
			return 0, nil, fmt.Errorf("%w: stage %d header", ErrBinaryTruncated, i)
		}
		stage := progcache.Stage(body[off])
		words := int(binary.LittleEndian.Uint32(body[off+1:]))
		off += binaryStageSize
		if words > (len(body)-off)/4 {
			return 0, nil, fmt.Errorf("%w: stage %d code", ErrBinaryTruncated, i)
		}
		stages = append(stages, stageCode{stage: stage, spirv: bytesToWords(body[off : off+words*4])})
		off += words * 4
	}
	if off != len(body) {
		return 0, nil, fmt.Errorf("%w: %d trailing bytes", ErrBinaryTruncated, len(body)-off)
	}
	return format, stages, nil
}
