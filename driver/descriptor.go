// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "encoding/binary"

// BufferViewRecordSize is the size in bytes of one encoded buffer-view
// descriptor. All in-tree drivers share this record layout so a descriptor
// table built against one driver decodes identically on another.
//
// Layout (little-endian):
//
//	offset 0  uint64  device virtual address
//	offset 8  uint64  byte range
//	offset 16 uint64  element stride (0 = densely packed)
//	offset 24 uint32  element format
//	offset 28 uint32  reserved (zero)
const BufferViewRecordSize = 32

// EncodeBufferView writes the descriptor record for view into dst.
// dst must hold at least BufferViewRecordSize bytes.
func EncodeBufferView(dst []byte, view BufferViewInfo) Result {
	if len(dst) < BufferViewRecordSize {
		return ErrorInvalidValue
	}
	binary.LittleEndian.PutUint64(dst[0:8], view.GpuAddr)
	binary.LittleEndian.PutUint64(dst[8:16], view.Range)
	binary.LittleEndian.PutUint64(dst[16:24], view.Stride)
	binary.LittleEndian.PutUint32(dst[24:28], uint32(view.Format))
	binary.LittleEndian.PutUint32(dst[28:32], 0)
	return Success
}

// DecodeBufferView reads one descriptor record from src.
func DecodeBufferView(src []byte) (BufferViewInfo, Result) {
	if len(src) < BufferViewRecordSize {
		return BufferViewInfo{}, ErrorInvalidValue
	}
	return BufferViewInfo{
		GpuAddr: binary.LittleEndian.Uint64(src[0:8]),
		Range:   binary.LittleEndian.Uint64(src[8:16]),
		Stride:  binary.LittleEndian.Uint64(src[16:24]),
		Format:  BufferViewFormat(binary.LittleEndian.Uint32(src[24:28])),
	}, Success
}
