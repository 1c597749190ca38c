// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package driver

import "testing"

func TestEncodeBufferView_RoundTrip(t *testing.T) {
	view := BufferViewInfo{
		GpuAddr: 0x10000100,
		Range:   64,
		Stride:  0,
		Format:  FormatUntyped,
	}

	buf := make([]byte, BufferViewRecordSize)
	if res := EncodeBufferView(buf, view); res.IsError() {
		t.Fatalf("EncodeBufferView() = %v", res)
	}

	got, res := DecodeBufferView(buf)
	if res.IsError() {
		t.Fatalf("DecodeBufferView() = %v", res)
	}
	if got != view {
		t.Errorf("decoded view = %+v, want %+v", got, view)
	}
}

func TestEncodeBufferView_ShortBuffer(t *testing.T) {
	buf := make([]byte, BufferViewRecordSize-1)
	if res := EncodeBufferView(buf, BufferViewInfo{}); res != ErrorInvalidValue {
		t.Errorf("EncodeBufferView(short) = %v, want ErrorInvalidValue", res)
	}
	if _, res := DecodeBufferView(buf); res != ErrorInvalidValue {
		t.Errorf("DecodeBufferView(short) = %v, want ErrorInvalidValue", res)
	}
}

func TestQueueSupportFlags_Supports(t *testing.T) {
	tests := []struct {
		name  string
		flags QueueSupportFlags
		qt    QueueType
		want  bool
	}{
		{"compute supported", SupportQueueTypeCompute, QueueTypeCompute, true},
		{"compute unsupported", SupportQueueTypeDma, QueueTypeCompute, false},
		{"universal supported", SupportQueueTypeUniversal | SupportQueueTypeCompute, QueueTypeUniversal, true},
		{"dma unsupported", SupportQueueTypeUniversal, QueueTypeDma, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.flags.Supports(tt.qt); got != tt.want {
				t.Errorf("Supports(%v) = %v, want %v", tt.qt, got, tt.want)
			}
		})
	}
}
