package pinner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testPageSize = 4096

func TestPageRange(t *testing.T) {
	tests := []struct {
		name      string
		addr      uint64
		size      uint64
		wantFirst uint64
		wantCount uint64
	}{
		{
			name:      "single byte",
			addr:      0x1000,
			size:      1,
			wantFirst: 1,
			wantCount: 1,
		},
		{
			name:      "aligned two pages",
			addr:      0x1000,
			size:      0x2000,
			wantFirst: 1,
			wantCount: 2,
		},
		{
			name:      "sub-page range",
			addr:      0x1234,
			size:      0x10,
			wantFirst: 1,
			wantCount: 1,
		},
		{
			name:      "unaligned range crossing page boundary",
			addr:      0x1ffc,
			size:      0x8,
			wantFirst: 1,
			wantCount: 2,
		},
		{
			name:      "aligned size with unaligned start",
			addr:      0x1800,
			size:      0x1000,
			wantFirst: 1,
			wantCount: 2,
		},
		{
			name:      "large range",
			addr:      0x10000,
			size:      0x100000,
			wantFirst: 16,
			wantCount: 256,
		},
		{
			name:      "range ending exactly on page boundary",
			addr:      0x1000,
			size:      0x1000,
			wantFirst: 1,
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, count := PageRange(tt.addr, tt.size, testPageSize)

			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestPageFloor(t *testing.T) {
	assert.Equal(t, uint64(0x1000), PageFloor(0x1fff, testPageSize))
	assert.Equal(t, uint64(0x1000), PageFloor(0x1000, testPageSize))
	assert.Equal(t, uint64(0), PageFloor(0xfff, testPageSize))
}
