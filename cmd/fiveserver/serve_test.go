package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/juce/fiveserver/internal/config"
	"github.com/juce/fiveserver/internal/session"
)

func TestServiceListConvertsValidEntries(t *testing.T) {
	entries := [3]config.ServerListEntry{
		{IP: "10.0.0.1", Port: 7001},
		{IP: "10.0.0.2", Port: 7002},
		{IP: "10.0.0.3", Port: 7003},
	}

	ips, ports := serviceList(entries)

	assert.Equal(t, [4]byte{10, 0, 0, 1}, ips[0])
	assert.Equal(t, [4]byte{10, 0, 0, 2}, ips[1])
	assert.Equal(t, [4]byte{10, 0, 0, 3}, ips[2])
	assert.Equal(t, [3]uint16{7001, 7002, 7003}, ports)
}

func TestServiceListLeavesUnparseableIPZeroed(t *testing.T) {
	entries := [3]config.ServerListEntry{
		{IP: "not-an-ip", Port: 1},
		{},
		{IP: "", Port: 0},
	}

	ips, ports := serviceList(entries)

	assert.Equal(t, [4]byte{}, ips[0])
	assert.Equal(t, uint16(1), ports[0])
	assert.Equal(t, [4]byte{}, ips[1])
	assert.Equal(t, [4]byte{}, ips[2])
}

func TestDialectOf(t *testing.T) {
	assert.Equal(t, session.DialectA, dialectOf("a"))
	assert.Equal(t, session.DialectB, dialectOf("b"))
	assert.Equal(t, session.DialectB, dialectOf(""))
	assert.Equal(t, session.DialectB, dialectOf("unknown"))
}
