package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressDeterminism(t *testing.T) {
	assert.Equal(t, StateAddress(), StateAddress())
	assert.Equal(t, UserAddress("alice"), UserAddress("alice"))
	assert.Equal(t, VideoAddress(7), VideoAddress(7))
	assert.Equal(t, CommentAddress(7, 2), CommentAddress(7, 2))
	assert.Len(t, string(StateAddress()), 64, "SHA-256 hex is 64 characters")
}

func TestAddressChangesWithInput(t *testing.T) {
	assert.NotEqual(t, UserAddress("alice"), UserAddress("bob"))
	assert.NotEqual(t, VideoAddress(0), VideoAddress(1))
	assert.NotEqual(t, CommentAddress(0, 1), CommentAddress(1, 0))
	assert.NotEqual(t, CommentAddress(0, 0), CommentAddress(0, 1))
}

func TestAddressDomainSeparation(t *testing.T) {
	seen := map[Address]string{}
	addrs := map[string]Address{
		"state":       StateAddress(),
		"user empty":  UserAddress(""),
		"video 0":     VideoAddress(0),
		"comment 0,0": CommentAddress(0, 0),
	}
	for name, addr := range addrs {
		if prev, ok := seen[addr]; ok {
			t.Fatalf("%s collides with %s", name, prev)
		}
		seen[addr] = name
	}
}

func TestAddressPartBoundaries(t *testing.T) {
	// Length prefixes keep ("ab") distinct from any split of the same bytes.
	assert.NotEqual(t,
		Address(hashWithDomain(DomainUser, []byte("ab"))),
		Address(hashWithDomain(DomainUser, []byte("a"), []byte("b"))),
	)
}

func TestAddressShort(t *testing.T) {
	addr := VideoAddress(0)
	assert.Len(t, addr.Short(), 12)
	assert.Equal(t, string(addr)[:12], addr.Short())
	assert.Equal(t, "abc", Address("abc").Short())
}

func TestRecordAddresses(t *testing.T) {
	v := Video{SequenceIndex: 4}
	assert.Equal(t, VideoAddress(4), v.Address())

	c := Comment{VideoIndex: 4, SequenceIndex: 9}
	assert.Equal(t, CommentAddress(4, 9), c.Address())
}
