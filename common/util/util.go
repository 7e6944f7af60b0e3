package util

import (
	"encoding/binary"
	"math/rand"

	"github.com/google/uuid"
)

// GetRandomNumber returns a random six digit number.
func GetRandomNumber() int {
	min := 111111
	max := 999999
	return rand.Intn(max-min) + min
}

// maxSafeID is the largest integer a JSON number keeps exactly in
// JavaScript clients.
const maxSafeID = 1<<53 - 1

// ClientID returns a random replica id that fits in 53 bits. Ids are never
// zero.
func ClientID() uint64 {
	for {
		id := uuid.New()
		if n := binary.BigEndian.Uint64(id[8:]) & maxSafeID; n != 0 {
			return n
		}
	}
}
