package invite

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewEventID mints a public event identifier. The random suffix keeps IDs
// minted within the same millisecond pairwise distinct, so every finalization
// attempt gets a fresh one.
func NewEventID() string {
	return fmt.Sprintf("event_%d_%s", time.Now().UnixMilli(), randomBase36(8))
}

// NewPhotoID mints a photo identifier from the upload instant, the owning
// user and the provider's file handle.
func NewPhotoID(userID int64, fileHandle string) string {
	handle := strings.TrimSpace(fileHandle)
	if len(handle) > 24 {
		handle = handle[len(handle)-24:]
	}
	return fmt.Sprintf("photo_%d_%d_%s", time.Now().UnixMilli(), userID, handle)
}

func randomBase36(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for ID minting
		panic(fmt.Sprintf("invite: random source unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = base36Alphabet[int(b)%len(base36Alphabet)]
	}
	return string(buf)
}
