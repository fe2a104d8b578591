package app

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	roomCodeLength   = 6
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode produces a 6-character uppercase alphanumeric join
// code. The caller checks it against live rooms and regenerates on
// collision; codes of gone rooms may be reused.
func GenerateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	for i := 0; i < roomCodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = roomCodeAlphabet[num.Int64()]
	}
	return string(code), nil
}

// NormalizeRoomCode case-normalizes user input before lookup.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
