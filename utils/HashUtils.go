package utils

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

func GetEncodedXXHash128(data ...[]byte) string {
	h := xxh3.New()
	for _, bytes := range data {
		h.Write(bytes)
	}
	sum := h.Sum128()
	bytes := sum.Bytes()
	return hex.EncodeToString(bytes[:])
}
