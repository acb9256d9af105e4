package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUniqueOrdered(t *testing.T) {
	assert.Equal(t, []string{"3", "1", "2"}, UniqueOrdered([]string{"3", "1", "3", "2", "1"}))
	assert.Empty(t, UniqueOrdered(nil))
}

func TestSliceContains(t *testing.T) {
	assert.True(t, SliceContains([]string{"id_order", "reference"}, "reference"))
	assert.False(t, SliceContains([]string{"id_order"}, "id_customer"))
}

func TestGetRemainingSeconds(t *testing.T) {
	assert.Equal(t, 0, GetRemainingSeconds(time.Now().Add(-time.Hour)))
	assert.InDelta(t, 3600, GetRemainingSeconds(time.Now().Add(time.Hour)), 2)
}

func TestGetEncodedXXHash128(t *testing.T) {
	a := GetEncodedXXHash128([]byte("customer"), []byte("address"))
	assert.Len(t, a, 32)
	assert.Equal(t, a, GetEncodedXXHash128([]byte("customeraddress")))
	assert.NotEqual(t, a, GetEncodedXXHash128([]byte("orders")))
}
