package utils

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

type testDbConfig struct {
	Host     string
	Password string `sensitive:"true"`
	Empty    string `sensitive:"true"`
}

type testConfig struct {
	Database testDbConfig
	Origins  []string
	hidden   string
}

func TestConfigLines(t *testing.T) {
	cfg := &testConfig{
		Database: testDbConfig{Host: "db", Password: "secret"},
		Origins:  []string{"a", "b"},
		hidden:   "x",
	}
	lines := configLines("", reflect.ValueOf(cfg))
	assert.Equal(t, []string{
		"database.host=db",
		"database.password=*****",
		"database.empty=",
		"origins=[a,b]",
	}, lines)
}
