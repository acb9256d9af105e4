package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_StripsPersonalData(t *testing.T) {
	repo := &fakeLogRepo{}
	svc := NewExportLogService(repo)

	svc.Log(context.Background(), "job", LogLevelWarning, "row skipped", map[string]interface{}{
		"entity":        "customer",
		"email":         "john@example.com",
		"customerPhone": "+33 6 12 34 56 78",
		"Lastname":      "Doe",
		"rows":          3,
	})
	svc.Log(context.Background(), "job", LogLevelInfo, "no details", nil)

	logs, err := svc.GetLogs(context.Background(), "job", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs.Logs, 2)
	assert.Equal(t, LogLevelWarning, logs.Logs[0].Level)
	assert.Equal(t, map[string]interface{}{"entity": "customer", "rows": 3}, logs.Logs[0].Context)
	assert.Nil(t, logs.Logs[1].Context)
}

func TestGetLogs_Pages(t *testing.T) {
	repo := &fakeLogRepo{}
	svc := NewExportLogService(repo)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		svc.Log(context.Background(), "job", LogLevelInfo, msg, nil)
	}
	svc.Log(context.Background(), "other", LogLevelInfo, "x", nil)

	page, err := svc.GetLogs(context.Background(), "job", 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Logs, 2)
	assert.Equal(t, "c", page.Logs[0].Message)
	assert.Equal(t, "d", page.Logs[1].Message)

	last, err := svc.GetLogs(context.Background(), "job", 2, 2)
	require.NoError(t, err)
	require.Len(t, last.Logs, 1)
	assert.Equal(t, "e", last.Logs[0].Message)

	beyond, err := svc.GetLogs(context.Background(), "job", 2, 5)
	require.NoError(t, err)
	assert.Empty(t, beyond.Logs)
}
