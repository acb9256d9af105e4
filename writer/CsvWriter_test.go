package writer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Netcracker/qubership-data-exporter/crypto"
	"github.com/Netcracker/qubership-data-exporter/view"
	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(kv ...interface{}) *orderedmap.OrderedMap {
	m := orderedmap.New()
	for i := 0; i < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func readFile(t *testing.T, path string) string {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCsvWriter_InfersHeaderFromFirstRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job", "customer.csv")
	w := NewCsvWriter(Options{Delimiter: ';', Enclosure: '"', Bom: true})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteRow(row("id_customer", int64(1), "company", "ACME; Ltd", "note", "=1+1")))
	require.NoError(t, w.WriteRow(row("id_customer", int64(2), "company", nil, "note", "say \"hi\"")))
	require.NoError(t, w.Close())

	content := readFile(t, path)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"))
	assert.Equal(t, "\xEF\xBB\xBFid_customer;company;note\n1;\"ACME; Ltd\";'=1+1\n2;;\"say \"\"hi\"\"\"\n", content)
	assert.Equal(t, int64(2), w.RowCount())
	assert.Equal(t, int64(len(content)), w.Size())
}

func TestCsvWriter_ExplicitColumnsAndCustomEnclosure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	w := NewCsvWriter(Options{Delimiter: ',', Enclosure: '\''})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteHeader([]string{"id_order", "-evil", "total"}))
	require.NoError(t, w.WriteRow(row("total", 10.5, "id_order", 7, "ignored", "x")))
	require.NoError(t, w.Close())

	assert.Equal(t, "id_order,_evil,total\n7,,10.5\n", readFile(t, path))
}

func TestCsvWriter_ChecksumAndPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "address.csv")
	w := NewCsvWriter(Options{Bom: true})
	require.NoError(t, w.Open(path))
	assert.Empty(t, w.Checksum())
	require.NoError(t, w.WriteRow(row("id_address", 1)))
	require.NoError(t, w.Close())

	expected, err := crypto.CreateFileSHA256Hash(path)
	require.NoError(t, err)
	assert.Equal(t, expected, w.Checksum())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0400), info.Mode().Perm())

	assert.Error(t, w.WriteRow(row("id_address", 2)))
}

func TestCsvWriter_FlushesPeriodically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.csv")
	w := NewCsvWriter(Options{FlushEvery: 2})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteRow(row("id_cart", 1)))
	assert.Equal(t, "", readFile(t, path))
	require.NoError(t, w.WriteRow(row("id_cart", 2)))
	assert.Equal(t, "id_cart\n1\n2\n", readFile(t, path))
	require.NoError(t, w.Abort())
}

func TestCsvWriter_ResumeTruncatesToCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	opts := Options{Delimiter: ';', Enclosure: '"', Bom: true}

	w := NewCsvWriter(opts)
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteHeader([]string{"id_order", "reference"}))
	require.NoError(t, w.WriteRow(row("id_order", 1, "reference", "AAA")))
	checkpoint, err := w.Checkpoint()
	require.NoError(t, err)
	// written but never checkpointed
	require.NoError(t, w.WriteRow(row("id_order", 2, "reference", "BBB")))
	require.NoError(t, w.Abort())

	resumed := NewCsvWriter(opts)
	require.NoError(t, resumed.Resume(path, checkpoint, nil))
	require.NoError(t, resumed.WriteRow(row("id_order", 2, "reference", "BBB")))
	require.NoError(t, resumed.Close())

	assert.Equal(t, "\xEF\xBB\xBFid_order;reference\n1;AAA\n2;BBB\n", readFile(t, path))
	assert.Equal(t, int64(2), resumed.RowCount())
}

func TestCsvWriter_ResumeReopensClosedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.csv")
	w := NewCsvWriter(Options{})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteRow(row("id_guest", 1)))
	checkpoint, err := w.Checkpoint()
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resumed := NewCsvWriter(Options{})
	require.NoError(t, resumed.Resume(path, checkpoint, []string{"id_guest"}))
	require.NoError(t, resumed.WriteRow(row("id_guest", 2)))
	require.NoError(t, resumed.Close())
	assert.Equal(t, "id_guest\n1\n2\n", readFile(t, path))
}

func TestCsvWriter_ResumeFailsWhenFileIsMissing(t *testing.T) {
	w := NewCsvWriter(Options{})
	err := w.Resume(filepath.Join(t.TempDir(), "lost.csv"), view.FileCheckpoint{Offset: 10, Rows: 1}, nil)
	assert.Error(t, err)
}

func TestCsvWriter_OpenFailsOnUnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	w := NewCsvWriter(Options{})
	assert.Error(t, w.Open(filepath.Join(blocker, "customer.csv")))
}

func TestCsvWriter_AnonymizesBeforeSanitizing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customer.csv")
	anonymizer := NewAnonymizer("salt")
	w := NewCsvWriter(Options{Anonymizer: anonymizer})
	require.NoError(t, w.Open(path))
	require.NoError(t, w.WriteRow(row("id_customer", 1, "email", "john.doe@example.com", "passwd", "secret", "note", "-5")))
	require.NoError(t, w.Close())

	expectedEmail := anonymizer.Anonymize("email", "john.doe@example.com")
	assert.Equal(t, "id_customer;email;passwd;note\n1;"+expectedEmail+";***MASKED***;'-5\n", readFile(t, path))
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 11, 12, 0, time.UTC)
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "1", FormatValue(true))
	assert.Equal(t, "0", FormatValue(false))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "0.1", FormatValue(0.1))
	assert.Equal(t, "abc", FormatValue([]byte("abc")))
	assert.Equal(t, "2024-03-05 10:11:12", FormatValue(ts))
}

func TestOptionsWithDefaults(t *testing.T) {
	read := Options{}.ReadOptions()
	assert.Equal(t, ReadOptions{Delimiter: ';', Enclosure: '"'}, read)

	opts := Options{Delimiter: ',', FlushEvery: 5}.WithDefaults()
	assert.Equal(t, ',', opts.Delimiter)
	assert.Equal(t, '"', opts.Enclosure)
	assert.Equal(t, 5, opts.FlushEvery)
}
