package zbx

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	zbxpkg "zte.szuro.net/pkg/zbx"
)

// Helper to create a temp file with given size
func createTempFileWithSize(t *testing.T, size int64) string {
	t.Helper()
	tmpfile, err := os.CreateTemp(t.TempDir(), "testfile")
	require.NoError(t, err)
	defer tmpfile.Close()
	if size > 0 {
		_, err = tmpfile.Seek(size-1, io.SeekStart)
		require.NoError(t, err)
		_, err = tmpfile.Write([]byte{0})
		require.NoError(t, err)
	}
	return tmpfile.Name()
}

// Helper to create a Badger DB in a temp dir
func createTempBadgerDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFindLastReadOffset(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		stored   int64
		expected int64
	}{
		{"No offset in db", 100, -1, 0},
		{"Offset within file", 200, 100, 100},
		{"Offset past end after rotation", 50, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := createTempBadgerDB(t)
			filename := createTempFileWithSize(t, tt.size)
			if tt.stored >= 0 {
				require.NoError(t, db.Update(func(txn *badger.Txn) error {
					return txn.Set([]byte(filename), Int64ToBytes(tt.stored))
				}))
			}

			location, err := findLastReadOffset(db, filename)
			require.NoError(t, err)
			require.Equal(t, io.SeekStart, location.Whence)
			require.Equal(t, tt.expected, location.Offset)
		})
	}
}

func TestFindLastReadOffset_FileDoesNotExist(t *testing.T) {
	db := createTempBadgerDB(t)
	_, err := findLastReadOffset(db, filepath.Join(t.TempDir(), "nonexistent"))
	require.Error(t, err)
}

func TestHistoryFilePaths(t *testing.T) {
	paths := HistoryFilePaths(ZabbixConf{ExportDir: "/export", DBSyncers: 2})
	require.Equal(t, []string{
		"/export/history-main-process-0.ndjson",
		"/export/history-history-syncer-1.ndjson",
		"/export/history-history-syncer-2.ndjson",
	}, paths)
}

func TestParseHistoryLine(t *testing.T) {
	h, err := ParseHistoryLine([]byte(`{"host":{"host":"web01","name":"Web"},"itemid":1001,"name":"Load","clock":1700000000,"ns":5,"value":0.25,"type":0}`))
	require.NoError(t, err)
	require.Equal(t, 1001, h.ItemID)
	require.Equal(t, json.Number("0.25"), h.Value)
	require.Equal(t, "web01", h.Host.Host)

	_, err = ParseHistoryLine([]byte(`{"clock":1}`))
	require.Error(t, err)

	_, err = ParseHistoryLine([]byte(`not json`))
	require.Error(t, err)
}

func TestHistoryReader(t *testing.T) {
	dir := t.TempDir()
	conf := ZabbixConf{ExportDir: dir, DBSyncers: 1}
	for _, p := range HistoryFilePaths(conf) {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
	syncer := HistoryFilePaths(conf)[1]
	require.NoError(t, os.WriteFile(syncer, []byte("{\"itemid\":7,\"clock\":1,\"ns\":0,\"value\":\"up\",\"type\":1}\nbroken\n"), 0o644))

	c, tailed, err := HistoryReader(conf, createTempBadgerDB(t), 10)
	require.NoError(t, err)
	require.Len(t, tailed, 2)
	defer func() {
		for _, tf := range tailed {
			tf.Cleanup()
			tf.Stop()
		}
	}()

	select {
	case h := <-c:
		require.Equal(t, zbxpkg.History{ItemID: 7, Clock: 1, Value: "up", Type: zbxpkg.CHARACTER}, h)
	case <-time.After(5 * time.Second):
		t.Fatal("no history record read")
	}
}
