package zbx

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/nxadm/tail"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"zte.szuro.net/internal/logger"
	zbxpkg "zte.szuro.net/pkg/zbx"
)

var (
	linesParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_lines_parsed_total",
		Help: "The total number of processed export lines",
	}, []string{"file_index"})
	linesInvalid = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zte_lines_invalid_total",
		Help: "The total number of export lines with invalid data",
	}, []string{"file_index"})
)

// ParseHistoryLine decodes one NDJSON history record. Numbers are kept as
// json.Number so unsigned values do not lose precision.
func ParseHistoryLine(line []byte) (h zbxpkg.History, err error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err = dec.Decode(&h); err != nil {
		return h, err
	}
	if h.ItemID == 0 {
		return h, fmt.Errorf("record without itemid")
	}
	return h, nil
}

func bytesToInt64(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func Int64ToBytes(i int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b
}

func findLastReadOffset(indexDB *badger.DB, filename string) (location *tail.SeekInfo, err error) {
	location = &tail.SeekInfo{Whence: io.SeekStart}

	err = indexDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(filename))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			location.Offset = bytesToInt64(val)
			return nil
		})
	})
	if err != nil && err != badger.ErrKeyNotFound {
		logger.Warn("Failed to read file offset", slog.String("file", filename), slog.Any("error", err))
	}

	f, err := os.Stat(filename)
	// offset greater than size means the file was rotated
	if err != nil || location.Offset > f.Size() {
		location.Offset = 0
	}

	return
}

// HistoryFilePaths lists the history export of the main process followed by
// one export per DB syncer.
func HistoryFilePaths(zbx ZabbixConf) (paths []string) {
	paths = append(paths, filepath.Join(zbx.ExportDir, zbxpkg.HISTORY_MAIN))
	for i := 1; i <= zbx.DBSyncers; i++ {
		paths = append(paths, filepath.Join(zbx.ExportDir, fmt.Sprintf(zbxpkg.HISTORY_EXPORT, i)))
	}
	return
}

// HistoryReader tails every history export and sends decoded records to the
// returned channel. Reading resumes at the offsets stored in indexDB. The
// channel is closed once every tailed file has been stopped.
func HistoryReader(zbx ZabbixConf, indexDB *badger.DB, chanSize int) (c chan zbxpkg.History, tailedFiles []*tail.Tail, err error) {
	exportFiles := HistoryFilePaths(zbx)
	tailedFiles = make([]*tail.Tail, 0, len(exportFiles))
	c = make(chan zbxpkg.History, chanSize)
	var wg sync.WaitGroup

	for i, filename := range exportFiles {
		loc, _ := findLastReadOffset(indexDB, filename)

		tailedFile, err := tail.TailFile(
			filename, tail.Config{
				Follow:        true,
				ReOpen:        true,
				CompleteLines: true,
				Location:      loc,
				Logger:        logger.Default(),
			})
		if err != nil {
			for _, t := range tailedFiles {
				t.Cleanup()
				t.Stop()
			}
			return nil, nil, fmt.Errorf("could not open export %s: %w", filename, err)
		}
		tailedFiles = append(tailedFiles, tailedFile)

		wg.Add(1)
		go func(t *tail.Tail, fileIndex string) {
			defer wg.Done()
			logger.Info("Opening and parsing export file", slog.String("file", t.Filename))
			parsed, invalid := linesParsed.WithLabelValues(fileIndex), linesInvalid.WithLabelValues(fileIndex)

			for line := range t.Lines {
				if line.Err != nil {
					logger.Error("Failed to read line", slog.String("file", t.Filename), slog.Any("error", line.Err))
					continue
				}
				h, err := ParseHistoryLine([]byte(line.Text))
				parsed.Inc()
				if err != nil {
					invalid.Inc()
					logger.Error("Failed to parse line", slog.String("file", t.Filename), slog.Int("line_number", line.Num), slog.Any("error", err))
					continue
				}
				c <- h
			}
		}(tailedFile, strconv.Itoa(i))
	}

	go func() {
		wg.Wait()
		close(c)
	}()
	return c, tailedFiles, nil
}
