package input

import (
	"fmt"
	"log/slog"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/nxadm/tail"

	"zte.szuro.net/internal/config"
	"zte.szuro.net/internal/logger"
	"zte.szuro.net/internal/zbx"
)

// FileInput tails the history exports written by the Zabbix server.
type FileInput struct {
	baseInput
	activeTails []*tail.Tail
	fileIndex   *badger.DB
	zbxConf     zbx.ZabbixConf
}

func NewFileInput(zbxConf zbx.ZabbixConf, zteConf config.ZTEConf) (fi *FileInput, err error) {
	if !zbxConf.ExportsHistory() {
		return nil, fmt.Errorf("zabbix server does not export history, ExportType=%v", zbxConf.ExportTypes)
	}
	fi = &FileInput{
		baseInput: newBaseInput(zteConf),
		zbxConf:   zbxConf,
	}

	dbPath := filepath.Join(zteConf.DataDir, "index.db")
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(logger.Default()))
	if err != nil {
		return nil, fmt.Errorf("failed to open file index: %w", err)
	}
	logger.Debug("Initialized BadgerDB for file index", slog.String("path", dbPath))
	fi.fileIndex = db

	funnel, files, err := zbx.HistoryReader(zbxConf, fi.fileIndex, zteConf.BufferSize*2)
	if err != nil {
		db.Close()
		return nil, err
	}
	fi.subject.Funnel = funnel
	fi.activeTails = files
	return fi, nil
}

func (fi *FileInput) IsReady() bool {
	_, isActive := zbx.GetHaStatus(fi.zbxConf)
	return isActive
}

// Stop saves the read offset of every export and waits for the last batch.
func (fi *FileInput) Stop() error {
	for _, f := range fi.activeTails {
		offset, err := f.Tell()
		if err != nil {
			logger.Error("cannot get file offset, resetting to 0", slog.String("file", f.Filename), slog.Any("error", err))
			offset = 0
		}
		f.Stop()
		f.Cleanup()

		err = fi.fileIndex.Update(func(txn *badger.Txn) error {
			return txn.Set([]byte(f.Filename), zbx.Int64ToBytes(offset))
		})
		if err != nil {
			logger.Error("error when saving file offset", slog.String("file", f.Filename), slog.Any("error", err))
		}
	}
	fi.subject.Wait()
	return fi.fileIndex.Close()
}
