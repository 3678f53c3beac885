// Package cache stores the final daily report of closed operational days in
// an embedded badger database. Closed days are immutable, so entries never
// expire.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canteen-pos/api/internal/service"
	"github.com/dgraph-io/badger/v4"
)

const reportPrefix = "report:"

type ReportStore struct {
	db *badger.DB
}

// Open opens the store at path. An empty path keeps everything in memory.
func Open(path string) (*ReportStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &ReportStore{db: db}, nil
}

func (s *ReportStore) Close() error {
	return s.db.Close()
}

func reportKey(date string) []byte {
	return []byte(reportPrefix + date)
}

func (s *ReportStore) GetReport(date string) (*service.DailyReport, bool, error) {
	var report service.DailyReport
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(reportKey(date))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get report %s: %w", date, err)
	}
	return &report, true, nil
}

func (s *ReportStore) PutReport(report *service.DailyReport) error {
	if report == nil || report.Date == "" {
		return errors.New("report without date")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reportKey(report.Date), data)
	})
	if err != nil {
		return fmt.Errorf("put report %s: %w", report.Date, err)
	}
	return nil
}
