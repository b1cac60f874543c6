// Package store implements the versioned, transactional result store
// (spec §4.D): deduplicated text entries, per-frame text instances, a
// monotonic progress pointer, and forward-only schema migrations.
package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yowidin/ocrsuite/internal/ocrworker"
)

// ErrFutureSchema is returned by Open when the store's on-disk schema
// version is newer than CurrentVersion.
var ErrFutureSchema = errors.New("store: schema version is newer than this binary supports")

// TextEntry is the deduplicated text value row (text_entries).
type TextEntry struct {
	ID    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Value string `gorm:"column:value;uniqueIndex;not null"`
}

func (TextEntry) TableName() string { return "text_entries" }

// TextInstance is a single persisted occurrence of a TextEntry at a given
// frame and bounding box (text_instances).
type TextInstance struct {
	ID          int64   `gorm:"column:id;primaryKey;autoIncrement"`
	TextEntryID int64   `gorm:"column:text_entry_id;not null;index"`
	FrameNum    int64   `gorm:"column:frame_num;not null;index"`
	Left        int32   `gorm:"column:left"`
	Top         int32   `gorm:"column:top"`
	Right       int32   `gorm:"column:right"`
	Bottom      int32   `gorm:"column:bottom"`
	Confidence  float32 `gorm:"column:confidence"`
}

func (TextInstance) TableName() string { return "text_instances" }

// metadataRow is the single-row metadata table.
type metadataRow struct {
	Version            int   `gorm:"column:version"`
	LastProcessedFrame int64 `gorm:"column:last_processed_frame"`
}

func (metadataRow) TableName() string { return "metadata" }

// SearchEntry is one row returned by FindText.
type SearchEntry struct {
	FrameNum   int64
	Left       int32
	Top        int32
	Right      int32
	Bottom     int32
	Confidence float32
	Text       string
}

// Store is the embedded, versioned result store. All mutating operations are
// serialized through mu, matching the spec's "single recursive mutex"
// guidance; unexported *Locked helpers assume the caller already holds it.
type Store struct {
	db       *gorm.DB
	readOnly bool
	mu       sync.Mutex

	// highestSeen implements advance_progress's at-most-once-per-value write:
	// an instance field, never a package-level variable (spec §9).
	highestSeen atomic.Int64
}

// Open opens (and, unless readOnly, migrates) the store at path.
func Open(path string, readOnly bool) (*Store, error) {
	dsn := path
	if readOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", path)
	}

	var gdb *gorm.DB
	openOnce := func() error {
		var err error
		gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil && isLockedErr(err) {
			return err // retryable
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Second
	if err := backoff.Retry(openOnce, bo); err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	s := &Store{db: gdb, readOnly: readOnly}
	if !readOnly {
		if err := s.migrate(); err != nil {
			return nil, err
		}
	}

	start, err := s.startingFrameLocked()
	if err != nil {
		return nil, err
	}
	s.highestSeen.Store(start - 1)

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isLockedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "locked") || strings.Contains(msg, "busy")
}

// StartingFrame returns metadata.last_processed_frame + 1.
func (s *Store) StartingFrame() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startingFrameLocked()
}

func (s *Store) startingFrameLocked() (int64, error) {
	var row metadataRow
	if err := s.db.Model(&metadataRow{}).Limit(1).Take(&row).Error; err != nil {
		return 0, fmt.Errorf("store: read starting frame: %w", err)
	}
	return row.LastProcessedFrame + 1, nil
}

// IsFrameProcessed reports whether any text_instances row has frame_num = n.
func (s *Store) IsFrameProcessed(n int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isFrameProcessedLocked(n)
}

func (s *Store) isFrameProcessedLocked(n int64) (bool, error) {
	var count int64
	err := s.db.Model(&TextInstance{}).Where("frame_num = ?", n).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("store: is frame processed: %w", err)
	}
	return count > 0, nil
}

// AdvanceProgress writes metadata.last_processed_frame only when n strictly
// exceeds the highest value seen so far by this instance, making the write
// at-most-once-per-value regardless of caller order (spec §4.D).
func (s *Store) AdvanceProgress(n int64) error {
	for {
		current := s.highestSeen.Load()
		if n <= current {
			return nil
		}
		if s.highestSeen.CompareAndSwap(current, n) {
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readOnly {
		return nil
	}
	err := s.db.Model(&metadataRow{}).Where("1 = 1").Update("last_processed_frame", n).Error
	if err != nil {
		return fmt.Errorf("store: advance progress: %w", err)
	}
	return nil
}

func (s *Store) maxFrameNum() (int64, error) {
	var max int64
	err := s.db.Model(&TextInstance{}).Select("COALESCE(MAX(frame_num), -1)").Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("store: read max frame num: %w", err)
	}
	return max, nil
}

// Store persists an OCR result (spec §4.D). advance_progress is always
// called first; an empty entry list only advances progress and returns.
func (s *Store) Store(result ocrworker.Result) error {
	if err := s.AdvanceProgress(result.FrameNumber); err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		return nil
	}
	if s.readOnly {
		return errors.New("store: cannot write to a read-only store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	processed, err := s.isFrameProcessedLocked(result.FrameNumber)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range result.Entries {
			if err := tx.Exec(
				`INSERT OR IGNORE INTO text_entries(value) VALUES (?)`, entry.Text,
			).Error; err != nil {
				return err
			}

			var textEntryID int64
			if err := tx.Raw(
				`SELECT id FROM text_entries WHERE value = ?`, entry.Text,
			).Scan(&textEntryID).Error; err != nil {
				return err
			}

			instance := TextInstance{
				TextEntryID: textEntryID,
				FrameNum:    result.FrameNumber,
				Left:        entry.Left,
				Top:         entry.Top,
				Right:       entry.Right,
				Bottom:      entry.Bottom,
				Confidence:  entry.Confidence,
			}
			if err := tx.Create(&instance).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: persist frame %d: %w", result.FrameNumber, err)
	}
	return nil
}

// FindText LIKE-matches text_entries.value against the caller-supplied
// pattern (wildcard discipline, e.g. "%substring%", is the caller's
// responsibility) and returns every matching instance.
func (s *Store) FindText(pattern string) ([]SearchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Raw(`
		SELECT ti.frame_num, ti.left, ti.top, ti.right, ti.bottom, ti.confidence, te.value
		FROM text_instances ti
		JOIN text_entries te ON te.id = ti.text_entry_id
		WHERE te.value LIKE ?`, pattern).Rows()
	if err != nil {
		return nil, fmt.Errorf("store: find text: %w", err)
	}
	defer rows.Close()

	var out []SearchEntry
	for rows.Next() {
		var e SearchEntry
		if err := rows.Scan(&e.FrameNum, &e.Left, &e.Top, &e.Right, &e.Bottom, &e.Confidence, &e.Text); err != nil {
			return nil, fmt.Errorf("store: scan find text row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
