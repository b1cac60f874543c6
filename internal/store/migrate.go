package store

import (
	"fmt"

	"gorm.io/gorm"
)

// CurrentVersion is the schema version this binary writes and expects.
const CurrentVersion = 4

// migrate runs every pending step in order, each inside its own transaction,
// with each step writing the new metadata.version inside that same
// transaction, so the version commits together with the step's changes.
// Forward-only: there is no down migration.
func (s *Store) migrate() error {
	if err := s.ensureMetadataTable(); err != nil {
		return err
	}

	for {
		version, err := s.schemaVersion()
		if err != nil {
			return err
		}
		if version > CurrentVersion {
			return ErrFutureSchema
		}
		if version == CurrentVersion {
			return nil
		}

		step, ok := migrations[version]
		if !ok {
			return fmt.Errorf("store: no migration step registered for version %d", version)
		}
		if err := step(s.db); err != nil {
			return fmt.Errorf("store: migrate from version %d: %w", version, err)
		}
	}
}

// ensureMetadataTable creates the version-0 schema on a brand new file. On an
// existing file this is a no-op: sqlite's CREATE TABLE IF NOT EXISTS and the
// INSERT guard below make it idempotent.
func (s *Store) ensureMetadataTable() error {
	var count int64
	err := s.db.Raw(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'metadata'`,
	).Scan(&count).Error
	if err != nil {
		return fmt.Errorf("store: probe metadata table: %w", err)
	}
	if count > 0 {
		return nil
	}
	return migrateV0(s.db)
}

func (s *Store) schemaVersion() (int, error) {
	var version int
	err := s.db.Raw(`SELECT version FROM metadata LIMIT 1`).Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return version, nil
}

type migrationStep func(db *gorm.DB) error

// migrations maps "from version" to the step that advances past it, mirroring
// the original project's db_update switch.
var migrations = map[int]migrationStep{
	0: migrateV0,
	1: migrateV1,
	2: migrateV2,
	3: migrateV3,
}

// migrateV0 creates the initial flat schema: a single-row metadata table and
// the undifferentiated ocr_entries table.
func migrateV0(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE TABLE IF NOT EXISTS metadata(version INT)`).Error; err != nil {
			return err
		}
		var rows int64
		if err := tx.Raw(`SELECT COUNT(*) FROM metadata`).Scan(&rows).Error; err != nil {
			return err
		}
		if rows == 0 {
			if err := tx.Exec(`INSERT INTO metadata(version) VALUES (0)`).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec(`
			CREATE TABLE IF NOT EXISTS ocr_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
				frame_num INT NOT NULL,
				left INT,
				top INT,
				right INT,
				bottom INT,
				confidence FLOAT,
				ocr_text TEXT NOT NULL
			)`).Error; err != nil {
			return err
		}
		return tx.Exec(`UPDATE metadata SET version = 1`).Error
	})
}

// migrateV1 indexes ocr_entries by frame number and by text, so FindText and
// IsFrameProcessed don't degrade to full scans on large stores.
func migrateV1(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`CREATE INDEX IF NOT EXISTS frame_numbers_idx ON ocr_entries(frame_num)`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`CREATE INDEX IF NOT EXISTS frame_text_idx ON ocr_entries(ocr_text)`).Error; err != nil {
			return err
		}
		return tx.Exec(`UPDATE metadata SET version = 2`).Error
	})
}

// migrateV2 adds the progress pointer column and backfills it from the
// highest frame number already present, so existing stores resume correctly
// instead of restarting from frame 0.
func migrateV2(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var currentMax int64
		err := tx.Raw(`SELECT COALESCE(MAX(frame_num), 0) FROM ocr_entries`).Scan(&currentMax).Error
		if err != nil {
			return err
		}
		if err := tx.Exec(`ALTER TABLE metadata ADD COLUMN last_processed_frame INT DEFAULT(0)`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE metadata SET last_processed_frame = ?`, currentMax).Error; err != nil {
			return err
		}
		return tx.Exec(`UPDATE metadata SET version = 3`).Error
	})
}

// migrateV3 normalizes ocr_entries into the deduplicated text_entries /
// text_instances pair, copying every row across before dropping the old
// table and reclaiming its space with VACUUM. VACUUM cannot run inside a
// transaction, so it happens after commit, matching the original sequencing
// (schema + copy + commit, then drop, then vacuum, as two further
// statements).
func migrateV3(db *gorm.DB) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`
			CREATE TABLE text_entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
				value TEXT UNIQUE NOT NULL
			)`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`CREATE INDEX text_entries_value_idx ON text_entries(value)`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`
			CREATE TABLE text_instances (
				id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
				text_entry_id INTEGER NOT NULL,
				frame_num INT NOT NULL,
				left INT,
				top INT,
				right INT,
				bottom INT,
				confidence FLOAT,
				FOREIGN KEY(text_entry_id)
					REFERENCES text_entries(id)
					ON UPDATE CASCADE
					ON DELETE CASCADE
			)`).Error; err != nil {
			return err
		}
		if err := tx.Exec(`CREATE INDEX text_instances_frame_num_idx ON text_instances(frame_num)`).Error; err != nil {
			return err
		}

		rows, err := tx.Raw(
			`SELECT frame_num, left, top, right, bottom, confidence, ocr_text FROM ocr_entries`,
		).Rows()
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var frameNum int64
			var left, top, right, bottom int32
			var confidence float32
			var text string
			if err := rows.Scan(&frameNum, &left, &top, &right, &bottom, &confidence, &text); err != nil {
				return err
			}

			if err := tx.Exec(`INSERT OR IGNORE INTO text_entries(value) VALUES (?)`, text).Error; err != nil {
				return err
			}
			var textID int64
			if err := tx.Raw(`SELECT id FROM text_entries WHERE value = ?`, text).Scan(&textID).Error; err != nil {
				return err
			}
			err = tx.Exec(`
				INSERT INTO text_instances(text_entry_id, frame_num, left, top, right, bottom, confidence)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				textID, frameNum, left, top, right, bottom, confidence,
			).Error
			if err != nil {
				return err
			}
		}
		if err := rows.Err(); err != nil {
			return err
		}

		return tx.Exec(`UPDATE metadata SET version = 4`).Error
	})
	if err != nil {
		return err
	}

	if err := db.Exec(`DROP TABLE ocr_entries`).Error; err != nil {
		return fmt.Errorf("drop ocr_entries: %w", err)
	}
	if err := db.Exec(`VACUUM`).Error; err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
