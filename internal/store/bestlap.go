package store

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/simracekit/pitwall/internal/telemetry"
)

var bestLapBucket = []byte("best_laps")

// BestLapRecord is the persisted all-time personal best for a profile.
type BestLapRecord struct {
	LapNumber   int                   `json:"lap_number"`
	LapTime     time.Duration         `json:"lap_time"`
	CompletedAt time.Time             `json:"completed_at"`
	Analysis    telemetry.LapAnalysis `json:"analysis"`
}

// BestLapStore keeps personal-best laps across restarts, keyed by profile
// name (track, car, whatever the operator chooses).
type BestLapStore struct {
	db *bbolt.DB
}

func NewBestLapStore(path string) (*BestLapStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})

	if err != nil {
		return nil, errors.Wrap(err, "could not open best lap store")
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bestLapBucket)

		return err
	})

	if err != nil {
		_ = db.Close()

		return nil, errors.Wrap(err, "could not initialise best lap bucket")
	}

	return &BestLapStore{db: db}, nil
}

func (b *BestLapStore) Close() error {
	return b.db.Close()
}

// Best returns the stored record for a profile, if any.
func (b *BestLapStore) Best(profile string) (BestLapRecord, bool, error) {
	var (
		record BestLapRecord
		found  bool
	)

	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bestLapBucket).Get([]byte(profile))

		if data == nil {
			return nil
		}

		found = true

		return json.Unmarshal(data, &record)
	})

	if err != nil {
		return BestLapRecord{}, false, errors.Wrapf(err, "could not read best lap for %s", profile)
	}

	return record, found, nil
}

// Record stores the lap as the profile's personal best if it improves on the
// current one. Invalid laps never qualify. It reports whether the record
// improved.
func (b *BestLapStore) Record(profile string, lap telemetry.LapRecord) (bool, error) {
	if !lap.Analysis.IsValid {
		return false, nil
	}

	improved := false

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bestLapBucket)

		if data := bucket.Get([]byte(profile)); data != nil {
			var current BestLapRecord

			if err := json.Unmarshal(data, &current); err != nil {
				return err
			}

			if lap.LapTime >= current.LapTime {
				return nil
			}
		}

		record := BestLapRecord{
			LapNumber:   lap.LapNumber,
			LapTime:     lap.LapTime,
			CompletedAt: lap.CompletedAt,
			Analysis:    lap.Analysis,
		}

		data, err := json.Marshal(record)

		if err != nil {
			return err
		}

		improved = true

		return bucket.Put([]byte(profile), data)
	})

	if err != nil {
		return false, errors.Wrapf(err, "could not record best lap for %s", profile)
	}

	return improved, nil
}
