// Package checkpoint stores optimization results in a bolt database,
// so an interrupted run can be resumed.
package checkpoint

import (
	"encoding/json"
	"math"
	"time"

	"github.com/op/go-logging"
	"github.com/rotisserie/eris"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/rateshift/optimize"
)

// log is the global logging variable.
var log = logging.MustGetLogger("checkpoint")

// MAIN is the bucket for the run fingerprint and optimized parameters.
var MAIN = []byte("main")

// CheckpointData stores checkpoint data.
type CheckpointData struct {
	Parameters map[string]float64
	Likelihood float64
	Final      bool
}

// CheckpointIO saves and loads parameter checkpoints under a key.
type CheckpointIO struct {
	db      *bolt.DB
	key     []byte
	last    time.Time
	seconds float64
}

// NewCheckpointIO creates a new CheckpointIO. Periodic saves happen
// at most every given number of seconds.
func NewCheckpointIO(db *bolt.DB, key []byte, seconds float64) *CheckpointIO {
	return &CheckpointIO{
		db:      db,
		key:     key,
		last:    time.Now(),
		seconds: seconds,
	}
}

// Save saves checkpoint to the database.
func (s *CheckpointIO) Save(data *CheckpointData) error {
	// Even if saving fails, we do not want to run this code too often.
	s.SetNow()
	dataB, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "serializing checkpoint")
	}
	if err := SaveData(s.db, MAIN, s.key, dataB); err != nil {
		return eris.Wrap(err, "saving checkpoint")
	}
	return nil
}

// GetParameters returns the stored checkpoint or nil if there is
// none.
func (s *CheckpointIO) GetParameters() (*CheckpointData, error) {
	var data *CheckpointData

	b, err := LoadData(s.db, MAIN, s.key)
	if err != nil || b == nil {
		return nil, err
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return nil, eris.Wrap(err, "reading checkpoint")
	}

	if data == nil || len(data.Parameters) == 0 {
		return nil, nil
	}

	if data.Final {
		log.Noticef("Found finished likelihood optimization checkpoint (lnL=%v)", data.Likelihood)
	} else {
		log.Noticef("Found unfinished likelihood optimization checkpoint (lnL=%v)", data.Likelihood)
	}

	return data, nil
}

// Old returns true if last checkpoint save time too long ago.
func (s *CheckpointIO) Old() bool {
	return time.Since(s.last).Seconds() > s.seconds
}

// SetNow sets last checkpoint time to now.
func (s *CheckpointIO) SetNow() {
	s.last = time.Now()
}

// watched is an Optimizable saving its best point to a checkpoint.
type watched struct {
	optimize.Optimizable
	cio    *CheckpointIO
	maxL   float64
	maxPar map[string]float64
}

// Watch returns an Optimizable which saves the best parameter values
// found so far whenever the checkpoint is old.
func Watch(o optimize.Optimizable, cio *CheckpointIO) optimize.Optimizable {
	return &watched{Optimizable: o, cio: cio, maxL: math.Inf(-1)}
}

func (w *watched) Likelihood() float64 {
	l := w.Optimizable.Likelihood()
	if l > w.maxL {
		w.maxL = l
		w.maxPar = w.GetFloatParameters().ValuesMap()
	}
	if w.maxPar != nil && w.cio.Old() {
		log.Debugf("Saving checkpoint (lnL=%v)", w.maxL)
		if err := w.cio.Save(&CheckpointData{Parameters: w.maxPar, Likelihood: w.maxL}); err != nil {
			log.Error(err)
		}
	}
	return l
}

// SaveData saves a value in a bucket of the bolt database.
func SaveData(db *bolt.DB, bucket, key, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads a value from a bucket; a missing bucket or key gives
// nil.
func LoadData(db *bolt.DB, bucket, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		// values are only valid inside the transaction
		if v := b.Get(key); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
