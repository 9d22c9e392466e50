package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"github.com/rotisserie/eris"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/rateshift/shift"
)

var (
	// SITES is the bucket with finished site results.
	SITES = []byte("sites")

	fingerprintKey  = []byte("fingerprint")
	optimizationKey = []byte("optimization")
)

// Fingerprint returns a hash of the run inputs. A checkpoint is only
// reused by a run with the same fingerprint.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Store is a checkpoint database of a single run.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens or creates the checkpoint database. If the database
// belongs to a run with a different fingerprint, its content is
// discarded.
func Open(path, fingerprint string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, eris.Wrapf(err, "opening checkpoint %s", path)
	}
	s := &Store{db: db, path: path}

	old, err := LoadData(db, MAIN, fingerprintKey)
	if err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "reading checkpoint %s", path)
	}
	if old != nil && !bytes.Equal(old, []byte(fingerprint)) {
		log.Warningf("Checkpoint %s was created with different input, discarding it", path)
		err = db.Update(func(tx *bolt.Tx) error {
			for _, name := range [][]byte{MAIN, SITES} {
				if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
					return err
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "clearing checkpoint %s", path)
		}
	}
	if err := SaveData(db, MAIN, fingerprintKey, []byte(fingerprint)); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "writing checkpoint %s", path)
	}
	if n := s.NSites(); n > 0 {
		log.Noticef("Checkpoint contains %d finished sites", n)
	}
	return s, nil
}

// Optimization returns the checkpoint of the whole-alignment
// optimization, periodic saves are done every given number of
// seconds.
func (s *Store) Optimization(seconds float64) *CheckpointIO {
	return NewCheckpointIO(s.db, optimizationKey, seconds)
}

func siteKey(index int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(index))
	return key
}

// Get returns a finished site by its index.
func (s *Store) Get(index int) (shift.SiteResult, bool, error) {
	var r shift.SiteResult
	b, err := LoadData(s.db, SITES, siteKey(index))
	if err != nil || b == nil {
		return r, false, err
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return r, false, eris.Wrapf(err, "decoding site %d", index)
	}
	return r, true, nil
}

// Put stores a finished site. Results with non-finite values cannot
// be encoded and are not stored; such sites are recomputed on resume.
func (s *Store) Put(r shift.SiteResult) error {
	for _, v := range []float64{r.Rate, r.RateFg, r.RateBg, r.LnL1, r.LnL2, r.Stat, r.PValue} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			log.Debugf("Site %d has non-finite values, not saved", r.Position)
			return nil
		}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return eris.Wrapf(err, "encoding site %d", r.Position)
	}
	return SaveData(s.db, SITES, siteKey(r.Index), b)
}

// NSites returns the number of stored sites.
func (s *Store) NSites() (n int) {
	s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(SITES); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return eris.Wrapf(err, "closing checkpoint %s", s.path)
	}
	return nil
}
