/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/skyguide
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package platesolve

/*****************************************************************************************************************/

import (
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/observerly/skyguide/pkg/solve"
)

/*****************************************************************************************************************/

// cachedRecord is the gorm-persisted row for one successful solve, keyed on the
// source image path and the solve mode used to produce it (a FieldOfViewWithHint
// solve against a different hint is not interchangeable with a blind one).
type cachedRecord struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time

	ImagePath string `gorm:"uniqueIndex:idx_image_mode"`
	Mode      int    `gorm:"uniqueIndex:idx_image_mode"`

	RA  float64
	Dec float64

	Corner0RA, Corner0Dec float64
	Corner1RA, Corner1Dec float64
	Corner2RA, Corner2Dec float64
	Corner3RA, Corner3Dec float64

	FieldWidthDeg  float64
	FieldHeightDeg float64
}

/*****************************************************************************************************************/

func (c cachedRecord) toRecord() solve.Record {
	return solve.Record{
		RA:  c.RA,
		Dec: c.Dec,
		Corner: [4]solve.Corner{
			{RA: c.Corner0RA, Dec: c.Corner0Dec},
			{RA: c.Corner1RA, Dec: c.Corner1Dec},
			{RA: c.Corner2RA, Dec: c.Corner2Dec},
			{RA: c.Corner3RA, Dec: c.Corner3Dec},
		},
		FieldWidthDeg:  c.FieldWidthDeg,
		FieldHeightDeg: c.FieldHeightDeg,
	}
}

/*****************************************************************************************************************/

func newCachedRecord(imagePath string, mode solve.Mode, record solve.Record) cachedRecord {
	return cachedRecord{
		ImagePath:      imagePath,
		Mode:           int(mode),
		RA:             record.RA,
		Dec:            record.Dec,
		Corner0RA:      record.Corner[0].RA,
		Corner0Dec:     record.Corner[0].Dec,
		Corner1RA:      record.Corner[1].RA,
		Corner1Dec:     record.Corner[1].Dec,
		Corner2RA:      record.Corner[2].RA,
		Corner2Dec:     record.Corner[2].Dec,
		Corner3RA:      record.Corner[3].RA,
		Corner3Dec:     record.Corner[3].Dec,
		FieldWidthDeg:  record.FieldWidthDeg,
		FieldHeightDeg: record.FieldHeightDeg,
	}
}

/*****************************************************************************************************************/

// CachingSolver wraps a solve.Solver with a gorm/sqlite-backed cache of prior
// solutions, so re-solving the same FITS frame under the same mode (e.g. retried
// capture-and-solve attempts that reuse an image path, or repeat dry runs against a
// fixture frame) is a database lookup rather than a fresh asterism match.
type CachingSolver struct {
	inner solve.Solver
	db    *gorm.DB
}

/*****************************************************************************************************************/

// NewCachingSolver opens (creating if necessary) a sqlite database at dbPath and
// wraps inner with a cache backed by it. dbPath may be ":memory:" for a
// process-local cache with no file-backed persistence.
func NewCachingSolver(inner solve.Solver, dbPath string) (*CachingSolver, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&cachedRecord{}); err != nil {
		return nil, err
	}

	return &CachingSolver{inner: inner, db: db}, nil
}

/*****************************************************************************************************************/

// Solve returns the cached solution for (imagePath, params.Mode) if one exists,
// otherwise delegates to the wrapped solver and persists a successful result.
func (c *CachingSolver) Solve(imagePath string, params solve.Params) (solve.Record, error) {
	var row cachedRecord

	err := c.db.Where("image_path = ? AND mode = ?", imagePath, int(params.Mode)).First(&row).Error
	if err == nil {
		return row.toRecord(), nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return solve.Record{}, err
	}

	record, err := c.inner.Solve(imagePath, params)
	if err != nil {
		return solve.Record{}, err
	}

	row = newCachedRecord(imagePath, params.Mode, record)

	// A failed insert (e.g. a racing concurrent solve of the same frame) should not
	// fail the caller, since the freshly solved record is still valid to return.
	_ = c.db.Create(&row).Error

	return record, nil
}

/*****************************************************************************************************************/
