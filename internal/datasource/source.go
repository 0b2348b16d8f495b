// Package datasource provides concrete implementations of the engine's
// viewport-query capability. The engine core only sees the loader.Source
// interface; how records are durably stored stays behind this package.
//
// Two sources exist: a read-only SQLite reader for real datasets and an
// in-memory static source used by tests, benchmarks, and the demo mode.
package datasource

import "fmt"

// Schema is the expected SQLite layout. The pos_x/pos_y columns are layout
// hints written at import time: the source must answer spatial queries
// before the engine has laid anything out, so positions from the last full
// layout are persisted alongside the records.
const Schema = `
CREATE TABLE IF NOT EXISTS people (
    id            TEXT PRIMARY KEY,
    parent_id     TEXT,
    generation    INTEGER NOT NULL,
    gender        TEXT,
    name          TEXT NOT NULL,
    photo         TEXT,
    deceased      INTEGER NOT NULL DEFAULT 0,
    sibling_order INTEGER NOT NULL DEFAULT 0,
    pos_x         REAL NOT NULL,
    pos_y         REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_people_pos ON people(pos_y, pos_x);
CREATE INDEX IF NOT EXISTS idx_people_generation ON people(generation);

CREATE TABLE IF NOT EXISTS marriages (
    a            TEXT NOT NULL,
    b            TEXT NOT NULL,
    status       TEXT NOT NULL,
    spouse_order INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (a, b)
);
`

// photoMeta is the JSON shape of the people.photo column. Only the ref is
// surfaced to the engine; dimensions stay with the rendering collaborators.
type photoMeta struct {
	Ref    string `json:"ref"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ErrEmptyDataset is returned by GenerationSpan when the source holds no
// records at all.
var ErrEmptyDataset = fmt.Errorf("datasource: dataset is empty")
