package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/kinview/pkg/loader"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// SQLiteSource answers viewport queries from a family-tree SQLite database.
// It implements loader.Source.
type SQLiteSource struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens a database for reading.
func OpenSQLite(path string) (*SQLiteSource, error) {
	// Read-only with a busy timeout; the writer (importer/sync job) may
	// still be appending.
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		_, _ = db.Exec(pragma) // non-fatal
	}

	return &SQLiteSource{db: db, path: path}, nil
}

// Path returns the backing file path, used by the change watcher.
func (s *SQLiteSource) Path() string { return s.path }

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ViewportQuery returns the people whose stored layout position falls in the
// effective rectangle, ordered by (generation, sibling_order, id), plus the
// marriages among them and the total available count.
func (s *SQLiteSource) ViewportQuery(ctx context.Context, q loader.Query) (loader.QueryResult, error) {
	rect := q.Effective()

	var res loader.QueryResult
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM people
		WHERE pos_x BETWEEN ? AND ? AND pos_y BETWEEN ? AND ?`,
		rect.MinX, rect.MaxX, rect.MinY, rect.MaxY,
	).Scan(&res.TotalAvailable)
	if err != nil {
		return loader.QueryResult{}, fmt.Errorf("count viewport: %w", err)
	}

	limit := q.MaxResults
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, generation, gender, name, photo, deceased, sibling_order
		FROM people
		WHERE pos_x BETWEEN ? AND ? AND pos_y BETWEEN ? AND ?
		ORDER BY generation, sibling_order, id
		LIMIT ?`,
		rect.MinX, rect.MaxX, rect.MinY, rect.MaxY, limit,
	)
	if err != nil {
		return loader.QueryResult{}, fmt.Errorf("query viewport: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return loader.QueryResult{}, err
		}
		res.People = append(res.People, p)
	}
	if err := rows.Err(); err != nil {
		return loader.QueryResult{}, fmt.Errorf("iterate viewport: %w", err)
	}

	res.Marriages, err = s.marriagesAmong(ctx, res.People)
	if err != nil {
		return loader.QueryResult{}, err
	}
	return res, nil
}

// GenerationSpan reports the inclusive generation range of the dataset.
func (s *SQLiteSource) GenerationSpan(ctx context.Context) (int, int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people`).Scan(&count); err != nil {
		return 0, 0, fmt.Errorf("count people: %w", err)
	}
	if count == 0 {
		return 0, 0, ErrEmptyDataset
	}
	var minGen, maxGen int
	err := s.db.QueryRowContext(ctx, `SELECT MIN(generation), MAX(generation) FROM people`).Scan(&minGen, &maxGen)
	if err != nil {
		return 0, 0, fmt.Errorf("generation span: %w", err)
	}
	return minGen, maxGen, nil
}

// LoadGeneration returns every record of one generation plus the marriages
// among those records.
func (s *SQLiteSource) LoadGeneration(ctx context.Context, generation int) (loader.QueryResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, parent_id, generation, gender, name, photo, deceased, sibling_order
		FROM people WHERE generation = ?
		ORDER BY sibling_order, id`,
		generation,
	)
	if err != nil {
		return loader.QueryResult{}, fmt.Errorf("query generation %d: %w", generation, err)
	}
	defer rows.Close()

	var res loader.QueryResult
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return loader.QueryResult{}, err
		}
		res.People = append(res.People, p)
	}
	if err := rows.Err(); err != nil {
		return loader.QueryResult{}, fmt.Errorf("iterate generation %d: %w", generation, err)
	}
	res.TotalAvailable = len(res.People)

	res.Marriages, err = s.marriagesAmong(ctx, res.People)
	if err != nil {
		return loader.QueryResult{}, err
	}
	return res, nil
}

func scanPerson(rows *sql.Rows) (model.Person, error) {
	var p model.Person
	var parentID, gender, photo sql.NullString
	var deceased int

	err := rows.Scan(&p.ID, &parentID, &p.Generation, &gender, &p.Name, &photo, &deceased, &p.SiblingOrder)
	if err != nil {
		return model.Person{}, fmt.Errorf("scan person: %w", err)
	}
	if parentID.Valid {
		p.ParentID = model.PersonID(parentID.String)
	}
	if gender.Valid && gender.String != "" {
		p.Gender = model.Gender(gender.String)
	} else {
		p.Gender = model.GenderUnknown
	}
	p.Deceased = deceased != 0
	if photo.Valid && photo.String != "" {
		var meta photoMeta
		if err := json.Unmarshal([]byte(photo.String), &meta); err == nil {
			p.PhotoRef = meta.Ref
		}
	}
	return p, nil
}

// marriagesAmong loads the marriages whose endpoints are both in the given
// set of people.
func (s *SQLiteSource) marriagesAmong(ctx context.Context, people []model.Person) ([]model.Marriage, error) {
	if len(people) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(people))
	args := make([]any, 0, len(people)*2)
	for i, p := range people {
		placeholders[i] = "?"
		args = append(args, string(p.ID))
	}
	in := strings.Join(placeholders, ",")
	args = append(args, args[:len(people)]...)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT a, b, status, spouse_order FROM marriages
		WHERE a IN (%s) AND b IN (%s)
		ORDER BY a, b`, in, in),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query marriages: %w", err)
	}
	defer rows.Close()

	var out []model.Marriage
	for rows.Next() {
		var m model.Marriage
		if err := rows.Scan(&m.A, &m.B, &m.Status, &m.SpouseOrder); err != nil {
			return nil, fmt.Errorf("scan marriage: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
