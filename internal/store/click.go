package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultClickLimit is the number of clicks List returns when no limit is given.
const DefaultClickLimit = 50

// Click is one emitted click intent and how its dispatch went.
type Click struct {
	ID         string    `json:"id"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Target     string    `json:"target"`
	Hit        bool      `json:"hit"`
	Strategies []string  `json:"strategies"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ClickRepository stores the click log.
type ClickRepository struct {
	db *sql.DB
}

// Clicks returns the click repository for this store.
func (s *Store) Clicks() *ClickRepository {
	return &ClickRepository{db: s.db}
}

// Record inserts a click. ID and CreatedAt are filled in when empty.
func (r *ClickRepository) Record(c *Click) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	hit := 0
	if c.Hit {
		hit = 1
	}

	_, err := r.db.Exec(
		`INSERT INTO clicks (id, x, y, target, hit, strategies, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.X, c.Y, c.Target, hit, strings.Join(c.Strategies, ","), c.Error, c.CreatedAt,
	)
	return err
}

// List returns up to limit clicks, newest first. A non-positive limit
// selects DefaultClickLimit.
func (r *ClickRepository) List(limit int) ([]*Click, error) {
	if limit <= 0 {
		limit = DefaultClickLimit
	}

	rows, err := r.db.Query(
		`SELECT id, x, y, target, hit, strategies, error, created_at
		 FROM clicks ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clicks []*Click
	for rows.Next() {
		c := &Click{}
		var hit int
		var strategies string

		if err := rows.Scan(&c.ID, &c.X, &c.Y, &c.Target, &hit, &strategies, &c.Error, &c.CreatedAt); err != nil {
			return nil, err
		}

		c.Hit = hit != 0
		if strategies != "" {
			c.Strategies = strings.Split(strategies, ",")
		}
		clicks = append(clicks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return clicks, nil
}

// Count returns the number of recorded clicks.
func (r *ClickRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM clicks`).Scan(&n)
	return n, err
}
