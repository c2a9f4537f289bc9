package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/finger"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Profile is a named set of learned calibration ranges.
type Profile struct {
	ID        string
	Name      string
	Ranges    map[finger.Channel]calibration.Range
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileRepository provides CRUD operations for calibration profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// Create inserts p with its ranges. An empty ID is filled with a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO profiles (id, name, samples, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if err := insertRanges(tx, p.ID, p.Ranges); err != nil {
		return err
	}
	return tx.Commit()
}

// Update replaces the name, sample count and ranges of an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE profiles SET name = ?, samples = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Samples, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM profile_ranges WHERE profile_id = ?`, p.ID); err != nil {
		return err
	}
	if err := insertRanges(tx, p.ID, p.Ranges); err != nil {
		return err
	}
	return tx.Commit()
}

// Save creates p, or updates the profile that already has p's name.
func (r *ProfileRepository) Save(p *Profile) error {
	existing, err := r.GetByName(p.Name)
	if errors.Is(err, ErrNotFound) {
		return r.Create(p)
	}
	if err != nil {
		return err
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	return r.Update(p)
}

func insertRanges(tx *sql.Tx, profileID string, ranges map[finger.Channel]calibration.Range) error {
	for _, ch := range finger.All() {
		rg, ok := ranges[ch]
		if !ok {
			continue
		}
		_, err := tx.Exec(
			`INSERT INTO profile_ranges (profile_id, channel, min_angle, max_angle, inverted)
			 VALUES (?, ?, ?, ?, ?)`,
			profileID, ch.String(), rg.Min, rg.Max, rg.Inverted,
		)
		if err != nil {
			return fmt.Errorf("insert range %s: %w", ch, err)
		}
	}
	return nil
}

// GetByID retrieves a profile and its ranges by ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return r.get(`SELECT id, name, samples, created_at, updated_at FROM profiles WHERE id = ?`, id)
}

// GetByName retrieves a profile and its ranges by name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return r.get(`SELECT id, name, samples, created_at, updated_at FROM profiles WHERE name = ?`, name)
}

func (r *ProfileRepository) get(query string, arg string) (*Profile, error) {
	p := &Profile{}
	err := r.db.QueryRow(query, arg).Scan(&p.ID, &p.Name, &p.Samples, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.Ranges, err = r.ranges(p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProfileRepository) ranges(profileID string) (map[finger.Channel]calibration.Range, error) {
	rows, err := r.db.Query(
		`SELECT channel, min_angle, max_angle, inverted FROM profile_ranges WHERE profile_id = ?`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranges := make(map[finger.Channel]calibration.Range)
	for rows.Next() {
		var name string
		var rg calibration.Range
		var inverted int
		if err := rows.Scan(&name, &rg.Min, &rg.Max, &inverted); err != nil {
			return nil, err
		}
		ch, err := finger.ParseChannel(name)
		if err != nil {
			return nil, err
		}
		rg.Inverted = inverted != 0
		ranges[ch] = rg
	}
	return ranges, rows.Err()
}

// List retrieves all profiles, newest first. Ranges are loaded for each.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(
		`SELECT id, name, samples, created_at, updated_at FROM profiles ORDER BY created_at DESC, name`,
	)
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Samples, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, p := range profiles {
		if p.Ranges, err = r.ranges(p.ID); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// Delete removes a profile and its ranges by ID.
func (r *ProfileRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
