package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Calibration profiles, one per rig or user
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Learned raw-angle range of each channel in a profile
		`CREATE TABLE IF NOT EXISTS profile_ranges (
			profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			channel TEXT NOT NULL,
			min_angle REAL NOT NULL,
			max_angle REAL NOT NULL,
			inverted INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (profile_id, channel)
		)`,

		// Application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profile_ranges_profile_id ON profile_ranges(profile_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
