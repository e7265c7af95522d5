package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Signs the tutor can ask for. id is the detector class id.
		`CREATE TABLE IF NOT EXISTS signs (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			instruction TEXT NOT NULL DEFAULT '',
			tip TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per completed sign.
		`CREATE TABLE IF NOT EXISTS completions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			sign_id INTEGER NOT NULL REFERENCES signs(id) ON DELETE CASCADE,
			attempts INTEGER NOT NULL,
			completed_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_completions_session_id ON completions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_completions_sign_id ON completions(sign_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
