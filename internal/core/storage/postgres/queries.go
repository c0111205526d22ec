package postgres

// SQL for the counter, statistics and sounds tables.

const (
	queryTotal = `SELECT total FROM counter WHERE id = 1`

	queryAllStatistics = `SELECT date, count FROM statistics ORDER BY date ASC`

	queryAllSounds = `
		SELECT id, filename, display_name, source, play_count
		FROM sounds
		ORDER BY id ASC
	`

	// queryInsertSound inserts a catalog row with the caller-assigned id.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) when the
	// filename is already taken.
	queryInsertSound = `
		INSERT INTO sounds (id, filename, display_name, source, play_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (filename) DO NOTHING
		RETURNING id
	`

	queryRenameSound = `
		UPDATE sounds
		SET filename = $2, display_name = $3, source = $4
		WHERE filename = $1
	`

	queryDeleteSound = `DELETE FROM sounds WHERE filename = $1`

	queryUpsertCounter = `
		INSERT INTO counter (id, total)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET total = EXCLUDED.total
	`

	queryUpsertStatistic = `
		INSERT INTO statistics (date, count)
		VALUES ($1, $2)
		ON CONFLICT (date) DO UPDATE SET count = EXCLUDED.count
	`

	queryUpdatePlayCount = `UPDATE sounds SET play_count = $2 WHERE id = $1`
)
