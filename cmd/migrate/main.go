// cmd/migrate/main.go
// Copies users, teams, matches, odds and ratings from the legacy MySQL
// database into PostgreSQL.
//
// Usage:
//
//	MYSQL_DSN="user:pass@tcp(host:3306)/sports?parseTime=true" \
//	DB_PASS="pgpass" \
//	go run ./cmd/migrate
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/config"
	bundb "github.com/padraicbc/nflodds/db"
	"github.com/padraicbc/nflodds/ingest"
	applog "github.com/padraicbc/nflodds/logger"
	"github.com/padraicbc/nflodds/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	cfg := config.Load()
	log, err := applog.New("migrate", cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	// --- MySQL ---
	if cfg.MySQLDSN == "" {
		log.Fatal("MYSQL_DSN required, e.g.: user:pass@tcp(host:3306)/sports?parseTime=true")
	}
	myDB, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal("open mysql", zap.Error(err))
	}
	defer myDB.Close()
	myDB.SetMaxOpenConns(4)
	if err := myDB.PingContext(ctx); err != nil {
		log.Fatal("ping mysql", zap.Error(err))
	}
	log.Info("connected to MySQL")

	// --- PostgreSQL ---
	pgDB, err := bundb.Setup(ctx, cfg)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer pgDB.Close()
	log.Info("connected to PostgreSQL")

	if err := bundb.CreateTables(ctx, pgDB, log); err != nil {
		log.Fatal("create tables", zap.Error(err))
	}

	// Parents before children. Rows hitting a unique constraint are skipped.
	steps := []struct {
		name     string
		optional bool
		fn       func() (int, int, error)
	}{
		{"users", false, func() (int, int, error) { return migrateUsers(ctx, myDB, pgDB) }},
		{"sports", false, func() (int, int, error) { return migrateSports(ctx, myDB, pgDB) }},
		{"sports_teams", false, func() (int, int, error) { return migrateTeams(ctx, myDB, pgDB) }},
		{"matches", false, func() (int, int, error) { return migrateMatches(ctx, myDB, pgDB) }},
		{"betting_odds", false, func() (int, int, error) { return migrateOdds(ctx, myDB, pgDB) }},
		{"team_ratings", true, func() (int, int, error) { return migrateRatings(ctx, myDB, pgDB) }},
	}

	for _, s := range steps {
		n, dropped, err := s.fn()
		if s.optional && missingTable(err) {
			log.Warn("legacy table absent, skipped", zap.String("table", s.name))
			continue
		}
		if err != nil {
			log.Fatal("migrate failed", zap.String("table", s.name), zap.Error(err))
		}
		log.Info("table migrated", zap.String("table", s.name), zap.Int("rows", n), zap.Int("dropped", dropped))
	}

	resetSequences(ctx, pgDB, log)
	log.Info("migration complete")
}

// --- helpers ---

// missingTable reports MySQL error 1146, table doesn't exist.
func missingTable(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1146
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}

// legacyPrice converts a float column to the stored decimal form. ok is false
// for prices the schema's check constraint would reject.
func legacyPrice(n sql.NullFloat64) (decimal.Decimal, bool) {
	if !n.Valid {
		return decimal.Decimal{}, false
	}
	d := decimal.NewFromFloat(n.Float64).Round(4)
	return d, d.GreaterThan(decimal.NewFromInt(1))
}

// bulkInsert inserts a batch, skipping rows that already exist (idempotent
// re-runs), and returns how many rows were actually written.
func bulkInsert[T any](ctx context.Context, pgDB *bun.DB, rows []T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := pgDB.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// copyRows runs query on MySQL and inserts whatever scan returns in batches.
// total counts rows written; rows scan reports as !ok are counted as dropped.
func copyRows[T any](ctx context.Context, myDB *sql.DB, pgDB *bun.DB, query string,
	scan func(*sql.Rows) (T, bool, error)) (total, dropped int, err error) {

	rows, err := myDB.QueryContext(ctx, query)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	batch := make([]T, 0, batchSize)
	for rows.Next() {
		r, ok, err := scan(rows)
		if err != nil {
			return total, dropped, err
		}
		if !ok {
			dropped++
			continue
		}
		batch = append(batch, r)
		if len(batch) >= batchSize {
			n, err := bulkInsert(ctx, pgDB, batch)
			total += n
			if err != nil {
				return total, dropped, err
			}
			batch = batch[:0]
		}
	}
	if err := rows.Err(); err != nil {
		return total, dropped, err
	}
	n, err := bulkInsert(ctx, pgDB, batch)
	return total + n, dropped, err
}

// --- per-table migrations ---

func migrateUsers(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT user_id, name, email, role, password_hash FROM users",
		func(rows *sql.Rows) (models.User, bool, error) {
			var (
				u    models.User
				role sql.NullString
				hash sql.NullString
			)
			if err := rows.Scan(&u.UserID, &u.Name, &u.Email, &role, &hash); err != nil {
				return u, false, err
			}
			// Accounts without a password hash cannot log in; leave them behind.
			if !hash.Valid || hash.String == "" {
				return u, false, nil
			}
			u.Email = strings.ToLower(strings.TrimSpace(u.Email))
			u.PasswordHash = hash.String
			u.Role = models.RoleUser
			if role.Valid && role.String != "" {
				u.Role = role.String
			}
			return u, true, nil
		})
}

func migrateSports(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT sport_id, sport_name FROM sports",
		func(rows *sql.Rows) (models.Sport, bool, error) {
			var s models.Sport
			err := rows.Scan(&s.SportID, &s.SportName)
			return s, err == nil, err
		})
}

func migrateTeams(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT sports_teamsid, sport_id, team_name FROM sports_teams",
		func(rows *sql.Rows) (models.SportsTeam, bool, error) {
			var (
				t       models.SportsTeam
				sportID sql.NullInt64
			)
			if err := rows.Scan(&t.TeamID, &sportID, &t.TeamName); err != nil {
				return t, false, err
			}
			t.SportID = sportID.Int64
			return t, sportID.Valid, nil
		})
}

func migrateMatches(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT match_id, sport_id, team1_id, team2_id, match_date, location, final_score
		 FROM matches`,
		func(rows *sql.Rows) (models.Match, bool, error) {
			var (
				m            models.Match
				sportID      sql.NullInt64
				team1, team2 sql.NullInt64
				date         sql.NullTime
				location     sql.NullString
				finalScore   sql.NullString
			)
			if err := rows.Scan(&m.MatchID, &sportID, &team1, &team2, &date, &location, &finalScore); err != nil {
				return m, false, err
			}
			if !sportID.Valid || !team1.Valid || !team2.Valid || !date.Valid || team1.Int64 == team2.Int64 {
				return m, false, nil
			}
			m.SportID, m.Team1ID, m.Team2ID = sportID.Int64, team1.Int64, team2.Int64
			m.MatchDate = date.Time.UTC()
			m.Location = models.DefaultLocation
			if location.Valid && location.String != "" {
				m.Location = location.String
			}
			m.FinalScore = nullStr(finalScore)
			return m, true, nil
		})
}

func migrateOdds(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		`SELECT odds_id, match_id, sports_books, odds_team1, odds_team2, updated_at
		 FROM betting_odds`,
		func(rows *sql.Rows) (models.BettingOdds, bool, error) {
			var (
				o         models.BettingOdds
				matchID   sql.NullInt64
				book      sql.NullString
				p1, p2    sql.NullFloat64
				updatedAt sql.NullTime
			)
			if err := rows.Scan(&o.OddsID, &matchID, &book, &p1, &p2, &updatedAt); err != nil {
				return o, false, err
			}
			var ok1, ok2 bool
			o.OddsTeam1, ok1 = legacyPrice(p1)
			o.OddsTeam2, ok2 = legacyPrice(p2)
			if !matchID.Valid || !ok1 || !ok2 {
				return o, false, nil
			}
			o.MatchID = matchID.Int64
			o.SportsBooks = ingest.UnknownBookmaker
			if book.Valid && book.String != "" {
				o.SportsBooks = book.String
			}
			o.UpdatedAt = time.Now().UTC()
			if updatedAt.Valid {
				o.UpdatedAt = updatedAt.Time.UTC()
			}
			return o, true, nil
		})
}

func migrateRatings(ctx context.Context, myDB *sql.DB, pgDB *bun.DB) (int, int, error) {
	return copyRows(ctx, myDB, pgDB,
		"SELECT rating_id, team_name, offense, defense, overall FROM team_ratings",
		func(rows *sql.Rows) (models.TeamRating, bool, error) {
			var r models.TeamRating
			err := rows.Scan(&r.RatingID, &r.TeamName, &r.Offense, &r.Defense, &r.Overall)
			return r, err == nil, err
		})
}

// resetSequences advances each PG sequence to MAX(id) so new inserts don't conflict.
func resetSequences(ctx context.Context, pgDB *bun.DB, log *zap.Logger) {
	seqs := []struct{ table, col string }{
		{"users", "user_id"},
		{"sports", "sport_id"},
		{"sports_teams", "sports_teamsid"},
		{"matches", "match_id"},
		{"betting_odds", "odds_id"},
		{"team_ratings", "rating_id"},
	}
	for _, s := range seqs {
		q := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 1))",
			s.table, s.col, s.col, s.table,
		)
		if _, err := pgDB.ExecContext(ctx, q); err != nil {
			log.Warn("reset sequence failed", zap.String("table", s.table), zap.Error(err))
		}
	}
	log.Info("sequences reset")
}
