package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/deemkeen/fedbridge/domain"
	"github.com/deemkeen/fedbridge/util"
	"github.com/google/uuid"
	"log"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
	"time"
)

// DB is the database struct.
type DB struct {
	db *sql.DB
}

var (
	dbInstance *DB
	dbOnce     sync.Once
)

const (
	//Users: one row per bridged web domain, keys generated on first use
	sqlCreateUsersTable = `CREATE TABLE IF NOT EXISTS users(
                        domain varchar(255) NOT NULL PRIMARY KEY,
                        public_key_pem text NOT NULL,
                        private_key_pem text NOT NULL,
                        created_at timestamp default current_timestamp
                        )`
	sqlInsertUser         = `INSERT INTO users(domain, public_key_pem, private_key_pem, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectUserByDomain = `SELECT domain, public_key_pem, private_key_pem, created_at FROM users WHERE domain = ?`

	//Followers: composite key "dest src", soft-deactivated, never deleted
	sqlCreateFollowersTable = `CREATE TABLE IF NOT EXISTS followers(
                        id varchar(511) NOT NULL PRIMARY KEY,
                        dest varchar(255) NOT NULL,
                        src varchar(255) NOT NULL,
                        status varchar(16) NOT NULL DEFAULT 'active',
                        last_follow text,
                        created_at timestamp default current_timestamp,
                        updated_at timestamp default current_timestamp
                        )`
	sqlUpsertFollower = `INSERT INTO followers(id, dest, src, status, last_follow, created_at, updated_at)
                                                            VALUES (?, ?, ?, ?, ?, ?, ?)
                                                            ON CONFLICT(id) DO UPDATE SET
                                                            status = excluded.status,
                                                            last_follow = excluded.last_follow,
                                                            updated_at = excluded.updated_at`
	sqlDeactivateFollower    = `UPDATE followers SET status = 'inactive', updated_at = ? WHERE id = ?`
	sqlSelectFollowerById    = `SELECT dest, src, status, last_follow, created_at, updated_at FROM followers WHERE id = ?`
	sqlSelectFollowersByDest = `SELECT dest, src, status, last_follow, created_at, updated_at FROM followers
                                                            WHERE dest = ?
                                                            ORDER BY updated_at DESC`
	sqlSelectActiveSrcsByDest = `SELECT DISTINCT src FROM followers WHERE dest = ? AND status = 'active'`
	sqlSelectRecentFollowers  = `SELECT dest, src, status, last_follow, created_at, updated_at FROM followers
                                                            ORDER BY updated_at DESC LIMIT ?`

	//Activities: append-only log of processed activities
	sqlCreateActivitiesTable = `CREATE TABLE IF NOT EXISTS activities(
                        id uuid NOT NULL PRIMARY KEY,
                        direction varchar(8) NOT NULL,
                        protocol varchar(32) NOT NULL,
                        source text NOT NULL,
                        target text,
                        domains text NOT NULL,
                        body text NOT NULL,
                        status varchar(16) NOT NULL,
                        created_at timestamp default current_timestamp
                        )`
	sqlInsertActivity          = `INSERT INTO activities(id, direction, protocol, source, target, domains, body, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectRecentActivities  = `SELECT id, direction, protocol, source, target, domains, body, status, created_at FROM activities
                                                            ORDER BY created_at DESC LIMIT ?`
	sqlSelectActivitiesByDomain = `SELECT id, direction, protocol, source, target, domains, body, status, created_at FROM activities
                                                            WHERE domains LIKE '%"' || ? || '"%'
                                                            ORDER BY created_at DESC LIMIT ?`
)

// GetOrCreateUser returns the user row for a bridged domain, generating
// and persisting a fresh keypair inside one transaction when the domain
// is seen for the first time. Concurrent first contacts race on the
// primary key; the loser of the race re-reads the winner's row, so both
// callers end up with the same key material.
func (db *DB) GetOrCreateUser(userDomain string) (error, *domain.User) {
	err, found := db.ReadUser(userDomain)
	if err == nil && found != nil {
		return nil, found
	}
	if err != nil && err != sql.ErrNoRows {
		return err, nil
	}

	log.Printf("No key material for %s found, generating keypair..", userDomain)
	keypair := util.GeneratePemKeypair()

	err = db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertUser, userDomain, keypair.Public, keypair.Private, time.Now())
		return err
	})
	if err != nil {
		// Lost the race against a concurrent first contact; the row
		// exists now, fall through to the read below.
		serr, ok := err.(*sqlite.Error)
		if !ok || (serr.Code() != sqlitelib.SQLITE_CONSTRAINT &&
			serr.Code() != sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY &&
			serr.Code() != sqlitelib.SQLITE_CONSTRAINT_UNIQUE) {
			return err, nil
		}
	}

	return db.ReadUser(userDomain)
}

func (db *DB) ReadUser(userDomain string) (error, *domain.User) {
	row := db.db.QueryRow(sqlSelectUserByDomain, userDomain)
	var tempUser domain.User
	err := row.Scan(&tempUser.Domain, &tempUser.PublicKeyPem, &tempUser.PrivateKeyPem, &tempUser.CreatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &tempUser
}

// GetOrCreateFollower upserts the relationship (dest, src). A row that
// was soft-deactivated by an earlier Undo comes back active, and
// last_follow always reflects the most recent Follow activity.
func (db *DB) GetOrCreateFollower(dest string, src string, lastFollow string) (error, *domain.Follower) {
	now := time.Now()
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertFollower,
			domain.FollowerKey(dest, src),
			dest,
			src,
			domain.FollowerActive,
			lastFollow,
			now,
			now,
		)
		return err
	})
	if err != nil {
		return err, nil
	}
	return db.ReadFollower(dest, src)
}

// DeactivateFollower marks the relationship inactive. Returns whether a
// row was actually updated; an Undo for an unknown relationship is a
// no-op.
func (db *DB) DeactivateFollower(dest string, src string) (error, bool) {
	var updated bool
	err := db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlDeactivateFollower, time.Now(), domain.FollowerKey(dest, src))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		updated = n > 0
		return nil
	})
	return err, updated
}

func (db *DB) ReadFollower(dest string, src string) (error, *domain.Follower) {
	row := db.db.QueryRow(sqlSelectFollowerById, domain.FollowerKey(dest, src))
	var tempFollower domain.Follower
	err := row.Scan(&tempFollower.Dest, &tempFollower.Src, &tempFollower.Status, &tempFollower.LastFollow, &tempFollower.CreatedAt, &tempFollower.UpdatedAt)
	if err == sql.ErrNoRows {
		return err, nil
	}
	if err != nil {
		return err, nil
	}
	return nil, &tempFollower
}

func (db *DB) ReadFollowersByDest(dest string) (error, *[]domain.Follower) {
	rows, err := db.db.Query(sqlSelectFollowersByDest, dest)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var followers []domain.Follower

	for rows.Next() {
		var follower domain.Follower
		if err := rows.Scan(&follower.Dest, &follower.Src, &follower.Status, &follower.LastFollow, &follower.CreatedAt, &follower.UpdatedAt); err != nil {
			return err, &followers
		}
		followers = append(followers, follower)
	}
	if err = rows.Err(); err != nil {
		return err, &followers
	}

	return nil, &followers
}

func (db *DB) ReadRecentFollowers(limit int) (error, *[]domain.Follower) {
	rows, err := db.db.Query(sqlSelectRecentFollowers, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var followers []domain.Follower

	for rows.Next() {
		var follower domain.Follower
		if err := rows.Scan(&follower.Dest, &follower.Src, &follower.Status, &follower.LastFollow, &follower.CreatedAt, &follower.UpdatedAt); err != nil {
			return err, &followers
		}
		followers = append(followers, follower)
	}
	if err = rows.Err(); err != nil {
		return err, &followers
	}

	return nil, &followers
}

// ActiveFollowerSrcsByDest returns the distinct bridged domains that
// actively follow the given remote actor id. This is the fan-out list
// for inbound Create/Announce activities.
func (db *DB) ActiveFollowerSrcsByDest(dest string) (error, []string) {
	rows, err := db.db.Query(sqlSelectActiveSrcsByDest, dest)
	if err != nil {
		return err, nil
	}
	defer rows.Close()

	var srcs []string

	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return err, srcs
		}
		srcs = append(srcs, src)
	}
	if err = rows.Err(); err != nil {
		return err, srcs
	}

	return nil, srcs
}

func (db *DB) CreateActivity(activity *domain.Activity) error {
	domains, err := json.Marshal(activity.Domains)
	if err != nil {
		return err
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActivity,
			activity.Id.String(),
			activity.Direction,
			activity.Protocol,
			activity.Source,
			activity.Target,
			string(domains),
			activity.Body,
			activity.Status,
			activity.CreatedAt,
		)
		return err
	})
}

func (db *DB) ReadRecentActivities(limit int) (error, *[]domain.Activity) {
	rows, err := db.db.Query(sqlSelectRecentActivities, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()
	return scanActivities(rows)
}

func (db *DB) ReadActivitiesByDomain(userDomain string, limit int) (error, *[]domain.Activity) {
	rows, err := db.db.Query(sqlSelectActivitiesByDomain, userDomain, limit)
	if err != nil {
		return err, nil
	}
	defer rows.Close()
	return scanActivities(rows)
}

func scanActivities(rows *sql.Rows) (error, *[]domain.Activity) {
	var activities []domain.Activity

	for rows.Next() {
		var activity domain.Activity
		var idStr, domainsJSON string
		if err := rows.Scan(&idStr, &activity.Direction, &activity.Protocol, &activity.Source, &activity.Target, &domainsJSON, &activity.Body, &activity.Status, &activity.CreatedAt); err != nil {
			return err, &activities
		}
		activity.Id, _ = uuid.Parse(idStr)
		if err := json.Unmarshal([]byte(domainsJSON), &activity.Domains); err != nil {
			return err, &activities
		}
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return err, &activities
	}

	return nil, &activities
}

func GetDB() *DB {
	dbOnce.Do(func() {
		instance, err := NewDB(util.ResolveFilePath("database.db"))
		if err != nil {
			panic(err)
		}
		dbInstance = instance
	})

	return dbInstance
}

// NewDB opens a database at the given path and sets up the schema.
// Tests use it with ":memory:"; production goes through GetDB.
func NewDB(path string) (*DB, error) {
	// Open database connection
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if path == ":memory:" {
		// A pooled in-memory sqlite would open one empty database per
		// connection; keep it on a single connection instead.
		db.SetMaxOpenConns(1)
	}

	// Try to enable WAL2 mode, fall back to WAL if not supported
	var journalMode string
	err = db.QueryRow("PRAGMA journal_mode=WAL2").Scan(&journalMode)
	if err != nil || journalMode == "delete" {
		// WAL2 not supported, try regular WAL
		err = db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode)
		if err != nil {
			log.Printf("Warning: Failed to enable WAL mode: %v", err)
		} else {
			log.Printf("Database journal mode: %s (WAL2 not supported, using WAL)", journalMode)
		}
	} else {
		log.Printf("Database journal mode: %s", journalMode)
	}

	// Optimize PRAGMAs for concurrent inbox traffic
	db.Exec("PRAGMA synchronous = NORMAL")
	db.Exec("PRAGMA cache_size = -64000")
	db.Exec("PRAGMA temp_store = MEMORY")
	db.Exec("PRAGMA busy_timeout = 5000")
	db.Exec("PRAGMA foreign_keys = ON")

	instance := &DB{db: db}

	if err := instance.CreateDB(); err != nil {
		return nil, err
	}

	return instance, nil
}

// CreateDB creates the database.
func (db *DB) CreateDB() error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		err := db.createUsersTable(tx)
		if err != nil {
			return err
		}

		err2 := db.createFollowersTable(tx)
		if err2 != nil {
			return err2
		}

		err3 := db.createActivitiesTable(tx)
		if err3 != nil {
			return err3
		}

		return nil
	})
}

func (db *DB) createUsersTable(tx *sql.Tx) error {
	_, err := tx.Exec(sqlCreateUsersTable)
	return err
}

func (db *DB) createFollowersTable(tx *sql.Tx) error {
	_, err := tx.Exec(sqlCreateFollowersTable)
	return err
}

func (db *DB) createActivitiesTable(tx *sql.Tx) error {
	_, err := tx.Exec(sqlCreateActivitiesTable)
	return err
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			serr, ok := err.(*sqlite.Error)
			if ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			log.Printf("error in transaction: %s", err)
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return err
		}
		break
	}
	return nil
}
