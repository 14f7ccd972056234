package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL, verifies the connection and ensures the
// application schema exists.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// ensureSchema creates the application tables when they do not exist
// yet.  Statements are idempotent so repeated startups are safe.
// Seats and bookings carry a version column; it is the basis of the
// store's conditional writes and must never be updated except through
// `version = version + 1` guarded by `version = ?`.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name          VARCHAR(255)    NOT NULL,
			email         VARCHAR(255)    NOT NULL,
			password_hash VARCHAR(255)    NOT NULL,
			created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS movies (
			id               BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			title            VARCHAR(255)    NOT NULL,
			description      TEXT            NULL,
			duration_minutes INT UNSIGNED    NOT NULL,
			genre            VARCHAR(64)     NOT NULL,
			language         VARCHAR(64)     NOT NULL,
			release_date     DATE            NOT NULL,
			ticket_price     DOUBLE          NOT NULL,
			created_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS shows (
			id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			movie_id      BIGINT UNSIGNED NOT NULL,
			show_time     DATETIME        NOT NULL,
			screen_number VARCHAR(32)     NOT NULL,
			total_seats   INT UNSIGNED    NOT NULL,
			created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			KEY idx_shows_movie (movie_id),
			CONSTRAINT fk_shows_movie FOREIGN KEY (movie_id) REFERENCES movies (id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS seats (
			id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			show_id     BIGINT UNSIGNED NOT NULL,
			seat_number VARCHAR(16)     NOT NULL,
			status      ENUM('AVAILABLE','BOOKED','RESERVED') NOT NULL DEFAULT 'AVAILABLE',
			version     BIGINT UNSIGNED NOT NULL DEFAULT 1,
			UNIQUE KEY uq_seats_show_number (show_id, seat_number),
			CONSTRAINT fk_seats_show FOREIGN KEY (show_id) REFERENCES shows (id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			user_id      BIGINT UNSIGNED NOT NULL,
			show_id      BIGINT UNSIGNED NOT NULL,
			total_amount DOUBLE          NOT NULL,
			status       ENUM('CONFIRMED','CANCELLED','EXPIRED') NOT NULL DEFAULT 'CONFIRMED',
			booking_time DATETIME        NOT NULL,
			version      BIGINT UNSIGNED NOT NULL DEFAULT 1,
			KEY idx_bookings_user (user_id),
			KEY idx_bookings_show (show_id),
			CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users (id),
			CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows (id)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS booking_seats (
			booking_id BIGINT UNSIGNED NOT NULL,
			seat_id    BIGINT UNSIGNED NOT NULL,
			PRIMARY KEY (booking_id, seat_id),
			CONSTRAINT fk_bseats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id),
			CONSTRAINT fk_bseats_seat FOREIGN KEY (seat_id) REFERENCES seats (id)
		) ENGINE=InnoDB`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
