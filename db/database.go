package db

import (
	"database/sql"
	"fmt"
	"log"

	"Playly/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createUsersTable(); err != nil {
		return err
	}
	if err := createSongsTable(); err != nil {
		return err
	}
	if err := createPlaylistTables(); err != nil {
		return err
	}
	log.Println("Database initialization completed.")
	return nil
}

func createUsersTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INT AUTO_INCREMENT PRIMARY KEY,
		username VARCHAR(100) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func createSongsTable() error {
	// audio_url stays NULL while an ingestion is in flight or has failed;
	// status tracks the same lifecycle explicitly.
	query := `
	CREATE TABLE IF NOT EXISTS songs (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		source VARCHAR(255) NOT NULL,
		audio_url VARCHAR(767),
		cover_url VARCHAR(767),
		title VARCHAR(255) NOT NULL DEFAULT 'Unknown Title',
		artist VARCHAR(255) NOT NULL DEFAULT 'Unknown Artist',
		album VARCHAR(255) NOT NULL DEFAULT 'Unknown Album',
		genre VARCHAR(255) NOT NULL DEFAULT 'Unknown Genre',
		duration FLOAT NOT NULL DEFAULT 0,
		play_count INT NOT NULL DEFAULT 0,
		download_count INT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_songs FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		INDEX idx_songs_play_count (play_count)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create songs table: %w", err)
	}
	return nil
}

func createPlaylistTables() error {
	playlists := `
	CREATE TABLE IF NOT EXISTS playlists (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT fk_user_playlists FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		INDEX idx_playlists_user (user_id)
	);
	`
	if _, err := DB.Exec(playlists); err != nil {
		return fmt.Errorf("failed to create playlists table: %w", err)
	}

	// song_id intentionally has no foreign key to songs: playlist membership
	// is a soft reference and dangling ids are dropped at resolution time.
	// The unique key is what makes membership toggles race-free.
	members := `
	CREATE TABLE IF NOT EXISTS playlist_songs (
		id INT AUTO_INCREMENT PRIMARY KEY,
		playlist_id INT NOT NULL,
		song_id INT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT fk_playlist_songs FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		CONSTRAINT uq_playlist_song UNIQUE (playlist_id, song_id)
	);
	`
	if _, err := DB.Exec(members); err != nil {
		return fmt.Errorf("failed to create playlist_songs table: %w", err)
	}
	return nil
}
