package repository

import "github.com/Rileydk/Pomodoro/internal/storage"

var ErrNotFound = storage.ErrNotFound

type scanner interface {
	Scan(dest ...interface{}) error
}
