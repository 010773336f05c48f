package repository

import "errors"

var ErrNotFound = errors.New("record not found")

type scanner interface {
	Scan(dest ...interface{}) error
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
