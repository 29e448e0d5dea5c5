package db

import (
	"errors"

	"docsign/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
	pgCheckViolation      = "23514"
)

// translateError maps driver errors onto domain sentinels. Malformed ids
// are reported as not found, matching a lookup that simply misses.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return domain.ErrConflict
		case pgInvalidText:
			return domain.ErrNotFound
		case pgCheckViolation:
			return domain.ErrInvalidArgument
		}
	}
	return err
}
