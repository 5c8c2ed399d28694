package dao

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/lk2023060901/arise/pkg/database/postgres"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema 建表，语句均为 IF NOT EXISTS
func EnsureSchema(ctx context.Context, q postgres.Querier) error {
	if _, err := postgres.Exec(ctx, q, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
