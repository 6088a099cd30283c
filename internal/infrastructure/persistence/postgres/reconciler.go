package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEMA RECONCILER
// Creates missing tables from the registry. Existing tables are never
// altered; there is no column diffing.
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is what the reconciler needs from the database.
type Catalog interface {
	TableExists(ctx context.Context, name string) (bool, error)
	ExecDDL(ctx context.Context, ddl string) error
}

// TableFailure records why a table could not be created.
type TableFailure struct {
	Table  string `json:"table"`
	Reason string `json:"reason"`
}

// ReconcileResult partitions the registry after a run.
type ReconcileResult struct {
	Present  []string       `json:"present"`
	Created  []string       `json:"created"`
	Failed   []TableFailure `json:"failed"`
	Duration time.Duration  `json:"duration"`
}

// OK reports whether every expected table now exists.
func (r *ReconcileResult) OK() bool {
	return r != nil && len(r.Failed) == 0
}

// Err summarises failed tables, nil when there are none.
func (r *ReconcileResult) Err() error {
	if r.OK() {
		return nil
	}
	parts := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		parts[i] = f.Table + ": " + f.Reason
	}
	return fmt.Errorf("schema: %d table(s) failed: %s", len(r.Failed), strings.Join(parts, "; "))
}

// Reconciler brings the database up to the registry.
type Reconciler struct {
	catalog  Catalog
	registry Registry
	logger   *slog.Logger
}

// NewReconciler validates the registry and returns a reconciler.
func NewReconciler(catalog Catalog, registry Registry, logger *slog.Logger) (*Reconciler, error) {
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		catalog:  catalog,
		registry: registry,
		logger:   logger.With("component", "schema_reconciler"),
	}, nil
}

// Reconcile checks every table once and runs DDL for the missing ones, in
// registry order. A DDL failure does not stop the run; tables whose
// dependency failed are reported failed without running their DDL.
// The returned error is reserved for existence checks that could not run.
func (r *Reconciler) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	start := time.Now()
	result := &ReconcileResult{}

	var missing []Table
	for _, t := range r.registry {
		exists, err := r.catalog.TableExists(ctx, t.Name)
		if err != nil {
			return nil, fmt.Errorf("schema: check table %s: %w", t.Name, err)
		}
		if exists {
			result.Present = append(result.Present, t.Name)
		} else {
			missing = append(missing, t)
		}
	}

	if len(missing) == 0 {
		result.Duration = time.Since(start)
		r.logger.Info("schema up to date", "tables", len(result.Present))
		return result, nil
	}

	failed := make(map[string]bool)
	for _, t := range missing {
		if dep := firstFailed(t.DependsOn, failed); dep != "" {
			failed[t.Name] = true
			result.Failed = append(result.Failed, TableFailure{
				Table:  t.Name,
				Reason: "dependency " + dep + " was not created",
			})
			r.logger.Error("skipping table, dependency failed", "table", t.Name, "dependency", dep)
			continue
		}

		if err := r.catalog.ExecDDL(ctx, t.DDL); err != nil {
			failed[t.Name] = true
			result.Failed = append(result.Failed, TableFailure{Table: t.Name, Reason: err.Error()})
			r.logger.Error("failed to create table", "table", t.Name, "error", err)
			continue
		}

		result.Created = append(result.Created, t.Name)
		r.logger.Info("created table", "table", t.Name)
	}

	result.Duration = time.Since(start)
	r.logger.Info("schema reconciled",
		"present", len(result.Present),
		"created", len(result.Created),
		"failed", len(result.Failed),
		"duration", result.Duration,
	)
	return result, nil
}

func firstFailed(deps []string, failed map[string]bool) string {
	for _, d := range deps {
		if failed[d] {
			return d
		}
	}
	return ""
}

// ─────────────────────────────────────────────────────────────────────────────
// PostgreSQL catalog
// ─────────────────────────────────────────────────────────────────────────────

// PGCatalog answers table existence from information_schema in the current
// schema.
type PGCatalog struct {
	conn *Connection
}

// NewPGCatalog creates a catalog over conn.
func NewPGCatalog(conn *Connection) *PGCatalog {
	return &PGCatalog{conn: conn}
}

// TableExists implements Catalog.
func (c *PGCatalog) TableExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := c.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`, name).Scan(&exists)
	return exists, err
}

// ExecDDL implements Catalog. The DDL runs without arguments so that
// multi-statement scripts go through the simple protocol.
func (c *PGCatalog) ExecDDL(ctx context.Context, ddl string) error {
	_, err := c.conn.Exec(ctx, ddl)
	return err
}
