package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	tables   map[string]bool
	failDDL  map[string]error
	checkErr error

	checks int
	execs  []string
}

func newFakeCatalog(existing ...string) *fakeCatalog {
	c := &fakeCatalog{tables: map[string]bool{}, failDDL: map[string]error{}}
	for _, t := range existing {
		c.tables[t] = true
	}
	return c
}

func (c *fakeCatalog) TableExists(_ context.Context, name string) (bool, error) {
	c.checks++
	if c.checkErr != nil {
		return false, c.checkErr
	}
	return c.tables[name], nil
}

// ExecDDL marks the table named in "CREATE TABLE IF NOT EXISTS <name>" as present.
func (c *fakeCatalog) ExecDDL(_ context.Context, ddl string) error {
	name := tableFromDDL(ddl)
	c.execs = append(c.execs, name)
	if err, ok := c.failDDL[name]; ok {
		return err
	}
	c.tables[name] = true
	return nil
}

func tableFromDDL(ddl string) string {
	const marker = "CREATE TABLE IF NOT EXISTS "
	i := strings.Index(ddl, marker)
	if i < 0 {
		return ""
	}
	rest := ddl[i+len(marker):]
	return strings.Fields(rest)[0]
}

func TestDefaultRegistry_IsValid(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Validate())

	for _, tbl := range reg {
		assert.Equal(t, tbl.Name, tableFromDDL(tbl.DDL), "DDL of %s creates another table", tbl.Name)
	}
	assert.Contains(t, reg.Names(), "xp_transactions")
	assert.Contains(t, reg.Names(), "user_badges")
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     Registry
		wantErr string
	}{
		{"empty name", Registry{{DDL: "x"}}, "has no name"},
		{"duplicate", Registry{{Name: "a", DDL: "x"}, {Name: "a", DDL: "x"}}, "registered twice"},
		{"no ddl", Registry{{Name: "a"}}, "has no DDL"},
		{"dependency later", Registry{{Name: "b", DDL: "x", DependsOn: []string{"a"}}, {Name: "a", DDL: "x"}}, "depends on"},
		{"unknown dependency", Registry{{Name: "b", DDL: "x", DependsOn: []string{"zzz"}}}, "depends on"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBadgeSeedSQL_EscapesQuotes(t *testing.T) {
	sql := badgeSeedSQL(nil)
	assert.Empty(t, sql)

	reg := DefaultRegistry()
	for _, tbl := range reg {
		if tbl.Name == "badges" {
			assert.Contains(t, tbl.DDL, "ON CONFLICT (code) DO NOTHING")
			assert.Contains(t, tbl.DDL, "'quiz_master'")
		}
	}
	assert.Equal(t, "'People''s Choice'", quoteLiteral("People's Choice"))
}

func TestReconcile_CreatesOnlyMissingTablesInOrder(t *testing.T) {
	cat := newFakeCatalog("users", "badges", "politicians")
	rec, err := NewReconciler(cat, DefaultRegistry(), nil)
	require.NoError(t, err)

	res, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())

	assert.ElementsMatch(t, []string{"users", "badges", "politicians"}, res.Present)
	assert.NotContains(t, cat.execs, "users")
	assert.Equal(t, res.Created, cat.execs)
	assert.Len(t, res.Created, len(DefaultRegistry())-3)

	// creation order respects dependencies
	pos := map[string]int{}
	for i, name := range cat.execs {
		pos[name] = i
	}
	assert.Less(t, pos["learning_modules"], pos["lessons"])
	assert.Less(t, pos["posts"], pos["comments"])
	assert.Less(t, pos["poll_options"], pos["poll_votes"])
}

func TestReconcile_IsIdempotent(t *testing.T) {
	cat := newFakeCatalog()
	rec, err := NewReconciler(cat, DefaultRegistry(), nil)
	require.NoError(t, err)

	first, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	require.True(t, first.OK())
	execsAfterFirst := len(cat.execs)

	second, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.True(t, second.OK())
	assert.Empty(t, second.Created)
	assert.Len(t, second.Present, len(DefaultRegistry()))
	assert.Equal(t, execsAfterFirst, len(cat.execs), "second run executed DDL")
}

func TestReconcile_FailureIsReportedAndOthersContinue(t *testing.T) {
	cat := newFakeCatalog()
	cat.failDDL["posts"] = errors.New("permission denied for schema public")
	rec, err := NewReconciler(cat, DefaultRegistry(), nil)
	require.NoError(t, err)

	res, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.False(t, res.OK())
	require.Error(t, res.Err())
	assert.Contains(t, res.Err().Error(), "posts")

	failed := map[string]string{}
	for _, f := range res.Failed {
		failed[f.Table] = f.Reason
	}
	assert.Equal(t, "permission denied for schema public", failed["posts"])
	assert.Contains(t, failed["comments"], "dependency posts")
	assert.Contains(t, failed["post_likes"], "dependency posts")
	assert.Len(t, res.Failed, 3)

	// dependents of a failed table never reach the database
	assert.NotContains(t, cat.execs, "comments")
	assert.Contains(t, res.Created, "memories")
	assert.Contains(t, res.Created, "challenge_completions")
}

func TestReconcile_ExistenceCheckErrorAborts(t *testing.T) {
	cat := newFakeCatalog()
	cat.checkErr = errors.New("connection refused")
	rec, err := NewReconciler(cat, DefaultRegistry(), nil)
	require.NoError(t, err)

	res, err := rec.Reconcile(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Empty(t, cat.execs)
	assert.Equal(t, 1, cat.checks)
}

func TestNewReconciler_RejectsInvalidRegistry(t *testing.T) {
	_, err := NewReconciler(newFakeCatalog(), Registry{{Name: "a"}}, nil)
	assert.Error(t, err)
}
