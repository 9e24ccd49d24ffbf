//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/delonixservices/crm/internal/domain"
	mysqlrepo "github.com/delonixservices/crm/internal/storage/mysql"
)

// ---------- small helpers ----------
func pstr(s string) *string { return &s }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=$PWD/migrations)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}

	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestRepo_MySQL_LedgerRoundTrip(t *testing.T) {
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}

	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=proposals",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "proposals")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

	// Arrange
	for i, name := range []string{"first.pdf", "second.pdf"} {
		err := repo.RecordDocument(ctx, domain.DocumentRecord{
			ID:         fmt.Sprintf("00000000-0000-0000-0000-00000000000%d", i),
			ProposalID: "p1",
			Filename:   name,
			SHA256:     fmt.Sprintf("%064d", i),
			SizeBytes:  1024 * (i + 1),
			Pages:      3,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordDocument: %v", err)
		}
	}
	if err := repo.RecordDocument(ctx, domain.DocumentRecord{
		ID: "00000000-0000-0000-0000-000000000009", ProposalID: "other", Filename: "x.pdf",
		SHA256: fmt.Sprintf("%064d", 9), CreatedAt: base,
	}); err != nil {
		t.Fatalf("RecordDocument other: %v", err)
	}
	if err := repo.RecordDispatch(ctx, domain.DispatchRecord{
		ID: "d1", ProposalID: "p1", Recipient: "a@b.c", Status: domain.DispatchSent, CreatedAt: base,
	}); err != nil {
		t.Fatalf("RecordDispatch: %v", err)
	}
	if err := repo.RecordDispatch(ctx, domain.DispatchRecord{
		ID: "d2", ProposalID: "p1", Recipient: "a@b.c", Status: domain.DispatchFailed,
		Error: pstr("bad status 500"), CreatedAt: base.Add(time.Minute),
	}); err != nil {
		t.Fatalf("RecordDispatch: %v", err)
	}

	// Assert
	page, err := repo.ListDocuments(ctx, "p1", 10)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(page.Documents) != 2 || page.Documents[0].Filename != "second.pdf" || page.Documents[0].SizeBytes != 2048 {
		t.Fatalf("unexpected documents: %+v", page.Documents)
	}
	if !page.Documents[1].CreatedAt.Equal(base) {
		t.Fatalf("created_at must round-trip, got %v", page.Documents[1].CreatedAt)
	}
	if len(page.Dispatches) != 2 {
		t.Fatalf("unexpected dispatches: %+v", page.Dispatches)
	}
	failed, sent := page.Dispatches[0], page.Dispatches[1]
	if failed.Status != domain.DispatchFailed || failed.Error == nil || *failed.Error != "bad status 500" {
		t.Fatalf("unexpected failed dispatch: %+v", failed)
	}
	if sent.Error != nil {
		t.Fatalf("sent dispatch must have no error: %+v", sent)
	}

	limited, err := repo.ListDocuments(ctx, "p1", 1)
	if err != nil || len(limited.Documents) != 1 || len(limited.Dispatches) != 1 {
		t.Fatalf("limit not applied: %+v %v", limited, err)
	}
}
