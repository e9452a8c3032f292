package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/trackerr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func saveProject(t *testing.T, s *Store, name string) *record.Project {
	t.Helper()
	p := &record.Project{
		Name:       name,
		StartDate:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		TargetDate: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		Status:     record.ProjectActive,
	}
	if err := Save(s, record.Projects, p); err != nil {
		t.Fatalf("save project: %v", err)
	}
	return p
}

func TestSaveAssignsSequentialIDs(t *testing.T) {
	s := testStore(t)

	p1 := saveProject(t, s, "Residential Complex A")
	p2 := saveProject(t, s, "Commercial Building B")

	if p1.ID != "P001" {
		t.Errorf("first id = %q, want P001", p1.ID)
	}
	if p2.ID != "P002" {
		t.Errorf("second id = %q, want P002", p2.ID)
	}
	if p1.Rev != 1 || p2.Rev != 1 {
		t.Errorf("new rows should start at rev 1, got %d and %d", p1.Rev, p2.Rev)
	}
}

func TestUpdateLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	p := saveProject(t, s, "Residential Complex A")

	got, err := Get(s, record.Projects, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	got.Status = record.ProjectOnHold
	got.Name = "Residential Complex A (phase 2)"
	if err := Update(s, record.Projects, got.ID, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	again, err := Get(s, record.Projects, p.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Status != record.ProjectOnHold {
		t.Errorf("status = %q, want on_hold", again.Status)
	}
	if again.Name != "Residential Complex A (phase 2)" {
		t.Errorf("name = %q", again.Name)
	}
	if again.Rev != 2 {
		t.Errorf("rev = %d, want 2", again.Rev)
	}
}

func TestUpdateUnknownIDIsNotFound(t *testing.T) {
	s := testStore(t)
	saveProject(t, s, "Residential Complex A")

	p := &record.Project{Name: "ghost", Status: record.ProjectPlanning, Rev: 1}
	err := Update(s, record.Projects, "P999", p)
	if !trackerr.IsNotFound(err) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

func TestStaleRevisionConflicts(t *testing.T) {
	s := testStore(t)
	p := saveProject(t, s, "Residential Complex A")

	first, _ := Get(s, record.Projects, p.ID)
	second, _ := Get(s, record.Projects, p.ID)

	first.Status = record.ProjectCompleted
	if err := Update(s, record.Projects, p.ID, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.Status = record.ProjectOnHold
	err := Update(s, record.Projects, p.ID, second)
	if !trackerr.IsConflict(err) {
		t.Fatalf("second update should conflict, got %v", err)
	}

	// First writer's change survives.
	got, _ := Get(s, record.Projects, p.ID)
	if got.Status != record.ProjectCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
}

func TestSaveDuplicateIDRejected(t *testing.T) {
	s := testStore(t)
	p := saveProject(t, s, "Residential Complex A")

	dup := &record.Project{ID: p.ID, Name: "copy", Status: record.ProjectPlanning}
	if err := Save(s, record.Projects, dup); !trackerr.IsValidation(err) {
		t.Fatalf("duplicate id should be rejected, got %v", err)
	}
}

func TestLoadMissingFileIsEmptyTable(t *testing.T) {
	s := testStore(t)
	rows, err := Load(s, record.Tasks)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("want empty table, got %d rows", len(rows))
	}
}

func TestLoadBadHeaderIsSchemaError(t *testing.T) {
	s := testStore(t)
	path := s.Path("projects")
	content := "id,title\nP001,Something\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(s, record.Projects)
	if !trackerr.IsCode(err, trackerr.CodeSchema) {
		t.Fatalf("want SchemaError, got %v", err)
	}
}

func TestLoadUnknownEnumIsSchemaError(t *testing.T) {
	s := testStore(t)
	content := "project_id,name,start_date,target_date,status,rev\n" +
		"P001,Residential Complex A,2026-01-05,2026-09-30,shipped,1\n"
	if err := os.WriteFile(s.Path("projects"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(s, record.Projects)
	if !trackerr.IsCode(err, trackerr.CodeSchema) {
		t.Fatalf("enum outside closed set should be SchemaError, got %v", err)
	}
}

func TestIDsMonotonicAcrossTableShrink(t *testing.T) {
	s := testStore(t)
	saveProject(t, s, "one")
	p2 := saveProject(t, s, "two")

	// Simulate external tooling truncating the table: the store must not
	// reuse P002 for the next save.
	content := "project_id,name,start_date,target_date,status,rev\n" +
		"P001,one,2026-01-05,2026-09-30,active,1\n"
	if err := os.WriteFile(s.Path("projects"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p3 := saveProject(t, s, "three")
	if p3.ID == p2.ID {
		t.Fatalf("id %q was reused", p3.ID)
	}
	if p3.ID != "P003" {
		t.Errorf("id = %q, want P003", p3.ID)
	}
}

func TestConcurrentSavesKeepAllRows(t *testing.T) {
	s := testStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &record.Project{Name: "parallel", Status: record.ProjectPlanning}
			if err := Save(s, record.Projects, p); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()

	rows, err := Load(s, record.Projects)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("got %d rows, want 10", len(rows))
	}
	seen := map[string]bool{}
	for _, r := range rows {
		if seen[r.ID] {
			t.Errorf("duplicate id %q", r.ID)
		}
		seen[r.ID] = true
	}
}

func TestVerifyReferencesReportsOrphans(t *testing.T) {
	s := testStore(t)
	u := &record.User{Username: "john_doe", Password: "password123", Role: record.RoleOperator, FullName: "John Doe"}
	if err := Save(s, record.Users, u); err != nil {
		t.Fatal(err)
	}
	p := saveProject(t, s, "Residential Complex A")

	m := &record.Module{ProjectID: p.ID, Name: "Module A101", AssignedTo: u.ID, Status: record.ModuleInProgress, Progress: 0.4}
	if err := Save(s, record.Modules, m); err != nil {
		t.Fatal(err)
	}
	if err := s.VerifyReferences(); err != nil {
		t.Fatalf("consistent store should verify: %v", err)
	}

	orphan := &record.Task{AssignedTo: "U999", ModuleID: m.ID, Status: record.TaskPending,
		DueDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), Description: "check wiring"}
	if err := Save(s, record.Tasks, orphan); err != nil {
		t.Fatal(err)
	}

	err := s.VerifyReferences()
	if !trackerr.IsCode(err, trackerr.CodeSchema) {
		t.Fatalf("orphan assigned_to should be reported, got %v", err)
	}
}

func TestAtomicRewriteLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	saveProject(t, s, "Residential Complex A")

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "projects.csv" {
			t.Errorf("unexpected file %q", e.Name())
		}
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "projects.csv")); err != nil {
		t.Errorf("projects.csv missing: %v", err)
	}
}
