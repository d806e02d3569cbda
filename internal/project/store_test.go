package project

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "conductor.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGetProject(t *testing.T) {
	store := openTestStore(t)

	id, err := store.CreateProject("api", "Build a REST API, no auth")
	if err != nil {
		t.Fatal(err)
	}

	p, err := store.GetProject("api")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.ID != id || p.Scope != "Build a REST API, no auth" {
		t.Errorf("GetProject = %+v", p)
	}

	byID, err := store.GetProjectByID(id)
	if err != nil {
		t.Fatal(err)
	}
	if byID == nil || byID.Name != "api" {
		t.Errorf("GetProjectByID = %+v", byID)
	}

	missing, err := store.GetProject("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("missing project = %+v, want nil", missing)
	}
}

func TestDuplicateProjectNameRejected(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.CreateProject("api", "scope"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateProject("api", "other scope"); err == nil {
		t.Fatal("duplicate name should fail the unique constraint")
	}
}

func TestTaskLifecycle(t *testing.T) {
	store := openTestStore(t)
	pid, err := store.CreateProject("api", "scope")
	if err != nil {
		t.Fatal(err)
	}

	id, err := store.AddTask(pid, "write handlers", false)
	if err != nil {
		t.Fatal(err)
	}

	task, err := store.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusPending {
		t.Errorf("new task status = %q", task.Status)
	}

	if err := store.SetTaskStatus(id, StatusInProgress, ""); err != nil {
		t.Fatal(err)
	}
	if err := store.SetTaskStatus(id, StatusCompleted, ""); err != nil {
		t.Fatal(err)
	}

	task, err = store.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", task.Status)
	}
	if task.CompletedAt == "" {
		t.Error("completed_at not stamped on completion")
	}
}

func TestBlockedTaskKeepsReason(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")
	id, _ := store.AddTask(pid, "deploy", false)

	if err := store.SetTaskStatus(id, StatusBlocked, "waiting on credentials"); err != nil {
		t.Fatal(err)
	}

	task, err := store.GetTask(id)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != StatusBlocked || task.BlockedReason != "waiting on credentials" {
		t.Errorf("blocked task = %+v", task)
	}
}

func TestTasksFilters(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")

	a, _ := store.AddTask(pid, "one", false)
	store.AddTask(pid, "two", false)
	store.AddTask(pid, "creeping", true)
	_ = store.SetTaskStatus(a, StatusCompleted, "")

	inScope, err := store.Tasks(pid, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(inScope) != 2 {
		t.Errorf("in-scope tasks = %d, want 2", len(inScope))
	}

	all, err := store.Tasks(pid, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("all tasks = %d, want 3", len(all))
	}

	completed, err := store.Tasks(pid, StatusCompleted, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(completed) != 1 || completed[0].ID != a {
		t.Errorf("completed tasks = %+v", completed)
	}
}

func TestStats(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")

	a, _ := store.AddTask(pid, "one", false)
	b, _ := store.AddTask(pid, "two", false)
	store.AddTask(pid, "three", false)
	_ = store.SetTaskStatus(a, StatusCompleted, "")
	_ = store.SetTaskStatus(b, StatusBlocked, "stuck")

	stats, err := store.Stats(pid)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 3 || stats.Completed != 1 || stats.Blocked != 1 || stats.Pending != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

func TestSessions(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")

	sid, err := store.StartSession(pid, "laptop")
	if err != nil {
		t.Fatal(err)
	}

	active, err := store.ActiveSessions(pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != sid {
		t.Errorf("active sessions = %+v", active)
	}

	if err := store.IncrementSessionTasks(sid); err != nil {
		t.Fatal(err)
	}
	if err := store.EndSession(sid); err != nil {
		t.Fatal(err)
	}

	ws, err := store.GetSession(sid)
	if err != nil {
		t.Fatal(err)
	}
	if ws.EndedAt == "" || ws.TasksCompleted != 1 {
		t.Errorf("ended session = %+v", ws)
	}

	active, err = store.ActiveSessions(pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("active sessions after end = %d", len(active))
	}

	ended, err := store.EndedSessions(pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(ended) != 1 {
		t.Errorf("ended sessions = %d, want 1", len(ended))
	}
}

func TestSessionDefaultsToHostname(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")

	sid, err := store.StartSession(pid, "")
	if err != nil {
		t.Fatal(err)
	}
	ws, err := store.GetSession(sid)
	if err != nil {
		t.Fatal(err)
	}
	if ws.MachineID == "" {
		t.Error("machine id should default to the hostname")
	}
}

func TestLearnings(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")

	if _, err := store.AddLearning("use table tests", "testing convention", pid, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddLearning("global pattern", "", "", ""); err != nil {
		t.Fatal(err)
	}

	scoped, err := store.Learnings(pid, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 1 || scoped[0].Pattern != "use table tests" {
		t.Errorf("scoped learnings = %+v", scoped)
	}

	all, err := store.Learnings("", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("all learnings = %d, want 2", len(all))
	}
}

func TestTemplatesCRUD(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertTemplate("mine", "Do {thing}", []string{"thing"}); err != nil {
		t.Fatal(err)
	}

	tmpl, err := store.GetTemplate("mine")
	if err != nil {
		t.Fatal(err)
	}
	if tmpl == nil || tmpl.Content != "Do {thing}" || len(tmpl.Variables) != 1 {
		t.Errorf("GetTemplate = %+v", tmpl)
	}

	if err := store.IncrementTemplateUsage("mine"); err != nil {
		t.Fatal(err)
	}
	tmpl, _ = store.GetTemplate("mine")
	if tmpl.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", tmpl.UsageCount)
	}

	// Upsert replaces content.
	if err := store.UpsertTemplate("mine", "Redo {thing}", nil); err != nil {
		t.Fatal(err)
	}
	tmpl, _ = store.GetTemplate("mine")
	if tmpl.Content != "Redo {thing}" {
		t.Errorf("content after upsert = %q", tmpl.Content)
	}

	missing, err := store.GetTemplate("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("missing template = %+v", missing)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	store := openTestStore(t)
	pid, _ := store.CreateProject("api", "scope")
	store.AddTask(pid, "one", false)
	store.StartSession(pid, "laptop")

	if err := store.DeleteProject(pid); err != nil {
		t.Fatal(err)
	}

	tasks, err := store.Tasks(pid, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Errorf("tasks survived project deletion: %d", len(tasks))
	}
}
