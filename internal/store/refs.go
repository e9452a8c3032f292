package store

import (
	"errors"
	"fmt"

	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/trackerr"
)

// VerifyReferences checks that every back-reference in the store resolves
// to an existing row. Orphan references are a data-integrity error and are
// reported, never silently dropped. All orphans found are joined into one
// error so a repair pass sees the full picture.
func (s *Store) VerifyReferences() error {
	users, err := Load(s, record.Users)
	if err != nil {
		return err
	}
	projects, err := Load(s, record.Projects)
	if err != nil {
		return err
	}
	modules, err := Load(s, record.Modules)
	if err != nil {
		return err
	}
	issues, err := Load(s, record.Issues)
	if err != nil {
		return err
	}
	tasks, err := Load(s, record.Tasks)
	if err != nil {
		return err
	}

	userIDs := idSet(users)
	projectIDs := idSet(projects)
	moduleIDs := idSet(modules)

	var orphans []error
	report := func(table, id, column, ref string) {
		orphans = append(orphans, trackerr.SchemaError(table,
			fmt.Sprintf("%s %s references %s %q which does not exist", table, id, column, ref)))
	}

	for _, m := range modules {
		if !projectIDs[m.ProjectID] {
			report("modules", m.ID, "project_id", m.ProjectID)
		}
		if m.AssignedTo != "" && !userIDs[m.AssignedTo] {
			report("modules", m.ID, "assigned_to", m.AssignedTo)
		}
	}
	for _, i := range issues {
		if !moduleIDs[i.ModuleID] {
			report("issues", i.ID, "module_id", i.ModuleID)
		}
		if i.CreatedBy != "" && !userIDs[i.CreatedBy] {
			report("issues", i.ID, "created_by", i.CreatedBy)
		}
	}
	for _, t := range tasks {
		if !userIDs[t.AssignedTo] {
			report("tasks", t.ID, "assigned_to", t.AssignedTo)
		}
		if t.ModuleID != "" && !moduleIDs[t.ModuleID] {
			report("tasks", t.ID, "module_id", t.ModuleID)
		}
	}

	return errors.Join(orphans...)
}

func idSet[T record.Row](rows []T) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, r := range rows {
		set[r.RowID()] = true
	}
	return set
}
