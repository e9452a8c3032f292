package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/volumod/tracker/internal/audit"
	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	projectID := r.URL.Query().Get("project_id")
	modules, err := store.AllWhere(s.store, record.Modules, func(m *record.Module) bool {
		return projectID == "" || m.ProjectID == projectID
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, modules)
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	module, err := store.Get(s.store, record.Modules, r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, module)
}

func (s *Server) handleCreateModule(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapCreateProjects) {
		HandleError(w, trackerr.Forbidden("create modules"))
		return
	}

	var module record.Module
	if err := json.NewDecoder(r.Body).Decode(&module); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if module.Status == "" {
		module.Status = record.ModuleNotStarted
	}

	// The project and assignee must exist before the module lands.
	if _, err := store.Get(s.store, record.Projects, module.ProjectID); err != nil {
		HandleError(w, err)
		return
	}
	if module.AssignedTo != "" {
		if _, err := store.Get(s.store, record.Users, module.AssignedTo); err != nil {
			HandleError(w, err)
			return
		}
	}

	if err := store.Save(s.store, record.Modules, &module); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionCreate, "module", module.ID, module.Name)
	JSONResponseStatus(w, module, http.StatusCreated)
}

func (s *Server) handleUpdateModule(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	var module record.Module
	if err := json.NewDecoder(r.Body).Decode(&module); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	prev, err := store.Get(s.store, record.Modules, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	if !auth.CanMutateModule(sess, prev) {
		HandleError(w, trackerr.Forbidden("update this module's production state"))
		return
	}

	if err := store.Update(s.store, record.Modules, id, &module); err != nil {
		HandleError(w, err)
		return
	}

	s.trail.Record(sess.UserID, audit.ActionUpdate, "module", id,
		fmt.Sprintf("status %s -> %s, progress %g", prev.Status, module.Status, module.Progress))
	if prev.Status != module.Status {
		s.engine.ModuleStatusChanged(&module)
	}
	JSONResponse(w, module)
}
