package api

import (
	"encoding/json"
	"net/http"

	"github.com/volumod/tracker/internal/audit"
	"github.com/volumod/tracker/internal/auth"
	"github.com/volumod/tracker/internal/record"
	"github.com/volumod/tracker/internal/store"
	"github.com/volumod/tracker/internal/trackerr"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	projects, err := store.Load(s.store, record.Projects)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	project, err := store.Get(s.store, record.Projects, r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, project)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapCreateProjects) {
		HandleError(w, trackerr.Forbidden("create projects"))
		return
	}

	var project record.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if project.Status == "" {
		project.Status = record.ProjectPlanning
	}

	if err := store.Save(s.store, record.Projects, &project); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionCreate, "project", project.ID, project.Name)
	JSONResponseStatus(w, project, http.StatusCreated)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	if !auth.Authorize(sess, auth.CapCreateProjects) {
		HandleError(w, trackerr.Forbidden("update projects"))
		return
	}

	var project record.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		JSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	if err := store.Update(s.store, record.Projects, id, &project); err != nil {
		HandleError(w, err)
		return
	}
	s.trail.Record(sess.UserID, audit.ActionUpdate, "project", id, string(project.Status))
	JSONResponse(w, project)
}

func (s *Server) handleListProjectModules(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	projectID := r.PathValue("id")
	if _, err := store.Get(s.store, record.Projects, projectID); err != nil {
		HandleError(w, err)
		return
	}
	modules, err := store.AllWhere(s.store, record.Modules, func(m *record.Module) bool {
		return m.ProjectID == projectID
	})
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, modules)
}
