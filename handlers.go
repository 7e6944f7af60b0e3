package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/ssau-fiit/cloudocs-api/crdt"
	"github.com/ssau-fiit/cloudocs-api/database"
	"github.com/ssau-fiit/cloudocs-api/workspace"
)

const requestTimeout = time.Second * 5

type server struct {
	store  Store
	hub    *hub
	client uint64
}

func newServer(store Store, broker Broker, client uint64) *server {
	return &server{
		store:  store,
		hub:    newHub(store, broker, client),
		client: client,
	}
}

func (s *server) routes() *gin.Engine {
	r := gin.Default()

	v1 := r.Group("/api/v1")
	v1.GET("/workspaces", s.handleGetWorkspaces)
	v1.POST("/workspaces", s.handleCreateWorkspace)
	v1.GET("/workspaces/:id", s.handleGetWorkspace)
	v1.DELETE("/workspaces/:id", s.handleDeleteWorkspace)

	v1.POST("/workspaces/:id/pages", s.handleCreatePage)
	v1.GET("/workspaces/:id/pages/:pageId", s.handleGetPage)
	v1.PATCH("/workspaces/:id/pages/:pageId", s.handleUpdatePage)
	v1.DELETE("/workspaces/:id/pages/:pageId", s.handleDeletePage)

	v1.GET("/workspaces/:id/socket", s.handleSocket)
	return r
}

/////////////////////////////
/// Workspace Handlers
/////////////////////////////

func (s *server) handleGetWorkspaces(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	infos, err := s.store.ListWorkspaces(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to list workspaces")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, infos)
}

func (s *server) handleCreateWorkspace(c *gin.Context) {
	var r CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse request")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	ws := workspace.New("", r.Name, s.client)
	if r.UserID != "" {
		ws.AuthUser[r.UserID] = workspace.RoleOwner
	}
	data := ws.Serialize()
	if err := s.store.UpdateWorkspace(ctx, data); err != nil {
		log.Error().Err(err).Msg("error creating workspace")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	log.Info().Str("workspace", ws.ID).Str("name", ws.Name).Msg("workspace created")
	c.JSON(http.StatusOK, data)
}

func (s *server) handleGetWorkspace(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	data, err := s.current(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, data)
}

func (s *server) handleDeleteWorkspace(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.store.DeleteWorkspace(ctx, c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

/////////////////////////////
/// Page Handlers
/////////////////////////////

func (s *server) handleCreatePage(c *gin.Context) {
	var r CreatePageRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse request")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := s.store.GetWorkspace(ctx, id); err != nil {
		abortWithError(c, err)
		return
	}

	op := workspace.New(id, "", s.client).CreatePage(r.Title, r.Icon)
	if err := s.submit(ctx, id, op); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, op.PageData)
}

func (s *server) handleGetPage(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	data, err := s.current(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	for _, p := range data.PageList {
		if p.ID == c.Param("pageId") {
			c.JSON(http.StatusOK, p)
			return
		}
	}
	c.AbortWithStatus(http.StatusNotFound)
}

func (s *server) handleUpdatePage(c *gin.Context) {
	var r UpdatePageRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		log.Error().Err(err).Msg("could not parse request")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	id, pageID := c.Param("id"), c.Param("pageId")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.ensurePage(ctx, id, pageID); err != nil {
		abortWithError(c, err)
		return
	}
	op := &workspace.PageUpdateOperation{
		Type:        workspace.OpPageUpdate,
		WorkspaceID: id,
		PageID:      pageID,
		Title:       r.Title,
		Icon:        r.Icon,
		ClientID:    s.client,
	}
	if err := s.submit(ctx, id, op); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *server) handleDeletePage(c *gin.Context) {
	id, pageID := c.Param("id"), c.Param("pageId")
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := s.ensurePage(ctx, id, pageID); err != nil {
		abortWithError(c, err)
		return
	}
	op := &workspace.PageDeleteOperation{
		Type:        workspace.OpPageDelete,
		WorkspaceID: id,
		PageID:      pageID,
		ClientID:    s.client,
	}
	if err := s.submit(ctx, id, op); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// current returns the newest state of a workspace: the live replica when a
// room is open, otherwise the stored snapshot with its log replayed.
func (s *server) current(ctx context.Context, id string) (workspace.SerializedWorkspace, error) {
	if r, ok := s.hub.room(id); ok {
		return r.serialize(), nil
	}
	ws, _, err := loadWorkspace(ctx, s.store, id, s.client)
	if err != nil {
		return workspace.SerializedWorkspace{}, err
	}
	return ws.Serialize(), nil
}

func (s *server) ensurePage(ctx context.Context, id, pageID string) error {
	data, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range data.PageList {
		if p.ID == pageID {
			return nil
		}
	}
	return workspace.ErrPageNotFound
}

func (s *server) submit(ctx context.Context, id string, op crdt.Operation) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return s.hub.submit(ctx, id, "", raw)
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, workspace.ErrPageNotFound):
		c.AbortWithStatus(http.StatusNotFound)
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
