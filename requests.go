package main

type CreateWorkspaceRequest struct {
	Name   string `json:"name" binding:"required"`
	UserID string `json:"userId"`
}

type CreatePageRequest struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
}

type UpdatePageRequest struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
}
