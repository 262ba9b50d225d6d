package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateNotebookRequest is the body of POST /notebooks.
type CreateNotebookRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (r CreateNotebookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// UpdateNotebookRequest is the body of PATCH /notebooks/*.
type UpdateNotebookRequest struct {
	Name       *string `json:"name"`
	IsExpanded *bool   `json:"isExpanded"`
}

func (r UpdateNotebookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	NotebookID string `json:"notebookId"`
	Title      string `json:"title"`
}

func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NotebookID, validation.Required),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
	)
}

// UpdateNoteRequest is the body of PATCH /notes/*. Nil fields are left
// unchanged.
type UpdateNoteRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
	Theme   *string   `json:"theme"`
}

func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// SelectNoteRequest is the body of POST /notes/select.
type SelectNoteRequest struct {
	ID string `json:"id"`
}

// RenameTagRequest is the body of POST /tags/rename.
type RenameTagRequest struct {
	OldPath string `json:"oldPath"`
	NewPath string `json:"newPath"`
}

func (r RenameTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPath, validation.Required),
		validation.Field(&r.NewPath, validation.Required),
	)
}

// DeleteTagRequest is the body of POST /tags/delete.
type DeleteTagRequest struct {
	Path string `json:"path"`
}

func (r DeleteTagRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}
