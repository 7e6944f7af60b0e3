// Package workspace holds pages of collaborative documents and routes
// replicated operations to them.
package workspace

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/ssau-fiit/cloudocs-api/crdt"
)

const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
)

// Workspace is an ordered collection of pages. Like the CRDTs it holds, it
// must be driven by one goroutine at a time.
type Workspace struct {
	ID       string
	Name     string
	Pages    []*Page
	AuthUser map[string]string

	client uint64
}

// New creates an empty workspace replica for client.
func New(id, name string, client uint64) *Workspace {
	if id == "" {
		id = uuid.NewString()
	}
	return &Workspace{
		ID:       id,
		Name:     name,
		AuthUser: make(map[string]string),
		client:   client,
	}
}

func (w *Workspace) Client() uint64 { return w.client }

func (w *Workspace) Page(id string) (*Page, error) {
	i := w.pageIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, id)
	}
	return w.Pages[i], nil
}

func (w *Workspace) pageIndex(id string) int {
	return slices.IndexFunc(w.Pages, func(p *Page) bool { return p.ID == id })
}

// CreatePage adds an empty page and returns the operation announcing it.
func (w *Workspace) CreatePage(title, icon string) *PageCreateOperation {
	p := NewPage(uuid.NewString(), title, icon, w.client)
	w.Pages = append(w.Pages, p)
	return &PageCreateOperation{
		Type:        OpPageCreate,
		WorkspaceID: w.ID,
		ClientID:    w.client,
		PageData:    p.Serialize(),
	}
}

// Apply applies one remote operation. Page operations change the page list;
// everything else is routed to the page it names.
func (w *Workspace) Apply(op crdt.Operation) error {
	switch o := op.(type) {
	case *PageCreateOperation:
		if w.pageIndex(o.PageData.ID) >= 0 {
			return nil
		}
		p, err := DeserializePage(o.PageData, w.client)
		if err != nil {
			return err
		}
		w.Pages = append(w.Pages, p)
		return nil
	case *PageUpdateOperation:
		p, err := w.Page(o.PageID)
		if err != nil {
			return err
		}
		if o.Title != "" {
			p.Title = o.Title
		}
		if o.Icon != "" {
			p.Icon = o.Icon
		}
		return nil
	case *PageDeleteOperation:
		if i := w.pageIndex(o.PageID); i >= 0 {
			w.Pages = slices.Delete(w.Pages, i, i+1)
		}
		return nil
	}

	p, err := w.Page(op.Page())
	if err != nil {
		return err
	}
	return p.Apply(op)
}

// ApplyAll applies operations in order. A failing operation never stops the
// rest; the failures are joined into the returned error. Deferred
// operations are not failures.
func (w *Workspace) ApplyAll(ops []crdt.Operation) error {
	var errs []error
	for i, op := range ops {
		if err := w.Apply(op); err != nil && !errors.Is(err, ErrDeferred) {
			errs = append(errs, fmt.Errorf("operation %d (%s): %w", i, op.OpType(), err))
		}
	}
	return errors.Join(errs...)
}

// PendingOperations collects the deferred operations of every page.
func (w *Workspace) PendingOperations() []crdt.Operation {
	var out []crdt.Operation
	for _, p := range w.Pages {
		out = append(out, p.PendingOperations()...)
	}
	return out
}

// ClearDeleted purges tombstones in every page. Run it only on a copy that
// no longer receives operations.
func (w *Workspace) ClearDeleted() int {
	n := 0
	for _, p := range w.Pages {
		n += p.ClearDeleted()
	}
	return n
}

type SerializedWorkspace struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	PageList []SerializedPage  `json:"pageList"`
	AuthUser map[string]string `json:"authUser"`
}

func (w *Workspace) Serialize() SerializedWorkspace {
	pages := make([]SerializedPage, 0, len(w.Pages))
	for _, p := range w.Pages {
		pages = append(pages, p.Serialize())
	}
	auth := make(map[string]string, len(w.AuthUser))
	for k, v := range w.AuthUser {
		auth[k] = v
	}
	return SerializedWorkspace{ID: w.ID, Name: w.Name, PageList: pages, AuthUser: auth}
}

// Deserialize rebuilds a workspace as a replica of client.
func Deserialize(data SerializedWorkspace, client uint64) (*Workspace, error) {
	w := New(data.ID, data.Name, client)
	for k, v := range data.AuthUser {
		w.AuthUser[k] = v
	}
	for _, sp := range data.PageList {
		p, err := DeserializePage(sp, client)
		if err != nil {
			return nil, fmt.Errorf("workspace %s: %w", data.ID, err)
		}
		w.Pages = append(w.Pages, p)
	}
	return w, nil
}
