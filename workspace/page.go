package workspace

import (
	"errors"
	"fmt"

	"github.com/ssau-fiit/cloudocs-api/crdt"
)

// maxPending bounds how many out-of-order operations one page keeps.
const maxPending = 4096

// Page is one document: a title, an icon and the block CRDT.
type Page struct {
	ID    string
	Title string
	Icon  string
	CRDT  *crdt.EditorCRDT

	pending    map[dependency][]crdt.Operation
	numPending int
}

// dependency names a node an operation is waiting for. Character ids are
// scoped by the block that holds them.
type dependency struct {
	node  crdt.NodeID
	block crdt.BlockID
	text  bool
}

func NewPage(id, title, icon string, client uint64) *Page {
	return &Page{
		ID:    id,
		Title: title,
		Icon:  icon,
		CRDT:  crdt.NewEditorCRDT(client),
	}
}

func (p *Page) Block(id crdt.BlockID) (*crdt.Block, error) {
	b, ok := p.CRDT.Blocks().GetNode(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return b, nil
}

// Pending returns the number of operations waiting for a dependency.
func (p *Page) Pending() int {
	return p.numPending
}

// Apply applies a remote block or character operation. An operation that
// references a node not seen yet is kept and retried when that node is
// inserted; Apply then returns an error matching ErrDeferred.
func (p *Page) Apply(op crdt.Operation) error {
	err := p.apply(op)
	if err == nil {
		if dep, ok := inserted(op); ok {
			p.resolve(dep)
		}
		return nil
	}
	dep, ok := dependencyOf(err)
	if !ok {
		return err
	}
	if p.numPending >= maxPending {
		return fmt.Errorf("%w: %w", ErrPendingFull, err)
	}
	if p.pending == nil {
		p.pending = make(map[dependency][]crdt.Operation)
	}
	p.pending[dep] = append(p.pending[dep], op)
	p.numPending++
	return fmt.Errorf("%w: %w", ErrDeferred, err)
}

func (p *Page) apply(op crdt.Operation) error {
	switch o := op.(type) {
	case *crdt.BlockInsertOperation:
		return p.CRDT.RemoteInsert(o)
	case *crdt.BlockDeleteOperation:
		// A delete that overtakes its insert waits for it instead of
		// being lost.
		if _, ok := p.CRDT.Blocks().GetNode(o.TargetID); !ok {
			return &crdt.MissingDependencyError{ID: o.TargetID}
		}
		p.CRDT.RemoteDelete(o)
		return nil
	case *crdt.BlockUpdateOperation:
		return p.CRDT.RemoteUpdate(o)
	case *crdt.BlockReorderOperation:
		return p.CRDT.RemoteReorder(o)
	case *crdt.BlockCheckboxOperation:
		return p.CRDT.RemoteCheck(o)
	case crdt.CharOperation:
		return p.applyText(o)
	}
	return fmt.Errorf("%w: %q on page %s", ErrUnknownOperation, op.OpType(), p.ID)
}

func (p *Page) applyText(op crdt.CharOperation) error {
	text, err := p.CRDT.Text(op.Block())
	if err != nil {
		return err
	}
	switch o := op.(type) {
	case *crdt.CharInsertOperation:
		err = text.RemoteInsert(o)
	case *crdt.CharDeleteOperation:
		if _, ok := text.Chars().GetNode(o.TargetID); !ok {
			err = &crdt.MissingDependencyError{ID: o.TargetID}
			break
		}
		text.RemoteDelete(o)
	case *crdt.CharUpdateOperation:
		err = text.RemoteUpdate(o)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOperation, op.OpType())
	}
	if err != nil {
		return &textError{block: op.Block(), err: err}
	}
	return nil
}

func (p *Page) resolve(dep dependency) {
	ops, ok := p.pending[dep]
	if !ok {
		return
	}
	delete(p.pending, dep)
	p.numPending -= len(ops)
	for _, op := range ops {
		// Still-missing dependencies park the operation again.
		_ = p.Apply(op)
	}
}

// PendingOperations returns the operations still waiting for a dependency.
func (p *Page) PendingOperations() []crdt.Operation {
	var out []crdt.Operation
	for _, ops := range p.pending {
		out = append(out, ops...)
	}
	return out
}

// ClearDeleted purges tombstones from the page's blocks and their text.
func (p *Page) ClearDeleted() int {
	return p.CRDT.ClearDeletedNodes()
}

// textError marks a failure inside the text of a block.
type textError struct {
	block crdt.BlockID
	err   error
}

func (e *textError) Error() string {
	return fmt.Sprintf("block %s: %v", e.block, e.err)
}

func (e *textError) Unwrap() error { return e.err }

func dependencyOf(err error) (dependency, bool) {
	var missing *crdt.MissingDependencyError
	if !errors.As(err, &missing) {
		return dependency{}, false
	}
	var te *textError
	if errors.As(err, &te) {
		return dependency{node: missing.ID, block: te.block, text: true}, true
	}
	return dependency{node: missing.ID}, true
}

func inserted(op crdt.Operation) (dependency, bool) {
	switch o := op.(type) {
	case *crdt.BlockInsertOperation:
		return dependency{node: o.Node.ID}, true
	case *crdt.CharInsertOperation:
		return dependency{node: o.Node.ID, block: o.BlockID, text: true}, true
	}
	return dependency{}, false
}

type SerializedPage struct {
	ID    string                    `json:"id"`
	Title string                    `json:"title"`
	Icon  string                    `json:"icon"`
	CRDT  crdt.SerializedEditorCRDT `json:"crdt"`
}

func (p *Page) Serialize() SerializedPage {
	return SerializedPage{
		ID:    p.ID,
		Title: p.Title,
		Icon:  p.Icon,
		CRDT:  p.CRDT.Serialize(),
	}
}

// DeserializePage rebuilds a page. A non-zero client makes the page a
// replica of that client instead of the one that saved it.
func DeserializePage(data SerializedPage, client uint64) (*Page, error) {
	if client != 0 {
		data.CRDT.Client = client
	}
	editor, err := crdt.DeserializeEditorCRDT(data.CRDT)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", data.ID, err)
	}
	return &Page{ID: data.ID, Title: data.Title, Icon: data.Icon, CRDT: editor}, nil
}
