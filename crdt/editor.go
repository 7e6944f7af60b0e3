package crdt

import (
	"fmt"
	"slices"
)

// EditorCRDT replicates the block list of a page.
type EditorCRDT struct {
	CRDT[*Block]
	blocks *BlockList

	// CurrentBlock is the block under local focus. It is never replicated.
	CurrentBlock *BlockID
}

func NewEditorCRDT(client uint64) *EditorCRDT {
	blocks := NewBlockList()
	return &EditorCRDT{
		CRDT:   CRDT[*Block]{client: client, list: blocks.LinkedList},
		blocks: blocks,
	}
}

func (e *EditorCRDT) Blocks() *BlockList {
	return e.blocks
}

// BlockAttributes are the block fields a block update carries.
type BlockAttributes struct {
	Type      BlockType
	Indent    uint32
	Animation string
	Icon      string
	Style     []string
	IsChecked bool
}

func (e *EditorCRDT) LocalInsert(index int, value, pageID string) (*BlockInsertOperation, error) {
	b, err := e.blocks.InsertAtIndex(index, value, e.nextID())
	if err != nil {
		return nil, err
	}
	e.tick()
	e.blocks.UpdateAllOrderedListIndices()
	return &BlockInsertOperation{Type: OpBlockInsert, Node: b.Serialize(), PageID: pageID}, nil
}

func (e *EditorCRDT) LocalDelete(index int, pageID string) (*BlockDeleteOperation, error) {
	if err := e.checkIndex(index); err != nil {
		return nil, err
	}
	b, err := e.blocks.FindByIndex(index)
	if err != nil {
		return nil, err
	}
	op := &BlockDeleteOperation{
		Type:     OpBlockDelete,
		TargetID: b.ID,
		Clock:    e.clock,
		PageID:   pageID,
	}
	e.blocks.DeleteNode(b.ID)
	e.tick()
	e.blocks.UpdateAllOrderedListIndices()
	return op, nil
}

// LocalUpdate changes the attributes of a block. Empty strings and empty
// styles keep the current value, the same way RemoteUpdate treats them.
func (e *EditorCRDT) LocalUpdate(id BlockID, attrs BlockAttributes, pageID string) (*BlockUpdateOperation, error) {
	b, ok := e.blocks.GetNode(id)
	if !ok {
		return nil, missing(id)
	}
	applyBlockUpdate(b, SerializedBlock{
		Type:      attrs.Type,
		Indent:    attrs.Indent,
		Animation: attrs.Animation,
		Icon:      attrs.Icon,
		Style:     attrs.Style,
		IsChecked: attrs.IsChecked,
	})
	e.blocks.UpdateAllOrderedListIndices()
	return &BlockUpdateOperation{Type: OpBlockUpdate, Node: updatePayload(b), PageID: pageID}, nil
}

func (e *EditorCRDT) LocalCheck(id BlockID, checked bool, pageID string) (*BlockCheckboxOperation, error) {
	b, ok := e.blocks.GetNode(id)
	if !ok {
		return nil, missing(id)
	}
	b.IsChecked = checked
	return &BlockCheckboxOperation{Type: OpBlockCheckbox, BlockID: id, IsChecked: checked, PageID: pageID}, nil
}

func (e *EditorCRDT) LocalReorder(p ReorderParams, pageID string) (*BlockReorderOperation, error) {
	op := &BlockReorderOperation{
		Type:     OpBlockReorder,
		TargetID: p.TargetID,
		BeforeID: copyID(p.BeforeID),
		AfterID:  copyID(p.AfterID),
		Clock:    e.clock,
		Client:   e.client,
		PageID:   pageID,
	}
	if err := e.blocks.ReorderNodes(p); err != nil {
		return nil, err
	}
	e.tick()
	e.blocks.UpdateAllOrderedListIndices()
	return op, nil
}

func (e *EditorCRDT) RemoteInsert(op *BlockInsertOperation) error {
	b, err := DeserializeBlock(op.Node)
	if err != nil {
		return fmt.Errorf("remote block insert: %w", err)
	}
	if err := e.blocks.InsertByID(b); err != nil {
		return err
	}
	e.observe(op.Node.ID.Clock)
	e.blocks.UpdateAllOrderedListIndices()
	return nil
}

func (e *EditorCRDT) RemoteDelete(op *BlockDeleteOperation) {
	e.blocks.DeleteNode(op.TargetID)
	e.observe(op.Clock)
	e.blocks.UpdateAllOrderedListIndices()
}

// RemoteUpdate applies the fields of a block update. Empty strings and
// empty styles are treated as absent and keep the current value.
func (e *EditorCRDT) RemoteUpdate(op *BlockUpdateOperation) error {
	b, ok := e.blocks.GetNode(op.Node.ID)
	if !ok {
		return missing(op.Node.ID)
	}
	applyBlockUpdate(b, op.Node)
	e.blocks.UpdateAllOrderedListIndices()
	return nil
}

func applyBlockUpdate(b *Block, n SerializedBlock) {
	if n.Type != "" {
		b.Type = n.Type
	}
	if n.Animation != "" {
		b.Animation = n.Animation
	}
	if n.Icon != "" {
		b.Icon = n.Icon
	}
	if len(n.Style) > 0 {
		b.Style = slices.Clone(n.Style)
	}
	b.Indent = n.Indent
	b.IsChecked = n.IsChecked
}

func (e *EditorCRDT) RemoteCheck(op *BlockCheckboxOperation) error {
	b, ok := e.blocks.GetNode(op.BlockID)
	if !ok {
		return missing(op.BlockID)
	}
	b.IsChecked = op.IsChecked
	return nil
}

func (e *EditorCRDT) RemoteReorder(op *BlockReorderOperation) error {
	err := e.blocks.ReorderNodes(ReorderParams{
		TargetID: op.TargetID,
		BeforeID: op.BeforeID,
		AfterID:  op.AfterID,
	})
	if err != nil {
		return err
	}
	e.observe(op.Clock)
	e.blocks.UpdateAllOrderedListIndices()
	return nil
}

// Text returns the character CRDT of a block, bound to this replica's
// client id so local character inserts mint ids of their own.
func (e *EditorCRDT) Text(id BlockID) (*BlockCRDT, error) {
	b, ok := e.blocks.GetNode(id)
	if !ok {
		return nil, missing(id)
	}
	if b.CRDT == nil {
		b.CRDT = NewBlockCRDT(e.client)
	}
	b.CRDT.client = e.client
	return b.CRDT, nil
}

// ClearDeletedNodes purges tombstones from the text of every live block and
// then from the block list itself. It returns the number of purged nodes.
func (e *EditorCRDT) ClearDeletedNodes() int {
	n := 0
	for _, b := range e.blocks.Spread() {
		if b.CRDT != nil {
			n += b.CRDT.chars.ClearDeletedNodes()
		}
	}
	n += e.blocks.ClearDeletedNodes()
	e.blocks.UpdateAllOrderedListIndices()
	return n
}

type SerializedEditorCRDT struct {
	Clock        uint64                          `json:"clock"`
	Client       uint64                          `json:"client"`
	LinkedList   SerializedList[SerializedBlock] `json:"LinkedList"`
	CurrentBlock *BlockID                        `json:"currentBlock"`
}

func (e *EditorCRDT) Serialize() SerializedEditorCRDT {
	return SerializedEditorCRDT{
		Clock:        e.clock,
		Client:       e.client,
		LinkedList:   e.blocks.Serialize(),
		CurrentBlock: copyID(e.CurrentBlock),
	}
}

func DeserializeEditorCRDT(data SerializedEditorCRDT) (*EditorCRDT, error) {
	blocks, err := DeserializeBlockList(data.LinkedList)
	if err != nil {
		return nil, fmt.Errorf("deserialize block list: %w", err)
	}
	e := &EditorCRDT{
		CRDT: CRDT[*Block]{
			clock:  max(data.Clock, blocks.maxClock()),
			client: data.Client,
			list:   blocks.LinkedList,
		},
		blocks:       blocks,
		CurrentBlock: copyID(data.CurrentBlock),
	}
	return e, nil
}

// updatePayload serializes a block without its text, which block updates
// never touch.
func updatePayload(b *Block) SerializedBlock {
	s := b.Serialize()
	s.CRDT = nil
	return s
}
