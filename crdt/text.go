package crdt

import (
	"fmt"
	"slices"
)

// BlockCRDT replicates the characters of one block.
type BlockCRDT struct {
	CRDT[*Char]
	chars *CharList

	// CurrentCaret is the local cursor offset. It is persisted but never
	// replicated.
	CurrentCaret int
}

func NewBlockCRDT(client uint64) *BlockCRDT {
	chars := NewCharList()
	return &BlockCRDT{
		CRDT:  CRDT[*Char]{client: client, list: chars.LinkedList},
		chars: chars,
	}
}

func (t *BlockCRDT) Chars() *CharList {
	return t.chars
}

// CharAttributes is the styling of a character.
type CharAttributes struct {
	Style           []string
	Color           string
	BackgroundColor string
}

func (t *BlockCRDT) LocalInsert(index int, value string, blockID BlockID, pageID string, attrs CharAttributes) (*CharInsertOperation, error) {
	c, err := t.chars.InsertAtIndex(index, value, t.nextID())
	if err != nil {
		return nil, err
	}
	if len(attrs.Style) > 0 {
		c.Style = slices.Clone(attrs.Style)
	}
	c.Color = attrs.Color
	c.BackgroundColor = attrs.BackgroundColor
	t.tick()

	node := c.Serialize()
	return &CharInsertOperation{
		Type:            OpCharInsert,
		Node:            node,
		BlockID:         blockID,
		PageID:          pageID,
		Style:           node.Style,
		Color:           c.Color,
		BackgroundColor: c.BackgroundColor,
	}, nil
}

func (t *BlockCRDT) LocalDelete(index int, blockID BlockID, pageID string) (*CharDeleteOperation, error) {
	if err := t.checkIndex(index); err != nil {
		return nil, err
	}
	c, err := t.chars.FindByIndex(index)
	if err != nil {
		return nil, err
	}
	op := &CharDeleteOperation{
		Type:     OpCharDelete,
		TargetID: c.ID,
		Clock:    t.clock,
		BlockID:  blockID,
		PageID:   pageID,
	}
	t.chars.DeleteNode(c.ID)
	t.tick()
	return op, nil
}

// LocalUpdate changes the styling of a character. Empty fields keep the
// current value, the same way RemoteUpdate treats them.
func (t *BlockCRDT) LocalUpdate(id CharID, attrs CharAttributes, blockID BlockID, pageID string) (*CharUpdateOperation, error) {
	c, ok := t.chars.GetNode(id)
	if !ok {
		return nil, missing(id)
	}
	applyCharUpdate(c, SerializedChar{
		Style:           attrs.Style,
		Color:           attrs.Color,
		BackgroundColor: attrs.BackgroundColor,
	})
	return &CharUpdateOperation{Type: OpCharUpdate, Node: c.Serialize(), BlockID: blockID, PageID: pageID}, nil
}

func (t *BlockCRDT) RemoteInsert(op *CharInsertOperation) error {
	c := DeserializeChar(op.Node)
	if len(op.Style) > 0 {
		c.Style = slices.Clone(op.Style)
	}
	if c.Color == "" {
		c.Color = op.Color
	}
	if c.BackgroundColor == "" {
		c.BackgroundColor = op.BackgroundColor
	}
	if err := t.chars.InsertByID(c); err != nil {
		return fmt.Errorf("remote char insert %s: %w", c.ID, err)
	}
	t.observe(op.Node.ID.Clock)
	return nil
}

func (t *BlockCRDT) RemoteDelete(op *CharDeleteOperation) {
	t.chars.DeleteNode(op.TargetID)
	t.observe(op.Clock)
}

// RemoteUpdate applies only the non-empty styling fields of the payload.
func (t *BlockCRDT) RemoteUpdate(op *CharUpdateOperation) error {
	c, ok := t.chars.GetNode(op.Node.ID)
	if !ok {
		return missing(op.Node.ID)
	}
	applyCharUpdate(c, op.Node)
	return nil
}

func applyCharUpdate(c *Char, n SerializedChar) {
	if len(n.Style) > 0 {
		c.Style = slices.Clone(n.Style)
	}
	if n.Color != "" {
		c.Color = n.Color
	}
	if n.BackgroundColor != "" {
		c.BackgroundColor = n.BackgroundColor
	}
}

type SerializedBlockCRDT struct {
	Clock        uint64                         `json:"clock"`
	Client       uint64                         `json:"client"`
	LinkedList   SerializedList[SerializedChar] `json:"LinkedList"`
	CurrentCaret int                            `json:"currentCaret"`
}

func (t *BlockCRDT) Serialize() SerializedBlockCRDT {
	return SerializedBlockCRDT{
		Clock:        t.clock,
		Client:       t.client,
		LinkedList:   t.chars.Serialize(),
		CurrentCaret: t.CurrentCaret,
	}
}

func DeserializeBlockCRDT(data SerializedBlockCRDT) (*BlockCRDT, error) {
	chars, err := DeserializeCharList(data.LinkedList)
	if err != nil {
		return nil, fmt.Errorf("deserialize char list: %w", err)
	}
	return &BlockCRDT{
		CRDT: CRDT[*Char]{
			clock:  max(data.Clock, chars.maxClock()),
			client: data.Client,
			list:   chars.LinkedList,
		},
		chars:        chars,
		CurrentCaret: data.CurrentCaret,
	}, nil
}
