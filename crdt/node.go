package crdt

import "slices"

// Element holds the fields every list node shares. Prev and Next are ids,
// never pointers, so the list map is the only owner of its nodes.
type Element struct {
	ID      NodeID
	Value   string
	Prev    *NodeID
	Next    *NodeID
	Deleted bool
}

func (e *Element) element() *Element { return e }

func (e *Element) Precedes(other Node) bool {
	return e.ID.Precedes(other.element().ID)
}

// Node is implemented by *Block and *Char.
type Node interface {
	element() *Element
	Precedes(other Node) bool
}

const (
	StyleBold          = "bold"
	StyleItalic        = "italic"
	StyleUnderline     = "underline"
	StyleStrikethrough = "strikethrough"
)

// Char is a single character of a block's text.
type Char struct {
	Element
	Style           []string
	Color           string
	BackgroundColor string
}

func NewChar(value string, id CharID) *Char {
	return &Char{
		Element: Element{ID: id, Value: value},
		Style:   []string{},
	}
}

type SerializedChar struct {
	ID              NodeID   `json:"id"`
	Value           string   `json:"value"`
	Prev            *NodeID  `json:"prev"`
	Next            *NodeID  `json:"next"`
	Deleted         bool     `json:"deleted"`
	Style           []string `json:"style"`
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
}

func (c *Char) Serialize() SerializedChar {
	style := slices.Clone(c.Style)
	if style == nil {
		style = []string{}
	}
	return SerializedChar{
		ID:              c.ID,
		Value:           c.Value,
		Prev:            copyID(c.Prev),
		Next:            copyID(c.Next),
		Deleted:         c.Deleted,
		Style:           style,
		Color:           c.Color,
		BackgroundColor: c.BackgroundColor,
	}
}

func DeserializeChar(s SerializedChar) *Char {
	c := NewChar(s.Value, s.ID)
	c.Prev = copyID(s.Prev)
	c.Next = copyID(s.Next)
	c.Deleted = s.Deleted
	if len(s.Style) > 0 {
		c.Style = slices.Clone(s.Style)
	}
	c.Color = s.Color
	c.BackgroundColor = s.BackgroundColor
	return c
}

type BlockType string

const (
	BlockParagraph     BlockType = "p"
	BlockHeading1      BlockType = "h1"
	BlockHeading2      BlockType = "h2"
	BlockHeading3      BlockType = "h3"
	BlockUnorderedList BlockType = "ul"
	BlockOrderedList   BlockType = "ol"
	BlockCheckbox      BlockType = "checkbox"
	BlockQuote         BlockType = "blockquote"
	BlockDivider       BlockType = "hr"
)

const defaultAnimation = "none"

// Block is an outline node. Its text lives in its own character CRDT.
type Block struct {
	Element
	Type BlockType
	// Indent is the nesting level, 0 at the top.
	Indent uint32
	// ListIndex is the display number of an ordered-list item. It is derived
	// by BlockList.UpdateAllOrderedListIndices and is never authoritative.
	ListIndex uint32
	Animation string
	Icon      string
	Style     []string
	IsChecked bool
	CRDT      *BlockCRDT
}

func NewBlock(value string, id BlockID) *Block {
	return &Block{
		Element:   Element{ID: id, Value: value},
		Type:      BlockParagraph,
		Animation: defaultAnimation,
		Style:     []string{},
		CRDT:      NewBlockCRDT(id.Client),
	}
}

func (b *Block) isOrderedList() bool {
	return b.Type == BlockOrderedList
}

// Text returns the block's visible text.
func (b *Block) Text() string {
	if b.CRDT == nil {
		return ""
	}
	return b.CRDT.Read()
}

type SerializedBlock struct {
	ID        NodeID               `json:"id"`
	Value     string               `json:"value"`
	Prev      *NodeID              `json:"prev"`
	Next      *NodeID              `json:"next"`
	Deleted   bool                 `json:"deleted"`
	Type      BlockType            `json:"type"`
	Indent    uint32               `json:"indent"`
	ListIndex uint32               `json:"listIndex,omitempty"`
	Animation string               `json:"animation,omitempty"`
	Icon      string               `json:"icon,omitempty"`
	Style     []string             `json:"style"`
	IsChecked bool                 `json:"isChecked"`
	CRDT      *SerializedBlockCRDT `json:"crdt,omitempty"`
}

func (b *Block) Serialize() SerializedBlock {
	style := slices.Clone(b.Style)
	if style == nil {
		style = []string{}
	}
	s := SerializedBlock{
		ID:        b.ID,
		Value:     b.Value,
		Prev:      copyID(b.Prev),
		Next:      copyID(b.Next),
		Deleted:   b.Deleted,
		Type:      b.Type,
		Indent:    b.Indent,
		ListIndex: b.ListIndex,
		Animation: b.Animation,
		Icon:      b.Icon,
		Style:     style,
		IsChecked: b.IsChecked,
	}
	if b.CRDT != nil {
		text := b.CRDT.Serialize()
		s.CRDT = &text
	}
	return s
}

func DeserializeBlock(s SerializedBlock) (*Block, error) {
	b := NewBlock(s.Value, s.ID)
	b.Prev = copyID(s.Prev)
	b.Next = copyID(s.Next)
	b.Deleted = s.Deleted
	if s.Type != "" {
		b.Type = s.Type
	}
	b.Indent = s.Indent
	b.ListIndex = s.ListIndex
	if s.Animation != "" {
		b.Animation = s.Animation
	}
	b.Icon = s.Icon
	if len(s.Style) > 0 {
		b.Style = slices.Clone(s.Style)
	}
	b.IsChecked = s.IsChecked
	if s.CRDT != nil {
		text, err := DeserializeBlockCRDT(*s.CRDT)
		if err != nil {
			return nil, err
		}
		b.CRDT = text
	}
	return b, nil
}
