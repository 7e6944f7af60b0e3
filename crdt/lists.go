package crdt

// CharList is the character chain of one block.
type CharList struct {
	*LinkedList[*Char]
}

func NewCharList() *CharList {
	return &CharList{LinkedList: newLinkedList(NewChar)}
}

func (l *CharList) Serialize() SerializedList[SerializedChar] {
	return serializeList(l.LinkedList, (*Char).Serialize)
}

func DeserializeCharList(data SerializedList[SerializedChar]) (*CharList, error) {
	list, err := deserializeList(data, NewChar, func(s SerializedChar) (*Char, error) {
		return DeserializeChar(s), nil
	})
	if err != nil {
		return nil, err
	}
	return &CharList{LinkedList: list}, nil
}

// BlockList is the block chain of one page.
type BlockList struct {
	*LinkedList[*Block]
}

func NewBlockList() *BlockList {
	return &BlockList{LinkedList: newLinkedList(NewBlock)}
}

func (l *BlockList) Serialize() SerializedList[SerializedBlock] {
	return serializeList(l.LinkedList, (*Block).Serialize)
}

func DeserializeBlockList(data SerializedList[SerializedBlock]) (*BlockList, error) {
	list, err := deserializeList(data, NewBlock, DeserializeBlock)
	if err != nil {
		return nil, err
	}
	return &BlockList{LinkedList: list}, nil
}

// ReorderNodes moves a block and renumbers ordered lists when the moved
// block is one.
func (l *BlockList) ReorderNodes(p ReorderParams) error {
	if err := l.LinkedList.ReorderNodes(p); err != nil {
		return err
	}
	if b, ok := l.GetNode(p.TargetID); ok && b.isOrderedList() {
		l.UpdateAllOrderedListIndices()
	}
	return nil
}

// UpdateAllOrderedListIndices recomputes ListIndex for every live block in
// one pass. Numbering restarts at 1 after a non-list block or when the indent
// grows. When the indent shrinks it resumes after the last ordered item at
// the same level, looking back past deeper items only.
func (l *BlockList) UpdateAllOrderedListIndices() {
	var live []*Block
	l.walk(func(b *Block) bool {
		if !b.Deleted {
			live = append(live, b)
		}
		return true
	})

	for i, b := range live {
		if !b.isOrderedList() {
			b.ListIndex = 0
			continue
		}
		if i == 0 || !live[i-1].isOrderedList() {
			b.ListIndex = 1
			continue
		}
		prev := live[i-1]
		switch {
		case b.Indent == prev.Indent:
			b.ListIndex = prev.ListIndex + 1
		case b.Indent > prev.Indent:
			b.ListIndex = 1
		default:
			b.ListIndex = 1
			for j := i - 1; j >= 0; j-- {
				p := live[j]
				if p.Indent > b.Indent {
					continue
				}
				if p.Indent == b.Indent && p.isOrderedList() {
					b.ListIndex = p.ListIndex + 1
				}
				break
			}
		}
	}
}
