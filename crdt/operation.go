package crdt

// OperationType is the "type" discriminator carried by every payload.
type OperationType string

const (
	OpBlockInsert   OperationType = "blockInsert"
	OpBlockDelete   OperationType = "blockDelete"
	OpBlockUpdate   OperationType = "blockUpdate"
	OpBlockReorder  OperationType = "blockReorder"
	OpBlockCheckbox OperationType = "blockCheckbox"
	OpCharInsert    OperationType = "charInsert"
	OpCharDelete    OperationType = "charDelete"
	OpCharUpdate    OperationType = "charUpdate"
)

// Operation is a replicated edit as it travels between replicas.
type Operation interface {
	OpType() OperationType
	// Page is the id of the page the operation targets.
	Page() string
}

// CharOperation targets the text of a single block.
type CharOperation interface {
	Operation
	Block() BlockID
}

type BlockInsertOperation struct {
	Type   OperationType   `json:"type"`
	Node   SerializedBlock `json:"node"`
	PageID string          `json:"pageId"`
}

type BlockDeleteOperation struct {
	Type     OperationType `json:"type"`
	TargetID BlockID       `json:"targetId"`
	Clock    uint64        `json:"clock"`
	PageID   string        `json:"pageId"`
}

type BlockUpdateOperation struct {
	Type   OperationType   `json:"type"`
	Node   SerializedBlock `json:"node"`
	PageID string          `json:"pageId"`
}

type BlockReorderOperation struct {
	Type     OperationType `json:"type"`
	TargetID BlockID       `json:"targetId"`
	BeforeID *BlockID      `json:"beforeId"`
	AfterID  *BlockID      `json:"afterId"`
	Clock    uint64        `json:"clock"`
	Client   uint64        `json:"client"`
	PageID   string        `json:"pageId"`
}

type BlockCheckboxOperation struct {
	Type      OperationType `json:"type"`
	BlockID   BlockID       `json:"blockId"`
	IsChecked bool          `json:"isChecked"`
	PageID    string        `json:"pageId"`
}

type CharInsertOperation struct {
	Type            OperationType  `json:"type"`
	Node            SerializedChar `json:"node"`
	BlockID         BlockID        `json:"blockId"`
	PageID          string         `json:"pageId"`
	Style           []string       `json:"style"`
	Color           string         `json:"color,omitempty"`
	BackgroundColor string         `json:"backgroundColor,omitempty"`
}

type CharDeleteOperation struct {
	Type     OperationType `json:"type"`
	TargetID CharID        `json:"targetId"`
	Clock    uint64        `json:"clock"`
	BlockID  BlockID       `json:"blockId"`
	PageID   string        `json:"pageId"`
}

type CharUpdateOperation struct {
	Type    OperationType  `json:"type"`
	Node    SerializedChar `json:"node"`
	BlockID BlockID        `json:"blockId"`
	PageID  string         `json:"pageId"`
}

func (*BlockInsertOperation) OpType() OperationType   { return OpBlockInsert }
func (*BlockDeleteOperation) OpType() OperationType   { return OpBlockDelete }
func (*BlockUpdateOperation) OpType() OperationType   { return OpBlockUpdate }
func (*BlockReorderOperation) OpType() OperationType  { return OpBlockReorder }
func (*BlockCheckboxOperation) OpType() OperationType { return OpBlockCheckbox }
func (*CharInsertOperation) OpType() OperationType    { return OpCharInsert }
func (*CharDeleteOperation) OpType() OperationType    { return OpCharDelete }
func (*CharUpdateOperation) OpType() OperationType    { return OpCharUpdate }

func (op *BlockInsertOperation) Page() string   { return op.PageID }
func (op *BlockDeleteOperation) Page() string   { return op.PageID }
func (op *BlockUpdateOperation) Page() string   { return op.PageID }
func (op *BlockReorderOperation) Page() string  { return op.PageID }
func (op *BlockCheckboxOperation) Page() string { return op.PageID }
func (op *CharInsertOperation) Page() string    { return op.PageID }
func (op *CharDeleteOperation) Page() string    { return op.PageID }
func (op *CharUpdateOperation) Page() string    { return op.PageID }

func (op *CharInsertOperation) Block() BlockID { return op.BlockID }
func (op *CharDeleteOperation) Block() BlockID { return op.BlockID }
func (op *CharUpdateOperation) Block() BlockID { return op.BlockID }
