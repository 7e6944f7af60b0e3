package workspace

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/ssau-fiit/cloudocs-api/crdt"
)

const (
	OpPageCreate crdt.OperationType = "pageCreate"
	OpPageUpdate crdt.OperationType = "pageUpdate"
	OpPageDelete crdt.OperationType = "pageDelete"
)

type PageCreateOperation struct {
	Type        crdt.OperationType `json:"type"`
	WorkspaceID string             `json:"workspaceId"`
	ClientID    uint64             `json:"clientId"`
	PageData    SerializedPage     `json:"page"`
}

type PageUpdateOperation struct {
	Type        crdt.OperationType `json:"type"`
	WorkspaceID string             `json:"workspaceId"`
	PageID      string             `json:"pageId"`
	Title       string             `json:"title"`
	Icon        string             `json:"icon"`
	ClientID    uint64             `json:"clientId"`
}

type PageDeleteOperation struct {
	Type        crdt.OperationType `json:"type"`
	WorkspaceID string             `json:"workspaceId"`
	PageID      string             `json:"pageId"`
	ClientID    uint64             `json:"clientId"`
}

func (*PageCreateOperation) OpType() crdt.OperationType { return OpPageCreate }
func (*PageUpdateOperation) OpType() crdt.OperationType { return OpPageUpdate }
func (*PageDeleteOperation) OpType() crdt.OperationType { return OpPageDelete }

func (op *PageCreateOperation) Page() string { return op.PageData.ID }
func (op *PageUpdateOperation) Page() string { return op.PageID }
func (op *PageDeleteOperation) Page() string { return op.PageID }

func newOperation(t crdt.OperationType) (crdt.Operation, error) {
	switch t {
	case crdt.OpBlockInsert:
		return &crdt.BlockInsertOperation{}, nil
	case crdt.OpBlockDelete:
		return &crdt.BlockDeleteOperation{}, nil
	case crdt.OpBlockUpdate:
		return &crdt.BlockUpdateOperation{}, nil
	case crdt.OpBlockReorder:
		return &crdt.BlockReorderOperation{}, nil
	case crdt.OpBlockCheckbox:
		return &crdt.BlockCheckboxOperation{}, nil
	case crdt.OpCharInsert:
		return &crdt.CharInsertOperation{}, nil
	case crdt.OpCharDelete:
		return &crdt.CharDeleteOperation{}, nil
	case crdt.OpCharUpdate:
		return &crdt.CharUpdateOperation{}, nil
	case OpPageCreate:
		return &PageCreateOperation{}, nil
	case OpPageUpdate:
		return &PageUpdateOperation{}, nil
	case OpPageDelete:
		return &PageDeleteOperation{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, t)
}

// DecodeOperation parses a wire payload into its typed operation.
func DecodeOperation(raw []byte) (crdt.Operation, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode operation: %w", err)
	}
	return DecodeOperationMap(fields)
}

// DecodeOperationMap picks the operation type from the "type" field and
// decodes the remaining fields into it.
func DecodeOperationMap(fields map[string]any) (crdt.Operation, error) {
	t, _ := fields["type"].(string)
	op, err := newOperation(crdt.OperationType(t))
	if err != nil {
		return nil, err
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           op,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(fields); err != nil {
		return nil, fmt.Errorf("decode %s operation: %w", t, err)
	}
	return op, nil
}
