package workspace

import (
	"encoding/json"
	"testing"

	"github.com/ssau-fiit/cloudocs-api/crdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wire sends an operation through its JSON form and back.
func wire(t *testing.T, op crdt.Operation) crdt.Operation {
	t.Helper()
	raw, err := json.Marshal(op)
	require.NoError(t, err)
	got, err := DecodeOperation(raw)
	require.NoError(t, err)
	return got
}

func TestDecodeOperation(t *testing.T) {
	a, b := crdt.NewNodeID(1, 5), crdt.NewNodeID(2, 5)
	ops := []crdt.Operation{
		&crdt.BlockDeleteOperation{Type: crdt.OpBlockDelete, TargetID: a, Clock: 9, PageID: "p"},
		&crdt.BlockReorderOperation{Type: crdt.OpBlockReorder, TargetID: a, BeforeID: &b, Clock: 3, Client: 5, PageID: "p"},
		&crdt.BlockCheckboxOperation{Type: crdt.OpBlockCheckbox, BlockID: a, IsChecked: true, PageID: "p"},
		&crdt.CharDeleteOperation{Type: crdt.OpCharDelete, TargetID: b, Clock: 4, BlockID: a, PageID: "p"},
		&PageUpdateOperation{Type: OpPageUpdate, WorkspaceID: "w", PageID: "p", Title: "Notes", Icon: "doc", ClientID: 5},
		&PageDeleteOperation{Type: OpPageDelete, WorkspaceID: "w", PageID: "p", ClientID: 5},
	}
	for _, op := range ops {
		t.Run(string(op.OpType()), func(t *testing.T) {
			assert.Equal(t, op, wire(t, op))
		})
	}
}

func TestDecodeOperation_Nodes(t *testing.T) {
	e := crdt.NewEditorCRDT(5)
	_, err := e.LocalInsert(0, "first", "p")
	require.NoError(t, err)
	ins, err := e.LocalInsert(1, "second", "p")
	require.NoError(t, err)

	got, ok := wire(t, ins).(*crdt.BlockInsertOperation)
	require.True(t, ok)
	assert.Equal(t, ins.Node.ID, got.Node.ID)
	assert.Equal(t, ins.Node.Value, got.Node.Value)
	assert.Equal(t, *ins.Node.Prev, *got.Node.Prev)
	assert.Nil(t, got.Node.Next)
	assert.Equal(t, crdt.BlockParagraph, got.Node.Type)
	require.NotNil(t, got.Node.CRDT)
	assert.Equal(t, uint64(5), got.Node.CRDT.Client)

	text, err := e.Text(ins.Node.ID)
	require.NoError(t, err)
	ch, err := text.LocalInsert(0, "x", ins.Node.ID, "p", crdt.CharAttributes{Style: []string{crdt.StyleBold}, Color: "red"})
	require.NoError(t, err)

	gotCh, ok := wire(t, ch).(*crdt.CharInsertOperation)
	require.True(t, ok)
	assert.Equal(t, ch.Node.ID, gotCh.Node.ID)
	assert.Equal(t, ch.BlockID, gotCh.BlockID)
	assert.Equal(t, []string{crdt.StyleBold}, gotCh.Style)
	assert.Equal(t, "red", gotCh.Color)
}

func TestDecodeOperation_Errors(t *testing.T) {
	_, err := DecodeOperation([]byte(`{"type":"teleport"}`))
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = DecodeOperation([]byte(`{"pageId":"p"}`))
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = DecodeOperation([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeOperation([]byte(`{"type":"blockDelete","targetId":"nope"}`))
	assert.Error(t, err)
}
