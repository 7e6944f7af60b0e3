package workspace

import (
	"encoding/json"
	"testing"

	"github.com/ssau-fiit/cloudocs-api/crdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair(t *testing.T) (*Workspace, *Workspace, *Page) {
	t.Helper()
	author := New("ws", "Team", 1)
	peer := New("ws", "Team", 2)
	create := author.CreatePage("Notes", "doc")
	require.NoError(t, peer.Apply(wire(t, create)))
	page, err := author.Page(create.Page())
	require.NoError(t, err)
	return author, peer, page
}

func TestWorkspace_Replication(t *testing.T) {
	_, peer, page := newPair(t)

	var ops []crdt.Operation
	for i, v := range []string{"title", "body"} {
		op, err := page.CRDT.LocalInsert(i, v, page.ID)
		require.NoError(t, err)
		ops = append(ops, op)
	}
	first, err := page.CRDT.Blocks().FindByIndex(0)
	require.NoError(t, err)
	text, err := page.CRDT.Text(first.ID)
	require.NoError(t, err)
	for i, r := range "hey" {
		op, err := text.LocalInsert(i, string(r), first.ID, page.ID, crdt.CharAttributes{})
		require.NoError(t, err)
		ops = append(ops, op)
	}
	del, err := text.LocalDelete(2, first.ID, page.ID)
	require.NoError(t, err)
	ops = append(ops, del)

	for _, op := range ops {
		require.NoError(t, peer.Apply(wire(t, op)))
	}

	got, err := peer.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notes", got.Title)
	assert.Equal(t, page.CRDT.Read(), got.CRDT.Read())
	b, err := got.Block(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "he", b.Text())
	assert.Equal(t, uint64(2), got.CRDT.Client())
}

func TestPage_PendingOperations(t *testing.T) {
	author := crdt.NewEditorCRDT(1)
	first, err := author.LocalInsert(0, "first", "p")
	require.NoError(t, err)
	second, err := author.LocalInsert(1, "second", "p")
	require.NoError(t, err)
	text, err := author.Text(second.Node.ID)
	require.NoError(t, err)
	ch, err := text.LocalInsert(0, "x", second.Node.ID, "p", crdt.CharAttributes{})
	require.NoError(t, err)
	del, err := author.LocalDelete(0, "p")
	require.NoError(t, err)

	page := NewPage("p", "", "", 2)

	// Everything arrives in reverse order.
	for _, op := range []crdt.Operation{del, ch, second} {
		err := page.Apply(op)
		assert.ErrorIs(t, err, ErrDeferred)
		assert.ErrorIs(t, err, crdt.ErrMissingDependency)
	}
	assert.Equal(t, 3, page.Pending())
	assert.Equal(t, "", page.CRDT.Read())

	require.NoError(t, page.Apply(first))
	assert.Equal(t, 0, page.Pending())
	assert.Equal(t, author.Read(), page.CRDT.Read())
	assert.Equal(t, "second", page.CRDT.Read())

	b, err := page.Block(second.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, "x", b.Text())
}

func TestPage_PendingTextScopedByBlock(t *testing.T) {
	page := NewPage("p", "", "", 2)
	blockOp, err := crdt.NewEditorCRDT(1).LocalInsert(0, "", "p")
	require.NoError(t, err)
	require.NoError(t, page.Apply(blockOp))

	orphan := crdt.NewChar("y", crdt.NewNodeID(2, 1)).Serialize()
	prev := crdt.NewNodeID(1, 1)
	orphan.Prev = &prev
	err = page.Apply(&crdt.CharInsertOperation{Type: crdt.OpCharInsert, Node: orphan, BlockID: blockOp.Node.ID, PageID: "p"})
	require.ErrorIs(t, err, ErrDeferred)

	// Replaying the block whose id equals the missing char id does not
	// release the char operation.
	require.NoError(t, page.Apply(blockOp))
	assert.Equal(t, 1, page.Pending())

	first := crdt.NewChar("x", prev).Serialize()
	require.NoError(t, page.Apply(&crdt.CharInsertOperation{Type: crdt.OpCharInsert, Node: first, BlockID: blockOp.Node.ID, PageID: "p"}))
	assert.Equal(t, 0, page.Pending())
	b, err := page.Block(blockOp.Node.ID)
	require.NoError(t, err)
	assert.Equal(t, "xy", b.Text())
}

func TestWorkspace_ApplyAllKeepsGoing(t *testing.T) {
	_, peer, page := newPair(t)

	good, err := page.CRDT.LocalInsert(0, "kept", page.ID)
	require.NoError(t, err)
	lost := &crdt.BlockInsertOperation{Type: crdt.OpBlockInsert, Node: crdt.NewBlock("lost", crdt.NewNodeID(1, 9)).Serialize(), PageID: "missing"}
	orphan := crdt.NewBlock("later", crdt.NewNodeID(7, 9)).Serialize()
	orphanPrev := crdt.NewNodeID(6, 9)
	orphan.Prev = &orphanPrev

	err = peer.ApplyAll([]crdt.Operation{
		lost,
		&crdt.BlockInsertOperation{Type: crdt.OpBlockInsert, Node: orphan, PageID: page.ID},
		good,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPageNotFound)
	assert.NotErrorIs(t, err, ErrDeferred)

	got, err := peer.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.CRDT.Read())
	assert.Equal(t, 1, got.Pending())
}

func TestWorkspace_PageOperations(t *testing.T) {
	author, peer, page := newPair(t)

	t.Run("create is idempotent", func(t *testing.T) {
		again := &PageCreateOperation{Type: OpPageCreate, WorkspaceID: "ws", PageData: page.Serialize()}
		require.NoError(t, peer.Apply(again))
		assert.Len(t, peer.Pages, 1)
	})

	t.Run("update ignores blank fields", func(t *testing.T) {
		require.NoError(t, peer.Apply(wire(t, &PageUpdateOperation{Type: OpPageUpdate, PageID: page.ID, Title: "Renamed"})))
		got, err := peer.Page(page.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, "doc", got.Icon)
	})

	t.Run("update unknown page", func(t *testing.T) {
		err := peer.Apply(&PageUpdateOperation{Type: OpPageUpdate, PageID: "nope", Title: "x"})
		assert.ErrorIs(t, err, ErrPageNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		second := author.CreatePage("Second", "")
		require.NoError(t, peer.Apply(wire(t, second)))
		require.Len(t, peer.Pages, 2)

		require.NoError(t, peer.Apply(&PageDeleteOperation{Type: OpPageDelete, PageID: page.ID}))
		require.NoError(t, peer.Apply(&PageDeleteOperation{Type: OpPageDelete, PageID: page.ID}))
		require.Len(t, peer.Pages, 1)
		assert.Equal(t, second.Page(), peer.Pages[0].ID)

		_, err := peer.Page(page.ID)
		assert.ErrorIs(t, err, ErrPageNotFound)
	})
}

func TestWorkspace_SerializeRoundTrip(t *testing.T) {
	author, _, page := newPair(t)
	author.AuthUser["alice"] = RoleOwner
	author.AuthUser["bob"] = RoleEditor

	for i, v := range []string{"a", "b", "c"} {
		_, err := page.CRDT.LocalInsert(i, v, page.ID)
		require.NoError(t, err)
	}
	_, err := page.CRDT.LocalDelete(1, page.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(author.Serialize())
	require.NoError(t, err)
	var data SerializedWorkspace
	require.NoError(t, json.Unmarshal(raw, &data))

	got, err := Deserialize(data, 3)
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)
	assert.Equal(t, author.Name, got.Name)
	assert.Equal(t, author.AuthUser, got.AuthUser)
	require.Len(t, got.Pages, 1)

	gp := got.Pages[0]
	assert.Equal(t, page.ID, gp.ID)
	assert.Equal(t, "ac", gp.CRDT.Read())
	assert.Equal(t, 3, gp.CRDT.Blocks().Size())
	assert.Equal(t, *page.CRDT.Blocks().Head(), *gp.CRDT.Blocks().Head())
	assert.Equal(t, uint64(3), gp.CRDT.Client())

	assert.Equal(t, 1, got.ClearDeleted())
	assert.Equal(t, "ac", gp.CRDT.Read())
	assert.Equal(t, 2, gp.CRDT.Blocks().Size())
}
