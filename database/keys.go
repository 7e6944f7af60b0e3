package database

import "fmt"

// pendingKey holds the ids of workspaces with operations not yet folded
// into their snapshot.
const pendingKey = "operations.pending"

func workspaceKey(id string) string {
	return fmt.Sprintf("workspaces.%v", id)
}

func infoKey(id string) string {
	return fmt.Sprintf("workspaces.%v.info", id)
}

func operationsKey(id string) string {
	return fmt.Sprintf("operations.%v", id)
}

func channel(id string) string {
	return fmt.Sprintf("workspaces.%v.ops", id)
}

func snapshotLockKey(id string) string {
	return fmt.Sprintf("workspaces.%v.snapshot", id)
}
