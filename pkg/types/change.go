package types

// ChangeOp names the kind of mutation a Change describes.
type ChangeOp string

// Change operations.
const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// Change is one mutation observed on a store. For OpDelete only Idea.ID is
// guaranteed to be set.
type Change struct {
	Op   ChangeOp `json:"op"`
	Idea Idea     `json:"idea"`
}
