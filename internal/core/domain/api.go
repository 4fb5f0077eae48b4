package domain

import "time"

// ApiType discriminates nodes in the API-permission tree.
type ApiType string

const (
	ApiTypeDirectory ApiType = "DIRECTORY"
	ApiTypeApi       ApiType = "API"
)

// Api is a managed API-permission record. Leaf nodes bind a permission code
// to an HTTP method and path; directory nodes only group.
type Api struct {
	ID        int64
	ParentID  *int64
	Type      ApiType
	Code      *string
	Method    *string
	Path      *string
	Title     string
	Sort      int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApiNode is an API record with its resolved children.
type ApiNode struct {
	Api
	Children []*ApiNode
}

// BuildApiTree assembles flat API rows into a forest, mirroring BuildMenuTree.
func BuildApiTree(apis []Api) []*ApiNode {
	nodes := make(map[int64]*ApiNode, len(apis))
	for _, a := range apis {
		nodes[a.ID] = &ApiNode{Api: a}
	}

	var roots []*ApiNode
	for _, a := range apis {
		node := nodes[a.ID]
		if a.ParentID != nil {
			if parent, ok := nodes[*a.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}
