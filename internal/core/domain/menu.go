package domain

import "time"

// MenuType discriminates nodes in the menu tree.
type MenuType string

const (
	MenuTypeDirectory MenuType = "DIRECTORY"
	MenuTypeMenu      MenuType = "MENU"
	MenuTypeFeature   MenuType = "FEATURE"
)

// Menu is a node in the self-referential navigation tree. Code is the
// permission code gating visibility; nil means visible to any authenticated
// caller.
type Menu struct {
	ID        int64
	ParentID  *int64
	Type      MenuType
	Code      *string
	Title     string
	Icon      *string
	Path      *string
	Component *string
	Sort      int32
	Hidden    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MenuNode is a menu with its resolved children.
type MenuNode struct {
	Menu
	Children []*MenuNode
}

// BuildMenuTree assembles flat rows into a forest. Rows whose parent is
// missing from the input are treated as roots. Siblings keep the input order,
// so callers sort rows before assembly.
func BuildMenuTree(menus []Menu) []*MenuNode {
	nodes := make(map[int64]*MenuNode, len(menus))
	for _, m := range menus {
		nodes[m.ID] = &MenuNode{Menu: m}
	}

	var roots []*MenuNode
	for _, m := range menus {
		node := nodes[m.ID]
		if m.ParentID != nil {
			if parent, ok := nodes[*m.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	return roots
}

// FilterMenuTree prunes nodes whose permission code is not allowed. A
// directory survives only while it still has a visible descendant after
// filtering.
func FilterMenuTree(nodes []*MenuNode, allowed func(code *string) bool) []*MenuNode {
	var visible []*MenuNode
	for _, node := range nodes {
		node.Children = FilterMenuTree(node.Children, allowed)
		if node.Type == MenuTypeDirectory {
			if len(node.Children) > 0 {
				visible = append(visible, node)
			}
			continue
		}
		if allowed(node.Code) {
			visible = append(visible, node)
		}
	}
	return visible
}
