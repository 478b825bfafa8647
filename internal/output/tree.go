package output

import (
	"sort"
	"strings"
)

const (
	treeEdge  = "├── "
	treeLast  = "└── "
	treeVert  = "│   "
	treeSpace = "    "

	// markerColumn is where file markers start when the path is short enough.
	markerColumn = 32
)

// FileEntry is one generated file shown in a project tree.
type FileEntry struct {
	// Path is slash-separated and relative to the project root.
	Path string

	// Binary marks files copied without content substitution.
	Binary bool

	// Unresolved counts placeholders left verbatim in the file's name
	// and content.
	Unresolved int
}

// markers returns the annotations rendered after the file name.
func (e FileEntry) markers() []string {
	var m []string
	if e.Unresolved > 0 {
		m = append(m, FormatWarningCount(e.Unresolved, "unresolved placeholder"))
	}
	if e.Binary {
		m = append(m, StyleDim.Render("binary"))
	}
	return m
}

// projectNode is a directory or file in the rendered tree. Directories
// are created implicitly from the paths of the files beneath them.
type projectNode struct {
	name     string
	file     *FileEntry
	children []*projectNode
	index    map[string]*projectNode
}

func (n *projectNode) isDir() bool { return n.file == nil }

func (n *projectNode) child(name string) *projectNode {
	if c, ok := n.index[name]; ok {
		return c
	}
	c := &projectNode{name: name, index: map[string]*projectNode{}}
	n.index[name] = c
	n.children = append(n.children, c)
	return c
}

// RenderFileTree renders the generated project rooted at rootName.
// Directories sort before files; each file carries its unresolved and
// binary markers. An empty entry list renders nothing.
func RenderFileTree(rootName string, entries []FileEntry) string {
	if len(entries) == 0 {
		return ""
	}

	root := &projectNode{name: rootName, index: map[string]*projectNode{}}
	for i := range entries {
		parts := strings.Split(entries[i].Path, "/")
		n := root
		for _, part := range parts[:len(parts)-1] {
			n = n.child(part)
		}
		n.child(parts[len(parts)-1]).file = &entries[i]
	}

	var sb strings.Builder
	sb.WriteString(StyleBold.Render(rootName + "/"))
	sb.WriteString("\n")
	writeChildren(&sb, root, "")
	return sb.String()
}

func writeChildren(sb *strings.Builder, n *projectNode, prefix string) {
	sort.Slice(n.children, func(i, j int) bool {
		a, b := n.children[i], n.children[j]
		if a.isDir() != b.isDir() {
			return a.isDir()
		}
		return a.name < b.name
	})

	for i, c := range n.children {
		last := i == len(n.children)-1
		connector, indent := treeEdge, treeVert
		if last {
			connector, indent = treeLast, treeSpace
		}

		if c.isDir() {
			sb.WriteString(prefix + connector + c.name + "/\n")
			writeChildren(sb, c, prefix+indent)
			continue
		}

		line := prefix + connector + c.name
		if m := c.file.markers(); len(m) > 0 {
			pad := markerColumn - len([]rune(line))
			if pad < 2 {
				pad = 2
			}
			line += strings.Repeat(" ", pad) + strings.Join(m, StyleDim.Render(", "))
		}
		sb.WriteString(line + "\n")
	}
}
