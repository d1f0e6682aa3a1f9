package tui

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
)

// FileNode is a directory or env file in a tree of relative paths.
type FileNode struct {
	Name     string
	Children []*FileNode
	File     string // relative path; empty for directories
}

// BuildFileTree nests slash or OS separated relative paths under a root
// named ".". Files sort before directories, then by name.
func BuildFileTree(paths []string) *FileNode {
	root := &FileNode{Name: "."}
	for _, p := range paths {
		parts := strings.Split(filepath.ToSlash(p), "/")
		cur := root
		for i, part := range parts {
			if i == len(parts)-1 {
				cur.Children = append(cur.Children, &FileNode{Name: part, File: p})
				break
			}
			var next *FileNode
			for _, ch := range cur.Children {
				if ch.Name == part && ch.File == "" {
					next = ch
					break
				}
			}
			if next == nil {
				next = &FileNode{Name: part}
				cur.Children = append(cur.Children, next)
			}
			cur = next
		}
	}
	sortFileTree(root)
	return root
}

func sortFileTree(node *FileNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		ci, cj := node.Children[i], node.Children[j]
		if (ci.File != "") != (cj.File != "") {
			return ci.File != ""
		}
		return ci.Name < cj.Name
	})
	for _, ch := range node.Children {
		sortFileTree(ch)
	}
}

// RenderFileTree draws node with box-drawing connectors. Directories use
// LabelStyle, files KeyStyle.
func RenderFileTree(node *FileNode) string {
	return toLipglossTree(node).String()
}

func toLipglossTree(node *FileNode) *tree.Tree {
	t := tree.Root(LabelStyle.Render(node.Name))
	for _, ch := range node.Children {
		if ch.File != "" {
			t.Child(KeyStyle.Render(ch.Name))
			continue
		}
		t.Child(toLipglossTree(ch))
	}
	return t
}
