package glossa

// walkTree traverses the subtree rooted at root in document order,
// inclusive of the root. elem is invoked for every element encountered and
// unit for every attribute and non-element child. For each element the
// traversal visits its attributes, then the top-level nodes of its shadow
// tree as additional roots, then its regular children. Either callback may
// be nil.
func walkTree(root Element, elem func(Element), unit func(Node)) {
	if elem != nil {
		elem(root)
	}
	if unit != nil {
		for _, a := range root.Attrs() {
			unit(a)
		}
	}
	for _, n := range root.Shadow() {
		walkNode(n, elem, unit)
	}
	for _, n := range root.Nodes() {
		walkNode(n, elem, unit)
	}
}

func walkNode(n Node, elem func(Element), unit func(Node)) {
	if el, ok := n.(Element); ok {
		walkTree(el, elem, unit)
		return
	}
	if unit != nil {
		unit(n)
	}
}

// forEachUnit visits every candidate translatable unit under root: the
// attributes of root and of every descendant element, and every
// non-element descendant node. Elements themselves are never passed to
// visit.
func forEachUnit(root Element, visit func(Node)) {
	walkTree(root, nil, visit)
}
