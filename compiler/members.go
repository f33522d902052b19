package compiler

// MemberKind distinguishes fields from methods in the validity table.
type MemberKind int

const (
	MemberField MemberKind = iota
	MemberMethod
)

// Member is one legal dot-call target on a receiver type.
type Member struct {
	Name   string
	Kind   MemberKind
	Params []Type // methods only
	Result Type
	Index  int    // struct field index for class fields
	Symbol string // runtime function lowering a list or graph member
}

// MemberTable records, per receiver type, the members legal via dot-call
// syntax. Entries are registered as declarations are analyzed.
type MemberTable struct {
	byType map[string]map[string]*Member
}

func NewMemberTable() *MemberTable {
	return &MemberTable{byType: map[string]map[string]*Member{}}
}

// runtimeSuffix names a scalar element kind inside runtime symbols.
func runtimeSuffix(k Kind) string {
	return k.String()
}

// RegisterList makes the list<elem> members available.
func (mt *MemberTable) RegisterList(elem Kind) {
	t := ListOf(elem)
	if _, done := mt.byType[t.String()]; done {
		return
	}
	e := t.ElemType()
	sfx := "_" + runtimeSuffix(elem)
	mt.add(t, &Member{Name: "size", Kind: MemberField, Result: TypeInt, Symbol: "pyrx_list_size"})
	mt.add(t, &Member{Name: "add", Kind: MemberMethod, Params: []Type{e}, Result: TypeVoid, Symbol: "pyrx_list_add" + sfx})
	mt.add(t, &Member{Name: "insert", Kind: MemberMethod, Params: []Type{e, TypeInt}, Result: TypeVoid, Symbol: "pyrx_list_insert" + sfx})
	mt.add(t, &Member{Name: "remove", Kind: MemberMethod, Params: []Type{TypeInt}, Result: e, Symbol: "pyrx_list_remove" + sfx})
	mt.add(t, &Member{Name: "at", Kind: MemberMethod, Params: []Type{TypeInt}, Result: e, Symbol: "pyrx_list_at" + sfx})
}

// RegisterGraph makes the graph<elem> members available.
func (mt *MemberTable) RegisterGraph(elem Kind) {
	t := GraphOf(elem)
	if _, done := mt.byType[t.String()]; done {
		return
	}
	e := t.ElemType()
	sfx := "_" + runtimeSuffix(elem)
	mt.add(t, &Member{Name: "size", Kind: MemberField, Result: TypeInt, Symbol: "pyrx_graph_size"})
	mt.add(t, &Member{Name: "add_node", Kind: MemberMethod, Params: []Type{e}, Result: TypeVoid, Symbol: "pyrx_graph_add_node" + sfx})
	mt.add(t, &Member{Name: "remove_node", Kind: MemberMethod, Params: []Type{e}, Result: TypeVoid, Symbol: "pyrx_graph_remove_node" + sfx})
	mt.add(t, &Member{Name: "contains", Kind: MemberMethod, Params: []Type{e}, Result: TypeBool, Symbol: "pyrx_graph_contains" + sfx})
	mt.add(t, &Member{Name: "add_edge", Kind: MemberMethod, Params: []Type{e, e}, Result: TypeVoid, Symbol: "pyrx_graph_add_edge" + sfx})
	mt.add(t, &Member{Name: "remove_edge", Kind: MemberMethod, Params: []Type{e, e}, Result: TypeVoid, Symbol: "pyrx_graph_remove_edge" + sfx})
}

// RegisterClass makes every field of a class accessible. Classes have no
// methods.
func (mt *MemberTable) RegisterClass(name string, fields []Field) {
	t := ClassType(name)
	for i, f := range fields {
		mt.add(t, &Member{Name: f.Name, Kind: MemberField, Result: f.Type, Index: i})
	}
	if len(fields) == 0 {
		mt.byType[t.String()] = map[string]*Member{}
	}
}

func (mt *MemberTable) add(t Type, m *Member) {
	key := t.String()
	members := mt.byType[key]
	if members == nil {
		members = map[string]*Member{}
		mt.byType[key] = members
	}
	members[m.Name] = m
}

// Lookup finds member name on receiver type t.
func (mt *MemberTable) Lookup(t Type, name string) (*Member, bool) {
	m, ok := mt.byType[t.String()][name]
	return m, ok
}

// Members lists the members registered for t, in no particular order.
func (mt *MemberTable) Members(t Type) []*Member {
	var out []*Member
	for _, m := range mt.byType[t.String()] {
		out = append(out, m)
	}
	return out
}
