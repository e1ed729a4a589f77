package sandbox

// Program is a compiled function body: a statement list plus the source
// hash it was compiled from.
type Program struct {
	Stmts []Stmt
}

type Stmt interface{ stmtNode() }

type LetStmt struct {
	Name  string
	Value Expr
}

// AssignStmt assigns to an identifier, member or index target.
type AssignStmt struct {
	Target Expr
	Value  Expr
}

type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

// ReturnStmt with a nil Value returns null.
type ReturnStmt struct {
	Value Expr
}

type ExprStmt struct {
	X Expr
}

func (*LetStmt) stmtNode()    {}
func (*AssignStmt) stmtNode() {}
func (*IfStmt) stmtNode()     {}
func (*WhileStmt) stmtNode()  {}
func (*ReturnStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}

type Expr interface{ exprNode() }

type NumberLit struct{ Value float64 }
type StringLit struct{ Value string }
type BoolLit struct{ Value bool }
type NullLit struct{}

type ArrayLit struct{ Elems []Expr }

// ObjectLit keeps keys ordered the way they were written.
type ObjectLit struct {
	Keys   []string
	Values []Expr
}

type Ident struct{ Name string }

type MemberExpr struct {
	X    Expr
	Name string
}

type IndexExpr struct {
	X     Expr
	Index Expr
}

// CallExpr calls into the builtin library; callees are bare names only,
// so user code can never construct or receive a callable value.
type CallExpr struct {
	Name string
	Args []Expr
}

type UnaryExpr struct {
	Op string // -, !
	X  Expr
}

type BinaryExpr struct {
	Op   string
	L, R Expr
}

func (*NumberLit) exprNode()  {}
func (*StringLit) exprNode()  {}
func (*BoolLit) exprNode()    {}
func (*NullLit) exprNode()    {}
func (*ArrayLit) exprNode()   {}
func (*ObjectLit) exprNode()  {}
func (*Ident) exprNode()      {}
func (*MemberExpr) exprNode() {}
func (*IndexExpr) exprNode()  {}
func (*CallExpr) exprNode()   {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
