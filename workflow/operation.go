package workflow

// OpKind identifies one of the closed set of operations a task may invoke.
type OpKind string

const (
	OpSetField         OpKind = "set_field"
	OpAppendField      OpKind = "append_field"
	OpReset            OpKind = "reset"
	OpRaiseTermination OpKind = "raise_termination"
	OpWriteArtifact    OpKind = "write_artifact"
	OpQuery            OpKind = "query"
)

// Operation is a tagged variant dispatched by TaskContext.Do.
// The set is closed: only the types in this file implement it.
type Operation interface {
	Kind() OpKind
	isOperation()
}

// SetField overwrites a scalar field.
type SetField struct {
	Field Field
	Value any
}

// AppendField appends to a list field.
type AppendField struct {
	Field Field
	Value string
}

// ResetState zeroes every session field. Allowed once per run, first.
type ResetState struct{}

// RaiseTermination ends the enclosing bounded loop after the current iteration.
type RaiseTermination struct{}

// WriteArtifact persists content through the ArtifactWriter collaborator.
type WriteArtifact struct {
	Directory string
	Filename  string
	Content   string
}

// Query asks the research collaborator for a text summary.
type Query struct {
	Text string
}

func (SetField) Kind() OpKind         { return OpSetField }
func (AppendField) Kind() OpKind      { return OpAppendField }
func (ResetState) Kind() OpKind       { return OpReset }
func (RaiseTermination) Kind() OpKind { return OpRaiseTermination }
func (WriteArtifact) Kind() OpKind    { return OpWriteArtifact }
func (Query) Kind() OpKind            { return OpQuery }

func (SetField) isOperation()         {}
func (AppendField) isOperation()      {}
func (ResetState) isOperation()       {}
func (RaiseTermination) isOperation() {}
func (WriteArtifact) isOperation()    {}
func (Query) isOperation()            {}

// Result carries the output of an operation. Only the fields relevant to the
// operation kind are populated.
type Result struct {
	Status  string `json:"status"`
	Length  int    `json:"length,omitempty"`
	Path    string `json:"path,omitempty"`
	Summary string `json:"summary,omitempty"`
}
