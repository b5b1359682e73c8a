package schema

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// User is the authenticated caller as seen by access rules.
type User struct {
	ID    string
	Email string
	Role  string
}

// AccessArgs is passed to access rules.
type AccessArgs struct {
	// User is the caller, nil when anonymous.
	User *User

	// ID is the target document for get, update and delete; empty otherwise.
	ID string
}

// AccessFunc decides whether an operation is permitted.
type AccessFunc func(args AccessArgs) bool

// Access holds one rule per operation. A nil rule falls back to
// Authenticated.
type Access struct {
	Read   AccessFunc
	Create AccessFunc
	Update AccessFunc
	Delete AccessFunc
}

// AllowAll permits every caller, anonymous or authenticated.
func AllowAll(AccessArgs) bool {
	return true
}

// Authenticated permits any logged in caller.
func Authenticated(args AccessArgs) bool {
	return args.User != nil
}

// Rule returns the effective rule for an operation name
// (read, create, update, delete).
func (a Access) Rule(op string) AccessFunc {
	var fn AccessFunc
	switch op {
	case "read":
		fn = a.Read
	case "create":
		fn = a.Create
	case "update":
		fn = a.Update
	case "delete":
		fn = a.Delete
	}
	if fn == nil {
		return Authenticated
	}
	return fn
}

// accessEnv is the expression environment of YAML access rules.
type accessEnv struct {
	User *User  `expr:"user"`
	ID   string `expr:"id"`
}

var (
	programMu    sync.Mutex
	programCache = make(map[string]*vm.Program)
)

// CompileAccess compiles an expr-lang expression into an AccessFunc.
// The expression must evaluate to a boolean. A runtime evaluation error
// denies access.
func CompileAccess(expression string) (AccessFunc, error) {
	programMu.Lock()
	program, ok := programCache[expression]
	programMu.Unlock()

	if !ok {
		compiled, err := expr.Compile(expression, expr.Env(accessEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile access rule %q: %w", expression, err)
		}
		program = compiled

		programMu.Lock()
		programCache[expression] = program
		programMu.Unlock()
	}

	return func(args AccessArgs) bool {
		out, err := expr.Run(program, accessEnv{User: args.User, ID: args.ID})
		if err != nil {
			return false
		}
		allowed, _ := out.(bool)
		return allowed
	}, nil
}
