package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that string enums (channel kinds, email frequencies, subscription statuses, consumer outcomes) are only set from their declared constants",
	Run:  run,
}

// enumTypes are matched by type name so the analyzer also works on testdata
// packages that redeclare them.
var enumTypes = map[string]bool{
	"ChannelKind":        true,
	"EmailFrequency":     true,
	"SubscriptionStatus": true,
	"Outcome":            true,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.GenDecl:
				// The constants themselves are declared from literals.
				return node.Tok != token.CONST
			case *ast.BasicLit:
				if node.Kind != token.STRING {
					return false
				}
				if name, ok := enumTypeOf(pass, node); ok {
					pass.Reportf(node.Pos(),
						"string literal %s used as %s; use a declared %s constant instead",
						node.Value, name, name)
				}
				return false
			}
			return true
		})
	}
	return nil, nil
}

// enumTypeOf reports the enum a literal was converted to. The type checker
// records untyped constants with the type they were assigned to.
func enumTypeOf(pass *analysis.Pass, lit *ast.BasicLit) (string, bool) {
	t := pass.TypesInfo.TypeOf(lit)
	if t == nil {
		return "", false
	}
	named, ok := t.(*types.Named)
	if !ok {
		return "", false
	}
	if basic, ok := named.Underlying().(*types.Basic); !ok || basic.Info()&types.IsString == 0 {
		return "", false
	}
	name := named.Obj().Name()
	return name, enumTypes[name]
}
