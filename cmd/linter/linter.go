// Command linter запускает анализатор exitcheck через singlechecker.
package main

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/analysis/singlechecker"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	zapPkgPath = "go.uber.org/zap"
	nolintMark = "nolint:exitcheck"
)

var Analyzer = &analysis.Analyzer{
	Name:     "exitcheck",
	Doc:      "проверяет использование panic, os.Exit, log.Fatal и Fatal-методов zap вне функции main пакета main",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func main() {
	singlechecker.Main(Analyzer)
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	allowed := nolintLines(pass)

	insp.WithStack([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		call := n.(*ast.CallExpr)

		pos := pass.Fset.Position(call.Pos())
		if allowed[lineKey{pos.Filename, pos.Line}] {
			return true
		}

		if ident, ok := call.Fun.(*ast.Ident); ok {
			if ident.Name == "panic" && isBuiltin(pass, ident) {
				pass.Reportf(call.Pos(), "использование встроенной функции panic")
			}
			return true
		}

		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}

		name, ok := exitCallName(pass, sel)
		if !ok {
			return true
		}

		if !inMainFunc(pass, stack) {
			pass.Reportf(call.Pos(), "вызов %s вне функции main пакета main", name)
		}
		return true
	})

	return nil, nil
}

// exitCallName возвращает имя вызова, завершающего процесс.
func exitCallName(pass *analysis.Pass, sel *ast.SelectorExpr) (string, bool) {
	funcName := sel.Sel.Name

	if x, ok := sel.X.(*ast.Ident); ok {
		if pkgName, ok := pass.TypesInfo.Uses[x].(*types.PkgName); ok {
			switch pkgName.Imported().Path() {
			case "log":
				if isFatalFunc(funcName) {
					return "log." + funcName, true
				}
			case "os":
				if funcName == "Exit" {
					return "os.Exit", true
				}
			}
			return "", false
		}
	}

	if !strings.HasPrefix(funcName, "Fatal") {
		return "", false
	}

	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok {
		return "", false
	}
	fn, ok := selection.Obj().(*types.Func)
	if !ok || fn.Pkg() == nil || fn.Pkg().Path() != zapPkgPath {
		return "", false
	}

	return "zap " + funcName, true
}

func isFatalFunc(name string) bool {
	return name == "Fatal" || name == "Fatalf" || name == "Fatalln"
}

func isBuiltin(pass *analysis.Pass, ident *ast.Ident) bool {
	_, ok := pass.TypesInfo.Uses[ident].(*types.Builtin)
	return ok
}

// inMainFunc проверяет, находится ли вызов внутри функции main пакета main.
// Вызов внутри замыкания в main тоже считается допустимым.
func inMainFunc(pass *analysis.Pass, stack []ast.Node) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if fd, ok := stack[i].(*ast.FuncDecl); ok {
			return fd.Name.Name == "main" && fd.Recv == nil
		}
	}
	return false
}

type lineKey struct {
	file string
	line int
}

// nolintLines собирает строки, помеченные комментарием nolint:exitcheck.
func nolintLines(pass *analysis.Pass) map[lineKey]bool {
	lines := make(map[lineKey]bool)
	for _, file := range pass.Files {
		for _, group := range file.Comments {
			for _, c := range group.List {
				if strings.Contains(c.Text, nolintMark) {
					pos := pass.Fset.Position(c.Pos())
					lines[lineKey{pos.Filename, pos.Line}] = true
				}
			}
		}
	}
	return lines
}
