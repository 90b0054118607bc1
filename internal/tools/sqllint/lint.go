package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"studio/internal/infra"
)

var sqlKeyword = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create|alter)\b`)

const markerMessage = "missing or invalid --sql <uuid> marker"

type violation struct {
	file    string
	name    string
	line    int
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.file, v.line, v.message, v.name)
}

// statement is one marked SQL text found in a Go constant or a .sql file.
type statement struct {
	file   string
	name   string
	line   int
	marker string
}

func lintPaths(targets []string) ([]violation, error) {
	var (
		violations []violation
		statements []statement
	)
	visit := func(path string) error {
		var (
			vs []violation
			st []statement
			err error
		)
		switch filepath.Ext(path) {
		case ".go":
			if strings.HasSuffix(path, "_test.go") {
				return nil
			}
			vs, st, err = lintGoFile(path)
		case ".sql":
			vs, st, err = lintSQLFile(path)
		default:
			return nil
		}
		if err != nil {
			return err
		}
		violations = append(violations, vs...)
		statements = append(statements, st...)
		return nil
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := visit(target); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				name := d.Name()
				if path != target && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			return visit(path)
		})
		if err != nil {
			return nil, err
		}
	}

	violations = append(violations, duplicateMarkers(statements)...)
	return violations, nil
}

func lintGoFile(path string) ([]violation, []statement, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, err
	}
	var (
		violations []violation
		statements []statement
	)
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			lit, ok := value.(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING || i >= len(vs.Names) {
				continue
			}
			text, err := strconv.Unquote(lit.Value)
			if err != nil || !sqlKeyword.MatchString(text) {
				continue
			}
			line := fset.Position(lit.Pos()).Line
			name := vs.Names[i].Name
			stmt, err := infra.ParseStatement(text)
			if err != nil {
				violations = append(violations, violation{file: path, line: line, name: name, message: markerMessage})
				continue
			}
			statements = append(statements, statement{file: path, name: name, line: line, marker: stmt.Marker})
		}
		return true
	})
	return violations, statements, nil
}

// lintSQLFile treats the whole file as one statement batch, as the schema
// is applied in a single Exec.
func lintSQLFile(path string) ([]violation, []statement, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	name := filepath.Base(path)
	stmt, err := infra.ParseStatement(string(raw))
	if err != nil {
		return []violation{{file: path, line: 1, name: name, message: markerMessage}}, nil, nil
	}
	return nil, []statement{{file: path, name: name, line: 1, marker: stmt.Marker}}, nil
}

func duplicateMarkers(statements []statement) []violation {
	byMarker := make(map[string][]statement)
	for _, st := range statements {
		byMarker[st.marker] = append(byMarker[st.marker], st)
	}
	var out []violation
	for marker, group := range byMarker {
		if len(group) < 2 {
			continue
		}
		for _, st := range group[1:] {
			out = append(out, violation{
				file:    st.file,
				line:    st.line,
				name:    st.name,
				message: fmt.Sprintf("marker %s already used by %s", marker, group[0].name),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].file != out[j].file {
			return out[i].file < out[j].file
		}
		return out[i].line < out[j].line
	})
	return out
}
