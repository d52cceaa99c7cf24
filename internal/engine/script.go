package engine

import (
	"context"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// runScript executes a script node's text with gopher-lua.
//
// Scripts see a "patchbay" table with set(path, value?) and get(path).
// Paths are relative to the script node's parent. print output, followed
// by any error, is written to the node's info endpoint.
func (s *Server) runScript(ctx context.Context, n *tree.Node) {
	text, _ := n.MustEndpoint(EndpointText).Value.(ir.String)
	scope := n.Path().Parent()

	var out strings.Builder
	L := newScriptState(ctx)
	defer L.Close()

	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		for i := 1; i <= top; i++ {
			if i > 1 {
				out.WriteByte('\t')
			}
			out.WriteString(L.ToStringMeta(L.Get(i)).String())
		}
		out.WriteByte('\n')
		return 0
	}))

	api := L.NewTable()
	L.SetField(api, "set", L.NewFunction(func(L *lua.LState) int {
		path, err := scriptPath(scope, L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		value, ok := fromLua(L.Get(2))
		if !ok {
			L.ArgError(2, "expected number, string, boolean or nil")
			return 0
		}
		if _, err := s.run(ctx, Set{Path: path, Value: value}, ir.SourceScript); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))
	L.SetField(api, "get", L.NewFunction(func(L *lua.LState) int {
		path, err := scriptPath(scope, L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		ep, ok := s.tree.EndpointByPath(path)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(toLua(ep.Value))
		return 1
	}))
	L.SetGlobal("patchbay", api)

	if err := L.DoString(string(text)); err != nil {
		s.logger.Warn("script failed", "path", n.Path().String(), "err", err)
		out.WriteString("error: ")
		out.WriteString(err.Error())
	}

	info := n.Path().Append(EndpointInfo)
	if _, err := s.run(ctx, Set{Path: info, Value: ir.String(out.String())}, ir.SourceScript); err != nil {
		s.logger.Warn("script info not written", "path", info.String(), "err", err)
	}
}

// newScriptState opens the safe subset of the standard libraries: no io,
// os or file loading.
func newScriptState(ctx context.Context) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetContext(ctx)
	return L
}

func scriptPath(scope ir.Path, rel string) (ir.Path, error) {
	p, err := ir.ParsePath(rel)
	if err != nil {
		return ir.Path{}, err
	}
	return scope.Join(p), nil
}

// fromLua maps a Lua argument to a Value. Whole numbers become Int so
// they satisfy integer endpoints without truncation surprises.
func fromLua(lv lua.LValue) (ir.Value, bool) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, true
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return ir.Int(int64(f)), true
		}
		return ir.Float(f), true
	case lua.LString:
		return ir.String(string(v)), true
	case lua.LBool:
		if v {
			return ir.Int(1), true
		}
		return ir.Int(0), true
	default:
		return nil, false
	}
}

func toLua(v ir.Value) lua.LValue {
	switch val := v.(type) {
	case ir.Int:
		return lua.LNumber(val)
	case ir.Float:
		return lua.LNumber(val)
	case ir.String:
		return lua.LString(val)
	default:
		return lua.LNil
	}
}
