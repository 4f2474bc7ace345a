package jaat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// LuaTimeout bounds compiling a rule and each evaluation. A script that
// runs longer is stopped and counts as no match.
var LuaTimeout = 100 * time.Millisecond

// Only these libraries are opened; base loses everything that reaches the
// filesystem or loads code.
var (
	luaLibs = []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	luaBlocked = []string{
		"dofile", "loadfile", "load", "loadstring", "require", "module",
		"getfenv", "setfenv", "collectgarbage", "print", "_printregs",
	}
)

func newLuaSandbox() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range luaLibs {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	for _, name := range luaBlocked {
		L.SetGlobal(name, lua.LNil)
	}
	return L, nil
}

// LuaRule is a predicate written in Lua. The script is either a full
// `function match(text, raw, tag) ... end` definition or just its body,
// e.g. `return text:find("knock knock") ~= nil`.
type LuaRule struct {
	mu    sync.Mutex
	state *lua.LState
	fn    lua.LValue
	name  string
}

// NewLuaRule compiles script once in a sandboxed state (base, string,
// table and math only). The returned rule owns the state; call Close when
// discarding it.
func NewLuaRule(name, script string) (*LuaRule, error) {
	src := script
	if !strings.Contains(src, "function match") {
		src = "function match(text, raw, tag)\n" + script + "\nend"
	}
	L, err := newLuaSandbox()
	if err != nil {
		return nil, fmt.Errorf("lua rule %s: %w", name, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), LuaTimeout)
	L.SetContext(ctx)
	err = L.DoString(src)
	cancel()
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("lua rule %s: %w", name, err)
	}
	fn := L.GetGlobal("match")
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("lua rule %s: match is not a function", name)
	}
	return &LuaRule{state: L, fn: fn, name: name}, nil
}

// Predicate adapts the rule for a RuleTable. A script error counts as no match.
func (r *LuaRule) Predicate() Predicate {
	return func(in Input) bool {
		ok, err := r.Eval(in)
		if err != nil {
			logClassifierf("lua rule %s failed: %v", r.name, err)
			return false
		}
		return ok
	}
}

// Eval runs the script against one input.
func (r *LuaRule) Eval(in Input) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return false, fmt.Errorf("lua rule %s: closed", r.name)
	}
	ctx, cancel := context.WithTimeout(context.Background(), LuaTimeout)
	defer cancel()
	r.state.SetContext(ctx)
	defer r.state.RemoveContext()
	err := r.state.CallByParam(lua.P{Fn: r.fn, NRet: 1, Protect: true},
		lua.LString(in.Text), lua.LString(in.Raw), lua.LString(in.Tag))
	if err != nil {
		r.state.SetTop(0)
		return false, err
	}
	ret := r.state.Get(-1)
	r.state.Pop(1)
	return lua.LVAsBool(ret), nil
}

// Close releases the Lua state.
func (r *LuaRule) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
}
