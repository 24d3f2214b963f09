package x86emu

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// LoadLuaHook compiles a Lua script at path into a Hook closure, letting
// embedders script pre/post-mnemonic behavior without recompiling Go.
// Generalizes the teacher's gopher-lua dependency (declared in its go.mod
// for embedder scripting elsewhere in the engine) to this module's hook
// protocol: the script defines a global `hook()` function that reads and
// mutates machine state through a small `reg_read`/`reg_write`/
// `mem_read*`/`mem_write*` API and returns the string "handled" or
// "unhandled".
//
// One *lua.LState is created per loaded hook and reused across
// invocations; this is safe because the stepping model is single-threaded
// cooperative (spec.md §5) — a hook never runs concurrently with another
// step on the same machine.
func LoadLuaHook(path string) (Hook, error) {
	L := lua.NewState()
	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, newError(StateMisuse, "loading lua hook %s: %v", path, err)
	}

	return func(m *Machine) (Verdict, error) {
		registerLuaMachineAPI(L, m)

		fn := L.GetGlobal("hook")
		if fn == lua.LNil {
			return Unhandled, nil
		}

		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			return Unhandled, newError(StateMisuse, "lua hook %s: %v", path, err)
		}
		ret := L.Get(-1)
		L.Pop(1)

		if strings.EqualFold(lua.LVAsString(ret), "handled") {
			return Handled, nil
		}
		return Unhandled, nil
	}, nil
}

var luaRegisterByName map[string]Register

func init() {
	luaRegisterByName = make(map[string]Register, numGPRegisters)
	for r := Register(0); r < numGPRegisters; r++ {
		luaRegisterByName[strings.ToLower(registerNames[r])] = r
	}
}

// registerLuaMachineAPI rebinds the reg_read/reg_write/mem_read*/
// mem_write* globals to close over the current machine before each hook
// invocation, since a loaded hook may run against different machines.
func registerLuaMachineAPI(L *lua.LState, m *Machine) {
	L.SetGlobal("reg_read", L.NewFunction(func(L *lua.LState) int {
		name := strings.ToLower(L.CheckString(1))
		r, ok := luaRegisterByName[name]
		if !ok {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(m.RegRead64(r)))
		return 1
	}))

	L.SetGlobal("reg_write", L.NewFunction(func(L *lua.LState) int {
		name := strings.ToLower(L.CheckString(1))
		v := L.CheckNumber(2)
		if r, ok := luaRegisterByName[name]; ok {
			m.RegWrite64(r, uint64(v))
		}
		return 0
	}))

	L.SetGlobal("mem_read8", luaMemRead(L, m, m.MemRead8))
	L.SetGlobal("mem_read16", luaMemRead(L, m, m.MemRead16))
	L.SetGlobal("mem_read32", luaMemRead(L, m, m.MemRead32))
	L.SetGlobal("mem_read64", luaMemRead(L, m, m.MemRead64))

	L.SetGlobal("mem_write8", luaMemWrite(L, m, m.MemWrite8))
	L.SetGlobal("mem_write16", luaMemWrite(L, m, m.MemWrite16))
	L.SetGlobal("mem_write32", luaMemWrite(L, m, m.MemWrite32))
	L.SetGlobal("mem_write64", luaMemWrite(L, m, m.MemWrite64))
}

func luaMemRead(L *lua.LState, m *Machine, read func(uint64) (uint64, error)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v, err := read(addr)
		if err != nil {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(v))
		return 1
	})
}

func luaMemWrite(L *lua.LState, m *Machine, write func(uint64, uint64) error) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		addr := uint64(L.CheckNumber(1))
		v := uint64(L.CheckNumber(2))
		_ = write(addr, v)
		return 0
	})
}
