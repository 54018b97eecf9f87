// Package script compiles Lua sources into scripted modifications whose
// operator and value are decided at calculation time.
package script

import (
	"fmt"
	"sync"

	lua "github.com/Shopify/go-lua"

	"fitcore/pkg/domain"
)

const readerTypeName = "fitcore.reader"

// Modification runs the script's modify(carrier, ship) function. The function
// returns an operator name and a value; readers expose get(attr).
// Lua states are pooled: concurrent and recursive evaluations each borrow
// their own state.
type Modification struct {
	name   string
	source string
	deps   []domain.SourceRef
	pool   sync.Pool
}

// Compile validates src and returns a modification declaring deps as the
// attributes it reads.
func Compile(name, src string, deps []domain.SourceRef) (*Modification, error) {
	m := &Modification{name: name, source: src, deps: append([]domain.SourceRef(nil), deps...)}
	state, err := m.newState()
	if err != nil {
		return nil, err
	}
	m.pool.Put(state)
	return m, nil
}

// Name returns the script name.
func (m *Modification) Name() string { return m.name }

// DependsOn implements domain.Modification.
func (m *Modification) DependsOn() []domain.SourceRef {
	return append([]domain.SourceRef(nil), m.deps...)
}

// Modify implements domain.Modification.
func (m *Modification) Modify(carrier, ship domain.AttributeReader) (domain.Operator, float64, error) {
	state, _ := m.pool.Get().(*lua.State)
	if state == nil {
		var err error
		if state, err = m.newState(); err != nil {
			return 0, 0, err
		}
	}
	defer m.pool.Put(state)
	top := state.Top()
	defer state.SetTop(top)

	state.Global("modify")
	pushReader(state, carrier)
	pushReader(state, ship)
	if err := state.ProtectedCall(2, 2, 0); err != nil {
		return 0, 0, fmt.Errorf("script %s: %w", m.name, err)
	}
	opName, ok := state.ToString(-2)
	if !ok {
		return 0, 0, fmt.Errorf("script %s: operator is not a string", m.name)
	}
	value, ok := state.ToNumber(-1)
	if !ok {
		return 0, 0, fmt.Errorf("script %s: value is not a number", m.name)
	}
	op, err := domain.ParseOperator(opName)
	if err != nil {
		return 0, 0, fmt.Errorf("script %s: %w", m.name, err)
	}
	return op, value, nil
}

func (m *Modification) newState() (*lua.State, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerReaderType(state)
	if err := lua.DoString(state, m.source); err != nil {
		return nil, fmt.Errorf("compile script %s: %w", m.name, err)
	}
	state.Global("modify")
	defer state.Pop(1)
	if !state.IsFunction(-1) {
		return nil, fmt.Errorf("compile script %s: modify function not defined", m.name)
	}
	return state, nil
}

type reader struct {
	attrs domain.AttributeReader
}

func registerReaderType(state *lua.State) {
	lua.NewMetaTable(state, readerTypeName)
	state.NewTable()
	lua.SetFunctions(state, readerMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

var readerMethods = []lua.RegistryFunction{
	{Name: "get", Function: readerGet},
}

func pushReader(state *lua.State, attrs domain.AttributeReader) {
	if attrs == nil {
		state.PushNil()
		return
	}
	state.PushUserData(&reader{attrs: attrs})
	lua.SetMetaTableNamed(state, readerTypeName)
}

func readerGet(state *lua.State) int {
	r, _ := lua.CheckUserData(state, 1, readerTypeName).(*reader)
	id := lua.CheckInteger(state, 2)
	v, err := r.attrs.Get(domain.AttrID(id))
	if err != nil {
		lua.Errorf(state, "get attribute %d: %s", id, err.Error())
		return 0
	}
	state.PushNumber(v)
	return 1
}
