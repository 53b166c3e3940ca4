package realm

import (
	"sync"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/membrane/internal/membrane"
)

var wellKnown = map[*goja.Symbol]*membrane.Symbol{
	goja.SymHasInstance:        membrane.SymbolHasInstance,
	goja.SymIsConcatSpreadable: membrane.SymbolIsConcatSpreadable,
	goja.SymIterator:           membrane.SymbolIterator,
	goja.SymMatch:              membrane.SymbolMatch,
	goja.SymMatchAll:           membrane.SymbolMatchAll,
	goja.SymReplace:            membrane.SymbolReplace,
	goja.SymSearch:             membrane.SymbolSearch,
	goja.SymSpecies:            membrane.SymbolSpecies,
	goja.SymSplit:              membrane.SymbolSplit,
	goja.SymToPrimitive:        membrane.SymbolToPrimitive,
	goja.SymToStringTag:        membrane.SymbolToStringTag,
	goja.SymUnscopables:        membrane.SymbolUnscopables,
}

// symbolTable pairs script symbols with membrane symbols in both
// directions. Entries live as long as the realm.
type symbolTable struct {
	mu   sync.Mutex
	toGo map[*goja.Symbol]*membrane.Symbol
	toJS map[*membrane.Symbol]*goja.Symbol
}

func newSymbolTable() *symbolTable {
	t := &symbolTable{
		toGo: make(map[*goja.Symbol]*membrane.Symbol, len(wellKnown)),
		toJS: make(map[*membrane.Symbol]*goja.Symbol, len(wellKnown)),
	}
	for js, sym := range wellKnown {
		t.toGo[js] = sym
		t.toJS[sym] = js
	}
	return t
}

// symbol returns the membrane symbol for a script symbol of this realm.
func (r *Realm) symbol(s *goja.Symbol) *membrane.Symbol {
	t := r.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	if sym, ok := t.toGo[s]; ok {
		return sym
	}
	sym := membrane.NewSymbol(s.String())
	t.toGo[s] = sym
	t.toJS[sym] = s
	return sym
}

// jsSymbol returns the script symbol standing for sym in this realm.
func (r *Realm) jsSymbol(sym *membrane.Symbol) *goja.Symbol {
	t := r.symbols
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.toJS[sym]; ok {
		return s
	}
	s := goja.NewSymbol(sym.Description())
	t.toJS[sym] = s
	t.toGo[s] = sym
	return s
}

// propertyKey converts a script property key.
func (r *Realm) propertyKey(v goja.Value) membrane.PropertyKey {
	if s, ok := v.(*goja.Symbol); ok {
		return membrane.SymbolKey(r.symbol(s))
	}
	return membrane.Key(v.String())
}

// keyValue converts a property key into a script property key.
func (r *Realm) keyValue(k membrane.PropertyKey) goja.Value {
	if k.Symbol != nil {
		return r.jsSymbol(k.Symbol)
	}
	return r.vm.ToValue(k.Name)
}

// keyList reads the keys of a script array such as Reflect.ownKeys returns.
func (r *Realm) keyList(v goja.Value) []membrane.PropertyKey {
	items := r.elements(v)
	out := make([]membrane.PropertyKey, len(items))
	for i, item := range items {
		out[i] = r.propertyKey(item)
	}
	return out
}
