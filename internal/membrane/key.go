package membrane

import "strconv"

// Symbol is a symbol value shared by every realm. A realm maps its own
// script symbols onto Symbols, so the same script symbol crosses as the same
// Symbol and comes back as itself. Symbols compare by pointer.
type Symbol struct {
	description string
}

// NewSymbol creates a unique symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

// Description returns the symbol's description.
func (s *Symbol) Description() string { return s.description }

func (s *Symbol) String() string { return "Symbol(" + s.description + ")" }

// Well-known symbols.
var (
	SymbolHasInstance        = NewSymbol("Symbol.hasInstance")
	SymbolIsConcatSpreadable = NewSymbol("Symbol.isConcatSpreadable")
	SymbolIterator           = NewSymbol("Symbol.iterator")
	SymbolMatch              = NewSymbol("Symbol.match")
	SymbolMatchAll           = NewSymbol("Symbol.matchAll")
	SymbolReplace            = NewSymbol("Symbol.replace")
	SymbolSearch             = NewSymbol("Symbol.search")
	SymbolSpecies            = NewSymbol("Symbol.species")
	SymbolSplit              = NewSymbol("Symbol.split")
	SymbolToPrimitive        = NewSymbol("Symbol.toPrimitive")
	SymbolToStringTag        = NewSymbol("Symbol.toStringTag")
	SymbolUnscopables        = NewSymbol("Symbol.unscopables")
)

// PropertyKey names a property: a string, or a symbol when Symbol is set.
// Keys are comparable and can be used as map keys.
type PropertyKey struct {
	Name   string
	Symbol *Symbol
}

// Key returns the string key name.
func Key(name string) PropertyKey { return PropertyKey{Name: name} }

// SymbolKey returns the key for sym.
func SymbolKey(sym *Symbol) PropertyKey { return PropertyKey{Symbol: sym} }

// IsSymbol reports whether k is a symbol key.
func (k PropertyKey) IsSymbol() bool { return k.Symbol != nil }

// Index returns the array index k names, if any.
func (k PropertyKey) Index() (int, bool) {
	if k.Symbol != nil || k.Name == "" || (len(k.Name) > 1 && k.Name[0] == '0') {
		return 0, false
	}
	n, err := strconv.Atoi(k.Name)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (k PropertyKey) String() string {
	if k.Symbol != nil {
		return k.Symbol.String()
	}
	return k.Name
}

// IsArray reports whether v is an array object. Objects opt in by
// implementing IsArray() bool; wrappers answer for their target.
func IsArray(v any) bool {
	a, ok := v.(interface{ IsArray() bool })
	return ok && a.IsArray()
}
