package variant

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMalformedStock = errors.New("malformed variant stock")
	ErrNegativeStock  = errors.New("variant stock must not be negative")
)

// Stock maps a canonical variant key to its quantity on hand
type Stock map[string]int

// StockFor returns the purchasable quantity of one combination. Products
// without variant axes must use their general stock instead; for them, and
// for an empty or unmapped key, the result is 0. Never negative.
func StockFor(stock Stock, hasVariants bool, key string) int {
	if !hasVariants || key == "" || stock == nil {
		return 0
	}
	qty, ok := stock[key]
	if !ok {
		qty, ok = stock[Canonicalize(key)]
	}
	if !ok || qty < 0 {
		return 0
	}
	return qty
}

// ParseStock reads a stock mapping from whatever a caller holds: a Stock or
// plain map, a decoded JSON object, or its JSON text. It never fails; nil,
// non-object values and malformed JSON all yield an empty mapping, and
// entries that are not whole numbers are dropped.
func ParseStock(raw interface{}) Stock {
	switch v := raw.(type) {
	case nil:
		return Stock{}
	case Stock:
		return cloneStock(v)
	case map[string]int:
		return cloneStock(v)
	case map[string]interface{}:
		return fromObject(v)
	case string:
		return parseStockJSON([]byte(v))
	case []byte:
		return parseStockJSON(v)
	case json.RawMessage:
		return parseStockJSON(v)
	default:
		return Stock{}
	}
}

// DecodeStockStrict is the checkout and product form counterpart of
// ParseStock: malformed JSON, fractional or negative counts are errors.
// Like ParseStock it accepts the object itself or its JSON-encoded string.
func DecodeStockStrict(raw []byte) (Stock, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStock, err)
		}
		raw = bytes.TrimSpace([]byte(text))
		if len(raw) > 0 && raw[0] == '"' {
			return nil, fmt.Errorf("%w: nested string", ErrMalformedStock)
		}
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Stock{}, nil
	}

	var obj map[string]json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStock, err)
	}

	stock := make(Stock, len(obj))
	for key, num := range obj {
		qty, err := num.Int64()
		if err != nil || qty > math.MaxInt32 {
			return nil, fmt.Errorf("%w: %q has non-integer quantity %s", ErrMalformedStock, key, num)
		}
		if qty < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNegativeStock, key)
		}
		stock[Canonicalize(key)] = int(qty)
	}
	return stock, nil
}

// RegenerateCombinations lists the key of every combination of axis values,
// first axis varying slowest. Axes without a name or without values are
// skipped; with no usable axis the list is empty.
func RegenerateCombinations(axes []Axis) []string {
	var usable []Axis
	for _, axis := range axes {
		if axis.usable() {
			usable = append(usable, axis)
		}
	}
	if len(usable) == 0 {
		return []string{}
	}

	selections := []map[string]string{{}}
	for _, axis := range usable {
		next := make([]map[string]string, 0, len(selections)*len(axis.Values))
		for _, partial := range selections {
			for _, v := range axis.Values {
				sel := make(map[string]string, len(partial)+1)
				for n, val := range partial {
					sel[n] = val
				}
				sel[axis.Name] = v.Label
				next = append(next, sel)
			}
		}
		selections = next
	}

	seen := make(map[string]struct{}, len(selections))
	keys := make([]string, 0, len(selections))
	for _, sel := range selections {
		key := BuildKey(sel)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Reconcile rebuilds a stock mapping after the axes changed: every current
// combination is present, new ones at 0, counts of surviving combinations
// are kept and combinations that no longer exist are dropped.
func Reconcile(axes []Axis, existing Stock) Stock {
	canonical := make(Stock, len(existing))
	for key, qty := range existing {
		canonical[Canonicalize(key)] = qty
	}

	combos := RegenerateCombinations(axes)
	reconciled := make(Stock, len(combos))
	for _, key := range combos {
		qty := canonical[key]
		if qty < 0 {
			qty = 0
		}
		reconciled[key] = qty
	}
	return reconciled
}

// Total sums all non-negative quantities
func (s Stock) Total() int {
	total := 0
	for _, qty := range s {
		if qty > 0 {
			total += qty
		}
	}
	return total
}

// Value implements driver.Valuer for JSONB columns
func (s Stock) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]int(s))
}

// Scan implements sql.Scanner; stored data is read with ParseStock so a
// damaged column reads as no stock instead of failing the query.
func (s *Stock) Scan(src interface{}) error {
	*s = ParseStock(src)
	return nil
}

func cloneStock[M ~map[string]int](m M) Stock {
	out := make(Stock, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func parseStockJSON(data []byte) Stock {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return Stock{}
	}
	return fromObject(obj)
}

func fromObject(obj map[string]interface{}) Stock {
	stock := make(Stock, len(obj))
	for key, raw := range obj {
		switch n := raw.(type) {
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				stock[key] = int(n)
			}
		case int:
			stock[key] = n
		case int64:
			stock[key] = int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				stock[key] = int(i)
			}
		}
	}
	return stock
}
