package form

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/tbxark/tgform/types"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidForm, fmt.Sprintf(format, args...))
}

type formOptions struct {
	start       string
	allowCyclic bool
}

type FormOption func(*formOptions)

// WithStartField makes name the entry point instead of the first field.
func WithStartField(name string) FormOption {
	return func(o *formOptions) {
		o.start = name
	}
}

// AllowCyclic skips graph shape checks. Global requiredness and topological
// order are not computed for such forms.
func AllowCyclic() FormOption {
	return func(o *formOptions) {
		o.allowCyclic = true
	}
}

// Form is an immutable, validated graph of fields.
type Form struct {
	fields   []Field
	byName   map[string]Field
	start    Field
	next     map[string][]string
	prev     map[string][]string
	order    []string
	required map[string]bool
	cyclic   bool
}

func New(fields []Field, opts ...FormOption) (*Form, error) {
	var o formOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(fields) == 0 {
		return nil, invalid("no fields")
	}

	f := &Form{
		fields: make([]Field, 0, len(fields)),
		byName: make(map[string]Field, len(fields)),
		next:   make(map[string][]string, len(fields)),
		prev:   make(map[string][]string, len(fields)),
		cyclic: o.allowCyclic,
	}
	for i, src := range fields {
		if src == nil {
			return nil, invalid("field #%d is nil", i)
		}
		fld := src.Clone()
		b := fld.Base()
		if b.Name == "" {
			return nil, invalid("field #%d has no name", i)
		}
		if _, dup := f.byName[b.Name]; dup {
			return nil, invalid("duplicate field name %q", b.Name)
		}
		if b.Query.IsZero() {
			return nil, invalid("field %q has no query", b.Name)
		}
		if b.Next == nil {
			if i+1 < len(fields) && fields[i+1] != nil {
				b.Next = Next(fields[i+1].Base().Name)
			} else {
				b.Next = FormEnd()
			}
		}
		if v, ok := fld.(validator); ok {
			if err := v.validate(); err != nil {
				return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidForm, b.Name, err)
			}
		}
		f.fields = append(f.fields, fld)
		f.byName[b.Name] = fld
	}

	for _, fld := range f.fields {
		name := fld.Base().Name
		possible := fld.Base().Next.PossibleNext()
		if len(possible) == 0 {
			return nil, invalid("field %q declares no successors", name)
		}
		for _, n := range possible {
			if n != End {
				if _, ok := f.byName[n]; !ok {
					return nil, invalid("field %q points to unknown field %q", name, n)
				}
				f.prev[n] = append(f.prev[n], name)
			}
			f.next[name] = append(f.next[name], n)
		}
	}

	f.start = f.fields[0]
	if o.start != "" {
		s, ok := f.byName[o.start]
		if !ok {
			return nil, invalid("unknown start field %q", o.start)
		}
		f.start = s
	}

	if o.allowCyclic {
		return f, nil
	}
	if err := f.checkShape(); err != nil {
		return nil, err
	}
	order, err := f.topologicalSort()
	if err != nil {
		return nil, err
	}
	f.order = order
	f.required = f.globallyRequired()
	return f, nil
}

func MustNew(fields []Field, opts ...FormOption) *Form {
	f, err := New(fields, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Form) checkShape() error {
	start := f.start.Base().Name
	if len(f.prev[start]) > 0 {
		return invalid("start field %q has incoming edges from %q", start, f.prev[start])
	}
	for _, fld := range f.fields {
		name := fld.Base().Name
		if slices.Contains(f.next[name], name) {
			return invalid("field %q lists itself as a successor", name)
		}
	}

	seen := map[string]bool{start: true}
	queue := []string{start}
	endReachable := false
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range f.next[cur] {
			if n == End {
				endReachable = true
				continue
			}
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	for _, fld := range f.fields {
		if !seen[fld.Base().Name] {
			return invalid("field %q is unreachable from %q", fld.Base().Name, start)
		}
	}
	if !endReachable {
		return invalid("form end is unreachable")
	}
	return nil
}

// topologicalSort removes fields without remaining incoming edges in
// declaration order; leftover edges mean a cycle.
func (f *Form) topologicalSort() ([]string, error) {
	indegree := make(map[string]int, len(f.fields))
	for _, fld := range f.fields {
		indegree[fld.Base().Name] = len(f.prev[fld.Base().Name])
	}
	done := make(map[string]bool, len(f.fields))
	order := make([]string, 0, len(f.fields))
	for len(order) < len(f.fields) {
		progressed := false
		for _, fld := range f.fields {
			name := fld.Base().Name
			if done[name] || indegree[name] > 0 {
				continue
			}
			done[name] = true
			order = append(order, name)
			for _, n := range f.next[name] {
				if n != End {
					indegree[n]--
				}
			}
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, fld := range f.fields {
				if !done[fld.Base().Name] {
					stuck = append(stuck, fld.Base().Name)
				}
			}
			return nil, invalid("cycle among fields %q", stuck)
		}
	}
	return order, nil
}

// globallyRequired intersects the field sets of every start-to-end path.
func (f *Form) globallyRequired() map[string]bool {
	var common map[string]bool
	path := []string{}
	onPath := map[string]bool{}
	var walk func(name string)
	walk = func(name string) {
		path = append(path, name)
		onPath[name] = true
		defer func() {
			path = path[:len(path)-1]
			delete(onPath, name)
		}()
		for _, n := range f.next[name] {
			if n == End {
				if common == nil {
					common = make(map[string]bool, len(path))
					for _, p := range path {
						common[p] = true
					}
					continue
				}
				for k := range common {
					if !slices.Contains(path, k) {
						delete(common, k)
					}
				}
				continue
			}
			if !onPath[n] {
				walk(n)
			}
		}
	}
	walk(f.start.Base().Name)
	if common == nil {
		common = map[string]bool{}
	}
	return common
}

// Fields returns the form's own copies in declaration order.
func (f *Form) Fields() []Field {
	return slices.Clone(f.fields)
}

func (f *Form) Field(name string) (Field, bool) {
	fld, ok := f.byName[name]
	return fld, ok
}

func (f *Form) Start() Field {
	return f.start
}

func (f *Form) Cyclic() bool {
	return f.cyclic
}

// NextFieldNames lists possible successors; End appears as "".
func (f *Form) NextFieldNames(name string) []string {
	return slices.Clone(f.next[name])
}

func (f *Form) PrevFieldNames(name string) []string {
	return slices.Clone(f.prev[name])
}

// TopologicalOrder is nil for cyclic forms.
func (f *Form) TopologicalOrder() []string {
	return slices.Clone(f.order)
}

func (f *Form) IsGloballyRequired(name string) bool {
	return f.required[name]
}

// GloballyRequired lists fields visited on every path, in topological order.
func (f *Form) GloballyRequired() []string {
	var out []string
	for _, name := range f.order {
		if f.required[name] {
			out = append(out, name)
		}
	}
	return out
}

// Resolve returns the field following fld for the given value, or nil at the
// end of the form.
func (f *Form) Resolve(fld Field, userID int64, value any) (Field, error) {
	valueID := ""
	if value != nil {
		valueID = fld.ValueID(value)
	}
	name, err := fld.Base().Next.resolve(userID, value, valueID)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", fld.Base().Name, err)
	}
	if name == End {
		return nil, nil
	}
	next, ok := f.byName[name]
	if !ok {
		return nil, fmt.Errorf("field %q resolved unknown field %q", fld.Base().Name, name)
	}
	return next, nil
}

func (f *Form) walkOrder() []string {
	if f.order != nil {
		return f.order
	}
	names := make([]string, 0, len(f.fields))
	for _, fld := range f.fields {
		names = append(names, fld.Base().Name)
	}
	return names
}

func (f *Form) Describe() []types.FieldInfo {
	names := f.walkOrder()
	rows := make([]types.FieldInfo, 0, len(names))
	for _, name := range names {
		fld := f.byName[name]
		next := make([]string, 0, len(f.next[name]))
		for _, n := range f.next[name] {
			if n == End {
				n = types.EndMarker
			}
			next = append(next, n)
		}
		rows = append(rows, types.FieldInfo{
			Name:             name,
			Kind:             kindOf(fld),
			ValueType:        fld.ValueType().String(),
			Required:         fld.Base().Required,
			GloballyRequired: f.required[name],
			Next:             next,
		})
	}
	return rows
}

func (f *Form) FormatGraph() string {
	return types.FormatFieldTable(f.Describe())
}

func kindOf(fld Field) string {
	t := reflect.TypeOf(fld)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
