package form

// Branch groups fields that are visited only when the value of the field
// right before the branch satisfies Condition. After the last member the form
// continues with the item following the branch.
type Branch struct {
	Members   []Item
	Condition Condition
}

func (Branch) formItem() {}

// OnValue is a branch taken when the preceding field's value id equals valueID.
func OnValue(valueID string, members ...Item) Branch {
	return Branch{Members: members, Condition: Equals(valueID)}
}

// Branching builds a form from a flat list of fields and branches. Explicit
// successors are replaced, except on fields that no branch follows and that
// already declare one.
func Branching(items []Item, opts ...FormOption) (*Form, error) {
	fields, err := flatten(items, End)
	if err != nil {
		return nil, err
	}
	return New(fields, opts...)
}

func MustBranching(items []Item, opts ...FormOption) *Form {
	f, err := Branching(items, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func flatten(items []Item, after string) ([]Field, error) {
	if len(items) == 0 {
		return nil, invalid("empty branch")
	}
	var out []Field
	for i := 0; i < len(items); i++ {
		var fld Field
		switch it := items[i].(type) {
		case Field:
			fld = it.Clone()
		case Branch, *Branch:
			return nil, invalid("branch at position %d does not follow a field", i)
		default:
			return nil, invalid("unsupported item %T", it)
		}

		j := i + 1
		var branches []Branch
	collect:
		for ; j < len(items); j++ {
			switch b := items[j].(type) {
			case Branch:
				branches = append(branches, b)
			case *Branch:
				branches = append(branches, *b)
			default:
				break collect
			}
		}
		cont := after
		if j < len(items) {
			nf, ok := items[j].(Field)
			if !ok {
				return nil, invalid("unsupported item %T", items[j])
			}
			cont = nf.Base().Name
		}

		b := fld.Base()
		out = append(out, fld)
		if len(branches) == 0 {
			if b.Next == nil {
				b.Next = Next(cont)
			}
			continue
		}
		cases := make([]Case, 0, len(branches))
		for _, br := range branches {
			members, err := flatten(br.Members, cont)
			if err != nil {
				return nil, err
			}
			cases = append(cases, When(br.Condition, members[0].Base().Name))
			out = append(out, members...)
		}
		b.Next = Switch(cont, cases...)
		i = j - 1
	}
	return out, nil
}
