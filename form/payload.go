package form

import "strconv"

type payloadLimiter interface {
	maxPayloadLen() int
}

// MaxPayloadLen is the longest field-local callback payload f may emit, or
// zero for fields without inline buttons.
func MaxPayloadLen(f Field) int {
	if l, ok := f.(payloadLimiter); ok {
		return l.maxPayloadLen()
	}
	return 0
}

func (f *MultipleSelect) maxPayloadLen() int {
	e, ok := LookupEnum(f.EnumID)
	if !ok {
		return 0
	}
	n := len(payloadPage) + len(strconv.Itoa(pageCount(len(e.Options), f.PerPage)))
	for _, o := range e.Options {
		n = max(n, len(payloadToggle)+len(o.ID))
	}
	return n
}

// unboundedListLen caps the index width assumed for lists without MaxLen.
const unboundedListLen = 1000

func (f *ListInput) maxPayloadLen() int {
	limit := f.MaxLen
	if limit <= 0 {
		limit = unboundedListLen
	}
	return len(payloadRemove) + len(strconv.Itoa(limit))
}

func (f *DateMenu) maxPayloadLen() int {
	return len(payloadSelect) + len(dateIDLayout)
}

func (f *Attachments) maxPayloadLen() int {
	return len(payloadFinish)
}
