package content

import (
	"context"
	"fmt"
)

// Patch accumulates field-level operations against one document and commits
// them as a single mutation. Operations apply in the store's fixed order
// (setIfMissing before inc/dec), so chaining order here does not matter.
type Patch struct {
	client       *Client
	id           string
	ifRevisionID string
	set          map[string]any
	setIfMissing map[string]any
	inc          map[string]float64
	dec          map[string]float64
	insert       *insertOp
	unset        []string
}

type insertOp struct {
	After string `json:"after"`
	Items []any  `json:"items"`
}

func (c *Client) Patch(id string) *Patch {
	return &Patch{client: c, id: id}
}

func (p *Patch) Set(fields map[string]any) *Patch {
	if p.set == nil {
		p.set = map[string]any{}
	}
	for k, v := range fields {
		p.set[k] = v
	}
	return p
}

func (p *Patch) SetIfMissing(fields map[string]any) *Patch {
	if p.setIfMissing == nil {
		p.setIfMissing = map[string]any{}
	}
	for k, v := range fields {
		p.setIfMissing[k] = v
	}
	return p
}

func (p *Patch) Inc(field string, by float64) *Patch {
	if p.inc == nil {
		p.inc = map[string]float64{}
	}
	p.inc[field] = by
	return p
}

func (p *Patch) Dec(field string, by float64) *Patch {
	if p.dec == nil {
		p.dec = map[string]float64{}
	}
	p.dec[field] = by
	return p
}

// Append inserts items at the end of the array at path.
func (p *Patch) Append(path string, items []any) *Patch {
	p.insert = &insertOp{After: fmt.Sprintf("%s[-1]", path), Items: items}
	return p
}

// Unset removes the fields or array members selected by the given paths.
// Paths may carry filter predicates, e.g. `likedBy[_ref == "a1"]`.
func (p *Patch) Unset(paths ...string) *Patch {
	p.unset = append(p.unset, paths...)
	return p
}

// IfRevisionID makes the commit conditional on the document's revision,
// failing with ErrRevisionMismatch if another writer got there first.
func (p *Patch) IfRevisionID(rev string) *Patch {
	p.ifRevisionID = rev
	return p
}

func (p *Patch) Commit(ctx context.Context) error {
	body := map[string]any{"id": p.id}
	if p.ifRevisionID != "" {
		body["ifRevisionID"] = p.ifRevisionID
	}
	if p.set != nil {
		body["set"] = p.set
	}
	if p.setIfMissing != nil {
		body["setIfMissing"] = p.setIfMissing
	}
	if p.inc != nil {
		body["inc"] = p.inc
	}
	if p.dec != nil {
		body["dec"] = p.dec
	}
	if p.insert != nil {
		body["insert"] = p.insert
	}
	if p.unset != nil {
		body["unset"] = p.unset
	}

	_, err := p.client.mutate(ctx, []map[string]any{{"patch": body}})
	return err
}
