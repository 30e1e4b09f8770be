package service

import (
	"encoding/json"

	"github.com/sparkfin/be-wf-engine/internal/repository"
)

// Document is a typed view of a document snapshot fetched from a system of
// record. The workflow-relevant fields are named; everything else is kept as
// raw JSON so the full snapshot round-trips back on status update.
type Document struct {
	WfStatus         *string `json:"wfStatus"`
	WfStatusMaint    *string `json:"wfStatusMaint"`
	PickedBy         *string `json:"pickedBy"`
	WorkflowComplete *string `json:"workflowComplete"`

	IsCifNoPermanent     *bool   `json:"isCifNoPermanent,omitempty"`
	IsAccountNoPermanent *bool   `json:"isAccountNoPermanent,omitempty"`
	IsAccNoPermanent     *bool   `json:"isAccNoPermanent,omitempty"`
	AccNumber            *string `json:"accNumber,omitempty"`

	rest map[string]json.RawMessage
}

// documentAlias avoids recursing into the custom JSON methods.
type documentAlias Document

// UnmarshalJSON decodes the named fields and retains every other field
// verbatim in rest.
func (d *Document) UnmarshalJSON(data []byte) error {
	var alias documentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{
		"wfStatus", "wfStatusMaint", "pickedBy", "workflowComplete",
		"isCifNoPermanent", "isAccountNoPermanent", "isAccNoPermanent", "accNumber",
	} {
		delete(all, known)
	}

	*d = Document(alias)
	d.rest = all
	return nil
}

// MarshalJSON merges the retained raw fields with the current values of the
// named fields. The status, picked-by and completion fields are emitted even
// when nil because the systems of record treat explicit nulls as clears.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.rest)+8)
	for k, v := range d.rest {
		out[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}

	if err := put("wfStatus", d.WfStatus); err != nil {
		return nil, err
	}
	if err := put("wfStatusMaint", d.WfStatusMaint); err != nil {
		return nil, err
	}
	if err := put("pickedBy", d.PickedBy); err != nil {
		return nil, err
	}
	if err := put("workflowComplete", d.WorkflowComplete); err != nil {
		return nil, err
	}
	if d.IsCifNoPermanent != nil {
		if err := put("isCifNoPermanent", d.IsCifNoPermanent); err != nil {
			return nil, err
		}
	}
	if d.IsAccountNoPermanent != nil {
		if err := put("isAccountNoPermanent", d.IsAccountNoPermanent); err != nil {
			return nil, err
		}
	}
	if d.IsAccNoPermanent != nil {
		if err := put("isAccNoPermanent", d.IsAccNoPermanent); err != nil {
			return nil, err
		}
	}
	if d.AccNumber != nil {
		if err := put("accNumber", d.AccNumber); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// Status returns the status field the purpose governs.
func (d *Document) Status(p repository.Purpose) *string {
	if p == repository.PurposeMaintenance {
		return d.WfStatusMaint
	}
	return d.WfStatus
}

// SetStatus writes the status field the purpose governs.
func (d *Document) SetStatus(p repository.Purpose, v *string) {
	if p == repository.PurposeMaintenance {
		d.WfStatusMaint = v
		return
	}
	d.WfStatus = v
}

// HasStatus reports whether the document already carries a non-empty status
// for the purpose. The Submit rule only fires when this is false.
func (d *Document) HasStatus(p repository.Purpose) bool {
	s := d.Status(p)
	return s != nil && *s != ""
}

// PermanenceFlag selects which permanence field an entity type uses.
type PermanenceFlag int

const (
	PermanenceCIF PermanenceFlag = iota
	PermanenceAccount
	PermanenceDeposit
)

// IsPermanent reports the value of the selected permanence flag.
func (d *Document) IsPermanent(f PermanenceFlag) bool {
	var v *bool
	switch f {
	case PermanenceCIF:
		v = d.IsCifNoPermanent
	case PermanenceAccount:
		v = d.IsAccountNoPermanent
	case PermanenceDeposit:
		v = d.IsAccNoPermanent
	}
	return v != nil && *v
}

// SetPermanent writes the selected permanence flag.
func (d *Document) SetPermanent(f PermanenceFlag, value bool) {
	switch f {
	case PermanenceCIF:
		d.IsCifNoPermanent = &value
	case PermanenceAccount:
		d.IsAccountNoPermanent = &value
	case PermanenceDeposit:
		d.IsAccNoPermanent = &value
	}
}

// Purpose derives the traversal purpose from the permanence flag: a document
// whose number is already permanent is being maintained, not onboarded.
func (d *Document) Purpose(f PermanenceFlag) repository.Purpose {
	if d.IsPermanent(f) {
		return repository.PurposeMaintenance
	}
	return repository.PurposeOnboarding
}
