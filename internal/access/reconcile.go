package access

import (
	accountdomain "github.com/disruption-hub/chat-auth/internal/account/domain"
	identitydomain "github.com/disruption-hub/chat-auth/internal/identity/domain"
)

// FieldPatch is a single field-level assignment produced by reconciliation.
type FieldPatch struct {
	Field string
	Value string
}

// LinkPatch is the set of field-level patches that cross-link a phone
// identity and an application user. All patches are applied in one
// transaction.
type LinkPatch struct {
	IdentityID     string
	UserID         string
	IdentityFields []FieldPatch
	UserFields     []FieldPatch
}

// Empty reports whether the patch carries no assignments.
func (p LinkPatch) Empty() bool {
	return len(p.IdentityFields) == 0 && len(p.UserFields) == 0
}

// Reconcile computes the patches needed to cross-link the identity and the
// user and to propagate phone, display name, and email in whichever
// direction is missing. The precedence rule is fill-only-if-empty: populated
// fields are never overwritten.
func Reconcile(i *identitydomain.PhoneIdentity, u *accountdomain.User) LinkPatch {
	p := LinkPatch{IdentityID: i.ID, UserID: u.ID}

	if i.LinkedUserID == "" {
		p.IdentityFields = append(p.IdentityFields, FieldPatch{"linked_user_id", u.ID})
	}
	if i.DisplayName == "" && u.DisplayName != "" {
		p.IdentityFields = append(p.IdentityFields, FieldPatch{"display_name", u.DisplayName})
	}
	if i.Email == "" && u.Email != "" {
		p.IdentityFields = append(p.IdentityFields, FieldPatch{"email", u.Email})
	}

	if u.PhoneIdentityID == "" {
		p.UserFields = append(p.UserFields, FieldPatch{"phone_identity_id", i.ID})
	}
	if u.Phone == "" && i.PhoneRaw != "" {
		p.UserFields = append(p.UserFields, FieldPatch{"phone", i.PhoneRaw})
	}
	if u.PhoneNormalized == "" && i.PhoneNormalized != "" {
		p.UserFields = append(p.UserFields, FieldPatch{"phone_normalized", i.PhoneNormalized})
	}
	if u.DisplayName == "" && i.DisplayName != "" {
		p.UserFields = append(p.UserFields, FieldPatch{"display_name", i.DisplayName})
	}
	if u.Email == "" && i.Email != "" {
		p.UserFields = append(p.UserFields, FieldPatch{"email", i.Email})
	}

	return p
}

// apply mutates the in-memory records to match the patch so callers see the
// back-filled state without a re-read.
func (p LinkPatch) apply(i *identitydomain.PhoneIdentity, u *accountdomain.User) {
	for _, f := range p.IdentityFields {
		switch f.Field {
		case "linked_user_id":
			i.LinkedUserID = f.Value
		case "display_name":
			i.DisplayName = f.Value
		case "email":
			i.Email = f.Value
		}
	}
	for _, f := range p.UserFields {
		switch f.Field {
		case "phone_identity_id":
			u.PhoneIdentityID = f.Value
		case "phone":
			u.Phone = f.Value
		case "phone_normalized":
			u.PhoneNormalized = f.Value
		case "display_name":
			u.DisplayName = f.Value
		case "email":
			u.Email = f.Value
		}
	}
}
