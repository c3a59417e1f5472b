package dispatch

import "github.com/google/uuid"

// Visibility decides which chain steps an acting admin may see. Restricted
// targets are hidden from everyone except the configured viewers; everything
// else is visible to all admins.
type Visibility struct {
	restricted map[string]bool
	viewers    map[string]bool
}

// NewVisibility builds the predicate from configured target and viewer ids.
func NewVisibility(restrictedTargetIDs, viewerIDs []string) *Visibility {
	v := &Visibility{
		restricted: make(map[string]bool, len(restrictedTargetIDs)),
		viewers:    make(map[string]bool, len(viewerIDs)),
	}
	for _, id := range restrictedTargetIDs {
		v.restricted[id] = true
	}
	for _, id := range viewerIDs {
		v.viewers[id] = true
	}
	return v
}

// IsVisibleTo reports whether the actor may see steps for the given target.
func (v *Visibility) IsVisibleTo(actor string, targetID uuid.UUID) bool {
	if v == nil || !v.restricted[targetID.String()] {
		return true
	}
	return v.viewers[actor]
}
