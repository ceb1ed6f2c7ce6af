// Package authz holds the caller identity and the single ownership check
// every mutating operation goes through.
package authz

import (
	"errors"
	"fmt"
)

// ErrForbidden is returned when the actor lacks the required relation.
var ErrForbidden = errors.New("forbidden")

// Identity is the verified caller as supplied by the identity provider.
type Identity struct {
	UserID             string
	Email              string
	Role               string
	SubscriptionActive bool
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

type Relation string

const (
	IsSeller        Relation = "is_seller"
	IsProposalOwner Relation = "is_proposal_owner"
	IsProposer      Relation = "is_proposer"
	IsParticipant   Relation = "is_participant"
)

// Seller is implemented by entities carrying a seller field.
type Seller interface {
	OwnerID() string
}

// Proposal is implemented by entities with a proposer and a resolving owner.
type Proposal interface {
	ProposerUID() string
	OwnerUID() string
}

// Authorize compares the actor against the ownership fields of entity.
// It never mutates and returns nil on pass.
func Authorize(actor Identity, entity any, rel Relation) error {
	if actor.IsZero() {
		return fmt.Errorf("%w: anonymous caller", ErrForbidden)
	}
	var ok bool
	switch rel {
	case IsSeller:
		s, isSeller := entity.(Seller)
		ok = isSeller && s.OwnerID() == actor.UserID
	case IsProposalOwner:
		p, isProposal := entity.(Proposal)
		ok = isProposal && p.OwnerUID() == actor.UserID
	case IsProposer:
		p, isProposal := entity.(Proposal)
		ok = isProposal && p.ProposerUID() == actor.UserID
	case IsParticipant:
		p, isProposal := entity.(Proposal)
		ok = isProposal && (p.ProposerUID() == actor.UserID || p.OwnerUID() == actor.UserID)
	default:
		return fmt.Errorf("%w: unknown relation %q", ErrForbidden, rel)
	}
	if !ok {
		return fmt.Errorf("%w: %s required", ErrForbidden, rel)
	}
	return nil
}
