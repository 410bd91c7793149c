package story

import (
	"talehub/internal/apperr"
	"talehub/internal/domain"
)

// CanMutate reports whether accountID may change the story's content.
func CanMutate(st domain.Story, accountID uint) bool {
	return st.Editable && st.HasOwner(accountID)
}

// Authorize explains a CanMutate refusal: Forbidden for non-owners,
// NotEditable for owners of a locked story.
func Authorize(st domain.Story, accountID uint) error {
	if !st.HasOwner(accountID) {
		return apperr.Forbidden("you are not an owner of this story")
	}
	if !st.Editable {
		return apperr.New(apperr.KindNotEditable, "story is not editable")
	}
	return nil
}

// AuthorizeDelete only checks ownership. A locked story freezes its
// content, not its existence, so owners can still delete it.
func AuthorizeDelete(st domain.Story, accountID uint) error {
	if !st.HasOwner(accountID) {
		return apperr.Forbidden("only an owner can delete this story")
	}
	return nil
}
