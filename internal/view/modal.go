package view

import (
	"github.com/a-h/templ"

	"github.com/DukeRupert/shopdesk/internal/confirm"
)

// ConfirmModal renders the delete confirmation for an open dialog token.
// Confirm posts the token; Cancel posts to the cancel route and the modal
// is replaced with the empty response.
func ConfirmModal(token string, target confirm.Target) templ.Component {
	return fragment("confirm_modal", struct {
		Token  string
		Target confirm.Target
	}{token, target})
}

// ClosedModal removes the modal. A non-empty message is swapped into
// #alerts out of band.
func ClosedModal(message string) templ.Component {
	return fragment("closed_modal", message)
}
