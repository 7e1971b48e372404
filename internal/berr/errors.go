// Package berr defines the closed set of domain error kinds the bridge core
// raises. HTTP handlers map each kind to a status code; nothing outside this
// set should ever reach that mapping layer.
package berr

import "fmt"

// NotFound is raised when a lookup misses entirely.
type NotFound struct{ Rid string }

func (e *NotFound) Error() string { return fmt.Sprintf("not found: %s", e.Rid) }

// WrongType is raised when a resource exists under the requested rid but its
// variant doesn't match what the caller expected.
type WrongType struct{ Expected, Got string }

func (e *WrongType) Error() string {
	return fmt.Sprintf("wrong type: expected %s, got %s", e.Expected, e.Got)
}

// Full is raised when a numeric-id space (scene index, legacy alias) is
// exhausted for the given resource type.
type Full struct{ RType string }

func (e *Full) Error() string { return fmt.Sprintf("id space full: %s", e.RType) }

// DeleteDenied is raised when a delete targets an undeletable resource.
type DeleteDenied struct{ Rid string }

func (e *DeleteDenied) Error() string { return fmt.Sprintf("delete denied: %s", e.Rid) }

// UpdateUnsupported is raised by a PUT against a resource type with no
// update implementation.
type UpdateUnsupported struct{ RType string }

func (e *UpdateUnsupported) Error() string {
	return fmt.Sprintf("update unsupported: %s", e.RType)
}

// AuxNotFound is raised when aux metadata is missing for a rid that should
// carry it (e.g. a scene with no recall index).
type AuxNotFound struct{ Rid string }

func (e *AuxNotFound) Error() string { return fmt.Sprintf("aux not found: %s", e.Rid) }

// V1CreateUnsupported is raised by a legacy POST endpoint; the v1 dialect
// never supported resource creation on this daemon.
type V1CreateUnsupported struct{ RType string }

func (e *V1CreateUnsupported) Error() string {
	return fmt.Sprintf("v1 create unsupported: %s", e.RType)
}

// CertificateInvalid is process-fatal: the on-disk certificate doesn't match
// the derived bridge identity, or can't be parsed at all.
type CertificateInvalid struct {
	Path   string
	Reason string
}

func (e *CertificateInvalid) Error() string {
	return fmt.Sprintf("certificate invalid at %s: %s", e.Path, e.Reason)
}

// StateVersionNotFound is process-fatal: the persisted state file carries no
// recognizable version tag.
type StateVersionNotFound struct{ Path string }

func (e *StateVersionNotFound) Error() string {
	return fmt.Sprintf("state file %s has no version tag", e.Path)
}

// UnexpectedGWReply marks a GW protocol break: a non-text frame, or a text
// frame that fails to parse as the expected tagged union. It terminates the
// inner event loop; the outer reconnect loop takes over.
type UnexpectedGWReply struct{ Preview string }

func (e *UnexpectedGWReply) Error() string {
	return fmt.Sprintf("unexpected gw reply: %q", e.Preview)
}

// HTTPStatus maps a berr error to the HTTP status the API returns for it.
// Anything not in this closed set maps to 500.
func HTTPStatus(err error) int {
	switch err.(type) {
	case *NotFound:
		return 404
	case *WrongType:
		return 406
	case *Full:
		return 507
	case *DeleteDenied:
		return 403
	case *UpdateUnsupported, *AuxNotFound, *V1CreateUnsupported:
		return 500
	default:
		return 500
	}
}
