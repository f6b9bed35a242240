package settings

import "fmt"

// Area selects one of the two independent documents.
type Area int

const (
	// Local is the default, device-local document.
	Local Area = iota
	// Sync is the document replicated by the backend across devices.
	Sync
)

func (a Area) String() string {
	switch a {
	case Local:
		return "local"
	case Sync:
		return "sync"
	default:
		return fmt.Sprintf("Area(%d)", int(a))
	}
}

// ParseArea maps "local" or "sync" to an Area. The empty string is Local.
func ParseArea(s string) (Area, error) {
	switch s {
	case "local", "":
		return Local, nil
	case "sync":
		return Sync, nil
	default:
		return 0, fmt.Errorf("%w: unknown area %q", ErrInvalidArgument, s)
	}
}
