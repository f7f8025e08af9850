package kobject

// Kind is the closed resource category a Kobject wraps.
type Kind int

const (
	// KindFile is a regular file backed by a Dirent
	KindFile Kind = iota

	// KindDirectory is a directory backed by a Dirent
	KindDirectory

	// KindDevice is a block-addressed device
	KindDevice

	// KindWindow is a compositor window with its event queue
	KindWindow

	// KindConsole is a text console bound to a window
	KindConsole

	// KindPipe is a byte-stream pipe
	KindPipe
)

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	return []Kind{KindFile, KindDirectory, KindDevice, KindWindow, KindConsole, KindPipe}
}

// String returns the kind name, suitable for logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindDevice:
		return "device"
	case KindWindow:
		return "window"
	case KindConsole:
		return "console"
	case KindPipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Dimensions returns how many values Size reports for the kind.
func (k Kind) Dimensions() int {
	switch k {
	case KindWindow, KindConsole, KindDevice:
		return 2
	case KindFile, KindDirectory, KindPipe:
		return 1
	default:
		return 0
	}
}
