package archive

// Archiver stores JSON exports of computed snapshots and dashboards.
type Archiver interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
}

// Noop discards exports; used when no archive backend is configured.
type Noop struct{}

var _ Archiver = (*Noop)(nil)

func (Noop) Store(string, []byte) error            { return nil }
func (Noop) Retrieve(string) ([]byte, error)       { return nil, nil }
func (Noop) List(string) ([]string, error)         { return nil, nil }
