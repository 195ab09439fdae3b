package updater

import (
	"github.com/biadnet/go-biadnet/iblt"
)

//go:generate mockgen -typed -package=updater -destination=./mocks.go -source=./interface.go

// contentStore is the local content the updater reconciles with peers.
type contentStore interface {
	Tip() (iblt.ID, bool)
	Sketch() *iblt.Table
	Snapshot() *iblt.Snapshot
	Count() int
	Has(id iblt.ID) (bool, error)
	IDs(offset, limit int) ([]iblt.ID, error)
	Get(id iblt.ID) ([]byte, error)
	PutWithID(id iblt.ID, data []byte) error
}
