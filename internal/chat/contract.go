//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package chat

// Peer is a participant the Registry can deliver lines to.
// Send must be safe for concurrent use; Close must be idempotent.
type Peer interface {
	ID() string
	Name() string
	Send(line string) error
	Close() error
}

// ActivityLog records join, chat and departure lines for humans to read.
type ActivityLog interface {
	Record(message string)
}

type nopActivityLog struct{}

func (nopActivityLog) Record(string) {}
