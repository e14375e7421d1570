package schema

import (
	"marketdata/internal/model"
	"marketdata/internal/model/enum"
)

// SchemaVersion is the current envelope schema version.
const SchemaVersion uint16 = 1

// Header is the common metadata attached to every envelope.
type Header struct {
	Token   string         `json:"token"`
	Op      enum.Operation `json:"op"`
	Version uint16         `json:"version"`
	SentAt  int64          `json:"sentAt"`
}

// NewHeader builds a header with the current schema version.
func NewHeader(token string, op enum.Operation, sentAt int64) Header {
	return Header{
		Token:   token,
		Op:      op,
		Version: SchemaVersion,
		SentAt:  sentAt,
	}
}

// Command is a request envelope. Which body field is set depends on Header.Op.
type Command struct {
	Header

	Fields  *model.Fields `json:"fields,omitempty"`
	Symbol  string        `json:"symbol,omitempty"`
	Source  string        `json:"source,omitempty"`
	Symbols []*string     `json:"symbols,omitempty"`
}

// Result is the outcome of a mutation. Kind is empty on success.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Response is a reply envelope, a tagged union on Header.Op:
//   - update, delete: Status
//   - query specific, query consolidated: Record, nil when not found
//   - query batch: Batch
//
// Status is also set on a read that failed inside the engine.
type Response struct {
	Header

	Status *Result               `json:"status,omitempty"`
	Record *model.MarketRecord   `json:"record,omitempty"`
	Batch  []*model.MarketRecord `json:"batch,omitempty"`
}

// NewUpdate builds a save command.
func NewUpdate(token string, sentAt int64, f model.Fields) Command {
	return Command{Header: NewHeader(token, enum.OperationUpdate, sentAt), Fields: &f}
}

// NewQuerySpecific builds a lookup of one (symbol, source) record.
func NewQuerySpecific(token string, sentAt int64, symbol, source string) Command {
	return Command{Header: NewHeader(token, enum.OperationQuerySpecific, sentAt), Symbol: symbol, Source: source}
}

// NewQueryConsolidated builds a lookup of the consolidated record of symbol.
func NewQueryConsolidated(token string, sentAt int64, symbol string) Command {
	return Command{Header: NewHeader(token, enum.OperationQueryConsolidated, sentAt), Symbol: symbol}
}

// NewQueryBatch builds a batch lookup. Nil entries are kept as placeholders.
func NewQueryBatch(token string, sentAt int64, symbols []*string) Command {
	if symbols == nil {
		symbols = []*string{}
	}
	return Command{Header: NewHeader(token, enum.OperationQueryBatch, sentAt), Symbols: symbols}
}

// NewDelete builds a delete command.
func NewDelete(token string, sentAt int64, symbol, source string) Command {
	return Command{Header: NewHeader(token, enum.OperationDelete, sentAt), Symbol: symbol, Source: source}
}

// Key returns the partition key of c: the symbol for everything that carries one, the token otherwise.
func (c Command) Key() string {
	switch {
	case c.Fields != nil && c.Fields.Symbol != "":
		return c.Fields.Symbol
	case c.Symbol != "":
		return c.Symbol
	default:
		return c.Token
	}
}

// Reply builds the response header answering c.
func (c Command) Reply(sentAt int64) Header {
	return NewHeader(c.Token, c.Op, sentAt)
}
